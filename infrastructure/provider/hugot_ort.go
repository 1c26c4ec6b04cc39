//go:build ORT

package provider

import (
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

func newHugotSession() (*hugot.Session, error) {
	opts := []options.WithOption{}
	if dir := ortLibraryDir(); dir != "" {
		opts = append(opts, options.WithOnnxLibraryPath(dir))
	}
	return hugot.NewORTSession(opts...)
}

// ortLibraryDir locates the ONNX Runtime shared library. SKYVISION_ORT_DIR
// wins, then the generic ORT_LIB_DIR, then a lib/ directory next to the
// binary or under the working directory. Empty means hugot's platform
// default.
func ortLibraryDir() string {
	for _, env := range []string{"SKYVISION_ORT_DIR", "ORT_LIB_DIR"} {
		if dir := os.Getenv(env); dir != "" {
			return dir
		}
	}

	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Join(filepath.Dir(exe), "lib"); isDir(dir) {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		if dir := filepath.Join(wd, "lib"); isDir(dir) {
			return dir
		}
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
