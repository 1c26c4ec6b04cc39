// Build-time tool that fetches the native libraries the local embedding
// provider links against: the ONNX Runtime shared library and the
// HuggingFace tokenizers static library.
//
// Required env: ORT_VERSION       (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR       (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// artifact is one native library to fetch: where it lives upstream and
// what the extracted file is called locally.
type artifact struct {
	label string
	url   string
	file  string
}

// ortArchives maps GOOS/GOARCH to the upstream archive name pattern and
// the shared library name inside it.
var ortArchives = map[string]struct {
	pattern string
	library string
}{
	"linux/amd64":  {"onnxruntime-linux-x64-%s.tgz", "libonnxruntime.so"},
	"linux/arm64":  {"onnxruntime-linux-aarch64-%s.tgz", "libonnxruntime.so"},
	"darwin/amd64": {"onnxruntime-osx-x86_64-%s.tgz", "libonnxruntime.dylib"},
	"darwin/arm64": {"onnxruntime-osx-arm64-%s.tgz", "libonnxruntime.dylib"},
}

// tokenizersArchives maps GOOS/GOARCH to the daulet/tokenizers release
// archive name. The static library inside is always libtokenizers.a.
var tokenizersArchives = map[string]string{
	"linux/amd64":  "libtokenizers.linux-amd64.tar.gz",
	"linux/arm64":  "libtokenizers.linux-arm64.tar.gz",
	"darwin/amd64": "libtokenizers.darwin-x86_64.tar.gz",
	"darwin/arm64": "libtokenizers.darwin-arm64.tar.gz",
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		return fmt.Errorf("ORT_VERSION env var is required")
	}
	tokVersion := envOr("TOKENIZERS_VERSION", "1.24.0")
	destDir := envOr("ORT_LIB_DIR", "./lib")

	artifacts, err := resolveArtifacts(ortVersion, tokVersion)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	for _, a := range artifacts {
		destPath := filepath.Join(destDir, a.file)
		if _, statErr := os.Stat(destPath); statErr == nil {
			fmt.Printf("%s already present at %s, skipping\n", a.label, destPath)
			continue
		}
		fmt.Printf("Downloading %s from %s\n", a.label, a.url)
		if err := fetchWithRetry(a, destDir); err != nil {
			return fmt.Errorf("%s: %w", a.label, err)
		}
		fmt.Printf("%s installed to %s\n", a.label, destPath)
	}
	return nil
}

func resolveArtifacts(ortVersion, tokVersion string) ([]artifact, error) {
	platform := runtime.GOOS + "/" + runtime.GOARCH

	ort, ok := ortArchives[platform]
	if !ok {
		return nil, fmt.Errorf("no ONNX Runtime archive for %s", platform)
	}
	tok, ok := tokenizersArchives[platform]
	if !ok {
		return nil, fmt.Errorf("no tokenizers archive for %s", platform)
	}

	return []artifact{
		{
			label: "ONNX Runtime " + ortVersion,
			url: fmt.Sprintf(
				"https://github.com/microsoft/onnxruntime/releases/download/v%s/%s",
				ortVersion, fmt.Sprintf(ort.pattern, ortVersion)),
			file: ort.library,
		},
		{
			label: "tokenizers " + tokVersion,
			url: fmt.Sprintf(
				"https://github.com/daulet/tokenizers/releases/download/v%s/%s",
				tokVersion, tok),
			file: "libtokenizers.a",
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fetchWithRetry(a artifact, destDir string) error {
	delay := 2 * time.Second
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetchOnce(a, destDir); err == nil {
			return nil
		}
	}
	return err
}

func fetchOnce(a artifact, destDir string) error {
	resp, err := http.Get(a.url) //nolint:gosec
	if err != nil {
		return fmt.Errorf("fetch %s: %w", a.url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, a.url)
	}
	return extractLibrary(resp.Body, destDir, a.file)
}

// extractLibrary scans a .tar.gz stream for the named library and writes it
// to destDir under its unversioned name. Release archives sometimes carry
// versioned variants like libonnxruntime.1.23.2.dylib, so the match accepts
// any name that shares the stem.
func extractLibrary(body io.Reader, destDir, filename string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != filename && !strings.HasPrefix(base, stem+".") {
			continue
		}
		return writeLibrary(filepath.Join(destDir, filename), tr)
	}
	return fmt.Errorf("%s not found in archive", filename)
}

func writeLibrary(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
