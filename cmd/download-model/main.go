// Command download-model converts sentence-transformers/clip-ViT-B-32-multilingual-v1
// to ONNX for the local hugot embedding provider. The multilingual text encoder
// projects into the same vector space as CLIP ViT-B-32 image embeddings, so a
// catalog seeded through a CLIP service stays searchable offline.
//
// The conversion script is embedded so the command works when installed via
// `go install`. It shells out to uv (https://docs.astral.sh/uv/), which
// resolves the Python dependencies on first run.
//
// Usage: download-model [dest]
//
// Without an argument the model lands in the directory the serve command
// scans for local models.
package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/skyvisionhq/skyvision/internal/config"
)

//go:embed convert-model.py
var convertScript []byte

const (
	modelName      = "clip-ViT-B-32-multilingual-v1"
	convertTries   = 4
	convertBackoff = 2 * time.Second
)

func main() {
	dest := filepath.Join(config.DefaultDataDir(), "models", modelName)
	switch {
	case len(os.Args) > 2:
		fmt.Fprintln(os.Stderr, "usage: download-model [dest]")
		os.Exit(1)
	case len(os.Args) == 2:
		dest = os.Args[1]
	}

	if err := run(dest); err != nil {
		fmt.Fprintf(os.Stderr, "download-model: %v\n", err)
		os.Exit(1)
	}
}

func run(dest string) error {
	if modelPresent(dest) {
		fmt.Printf("Model already present at %s\n", dest)
		return nil
	}

	script, err := writeScript()
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(script) }()

	fmt.Printf("Converting %s to %s...\n", modelName, dest)

	// The conversion pulls weights from Hugging Face, which flakes often
	// enough that a few retries are worth the wait.
	var runErr error
	delay := convertBackoff
	for attempt := range convertTries {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, runErr)
			time.Sleep(delay)
			delay *= 2
		}

		cmd := exec.Command("uv", "run", script, dest)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if runErr = cmd.Run(); runErr == nil {
			fmt.Printf("Model ready at %s\n", dest)
			return nil
		}
	}
	return fmt.Errorf("convert model: %w", runErr)
}

// modelPresent reports whether dest already holds a converted model.
func modelPresent(dest string) bool {
	for _, f := range []string{
		filepath.Join(dest, "tokenizer.json"),
		filepath.Join(dest, "onnx", "model.onnx"),
	} {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

// writeScript materializes the embedded conversion script for uv to run.
func writeScript() (string, error) {
	tmp, err := os.CreateTemp("", "convert-model-*.py")
	if err != nil {
		return "", fmt.Errorf("create temp script: %w", err)
	}
	if _, err := tmp.Write(convertScript); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp script: %w", err)
	}
	return tmp.Name(), nil
}
