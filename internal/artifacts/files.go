// Package artifacts reads dream files from disk and writes interpretation
// text next to them.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const outputSuffix = "_interpreted"

// ErrEmptyInterpretation is returned instead of writing an empty file.
var ErrEmptyInterpretation = errors.New("artifacts: interpretation is empty")

// Files implements both directions. When OutputDir is set, outputs are
// written there using the source's base name.
type Files struct {
	OutputDir string
}

func New(outputDir string) *Files {
	return &Files{OutputDir: strings.TrimSpace(outputDir)}
}

// ReadDream returns the UTF-8 content of path.
func (f *Files) ReadDream(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("artifacts: read %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("artifacts: %s is not valid UTF-8", path)
	}
	return string(raw), nil
}

// SaveInterpretation writes the trimmed text to OutputPath(source) and
// returns that path. Only the configured OutputDir is ever created.
func (f *Files) SaveInterpretation(source, text string) (string, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return "", ErrEmptyInterpretation
	}
	out := f.OutputPath(source)
	if f.OutputDir != "" {
		if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
			return "", fmt.Errorf("artifacts: create %s: %w", f.OutputDir, err)
		}
	}
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", out, err)
	}
	return out, nil
}

// OutputPath inserts "_interpreted" before the extension of source, using
// ".txt" when source has none.
func (f *Files) OutputPath(source string) string {
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(source, ext)
	if ext == "" {
		ext = ".txt"
	}
	name := base + outputSuffix + ext
	if f.OutputDir != "" {
		return filepath.Join(f.OutputDir, filepath.Base(name))
	}
	return name
}
