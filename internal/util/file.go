package util

import (
	"os"
	"path/filepath"
	"strings"
)

// DocumentExtensions is the list of supported animation document extensions.
var DocumentExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
}

// IsDocumentFile checks if the given path is an existing animation document.
func IsDocumentFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	return DocumentExtensions[ext]
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolveOutputPath determines where a reduced document is written. An empty
// output places "<stem>.reduced.yaml" next to the input; an output naming a
// directory receives that same file name inside it.
func ResolveOutputPath(inputPath, output string) string {
	name := GetFileStem(inputPath) + ".reduced.yaml"
	if output == "" {
		return filepath.Join(filepath.Dir(inputPath), name)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
