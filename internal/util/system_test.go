package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetSystemInfo(t *testing.T) {
	info := GetSystemInfo()
	if info.NumCPU != runtime.NumCPU() {
		t.Errorf("NumCPU = %d, want %d", info.NumCPU, runtime.NumCPU())
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s, want %s/%s", info.OS, info.Arch, runtime.GOOS, runtime.GOARCH)
	}
}

func TestWorkerCount(t *testing.T) {
	if got := WorkerCount(3); got != 3 {
		t.Errorf("WorkerCount(3) = %d, want 3", got)
	}
	if got := WorkerCount(0); got != runtime.NumCPU() {
		t.Errorf("WorkerCount(0) = %d, want %d", got, runtime.NumCPU())
	}
}

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "walk.yaml")

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"next to input", "", filepath.Join(dir, "walk.reduced.yaml")},
		{"into directory", dir, filepath.Join(dir, "walk.reduced.yaml")},
		{"explicit file", filepath.Join(dir, "out.yaml"), filepath.Join(dir, "out.yaml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveOutputPath(input, tt.output); got != tt.want {
				t.Errorf("ResolveOutputPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsDocumentFile(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.YML")
	other := filepath.Join(dir, "a.txt")
	for _, p := range []string{doc, other} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if !IsDocumentFile(doc) {
		t.Error("expected .YML to be a document")
	}
	if IsDocumentFile(other) {
		t.Error("expected .txt not to be a document")
	}
	if IsDocumentFile(dir) {
		t.Error("directories are not documents")
	}
	if !FileExists(doc) || FileExists(filepath.Join(dir, "missing.yaml")) {
		t.Error("FileExists mismatch")
	}
	if got := GetFileStem(doc); got != "a" {
		t.Errorf("GetFileStem = %q", got)
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.yaml")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"directory", dir, true},
		{"file", file, false},
		{"missing", filepath.Join(dir, "nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DirExists(tt.path); got != tt.want {
				t.Errorf("DirExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
