// Package testgen provides utilities for generating comic test files with
// configurable pages and metadata for testing the sync pipeline.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// CBZOptions configures the generated CBZ file.
type CBZOptions struct {
	Title            string
	Series           string
	Number           string
	Writer           string
	Manga            bool     // emits <Manga>Yes</Manga>
	PageCount        int      // defaults to 3; ignored when PageNames is set
	PageNames        []string // explicit in-archive page names, written in the given order
	HasComicInfo     bool     // whether to include ComicInfo.xml
	CoverPageType    string   // "FrontCover" or "" (none specified)
	CoverPageIndex   int      // which page gets CoverPageType
	ImageFormat      string   // "png" or "jpeg", defaults to "png"
	CorruptPageIndex *int     // page whose stored CRC is deliberately wrong
}

// TempDir creates a temporary directory for testing and registers cleanup.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// TempLibraryDir creates a temporary library root for testing.
func TempLibraryDir(t *testing.T) string {
	t.Helper()
	return TempDir(t, "testgen-library-*")
}

// CreateSubDir creates a subdirectory within the given parent directory.
func CreateSubDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create subdirectory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}

// StringPtr is a helper to create a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// IntPtr is a helper to create a pointer to an int.
func IntPtr(i int) *int {
	return &i
}
