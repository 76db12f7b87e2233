package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validateRelativePath rejects names that are absolute or that resolve
// outside dir.
func validateRelativePath(dir, name string) error {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("absolute path not allowed: %s", name)
	}
	rel, err := filepath.Rel(dir, filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("cannot compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes directory: %s", name)
	}
	return nil
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path. name must stay inside dir.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	if err := validateRelativePath(dir, name); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	path := filepath.Join(dir, filepath.Clean(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

// WriteJSON marshals v with indentation and writes it like WriteFile.
func WriteJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	return WriteFile(t, dir, name, data)
}

// MustExist fails the test if path cannot be stat'ed.
func MustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// MustNotExist fails the test if path exists or cannot be checked.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("expected %s to not exist", path)
	}
	if !os.IsNotExist(err) {
		t.Fatalf("unexpected error checking %s: %v", path, err)
	}
}
