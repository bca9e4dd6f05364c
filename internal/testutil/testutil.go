// Package testutil provides shared test helpers for setting up vaults.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/sandbox"
	"github.com/starford/ansuz/internal/vault"
)

// TestVault creates a temporary vault directory with a Service over it.
func TestVault(t *testing.T) (string, *vault.Service) {
	t.Helper()
	dir := t.TempDir()
	sb, err := sandbox.New([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	return dir, vault.NewService(sb)
}

// MultiVault creates a Service over several temporary vault roots.
func MultiVault(t *testing.T, n int) ([]string, *vault.Service) {
	t.Helper()
	roots := make([]string, n)
	for i := range roots {
		roots[i] = t.TempDir()
	}
	sb, err := sandbox.New(roots)
	if err != nil {
		t.Fatal(err)
	}
	return roots, vault.NewService(sb)
}

// WriteFile writes a file under dir, creating parents, and fails the test on error.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
