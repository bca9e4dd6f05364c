package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/sandbox"
)

// WriteNote overwrites (or creates) the note at path with exactly content.
// Missing parent directories are created. The path must end in .md.
func (s *Service) WriteNote(path, content string) error {
	abs, err := s.resolveMarkdown(path)
	if err != nil {
		return err
	}
	return writeFile(abs, []byte(content))
}

// AppendNote appends content to the note at path, separated from any
// existing content by a newline. A missing note is treated as empty, not an
// error. Append is deliberately not idempotent: repeated calls accumulate.
func (s *Service) AppendNote(path, content string) error {
	abs, err := s.resolveMarkdown(path)
	if err != nil {
		return err
	}
	existing, err := readIfPresent(abs)
	if err != nil {
		return err
	}
	if existing != "" {
		content = existing + "\n" + content
	}
	return writeFile(abs, []byte(content))
}

// CreateLink appends a wiki link to toPath at the end of fromPath,
// separated by a blank line. Only fromPath is sandboxed; the link target is
// a logical note name and is neither validated nor required to exist.
// Repeated calls append the link again - no deduplication.
func (s *Service) CreateLink(fromPath, toPath, linkText string) error {
	abs, err := s.resolveNote(fromPath)
	if err != nil {
		return err
	}

	target := strings.TrimSuffix(toPath, ".md")
	link := "[[" + target + "]]"
	if linkText != "" {
		link = "[[" + target + "|" + linkText + "]]"
	}

	existing, err := readIfPresent(abs)
	if err != nil {
		return err
	}
	content := link
	if existing != "" {
		content = existing + "\n\n" + link
	}
	return writeFile(abs, []byte(content))
}

// resolveMarkdown enforces the .md extension gate, then sandboxes the path
// as a write target (missing parent directories are allowed - the write
// creates them).
func (s *Service) resolveMarkdown(path string) (string, error) {
	if !strings.HasSuffix(path, ".md") {
		return "", apperr.ErrNotMarkdown
	}
	if sandbox.HasHiddenSegment(path) {
		return "", apperr.ErrHiddenPath
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return s.sb.ResolveCreatable(path)
	}
	return s.sb.ResolveCreatable(filepath.Join(s.sb.PrimaryRoot(), path))
}

func readIfPresent(abs string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	return string(data), nil
}

// writeFile writes atomically: tmp file in the target directory, fsync,
// rename. Parent directories are created first.
func writeFile(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}
