// Package vault implements the whole-vault query engine and the note
// mutation operations on top of the path sandbox.
//
// Every result is derived on demand from the live filesystem; nothing is
// cached between calls. The filesystem is the sole source of truth.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/sandbox"
)

// SearchLimit caps the number of paths returned by a name search. Overflow
// is reported as a count, not as extra paths.
const SearchLimit = 200

// Service answers vault queries and performs note mutations. It is safe for
// concurrent use: the only state is the immutable sandbox root list.
type Service struct {
	sb *sandbox.Sandbox
}

// NewService creates a vault service over the given sandbox.
func NewService(sb *sandbox.Sandbox) *Service {
	return &Service{sb: sb}
}

// Sandbox exposes the underlying sandbox (used by the traversal tests).
func (s *Service) Sandbox() *sandbox.Sandbox {
	return s.sb
}

// resolveNote turns a user-supplied note path into a sandboxed absolute
// path. Relative paths resolve against the first configured root; absolute
// and ~-prefixed paths go to the sandbox as given. Reads can span every
// root, writes cannot - the first root is the single write authority.
func (s *Service) resolveNote(path string) (string, error) {
	// The hidden gate runs on the request as written; filepath.Join below
	// would clean `.hidden/..` pairs out of it.
	if sandbox.HasHiddenSegment(path) {
		return "", apperr.ErrHiddenPath
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return s.sb.Resolve(path)
	}
	return s.sb.Resolve(filepath.Join(s.sb.PrimaryRoot(), path))
}

// ReadNote returns the content of a single note.
func (s *Service) ReadNote(path string) (string, error) {
	abs, err := s.resolveNote(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
