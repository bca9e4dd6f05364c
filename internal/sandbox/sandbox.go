// Package sandbox confines every path the server touches to a fixed set of
// vault root directories.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Sandbox validates requested paths against an immutable list of vault roots.
// It holds no state beyond the configured roots and performs only stat and
// realpath calls.
type Sandbox struct {
	roots []string // absolute, cleaned
}

// New creates a sandbox over the given root directories. Each root is made
// absolute; the list order is preserved (the first root is the write
// authority for relative note paths).
func New(roots []string) (*Sandbox, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("sandbox: at least one root directory is required")
	}
	abs := make([]string, len(roots))
	for i, r := range roots {
		r = ExpandHome(r)
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve root %s: %w", r, err)
		}
		// Roots are stored in real-path form so the post-resolution
		// containment re-check agrees with resolved request paths.
		if real, err := filepath.EvalSymlinks(a); err == nil {
			a = real
		}
		abs[i] = filepath.Clean(a)
	}
	return &Sandbox{roots: abs}, nil
}

// Roots returns the configured roots in order.
func (s *Sandbox) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// PrimaryRoot returns the first configured root, the authority for
// relative-path mutations.
func (s *Sandbox) PrimaryRoot() string {
	return s.roots[0]
}

// ExpandHome expands a leading ~ to the invoking user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		if p == "~" {
			return home
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// normalize produces the comparison form of a path: cleaned, forward slashes,
// lower case. Containment checks tolerate platform case and separator
// differences this way.
func normalize(p string) string {
	return strings.ToLower(filepath.ToSlash(filepath.Clean(p)))
}

// inside reports whether p (absolute) is contained in any configured root.
// The match requires a separator boundary after the root prefix, so a root
// /a/b does not claim /a/bc.
func (s *Sandbox) inside(p string) bool {
	np := normalize(p)
	for _, root := range s.roots {
		nr := normalize(root)
		if np == nr || strings.HasPrefix(np, nr+"/") {
			return true
		}
	}
	return false
}

// HasHiddenSegment is the hidden-segment gate Resolve applies, exposed for
// callers that join relative requests onto a root (joining cleans the path,
// and the gate must see the request as written).
func HasHiddenSegment(requested string) bool {
	return hasHiddenSegment(requested)
}

// hasHiddenSegment reports whether any component of the raw requested path
// starts with a dot. The string is split as-is, with no lexical cleaning, so
// a trailing `..` cannot erase a hidden segment before the gate sees it.
// Bare `.` and `..` segments are traversal, not hidden names; they fall
// through to the containment check.
func hasHiddenSegment(requested string) bool {
	for _, part := range strings.Split(filepath.ToSlash(requested), "/") {
		if part == "" || part == "." || part == ".." || part == "~" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Resolve validates requested and returns the absolute real path it denotes.
//
// The sequence is fixed: hidden-segment gate on the raw path, ~ expansion,
// absolutization against the working directory, containment check, then a
// realpath re-check. For paths that do not exist yet the parent directory is
// realpath-resolved instead and must itself pass containment; a missing
// parent is reported distinctly from a denial.
func (s *Sandbox) Resolve(requested string) (string, error) {
	if hasHiddenSegment(requested) {
		return "", apperr.ErrHiddenPath
	}

	expanded := ExpandHome(requested)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve %s: %w", requested, err)
	}
	abs = filepath.Clean(abs)

	if !s.inside(abs) {
		return "", apperr.ErrOutsideRoots
	}

	real, err := filepath.EvalSymlinks(abs)
	if err == nil {
		// Existing path: the real target must also be inside a root,
		// otherwise a symlink is smuggling us out of the sandbox.
		if !s.inside(real) {
			return "", apperr.ErrSymlinkEscape
		}
		return real, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("sandbox: realpath %s: %w", requested, err)
	}

	// New-file case: validate the real parent instead.
	parent := filepath.Dir(abs)
	realParent, err := filepath.EvalSymlinks(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.ErrParentMissing
		}
		return "", fmt.Errorf("sandbox: realpath parent of %s: %w", requested, err)
	}
	if !s.inside(realParent) {
		return "", apperr.ErrParentOutsideRoots
	}
	return filepath.Join(realParent, filepath.Base(abs)), nil
}

// ResolveCreatable is Resolve for write targets: intermediate directories
// may be missing, since mutations create them. The nearest existing
// ancestor is realpath-resolved and must pass containment; the missing tail
// is re-joined onto its real path.
func (s *Sandbox) ResolveCreatable(requested string) (string, error) {
	abs, err := s.Resolve(requested)
	if err == nil || !errors.Is(err, apperr.ErrParentMissing) {
		return abs, err
	}

	expanded := ExpandHome(requested)
	full, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve %s: %w", requested, err)
	}
	full = filepath.Clean(full)

	// Walk up to the nearest ancestor that exists.
	ancestor := filepath.Dir(full)
	var tail []string
	tail = append(tail, filepath.Base(full))
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return "", apperr.ErrParentMissing
		}
		tail = append([]string{filepath.Base(ancestor)}, tail...)
		ancestor = parent
	}

	real, err := filepath.EvalSymlinks(ancestor)
	if err != nil {
		return "", fmt.Errorf("sandbox: realpath %s: %w", ancestor, err)
	}
	if !s.inside(real) {
		return "", apperr.ErrParentOutsideRoots
	}
	return filepath.Join(append([]string{real}, tail...)...), nil
}
