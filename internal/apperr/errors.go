// Package apperr defines the sentinel errors shared across the vault components.
package apperr

import "errors"

// Sandbox denial reasons. Callers treat all of them as per-request errors;
// traversal code treats them as "skip this entry".
var (
	ErrHiddenPath         = errors.New("access denied - hidden files/directories not allowed")
	ErrOutsideRoots       = errors.New("access denied - path outside allowed directories")
	ErrSymlinkEscape      = errors.New("access denied - symlink target outside allowed directories")
	ErrParentMissing      = errors.New("parent directory does not exist")
	ErrParentOutsideRoots = errors.New("access denied - parent directory outside allowed directories")
)

// ErrNotMarkdown is returned by write/append when the target path does not end in .md.
var ErrNotMarkdown = errors.New("only .md files are supported")
