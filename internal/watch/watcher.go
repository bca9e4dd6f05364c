// Package watch observes the vault roots for note changes and reports them
// as events. There is no index to maintain - queries always hit the live
// filesystem - so the watcher exists purely to feed the SSE event stream.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for each observed note change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher over every vault root and processes file
// change events until ctx is cancelled. Paths passed to cb are relative to
// the root the change happened under.
//
// New directories created at runtime are automatically added to the watch
// list. A rename of the old path is reported as a deletion; the new path
// arrives as its own create event when it stays inside a watched directory.
func Watch(ctx context.Context, roots []string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("roots", roots))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: add to watcher and report any .md files
			// already inside.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					reportNewDir(roots, absPath, cb)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			if strings.Contains(filepath.Base(absPath), ".ansuz-tmp-") {
				// Intermediate files from atomic writes.
				continue
			}

			rel, root := relToRoot(roots, absPath)
			if root == "" {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				logger.Debug("watcher: note created", slog.String("path", rel))
				if cb != nil {
					cb("created", rel)
				}
			case ev.Op&fsnotify.Write != 0:
				logger.Debug("watcher: note updated", slog.String("path", rel))
				if cb != nil {
					cb("updated", rel)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: note deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relToRoot returns abs relative to the root containing it, and that root.
func relToRoot(roots []string, abs string) (string, string) {
	for _, root := range roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return rel, root
	}
	return "", ""
}

// reportNewDir reports any .md files found in a newly created directory.
func reportNewDir(roots []string, dirPath string, cb EventCallback) {
	if cb == nil {
		return
	}
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		if rel, root := relToRoot(roots, path); root != "" {
			cb("created", rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
