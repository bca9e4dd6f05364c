package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/parser"
)

// SearchOutcome is the result of a name search: matching vault-relative
// paths capped at SearchLimit, plus the number of matches beyond the cap.
type SearchOutcome struct {
	Paths    []string
	Overflow int
}

// admit is the per-entry traversal gate: an entry that fails sandboxing is
// skipped, never surfaced as a partial error.
func (s *Service) admit(abs string) bool {
	_, err := s.sb.Resolve(abs)
	return err == nil
}

// walkRoot visits every .md file under root depth-first, using an explicit
// work stack rather than recursion so deep vaults cannot exhaust the call
// stack. Entries failing the sandbox gate and unreadable subdirectories are
// skipped silently; only an unreadable root fails the walk. Within a
// directory, visitation follows the underlying listing order.
func (s *Service) walkRoot(ctx context.Context, root string, visit func(rel, abs string)) error {
	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		f, err := os.Open(dir)
		if err != nil {
			if dir == root {
				return fmt.Errorf("vault: open root %s: %w", root, err)
			}
			continue
		}
		entries, err := f.ReadDir(-1)
		f.Close()
		if err != nil {
			if dir == root {
				return fmt.Errorf("vault: list root %s: %w", root, err)
			}
			continue
		}

		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			if !s.admit(full) {
				continue
			}
			if e.IsDir() {
				stack = append(stack, full)
				continue
			}
			if !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			rel, err := filepath.Rel(root, full)
			if err != nil {
				continue
			}
			visit(rel, full)
		}
	}
	return nil
}

// eachNote runs visit for every admitted .md file across all roots, walking
// the roots concurrently. visit receives the vault-relative path and the
// raw content; files that cannot be read are skipped. visit may be called
// from multiple goroutines.
func (s *Service) eachNote(ctx context.Context, visit func(rel string, content []byte)) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, root := range s.sb.Roots() {
		g.Go(func() error {
			return s.walkRoot(gCtx, root, func(rel, abs string) {
				data, err := os.ReadFile(abs)
				if err != nil {
					return
				}
				visit(rel, data)
			})
		})
	}
	return g.Wait()
}

// SearchNotes returns the vault-relative paths of notes whose filename
// matches query, either as a case-insensitive substring or as a glob
// pattern (* matches any sequence). Invalid patterns are non-matching, not
// errors. Results are capped at SearchLimit with the overflow counted.
func (s *Service) SearchNotes(ctx context.Context, query string) (SearchOutcome, error) {
	lq := strings.ToLower(query)
	var g glob.Glob
	if compiled, err := glob.Compile(lq); err == nil {
		g = compiled
	}

	var mu sync.Mutex
	var all []string

	eg, gCtx := errgroup.WithContext(ctx)
	for _, root := range s.sb.Roots() {
		eg.Go(func() error {
			return s.walkRoot(gCtx, root, func(rel, abs string) {
				name := strings.ToLower(filepath.Base(rel))
				if !strings.Contains(name, lq) && (g == nil || !g.Match(name)) {
					return
				}
				mu.Lock()
				all = append(all, rel)
				mu.Unlock()
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return SearchOutcome{}, err
	}

	if len(all) > SearchLimit {
		return SearchOutcome{Paths: all[:SearchLimit], Overflow: len(all) - SearchLimit}, nil
	}
	return SearchOutcome{Paths: all}, nil
}

// FindBacklinks returns the vault-relative paths of every note linking to
// target. A wiki link matches on the bare name (target minus .md) or the
// full path; a markdown link matches on the full path or a /-suffixed form.
// Each source note is reported at most once.
func (s *Service) FindBacklinks(ctx context.Context, target string) ([]string, error) {
	target = filepath.ToSlash(target)
	bare := strings.TrimSuffix(target, ".md")

	var mu sync.Mutex
	var out []string

	err := s.eachNote(ctx, func(rel string, content []byte) {
		ls := parser.ExtractLinks(string(content))
		linked := false
		for _, w := range ls.WikiLinks {
			if w == bare || w == target {
				linked = true
				break
			}
		}
		if !linked {
			for _, m := range ls.MarkdownLinks {
				if m == target || strings.HasSuffix(m, "/"+target) {
					linked = true
					break
				}
			}
		}
		if linked {
			mu.Lock()
			out = append(out, rel)
			mu.Unlock()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchByTags returns notes whose tag set contains all requested tags
// (matchAll) or at least one of them. Requested tags are normalized to the
// #-prefixed form before comparison.
func (s *Service) SearchByTags(ctx context.Context, tags []string, matchAll bool) ([]string, error) {
	want := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		want = append(want, "#"+strings.TrimPrefix(t, "#"))
	}
	if len(want) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var out []string

	err := s.eachNote(ctx, func(rel string, content []byte) {
		md := parser.ExtractMetadata(string(content))
		have := make(map[string]struct{}, len(md.Tags))
		for _, t := range md.Tags {
			have[t] = struct{}{}
		}

		matched := matchAll
		for _, t := range want {
			_, ok := have[t]
			if matchAll && !ok {
				matched = false
				break
			}
			if !matchAll && ok {
				matched = true
				break
			}
		}
		if matched {
			mu.Lock()
			out = append(out, rel)
			mu.Unlock()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractLinks parses the outgoing links of a single note.
func (s *Service) ExtractLinks(path string) (parser.LinkSet, error) {
	content, err := s.ReadNote(path)
	if err != nil {
		return parser.LinkSet{}, err
	}
	return parser.ExtractLinks(content), nil
}

// ExtractMetadata parses the frontmatter, inline fields, and tags of a
// single note.
func (s *Service) ExtractMetadata(path string) (parser.Metadata, error) {
	content, err := s.ReadNote(path)
	if err != nil {
		return parser.Metadata{}, err
	}
	return parser.ExtractMetadata(content), nil
}
