// Package parser extracts links, tags, frontmatter, and inline fields from
// raw Markdown note text.
//
// Both entry points are pure and total: malformed input degrades to partial
// or empty results, never an error. The recognized syntax is the small
// lexical subset used by vault notes ([[wikilinks]], [label](target.md),
// leading --- frontmatter, Key:: Value fields, #tags), not full CommonMark.
package parser

import (
	"regexp"
	"strings"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	tagRe      = regexp.MustCompile(`#([\w-]+)`)
	fieldRe    = regexp.MustCompile(`([\w-]+)::([^\n]*)`)
)

// LinkSet holds the outgoing links of one note, ordered by first occurrence
// and deduplicated.
type LinkSet struct {
	WikiLinks     []string `json:"wikiLinks"`
	MarkdownLinks []string `json:"markdownLinks"`
}

// Total returns the combined number of extracted links.
func (l LinkSet) Total() int {
	return len(l.WikiLinks) + len(l.MarkdownLinks)
}

// Metadata holds the frontmatter mapping, inline fields, and tag set of one
// note. Frontmatter values are raw trimmed strings; no type coercion.
type Metadata struct {
	Frontmatter map[string]string `json:"frontmatter"`
	Fields      map[string]string `json:"fields"`
	Tags        []string          `json:"tags"`
}

// ExtractLinks parses wiki-style and markdown-style links out of text.
// Wiki targets drop everything after the first | (the alias); markdown
// targets are kept only when they end in .md and are not URLs.
func ExtractLinks(text string) LinkSet {
	var ls LinkSet

	seen := make(map[string]struct{})
	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		ls.WikiLinks = append(ls.WikiLinks, target)
	}

	seen = make(map[string]struct{})
	for _, m := range mdLinkRe.FindAllStringSubmatch(text, -1) {
		target := strings.TrimSpace(m[2])
		if !strings.HasSuffix(target, ".md") || strings.HasPrefix(target, "http") {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		ls.MarkdownLinks = append(ls.MarkdownLinks, target)
	}

	return ls
}

// ExtractMetadata parses frontmatter, inline fields, and tags out of text.
func ExtractMetadata(text string) Metadata {
	fm := parseFrontmatter(text)

	fields := make(map[string]string)
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(m[1])
		if key == "" {
			continue
		}
		// Later occurrences overwrite earlier ones.
		fields[key] = strings.TrimSpace(m[2])
	}

	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		if tag == "" || tag == "#" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		add("#" + m[1])
	}
	if raw, ok := fm["tags"]; ok {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			add("#" + strings.TrimPrefix(t, "#"))
		}
	}

	return Metadata{Frontmatter: fm, Fields: fields, Tags: tags}
}

// parseFrontmatter reads a leading ----delimited block of key: value lines.
// Lines without a colon are skipped; values stay raw strings. Returns an
// empty map when the text does not start with a complete block.
func parseFrontmatter(text string) map[string]string {
	fm := make(map[string]string)

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != "---" {
		return fm
	}

	closed := false
	end := 0
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == "---" {
			closed = true
			end = i
			break
		}
	}
	if !closed {
		return fm
	}

	for _, line := range lines[1:end] {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		fm[key] = strings.TrimSpace(line[idx+1:])
	}
	return fm
}
