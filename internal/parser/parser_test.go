package parser

import (
	"reflect"
	"testing"
)

func TestExtractLinks_Basic(t *testing.T) {
	ls := ExtractLinks("[[A]] and [text](B.md)")
	if !reflect.DeepEqual(ls.WikiLinks, []string{"A"}) {
		t.Errorf("wiki = %v, want [A]", ls.WikiLinks)
	}
	if !reflect.DeepEqual(ls.MarkdownLinks, []string{"B.md"}) {
		t.Errorf("markdown = %v, want [B.md]", ls.MarkdownLinks)
	}
	if ls.Total() != 2 {
		t.Errorf("total = %d, want 2", ls.Total())
	}
}

func TestExtractLinks_AliasDiscarded(t *testing.T) {
	ls := ExtractLinks("see [[A|Alias]]")
	if !reflect.DeepEqual(ls.WikiLinks, []string{"A"}) {
		t.Errorf("wiki = %v, want [A]", ls.WikiLinks)
	}
}

func TestExtractLinks_DedupPreservesOrder(t *testing.T) {
	ls := ExtractLinks("[[B]] [[A]] [[B]] [[A|x]]")
	if !reflect.DeepEqual(ls.WikiLinks, []string{"B", "A"}) {
		t.Errorf("wiki = %v, want [B A]", ls.WikiLinks)
	}
}

func TestExtractLinks_MarkdownFiltering(t *testing.T) {
	ls := ExtractLinks("[ext](http://example.com/x.md) [img](pic.png) [ok](notes/C.md)")
	if !reflect.DeepEqual(ls.MarkdownLinks, []string{"notes/C.md"}) {
		t.Errorf("markdown = %v, want [notes/C.md]", ls.MarkdownLinks)
	}
}

func TestExtractLinks_EmptyWikiTarget(t *testing.T) {
	ls := ExtractLinks("see [[ ]] and [[|alias]]")
	if len(ls.WikiLinks) != 0 {
		t.Errorf("wiki = %v, want none", ls.WikiLinks)
	}
}

func TestExtractLinks_Malformed(t *testing.T) {
	ls := ExtractLinks("[[unclosed and [no](target")
	if ls.Total() != 0 {
		t.Errorf("total = %d, want 0", ls.Total())
	}
}

func TestExtractMetadata_SpecRoundTrip(t *testing.T) {
	md := ExtractMetadata("---\nfoo: bar\n---\nBody #tag1 #tag1 Key:: Val")
	if md.Frontmatter["foo"] != "bar" {
		t.Errorf("frontmatter = %v", md.Frontmatter)
	}
	if !reflect.DeepEqual(md.Tags, []string{"#tag1"}) {
		t.Errorf("tags = %v, want [#tag1]", md.Tags)
	}
	if md.Fields["Key"] != "Val" {
		t.Errorf("fields = %v", md.Fields)
	}
}

func TestExtractMetadata_NoFrontmatter(t *testing.T) {
	md := ExtractMetadata("just a body #x")
	if len(md.Frontmatter) != 0 {
		t.Errorf("frontmatter = %v, want empty", md.Frontmatter)
	}
	if !reflect.DeepEqual(md.Tags, []string{"#x"}) {
		t.Errorf("tags = %v", md.Tags)
	}
}

func TestExtractMetadata_UnclosedFrontmatter(t *testing.T) {
	md := ExtractMetadata("---\nfoo: bar\nno closing delimiter")
	if len(md.Frontmatter) != 0 {
		t.Errorf("frontmatter = %v, want empty for unclosed block", md.Frontmatter)
	}
}

func TestExtractMetadata_MalformedLineSkipped(t *testing.T) {
	md := ExtractMetadata("---\nvalid: yes\nmalformed line\n---\nbody")
	if md.Frontmatter["valid"] != "yes" || len(md.Frontmatter) != 1 {
		t.Errorf("frontmatter = %v", md.Frontmatter)
	}
}

func TestExtractMetadata_ValueKeptRaw(t *testing.T) {
	md := ExtractMetadata("---\ncount: 42\nurl: http://example.com:8080\n---\n")
	if md.Frontmatter["count"] != "42" {
		t.Errorf("count = %q, want raw string", md.Frontmatter["count"])
	}
	// The split happens on the first colon only.
	if md.Frontmatter["url"] != "http://example.com:8080" {
		t.Errorf("url = %q", md.Frontmatter["url"])
	}
}

func TestExtractMetadata_InlineFieldLastWins(t *testing.T) {
	md := ExtractMetadata("Status:: draft\ntext\nStatus:: final")
	if md.Fields["Status"] != "final" {
		t.Errorf("Status = %q, want final", md.Fields["Status"])
	}
}

func TestExtractMetadata_FrontmatterTagsMerged(t *testing.T) {
	// The #beta token inside the frontmatter block is also seen by the
	// inline scan, so it appears in scan order and the merge deduplicates.
	md := ExtractMetadata("---\ntags: alpha, #beta, delta\n---\nbody #alpha #gamma")
	want := []string{"#beta", "#alpha", "#gamma", "#delta"}
	if !reflect.DeepEqual(md.Tags, want) {
		t.Errorf("tags = %v, want %v", md.Tags, want)
	}
}

func TestExtractMetadata_TagCharset(t *testing.T) {
	md := ExtractMetadata("#multi-word-tag and #under_score but #end.")
	want := []string{"#multi-word-tag", "#under_score", "#end"}
	if !reflect.DeepEqual(md.Tags, want) {
		t.Errorf("tags = %v, want %v", md.Tags, want)
	}
}

func TestExtractMetadata_EmptyInput(t *testing.T) {
	md := ExtractMetadata("")
	if len(md.Frontmatter) != 0 || len(md.Fields) != 0 || len(md.Tags) != 0 {
		t.Errorf("expected empty metadata, got %+v", md)
	}
}
