package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func TestWriteNote_CreateAndRead(t *testing.T) {
	s := testService(t)
	if err := s.WriteNote("note.md", "# Hello\nWorld"); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	got, err := s.ReadNote("note.md")
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if got != "# Hello\nWorld" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteNote_Idempotent(t *testing.T) {
	s := testService(t)
	for i := 0; i < 2; i++ {
		if err := s.WriteNote("same.md", "content"); err != nil {
			t.Fatalf("WriteNote #%d: %v", i+1, err)
		}
	}
	got, _ := s.ReadNote("same.md")
	if got != "content" {
		t.Errorf("content = %q, want exactly one copy", got)
	}
}

func TestWriteNote_CreatesParentDirectories(t *testing.T) {
	root := t.TempDir()
	s := testService(t, root)
	if err := s.WriteNote("a/b/c.md", "deep"); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	got, err := s.ReadNote("a/b/c.md")
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if got != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteNote_RejectsNonMarkdown(t *testing.T) {
	s := testService(t)
	err := s.WriteNote("note.txt", "x")
	if !errors.Is(err, apperr.ErrNotMarkdown) {
		t.Errorf("err = %v, want ErrNotMarkdown", err)
	}
}

func TestWriteNote_WritesGoToPrimaryRoot(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	s := testService(t, root1, root2)

	if err := s.WriteNote("primary.md", "x"); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root1, "primary.md")); err != nil {
		t.Errorf("note not in first root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root2, "primary.md")); err == nil {
		t.Error("note must not land in a secondary root")
	}
}

func TestWriteNote_HiddenSegmentErasedByJoin(t *testing.T) {
	s := testService(t)
	// Joining the relative path onto the root cleans the traversal pair
	// away; the gate must deny on the request as written.
	err := s.WriteNote(".obsidian/../x.md", "x")
	if !errors.Is(err, apperr.ErrHiddenPath) {
		t.Errorf("err = %v, want ErrHiddenPath", err)
	}
	if _, rerr := s.ReadNote("x.md"); rerr == nil {
		t.Error("denied write must not create the note")
	}
}

func TestReadNote_HiddenSegmentErasedByJoin(t *testing.T) {
	s := testService(t)
	if err := s.WriteNote("x.md", "x"); err != nil {
		t.Fatal(err)
	}
	_, err := s.ReadNote(".obsidian/../x.md")
	if !errors.Is(err, apperr.ErrHiddenPath) {
		t.Errorf("err = %v, want ErrHiddenPath", err)
	}
}

func TestWriteNote_OutsideRootsDenied(t *testing.T) {
	s := testService(t)
	outside := t.TempDir()
	err := s.WriteNote(filepath.Join(outside, "escape.md"), "x")
	if !errors.Is(err, apperr.ErrOutsideRoots) {
		t.Errorf("err = %v, want ErrOutsideRoots", err)
	}
}

func TestAppendNote_JoinsWithNewline(t *testing.T) {
	s := testService(t)
	if err := s.AppendNote("log.md", "first"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	if err := s.AppendNote("log.md", "second"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	got, _ := s.ReadNote("log.md")
	if got != "first\nsecond" {
		t.Errorf("content = %q, want %q", got, "first\nsecond")
	}
}

func TestAppendNote_NotIdempotent(t *testing.T) {
	s := testService(t)
	for i := 0; i < 2; i++ {
		if err := s.AppendNote("dup.md", "C"); err != nil {
			t.Fatalf("AppendNote #%d: %v", i+1, err)
		}
	}
	got, _ := s.ReadNote("dup.md")
	if got != "C\nC" {
		t.Errorf("content = %q, want %q", got, "C\nC")
	}
}

func TestAppendNote_MissingFileTreatedAsEmpty(t *testing.T) {
	s := testService(t)
	if err := s.AppendNote("fresh.md", "only"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	got, _ := s.ReadNote("fresh.md")
	if got != "only" {
		t.Errorf("content = %q", got)
	}
}

func TestAppendNote_RejectsNonMarkdown(t *testing.T) {
	s := testService(t)
	if err := s.AppendNote("data.json", "x"); !errors.Is(err, apperr.ErrNotMarkdown) {
		t.Errorf("err = %v, want ErrNotMarkdown", err)
	}
}

func TestCreateLink_EmptyFile(t *testing.T) {
	s := testService(t)
	if err := s.CreateLink("from.md", "target.md", ""); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	got, _ := s.ReadNote("from.md")
	if got != "[[target]]" {
		t.Errorf("content = %q, want %q", got, "[[target]]")
	}
}

func TestCreateLink_AppendsAfterBlankLine(t *testing.T) {
	s := testService(t)
	if err := s.WriteNote("from.md", "existing body"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateLink("from.md", "other", "see also"); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	got, _ := s.ReadNote("from.md")
	if got != "existing body\n\n[[other|see also]]" {
		t.Errorf("content = %q", got)
	}
}

func TestCreateLink_NoDeduplication(t *testing.T) {
	s := testService(t)
	for i := 0; i < 2; i++ {
		if err := s.CreateLink("from.md", "t.md", ""); err != nil {
			t.Fatalf("CreateLink #%d: %v", i+1, err)
		}
	}
	got, _ := s.ReadNote("from.md")
	if got != "[[t]]\n\n[[t]]" {
		t.Errorf("content = %q, want the link twice", got)
	}
}

func TestCreateLink_TargetNotValidated(t *testing.T) {
	s := testService(t)
	// The target is a logical name; it need not exist or stay in the vault.
	if err := s.CreateLink("from.md", "does/not/exist", ""); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	got, _ := s.ReadNote("from.md")
	if got != "[[does/not/exist]]" {
		t.Errorf("content = %q", got)
	}
}
