package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

func TestParseSections_TitleWithChild(t *testing.T) {
	secs := ParseSections("# Title\n\nIntro.\n\n## Sub\n\nBody.")
	if len(secs) != 2 {
		t.Fatalf("sections=%d want 2", len(secs))
	}
	title, sub := secs[0], secs[1]
	if title.Title != "Title" || title.Level != 1 || title.Content != "Intro." {
		t.Fatalf("unexpected first section: %+v", title)
	}
	if sub.Title != "Sub" || sub.Level != 2 || sub.Content != "Body." {
		t.Fatalf("unexpected second section: %+v", sub)
	}
	if sub.ParentID() != title.ID {
		t.Fatalf("Sub.parent=%q want %q", sub.ParentID(), title.ID)
	}
	if len(title.Children) != 1 || title.Children[0] != sub {
		t.Fatalf("Title children wrong: %+v", title.Children)
	}
}

func TestParseSections_RoundTripAndHierarchy(t *testing.T) {
	input := strings.Join([]string{
		"# A", "text",
		"### A.1.1", "deep",
		"## A.2", "x",
		"#### A.2.1.1", "y",
		"# B",
		"## B.1",
		"###### B.1.x",
		"## B.2",
	}, "\n")
	want := []string{"A", "A.1.1", "A.2", "A.2.1.1", "B", "B.1", "B.1.x", "B.2"}
	secs := ParseSections(input)
	if len(secs) != len(want) {
		t.Fatalf("sections=%d want %d", len(secs), len(want))
	}
	var roots []*document.Section
	for i, s := range secs {
		if s.Title != want[i] {
			t.Fatalf("pos %d: %q want %q", i, s.Title, want[i])
		}
		if s.Parent == nil {
			roots = append(roots, s)
			continue
		}
		if s.Level <= s.Parent.Level {
			t.Fatalf("%q level %d not deeper than parent %d", s.Title, s.Level, s.Parent.Level)
		}
		n := 0
		for _, c := range s.Parent.Children {
			if c == s {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("%q appears %d times in parent children", s.Title, n)
		}
	}
	flat := document.Flatten(roots)
	for i, s := range flat {
		if s != secs[i] {
			t.Fatalf("pre-order flatten differs at %d", i)
		}
	}
}

func TestParseSections_IgnoresHeadingsInFence(t *testing.T) {
	input := "# Real\n```bash\n# not a heading\n```\n## Also real"
	secs := ParseSections(input)
	if len(secs) != 2 {
		t.Fatalf("sections=%d want 2", len(secs))
	}
	if !strings.Contains(secs[0].Content, "# not a heading") {
		t.Fatalf("fence content lost: %q", secs[0].Content)
	}
	if !secs[0].Metadata.HasCodeBlocks || secs[0].Metadata.CodeLanguages[0] != "bash" {
		t.Fatalf("code metadata wrong: %+v", secs[0].Metadata)
	}
}

func TestParseSections_UnterminatedFenceAbsorbsRest(t *testing.T) {
	input := "# Start\nbefore\n```python\nprint(1)\n# Hidden\n## Also hidden\ntrailing"
	secs := ParseSections(input)
	if len(secs) != 1 {
		t.Fatalf("sections=%d want 1", len(secs))
	}
	want := "before\n```python\nprint(1)\n# Hidden\n## Also hidden\ntrailing"
	if secs[0].Content != want {
		t.Fatalf("content=%q want %q", secs[0].Content, want)
	}
}

func TestParseSections_NoHeadingsSynthesizesDefault(t *testing.T) {
	secs := ParseSections("\n  just some text\n")
	if len(secs) != 1 || secs[0].Title != DefaultSectionTitle || secs[0].Level != 1 {
		t.Fatalf("unexpected: %+v", secs)
	}
	if secs[0].Content != "just some text" {
		t.Fatalf("content=%q", secs[0].Content)
	}
	if got := ParseSections("  \n\n"); len(got) != 0 {
		t.Fatalf("blank input produced %d sections", len(got))
	}
}

func TestParseSections_SetextNotRecognized(t *testing.T) {
	secs := ParseSections("Title\n=====\n\nBody")
	if len(secs) != 1 || secs[0].Title != DefaultSectionTitle {
		t.Fatalf("setext heading should not be detected: %+v", secs)
	}
	if got := ParseSections("#NoSpace\ntext"); got[0].Title != DefaultSectionTitle {
		t.Fatal("heading without space must not be detected")
	}
}

func TestSectionMetadata(t *testing.T) {
	body := strings.Join([]string{
		"Some [link](http://x) and ![img](a.png).",
		"- item",
		"1. first",
		"| a | b |",
		"> quote",
		"```go",
		"x := 1",
		"```",
		"```",
		"plain",
		"```",
	}, "\n")
	md := sectionMetadata(body)
	if !md.HasLinks || !md.HasImages || !md.HasTables || !md.HasBlockquotes || !md.HasLists {
		t.Fatalf("flags wrong: %+v", md)
	}
	if md.CodeBlockCount != 2 || strings.Join(md.CodeLanguages, ",") != "go,text" {
		t.Fatalf("code metadata wrong: %+v", md)
	}
	if strings.Join(md.ListTypes, ",") != "unordered,ordered" {
		t.Fatalf("list types=%v", md.ListTypes)
	}
	if md.WordCount == 0 || md.CharCount != len([]rune(body)) {
		t.Fatalf("counts wrong: %+v", md)
	}
}

func TestSplitFrontMatter(t *testing.T) {
	fm, body := SplitFrontMatter("---\ntitle: Guide\ntags: [ops, db]\n---\n# H\n")
	if fm["title"] != "Guide" {
		t.Fatalf("front matter=%v", fm)
	}
	if body != "# H\n" {
		t.Fatalf("body=%q", body)
	}
	if tags := frontMatterTags(fm); strings.Join(tags, ",") != "ops,db" {
		t.Fatalf("tags=%v", tags)
	}
}

func TestSplitFrontMatter_UnterminatedIsAbsent(t *testing.T) {
	in := "---\ntitle: Guide\n# H\ntext"
	fm, body := SplitFrontMatter(in)
	if fm != nil || body != in {
		t.Fatalf("unterminated block should be ignored: fm=%v body=%q", fm, body)
	}
	doc := ParseMarkdown(in, "")
	if doc.FrontMatter != nil {
		t.Fatal("document should have no front matter")
	}
	if doc.Sections[0].Title != "H" || doc.Sections[0].Content != "text" {
		t.Fatalf("unexpected section: %+v", doc.Sections[0])
	}
}

func TestSplitFrontMatter_MalformedYAMLIsAbsent(t *testing.T) {
	in := "---\n: : bad\n  - [\n---\nbody"
	fm, body := SplitFrontMatter(in)
	if fm != nil || body != in {
		t.Fatalf("malformed yaml should be ignored: fm=%v", fm)
	}
}

func TestParseMarkdown_DocumentFields(t *testing.T) {
	text := "---\ntags: single\n---\n# One\nbody"
	doc := ParseMarkdown(text, "/tmp/notes/CLAUDE.md")
	if !strings.HasPrefix(doc.ID, "CLAUDE_") || len(doc.ID) != len("CLAUDE_")+8 {
		t.Fatalf("id=%q", doc.ID)
	}
	if doc.Content != text || doc.Type != document.Markdown {
		t.Fatal("raw content or type not preserved")
	}
	if len(doc.Metadata.Tags) != 1 || doc.Metadata.Tags[0] != "single" {
		t.Fatalf("tags=%v", doc.Metadata.Tags)
	}
	if anon := ParseMarkdown("# x", ""); len(anon.ID) != 36 {
		t.Fatalf("anonymous id=%q", anon.ID)
	}
}

func TestFor_Factory(t *testing.T) {
	for _, p := range []string{"a.md", "b.MARKDOWN", "c.mdown", "d.mkd", "e.html", "f.htm"} {
		if !CanParse(p) {
			t.Fatalf("CanParse(%q)=false", p)
		}
	}
	for _, p := range []string{"a.txt", "b.json", "noext"} {
		if _, err := For(p); !errors.Is(err, ErrNoParser) {
			t.Fatalf("For(%q) err=%v want ErrNoParser", p, err)
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("# Guide\nhello"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if doc.Metadata.Size != 13 || doc.Metadata.ModifiedAt.IsZero() || doc.Metadata.Path != path {
		t.Fatalf("metadata=%+v", doc.Metadata)
	}
	if _, err := ParseFile(filepath.Join(dir, "x.pdf")); !errors.Is(err, ErrNoParser) {
		t.Fatalf("err=%v want ErrNoParser", err)
	}
}

func BenchmarkParseSections(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("## Section\n\nSome text with a [link](http://x).\n\n```go\nx := 1\n```\n\n")
	}
	input := sb.String()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseSections(input)
	}
}
