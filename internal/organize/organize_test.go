package organize

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
	"github.com/hyperifyio/trapperkeeper/internal/reference"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func sample() []extract.Content {
	sec := category.Of(category.Security)
	db := category.Of(category.Database)
	return []extract.Content{
		{ID: "1", DocumentID: "d1", Category: sec, Title: "Low", Content: "low body", Importance: 0.2, Tags: []string{"b", "a"}, Metadata: map[string]any{"level": 1}},
		{ID: "2", DocumentID: "d1", Category: db, Title: "Schema", Content: "schema <body>", Importance: 0.5},
		{ID: "3", DocumentID: "d2", Category: sec, Title: "High", Content: "high body", Importance: 0.9},
		{ID: "4", DocumentID: "d2", Category: sec, Title: "Also Low", Content: "x", Importance: 0.2},
	}
}

func TestOrganize_Grouping(t *testing.T) {
	groups := New(Options{Now: func() time.Time { return fixedNow }}).Organize(sample())
	sec := groups["🔐 Security"]
	if len(groups) != 2 || len(sec) != 3 {
		t.Fatalf("groups=%v", groups.Keys())
	}
	if sec[0].Title != "High" || sec[1].Title != "Low" || sec[2].Title != "Also Low" {
		t.Fatalf("order=%s,%s,%s", sec[0].Title, sec[1].Title, sec[2].Title)
	}

	byDoc := New(Options{GroupBy: ByDocument}).Organize(sample())
	if len(byDoc["d1"]) != 2 || len(byDoc["d2"]) != 2 {
		t.Fatalf("by document=%v", byDoc.Keys())
	}
	all := New(Options{GroupBy: ByNone}).Organize(sample())
	if len(all) != 1 || len(all["all"]) != 4 || all.Len() != 4 {
		t.Fatalf("single group=%v", all.Keys())
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"🔐 Security":       "security",
		"🏗️ Architecture":  "architecture",
		"My-Group  name":   "my_group_name",
		"!!!":              "unknown",
		"CLAUDE_1a2b3c4d":  "claude_1a2b3c4d",
		"Café Ｓetup":       "café_setup",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q)=%q want %q", in, got, want)
		}
	}
}

func TestSave_MarkdownAndIndex(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	o := New(opts)
	res, err := o.Save(o.Organize(sample()), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 2 || len(res.Extractions) != 4 || res.Index != filepath.Join(dir, "index.md") {
		t.Fatalf("result=%+v", res)
	}
	b, err := os.ReadFile(filepath.Join(dir, "security.md"))
	if err != nil {
		t.Fatal(err)
	}
	md := string(b)
	for _, want := range []string{
		"# 🔐 Security\n\n*Generated on 2025-01-02T03:04:05Z*",
		"Total items: 3",
		"## High\n\n- **Category**: 🔐 Security\n- **Importance**: 0.90\n- **Document**: d2",
		"- **Tags**: a, b",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Table of contents") {
		t.Fatal("unexpected table of contents below threshold")
	}

	ib, err := os.ReadFile(res.Index)
	if err != nil {
		t.Fatal(err)
	}
	index := string(ib)
	for _, want := range []string{
		"- [🔐 Security](./security.md) (3 items)",
		"- [🗄️ Database](./database.md) (1 items)",
		"**Total items**: 4",
		"| 🔐 Security | 3 | 0.43 |",
		"Total documents processed: 2",
		"- d1\n- d2",
	} {
		if !strings.Contains(index, want) {
			t.Fatalf("missing %q in index:\n%s", want, index)
		}
	}
}

func TestSave_StructuredFormats(t *testing.T) {
	dir := t.TempDir()
	o := New(Options{Format: JSON, Now: func() time.Time { return fixedNow }})
	if _, err := o.Save(o.Organize(sample()), dir); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "database.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "schema <body>") {
		t.Fatalf("html escaped:\n%s", b)
	}
	var f groupFile
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatal(err)
	}
	if f.Group != "🗄️ Database" || f.TotalItems != 1 || f.Contents[0].Category != "" {
		t.Fatalf("json group=%+v", f)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.md")); !os.IsNotExist(err) {
		t.Fatal("index written without CreateIndex")
	}

	o = New(Options{Format: YAML, IncludeMetadata: true, Now: func() time.Time { return fixedNow }})
	if _, err := o.Save(o.Organize(sample()), dir); err != nil {
		t.Fatal(err)
	}
	yb, err := os.ReadFile(filepath.Join(dir, "security.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := yaml.Unmarshal(yb, &back); err != nil {
		t.Fatal(err)
	}
	items, _ := back["contents"].([]any)
	if back["total_items"] != 3 || len(items) != 3 {
		t.Fatalf("yaml=%v", back)
	}
	first, _ := items[0].(map[string]any)
	if first["category"] != "🔐 Security" || first["title"] != "High" {
		t.Fatalf("first item=%v", first)
	}
}

func TestSave_PDF(t *testing.T) {
	dir := t.TempDir()
	o := New(Options{Format: PDF, IncludeMetadata: true})
	contents := sample()
	contents[0].Content = "See [docs](https://example.com) and [here](#x)\n```go\nfunc main() {}\n```"
	res, err := o.Save(o.Organize(contents), dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("not a pdf: %q", b[:8])
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	o := New(Options{Format: "html"})
	_, err := o.Save(Groups{"x": nil}, t.TempDir())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err=%v", err)
	}
}

func TestSave_ReferencesBlock(t *testing.T) {
	dir := t.TempDir()
	docs := map[string]*document.Document{"d2": {ID: "d2", Metadata: document.Metadata{Path: filepath.Join(dir, "CLAUDE.md")}}}
	o := New(Options{Format: Markdown, References: reference.NewGenerator(dir), Documents: docs})
	if _, err := o.Save(o.Organize(sample()), dir); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "security.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "## References") || !strings.Contains(string(b), "**Source**: [Source: CLAUDE.md](CLAUDE.md)") {
		t.Fatalf("references missing:\n%s", b)
	}
}

func TestAppendAutoToC(t *testing.T) {
	md := "# Title\n*Generated on x*\n\n## Sec 1\nText\n\n## Sec 2\nText\n\n### Sub\nText\n\n## References\nr\n"
	if out := appendAutoToC(md, 4); out != md {
		t.Fatalf("unexpected toc below threshold:\n%s", out)
	}
	out := appendAutoToC(md, 3)
	if !strings.Contains(out, "## Table of contents\n\n- [Sec 1](#sec-1)\n- [Sec 2](#sec-2)\n  - [Sub](#sub)\n") {
		t.Fatalf("toc:\n%s", out)
	}
	if strings.Contains(out, "(#references)") {
		t.Fatal("references listed in toc")
	}
	toc := strings.Index(out, "## Table of contents")
	if toc < strings.Index(out, "*Generated on x*") || toc > strings.Index(out, "## Sec 1") {
		t.Fatalf("toc position:\n%s", out)
	}
	if again := appendAutoToC(out, 3); strings.Count(again, "## Table of contents") != 1 {
		t.Fatal("toc duplicated")
	}
}

func TestIndex_TOC(t *testing.T) {
	o := New(Options{TOCMinHeadings: 3, Now: func() time.Time { return fixedNow }})
	index := o.index(o.Organize(sample()), fixedNow)
	if !strings.Contains(index, "- [Categories](#categories)") || strings.Contains(index, "(#source-documents)") {
		t.Fatalf("index toc:\n%s", index)
	}
}
