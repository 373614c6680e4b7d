package validate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func byPath(r Report, root, name string) FileResult {
	for _, f := range r.Files {
		if f.Path == filepath.Join(root, name) {
			return f
		}
	}
	return FileResult{}
}

func hasIssue(f FileResult, typ string) bool {
	for _, is := range f.Issues {
		if is.Type == typ {
			return true
		}
	}
	return false
}

func TestValidate_Tree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":        "# Docs\nCategory: Documentation\n\nSee [guide](docs/guide.md) and [missing](nope.md).\n",
		"docs/guide.md":    "---\ncategory: Setup\n---\n# Guide\n## Install\n[back](../README.md) [top](#guide) [gone](#nowhere)\n",
		"docs/orphan.md":   "# Orphan\n### Deep\ntext\n",
		"notes.txt":        "plain text without headings\n",
		".hidden/skip.md":  "# Hidden\n",
		"docs/image.png":   "x",
	})
	rep, err := Validate(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalFiles != 4 {
		t.Fatalf("files=%d %+v", rep.TotalFiles, rep.Files)
	}

	readme := byPath(rep, root, "README.md")
	if readme.Valid || readme.ReferenceCount != 2 || !reflect.DeepEqual(readme.BrokenReferences, []string{"nope.md"}) {
		t.Fatalf("readme=%+v", readme)
	}
	if !reflect.DeepEqual(readme.Categories, []string{"Documentation"}) || hasIssue(readme, OrphanedFile) {
		t.Fatalf("readme=%+v", readme)
	}

	guide := byPath(rep, root, "docs/guide.md")
	if !guide.Valid || hasIssue(guide, OrphanedFile) || hasIssue(guide, MissingCategory) {
		t.Fatalf("guide=%+v", guide)
	}
	if !hasIssue(guide, BrokenAnchor) {
		t.Fatalf("guide anchor not flagged: %+v", guide.Issues)
	}

	orphan := byPath(rep, root, "docs/orphan.md")
	for _, typ := range []string{OrphanedFile, MissingCategory, InvalidStructure} {
		if !hasIssue(orphan, typ) {
			t.Fatalf("orphan missing %s: %+v", typ, orphan.Issues)
		}
	}
	if !hasIssue(byPath(rep, root, "notes.txt"), InvalidStructure) {
		t.Fatal("heading-less file not flagged")
	}

	if len(rep.BrokenReferences) != 1 || rep.BrokenReferences[0].Target != "nope.md" {
		t.Fatalf("broken=%+v", rep.BrokenReferences)
	}
	if len(rep.Orphans) != 2 || rep.OK() || rep.ValidFiles != 3 || rep.FilesWithIssues != 4 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestValidate_SkipChecks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md": "# A\nCategory: API\n[x](missing.md)\n### Deep\n",
	})
	opts := Options{Root: root, Patterns: []string{"*.md"}}
	rep, err := Validate(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Issues) != 0 || !rep.OK() {
		t.Fatalf("issues=%+v", rep.Issues)
	}
}

func TestValidate_ExplicitFilesAndErrors(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "# A\n", "b.md": "# B\n"})
	opts := DefaultOptions(root)
	opts.Files = []string{filepath.Join(root, "a.md"), filepath.Join(root, "missing.md")}
	rep, err := Validate(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalFiles != 1 {
		t.Fatalf("files=%d", rep.TotalFiles)
	}

	if _, err := Validate(context.Background(), DefaultOptions(filepath.Join(root, "nope"))); !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("err=%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Validate(ctx, DefaultOptions(root)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestReferences(t *testing.T) {
	text := "[a](a.md) [web](https://x.io) [mail](mailto:x@y) [top](#top) ![img](i.png)\n" +
		"[ref][One] [ext][two]\n\n[one]: docs/one.md\n[two]: http://example.com\n"
	got := References(text)
	want := []string{"a.md", "i.png", "docs/one.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestHeadingProblem(t *testing.T) {
	cases := map[string]bool{
		"# A\n## B\n### C\n## D\n# E": false,
		"# A\n### C":                  true,
		"no headings":                 true,
		"## A\n```\n#### not\n```\n### B": false,
	}
	for text, bad := range cases {
		if got := HeadingProblem(text) != ""; got != bad {
			t.Fatalf("HeadingProblem(%q) problem=%v want %v", text, got, bad)
		}
	}
}

func TestCategories(t *testing.T) {
	text := "---\ncategories: [API, Setup]\n---\n- **Category**: 🔐 Security, Testing\n"
	got := Categories(text)
	want := []string{"API", "Setup", "Testing", "🔐 Security"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
