package reference

import (
	"strings"
	"testing"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

func TestLink(t *testing.T) {
	g := NewGenerator("/root")
	cases := []struct {
		name                         string
		source, target, anchor, text string
		want                         string
	}{
		{"sibling dir escaped", "/root/a/x.md", "/root/a/b/my file.md", "", "", "[My File](b/my%20file.md)"},
		{"base fallback with anchor", "/root/a/x.md", "/root/docs/setup_guide.md", "install", "", "[Setup Guide](docs/setup_guide.md#install)"},
		{"explicit text", "/root/x.md", "/root/y.md", "", "See", "[See](y.md)"},
		{"outside base kept as is", "/root/x.md", "/elsewhere/y.md", "", "Y", "[Y](/elsewhere/y.md)"},
	}
	for _, tc := range cases {
		if got := g.Link(tc.source, tc.target, tc.anchor, tc.text); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestBacklink(t *testing.T) {
	g := NewGenerator("")
	got := g.Backlink("/d/CLAUDE.md", "/d/out/security.md", "Security section")
	if got != "← Back to [Claude](/d/CLAUDE.md) (Security section)" {
		t.Fatalf("backlink=%q", got)
	}
	if !strings.HasPrefix(g.Backlink("/d/a.md", "/d/b.md", ""), "← Back to [A](a.md)") {
		t.Fatalf("plain backlink=%q", g.Backlink("/d/a.md", "/d/b.md", ""))
	}
}

func TestAnchor(t *testing.T) {
	cases := map[string]string{
		"🔐 Security":              "security",
		"Getting Started: Step 1": "getting-started-step-1",
		"  snake_case -- title ":  "snake-case-title",
		"":                        "",
	}
	for in, want := range cases {
		if got := Anchor(in); got != want {
			t.Fatalf("Anchor(%q)=%q want %q", in, got, want)
		}
	}
}

func TestRelated(t *testing.T) {
	sec := category.Of(category.Security)
	db := category.Of(category.Database)
	c := extract.Content{ID: "c", Category: sec, Tags: []string{"a", "b"}}
	all := []extract.Content{
		c,
		{ID: "o1", Category: sec, Tags: []string{"a", "b"}},
		{ID: "o2", Category: db, Tags: []string{"a"}},
		{ID: "o3", Category: db, Tags: []string{"z"}},
		{ID: "o4", Category: sec},
	}
	got := Related(c, all, 2)
	if len(got) != 2 || got[0].Content.ID != "o1" || got[1].Content.ID != "o2" {
		t.Fatalf("related=%+v", got)
	}
	if got[0].Score != 1.5 || got[1].Score != 0.5 {
		t.Fatalf("scores=%v %v", got[0].Score, got[1].Score)
	}
	if n := len(Related(c, all, 0)); n != 3 {
		t.Fatalf("unbounded related=%d", n)
	}
}

func TestBlock(t *testing.T) {
	g := NewGenerator("/root")
	doc := &document.Document{
		ID:       "doc",
		Metadata: document.Metadata{Path: "/root/docs/CLAUDE.md"},
		Sections: []*document.Section{{ID: "abc", Title: "Auth Setup: TLS", Level: 2}},
	}
	c := extract.Content{ID: "c1", Title: "Auth", Category: category.Of(category.Security), SourceSection: "abc", Tags: []string{"tls", "auth"}}
	other := extract.Content{ID: "c2", Title: "Keys", Category: category.Of(category.Security), Tags: []string{"auth"}}

	got := g.Block(c, "/root/out/security.md", doc, []extract.Content{c, other})
	want := strings.Join([]string{
		"---",
		"## References",
		"",
		"**Source**: [Source: CLAUDE.md](docs/CLAUDE.md#auth-setup-tls)",
		"**Category**: [[🔐 Security]]",
		"**Tags**: #auth #tls",
		"**Related**: [[Keys]]",
		"",
		"---",
	}, "\n")
	if got != want {
		t.Fatalf("block:\n%s\nwant:\n%s", got, want)
	}
	if ids := g.Tracked("c1"); len(ids) != 1 || ids[0] != "c2" {
		t.Fatalf("tracked=%v", ids)
	}
}

func TestReferences_SourceAnchor(t *testing.T) {
	g := NewGenerator("")
	doc := &document.Document{
		Metadata: document.Metadata{Path: "/d/CLAUDE.md"},
		Sections: []*document.Section{{ID: "s1", Title: "Database Schema"}},
	}
	cases := map[string]string{
		"s1":         "[Source: CLAUDE.md](CLAUDE.md#database-schema)",
		"s1_chunk_2": "[Source: CLAUDE.md](CLAUDE.md#database-schema)",
		"gone":       "[Source: CLAUDE.md](CLAUDE.md)",
		"":           "[Source: CLAUDE.md](CLAUDE.md)",
	}
	for id, want := range cases {
		c := extract.Content{ID: "c", Title: "x", Category: category.Of(category.Database), SourceSection: id}
		if got := g.References(c, "/d/db.md", doc, nil).Source; got != want {
			t.Fatalf("source %q: got %s want %s", id, got, want)
		}
	}
}

func TestInsertExtractionLinks(t *testing.T) {
	g := NewGenerator("")
	src := "---\ntitle: x\n---\n# Doc\nbody"
	items := []Extraction{
		{Path: "/d/out/security.md", Content: extract.Content{Title: "Auth", Category: category.Of(category.Security), Importance: 0.9, Metadata: map[string]any{"line_count": 80}}},
		{Path: "/d/out/api.md", Content: extract.Content{Title: "Endpoints", Category: category.Of(category.API), Importance: 0.4}},
	}
	got := g.InsertExtractionLinks(src, "/d/CLAUDE.md", items)
	lines := strings.Split(got, "\n")
	if lines[2] != "---" || lines[4] != "## 📚 Extracted Content" {
		t.Fatalf("section not after front matter:\n%s", got)
	}
	for _, want := range []string{
		"- [Auth](out/security.md) (⭐, 80 lines)",
		"- [Endpoints](out/api.md)",
		"### 🌐 API",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "# Doc\nbody") {
		t.Fatalf("original body lost:\n%s", got)
	}

	decoded := []Extraction{{Path: "/d/out/db.md", Content: extract.Content{Title: "Schema", Category: category.Of(category.Database), Importance: 0.5, Metadata: map[string]any{"line_count": float64(64)}}}}
	if got := g.InsertExtractionLinks("# Doc", "/d/CLAUDE.md", decoded); !strings.Contains(got, "- [Schema](out/db.md) (64 lines)") {
		t.Fatalf("float line_count not marked:\n%s", got)
	}

	plain := g.InsertExtractionLinks("# Doc", "/d/CLAUDE.md", nil)
	if !strings.HasPrefix(plain, "\n## 📚 Extracted Content") {
		t.Fatalf("no front matter insertion:\n%q", plain)
	}
}

func TestIndex(t *testing.T) {
	sec := category.Of(category.Security)
	items := []Extraction{
		{Path: "/out/security.md", Content: extract.Content{DocumentID: "d1", Title: "Low", Category: sec, Importance: 0.2}},
		{Path: "/out/security.md", Content: extract.Content{DocumentID: "d2", Title: "High", Category: sec, Importance: 0.9, Tags: []string{"z", "b", "a", "c"}}},
	}
	got := Index("/out", items)
	for _, want := range []string{
		"Generated from 2 documents",
		"Total extractions: 2",
		"- [🔐 Security](#security) (2 items)",
		"- [High](security.md)  \n  ⭐ High importance | Tags: `a` `b` `c`",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "[High]") > strings.Index(got, "[Low]") {
		t.Fatalf("not sorted by importance:\n%s", got)
	}
}
