// Package reference builds Markdown links between source documents and the
// files extracted content is written to.
package reference

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

// Generator renders reference links. Paths that are not below the linking
// file's directory are made relative to BasePath when possible.
type Generator struct {
	BasePath string

	mu   sync.Mutex
	refs map[string][]string
}

// NewGenerator returns a Generator rooted at base.
func NewGenerator(base string) *Generator {
	return &Generator{BasePath: base, refs: map[string][]string{}}
}

var titleCaser = cases.Title(language.English)

// LinkText derives a readable title from a file name stem.
func LinkText(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return titleCaser.String(stem)
}

// relative returns target relative to the directory of source, else
// relative to BasePath, else target unchanged.
func (g *Generator) relative(source, target string) string {
	if rel, ok := below(filepath.Dir(source), target); ok {
		return rel
	}
	if g.BasePath != "" {
		if rel, ok := below(g.BasePath, target); ok {
			return rel
		}
	}
	return target
}

func below(dir, target string) (string, bool) {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// Link renders [text](path#anchor) from source to target with each path
// segment URL-escaped. Empty text falls back to LinkText(target).
func (g *Generator) Link(source, target, anchor, text string) string {
	rel := filepath.ToSlash(g.relative(source, target))
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	href := strings.Join(parts, "/")
	if anchor != "" {
		href += "#" + anchor
	}
	if text == "" {
		text = LinkText(target)
	}
	return fmt.Sprintf("[%s](%s)", text, href)
}

// Backlink renders a link from target back to source.
func (g *Generator) Backlink(source, target, context string) string {
	link := g.Link(target, source, "", "")
	if context != "" {
		return fmt.Sprintf("← Back to %s (%s)", link, context)
	}
	return "← Back to " + link
}

// ContentReferences holds the rendered reference fields of one record.
type ContentReferences struct {
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Category string `json:"category" yaml:"category"`
	Tags     string `json:"tags" yaml:"tags"`
	Related  string `json:"related,omitempty" yaml:"related,omitempty"`
}

// References renders the reference fields for c written at outputPath. all
// is the pool searched for related records; it may be nil.
func (g *Generator) References(c extract.Content, outputPath string, doc *document.Document, all []extract.Content) ContentReferences {
	refs := ContentReferences{Category: "[[" + c.Category.Label() + "]]"}
	if doc != nil && doc.Metadata.Path != "" {
		refs.Source = g.Link(outputPath, doc.Metadata.Path, sourceAnchor(doc, c.SourceSection), "Source: "+filepath.Base(doc.Metadata.Path))
	}
	tags := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		tags = append(tags, "#"+t)
	}
	sort.Strings(tags)
	refs.Tags = strings.Join(tags, " ")

	var related []string
	for _, r := range Related(c, all, 3) {
		related = append(related, "[["+r.Content.Title+"]]")
		g.Track(c.ID, r.Content.ID)
	}
	refs.Related = strings.Join(related, " | ")
	return refs
}

// sourceAnchor returns the heading anchor of the section a record came from.
// Chunk ids resolve to their section. Unknown ids yield no anchor.
func sourceAnchor(doc *document.Document, sectionID string) string {
	if sectionID == "" {
		return ""
	}
	id, _, _ := strings.Cut(sectionID, "_chunk_")
	sec, ok := doc.Section(id)
	if !ok {
		return ""
	}
	return Anchor(sec.Title)
}

// Block renders a "## References" block for c.
func (g *Generator) Block(c extract.Content, outputPath string, doc *document.Document, all []extract.Content) string {
	refs := g.References(c, outputPath, doc, all)
	lines := []string{"---", "## References", ""}
	if refs.Source != "" {
		lines = append(lines, "**Source**: "+refs.Source)
	}
	lines = append(lines, "**Category**: "+refs.Category)
	if refs.Tags != "" {
		lines = append(lines, "**Tags**: "+refs.Tags)
	}
	if refs.Related != "" {
		lines = append(lines, "**Related**: "+refs.Related)
	}
	lines = append(lines, "", "---")
	return strings.Join(lines, "\n")
}

// Track records that the content with id src references dst.
func (g *Generator) Track(src, dst string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs == nil {
		g.refs = map[string][]string{}
	}
	g.refs[src] = append(g.refs[src], dst)
}

// Tracked returns the ids referenced from id.
func (g *Generator) Tracked(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refs[id]...)
}
