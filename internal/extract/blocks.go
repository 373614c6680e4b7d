package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

// classifyCode picks a category and title for a fenced block from keywords
// in its language tag and body. i is the zero-based block index.
func classifyCode(b parser.CodeBlock, i int) (category.Category, string) {
	lang := strings.ToLower(b.Language)
	code := strings.ToLower(b.Code)
	switch {
	case strings.Contains(lang, "test") || strings.Contains(code, "test"):
		return category.Of(category.Testing), fmt.Sprintf("Test Code (%s)", b.Language)
	case strings.Contains(code, "api") || strings.Contains(code, "endpoint"):
		return category.Of(category.API), fmt.Sprintf("API Code (%s)", b.Language)
	case strings.Contains(lang, "config") || strings.Contains(code, "config"):
		return category.Of(category.Configuration), fmt.Sprintf("Configuration (%s)", b.Language)
	}
	return category.Of(category.Custom), fmt.Sprintf("Code Block %d", i+1)
}

func (e *Extractor) codeBlocks(doc *document.Document) []Content {
	blocks := parser.FindCodeBlocks(doc.Content)
	out := make([]Content, 0, len(blocks))
	for i, b := range blocks {
		cat, title := classifyCode(b, i)
		if !e.cfg.Allows(cat) {
			continue
		}
		out = append(out, Content{
			ID:          newContentID(),
			DocumentID:  doc.ID,
			Category:    cat,
			Title:       title,
			Content:     b.Code,
			Importance:  codeBlockImportance,
			Tags:        sortedSet(map[string]struct{}{b.Language: {}, "code": {}}),
			ExtractedAt: e.now(),
			Metadata: map[string]any{
				"language":   b.Language,
				"line_count": strings.Count(b.Code, "\n") + 1,
				"char_count": utf8.RuneCountInString(b.Code),
			},
		})
	}
	return out
}

type linkGroup struct {
	cat        category.Category
	title      string
	tag        string
	importance float64
	links      []parser.Link
}

// linkGroups buckets inline links by URL keywords. Links matching neither
// bucket are not reported.
func (e *Extractor) linkGroups(doc *document.Document) []Content {
	api := &linkGroup{cat: category.Of(category.API), title: "API References", tag: "api", importance: apiLinksImportance}
	docs := &linkGroup{cat: category.Of(category.Documentation), title: "Documentation Links", tag: "documentation", importance: docLinksImportance}
	for _, l := range parser.FindLinks(doc.Content) {
		url := strings.ToLower(l.URL)
		switch {
		case strings.Contains(url, "api") || strings.Contains(url, "endpoint"):
			api.links = append(api.links, l)
		case strings.Contains(url, "doc") || strings.Contains(url, "guide") || strings.Contains(url, "tutorial"):
			docs.links = append(docs.links, l)
		}
	}
	var out []Content
	for _, g := range []*linkGroup{api, docs} {
		if len(g.links) == 0 || !e.cfg.Allows(g.cat) {
			continue
		}
		out = append(out, Content{
			ID:          newContentID(),
			DocumentID:  doc.ID,
			Category:    g.cat,
			Title:       g.title,
			Content:     formatLinks(g.links),
			Importance:  g.importance,
			Tags:        []string{g.tag, "links"},
			Metadata:    map[string]any{"link_count": len(g.links)},
			ExtractedAt: e.now(),
		})
	}
	return out
}

func formatLinks(links []parser.Link) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, fmt.Sprintf("- [%s](%s)", l.Text, l.URL))
	}
	return strings.Join(lines, "\n")
}
