package reference

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

// Extraction pairs a record with the file it was written to.
type Extraction struct {
	Content extract.Content
	Path    string
}

// Anchor converts a heading into the in-page anchor slug used by Markdown
// renderers: lowercase ASCII letters and digits, runs of spaces, hyphens
// and underscores collapsed into one hyphen, everything else dropped.
func Anchor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func byCategory(items []Extraction) (map[string][]Extraction, []string) {
	groups := map[string][]Extraction{}
	for _, it := range items {
		label := it.Content.Category.Label()
		groups[label] = append(groups[label], it)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

// InsertExtractionLinks adds an "Extracted Content" section to the source
// text, after front matter when present, linking every extraction grouped
// by category.
func (g *Generator) InsertExtractionLinks(source, sourcePath string, items []Extraction) string {
	lines := strings.Split(source, "\n")
	insertAt := 0
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				insertAt = i + 1
				break
			}
		}
	}

	section := []string{"", "## 📚 Extracted Content", ""}
	groups, keys := byCategory(items)
	for _, label := range keys {
		section = append(section, "### "+label, "")
		for _, it := range groups[label] {
			var marks []string
			if it.Content.Importance >= 0.8 {
				marks = append(marks, "⭐")
			}
			if n, ok := intMeta(it.Content.Metadata, "line_count"); ok && n > 50 {
				marks = append(marks, fmt.Sprintf("%d lines", n))
			}
			line := "- " + g.Link(sourcePath, it.Path, "", it.Content.Title)
			if len(marks) > 0 {
				line += " (" + strings.Join(marks, ", ") + ")"
			}
			section = append(section, line)
		}
		section = append(section, "")
	}

	out := make([]string, 0, len(lines)+len(section))
	out = append(out, lines[:insertAt]...)
	out = append(out, section...)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

// Index renders a standalone Markdown index of extractions written under
// outputDir, grouped by category and sorted by importance.
func Index(outputDir string, items []Extraction) string {
	docs := map[string]struct{}{}
	for _, it := range items {
		docs[it.Content.DocumentID] = struct{}{}
	}
	lines := []string{
		"# 📚 Extracted Content Index",
		"",
		fmt.Sprintf("Generated from %d documents", len(docs)),
		fmt.Sprintf("Total extractions: %d", len(items)),
		"",
		"---",
		"",
		"## Table of Contents",
		"",
	}
	groups, keys := byCategory(items)
	for _, label := range keys {
		lines = append(lines, fmt.Sprintf("- [%s](#%s) (%d items)", label, Anchor(label), len(groups[label])))
	}
	lines = append(lines, "", "---", "")
	for _, label := range keys {
		lines = append(lines, "## "+label, "")
		sorted := append([]Extraction(nil), groups[label]...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Content.Importance > sorted[j].Content.Importance })
		for _, it := range sorted {
			rel, ok := below(outputDir, it.Path)
			if !ok {
				rel = it.Path
			}
			line := fmt.Sprintf("- [%s](%s)", it.Content.Title, filepath.ToSlash(rel))
			var meta []string
			if it.Content.Importance >= 0.8 {
				meta = append(meta, "⭐ High importance")
			}
			if len(it.Content.Tags) > 0 {
				tags := append([]string(nil), it.Content.Tags...)
				sort.Strings(tags)
				if len(tags) > 3 {
					tags = tags[:3]
				}
				for i, t := range tags {
					tags[i] = "`" + t + "`"
				}
				meta = append(meta, "Tags: "+strings.Join(tags, " "))
			}
			if len(meta) > 0 {
				line += "  \n  " + strings.Join(meta, " | ")
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// intMeta reads a numeric metadata value. Records decoded from JSON carry
// float64 where freshly extracted ones carry int.
func intMeta(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
