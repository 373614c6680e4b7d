package organize

import (
	"strings"

	"github.com/hyperifyio/trapperkeeper/internal/reference"
)

const defaultTOCMinHeadings = 12

// appendAutoToC inserts a Markdown table of contents after the title block
// when the document has at least minHeadings H2-H4 headings besides the H1
// title. A document that already has one is returned unchanged.
func appendAutoToC(markdown string, minHeadings int) string {
	if minHeadings <= 0 {
		minHeadings = defaultTOCMinHeadings
	}
	if containsHeadingFold(markdown, "table of contents") {
		return markdown
	}
	lines := strings.Split(markdown, "\n")

	type item struct {
		level int
		text  string
	}
	var items []item
	h1Seen := false
	inCode := false
	for _, raw := range lines {
		s := strings.TrimSpace(raw)
		if strings.HasPrefix(s, "```") {
			inCode = !inCode
			continue
		}
		if inCode || !strings.HasPrefix(s, "#") {
			continue
		}
		level := countPrefix(s, '#')
		t := strings.TrimSpace(s[level:])
		if level > 6 || t == "" {
			continue
		}
		if !h1Seen && level == 1 {
			h1Seen = true
			continue
		}
		if level < 2 || level > 4 {
			continue
		}
		switch strings.ToLower(t) {
		case "references", "source documents":
			continue
		}
		items = append(items, item{level: level, text: t})
	}
	if len(items) < minHeadings {
		return markdown
	}

	var b strings.Builder
	b.WriteString("## Table of contents\n\n")
	for _, it := range items {
		slug := reference.Anchor(it.text)
		if slug == "" {
			continue
		}
		b.WriteString(strings.Repeat("  ", it.level-2))
		b.WriteString("- [")
		b.WriteString(it.text)
		b.WriteString("](#")
		b.WriteString(slug)
		b.WriteString(")\n")
	}

	insertAt := indexAfterTitle(lines)
	out := make([]string, 0, len(lines)+len(items)+4)
	out = append(out, lines[:insertAt]...)
	if insertAt > 0 && strings.TrimSpace(lines[insertAt-1]) != "" {
		out = append(out, "")
	}
	out = append(out, b.String())
	if insertAt < len(lines) && strings.TrimSpace(lines[insertAt]) != "" {
		out = append(out, "")
	}
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

// indexAfterTitle returns the line after the first H1 and the non-empty
// line that follows it (the generated-on stamp), or 0 without an H1.
func indexAfterTitle(lines []string) int {
	first := -1
	for i, raw := range lines {
		s := strings.TrimSpace(raw)
		if strings.HasPrefix(s, "# ") {
			first = i
			break
		}
		if s != "" {
			break
		}
	}
	if first == -1 {
		return 0
	}
	for i := first + 1; i < len(lines); i++ {
		s := strings.TrimSpace(lines[i])
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#") {
			return first + 1
		}
		return i + 1
	}
	return first + 1
}

func countPrefix(s string, r byte) int {
	n := 0
	for n < len(s) && s[n] == r {
		n++
	}
	return n
}

func containsHeadingFold(markdown, title string) bool {
	for _, line := range strings.Split(markdown, "\n") {
		s := strings.TrimSpace(line)
		if !strings.HasPrefix(s, "#") {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(strings.TrimLeft(s, "#")), title) {
			return true
		}
	}
	return false
}
