package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

var (
	// CodeBlockRe matches a fenced block with an optional language tag.
	CodeBlockRe = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
	// LinkRe matches inline Markdown links [text](url).
	LinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	// ImageRe matches inline Markdown images ![alt](url).
	ImageRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

	unorderedRe  = regexp.MustCompile(`(?m)^\s*[-*+]\s`)
	orderedRe    = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	tableRe      = regexp.MustCompile(`\|.*\|`)
	blockquoteRe = regexp.MustCompile(`(?m)^>`)
)

// CodeBlock is one fenced block found in Markdown text.
type CodeBlock struct {
	Language string
	Code     string
}

// Link is one inline Markdown link.
type Link struct {
	Text string
	URL  string
}

// FindCodeBlocks returns fenced blocks in order. An empty language tag is
// reported as "text" and code is trimmed.
func FindCodeBlocks(text string) []CodeBlock {
	matches := CodeBlockRe.FindAllStringSubmatch(text, -1)
	out := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang := m[1]
		if lang == "" {
			lang = "text"
		}
		out = append(out, CodeBlock{Language: lang, Code: strings.TrimSpace(m[2])})
	}
	return out
}

// FindLinks returns inline links in order.
func FindLinks(text string) []Link {
	matches := LinkRe.FindAllStringSubmatch(text, -1)
	out := make([]Link, 0, len(matches))
	for _, m := range matches {
		out = append(out, Link{Text: m[1], URL: m[2]})
	}
	return out
}

// sectionMetadata summarizes the structure of a finalized section body.
func sectionMetadata(content string) document.SectionMetadata {
	md := document.SectionMetadata{
		WordCount:      len(strings.Fields(content)),
		CharCount:      utf8.RuneCountInString(content),
		HasLinks:       LinkRe.MatchString(content),
		HasImages:      ImageRe.MatchString(content),
		HasTables:      tableRe.MatchString(content),
		HasBlockquotes: blockquoteRe.MatchString(content),
	}
	if blocks := FindCodeBlocks(content); len(blocks) > 0 {
		md.HasCodeBlocks = true
		md.CodeBlockCount = len(blocks)
		seen := map[string]bool{}
		for _, b := range blocks {
			if !seen[b.Language] {
				seen[b.Language] = true
				md.CodeLanguages = append(md.CodeLanguages, b.Language)
			}
		}
		sort.Strings(md.CodeLanguages)
	}
	if unorderedRe.MatchString(content) {
		md.ListTypes = append(md.ListTypes, "unordered")
	}
	if orderedRe.MatchString(content) {
		md.ListTypes = append(md.ListTypes, "ordered")
	}
	md.HasLists = len(md.ListTypes) > 0
	return md
}
