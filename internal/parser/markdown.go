package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

var (
	fenceRe   = regexp.MustCompile("^```(\\w*)?")
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
)

// DefaultSectionTitle names the synthetic section wrapping heading-less input.
const DefaultSectionTitle = "Content"

// Markdown parses ATX-heading Markdown into a section tree.
// Setext (underlined) headings are not recognized.
type Markdown struct{}

func (Markdown) Type() document.Type { return document.Markdown }

// Parse never fails; the error is part of the Parser contract.
func (Markdown) Parse(text, path string) (*document.Document, error) {
	return ParseMarkdown(text, path), nil
}

// ParseMarkdown builds a Document from Markdown text. path is optional and
// only feeds the document id and metadata.
func ParseMarkdown(text, path string) *document.Document {
	fm, body := SplitFrontMatter(text)
	doc := &document.Document{
		ID:          newDocumentID(path),
		Type:        document.Markdown,
		Content:     text,
		FrontMatter: fm,
		Sections:    ParseSections(body),
		Metadata:    document.Metadata{Path: path, Size: int64(len(text)), Tags: frontMatterTags(fm)},
	}
	log.Debug().Str("doc", doc.ID).Int("sections", len(doc.Sections)).Bool("front_matter", fm != nil).Msg("markdown parsed")
	return doc
}

// ParseSections splits Markdown into sections returned in pre-order.
// Lines inside a code fence never start a heading. Fence toggling is purely
// balanced: an unterminated fence absorbs the rest of the input into the
// open section.
func ParseSections(text string) []*document.Section {
	var (
		sections []*document.Section
		current  *document.Section
		stack    []*document.Section
		buf      []string
		inFence  bool
	)
	finalize := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(buf, "\n"))
		current.Metadata = sectionMetadata(current.Content)
		sections = append(sections, current)
	}

	for _, line := range strings.Split(text, "\n") {
		if fenceRe.MatchString(line) {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}
		if inFence {
			buf = append(buf, line)
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			buf = append(buf, line)
			continue
		}
		finalize()
		buf = buf[:0]
		level := len(m[1])
		current = &document.Section{
			ID:    newSectionID(),
			Title: strings.TrimSpace(m[2]),
			Level: level,
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			current.Parent = parent
			parent.Children = append(parent.Children, current)
		}
		stack = append(stack, current)
	}
	finalize()

	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		content := strings.TrimSpace(text)
		sections = append(sections, &document.Section{
			ID:       newSectionID(),
			Title:    DefaultSectionTitle,
			Content:  content,
			Level:    1,
			Metadata: sectionMetadata(content),
		})
	}
	return sections
}

func newSectionID() string { return uuid.NewString()[:8] }

func newDocumentID(path string) string {
	id := uuid.NewString()
	if path == "" {
		return id
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_" + id[:8]
}
