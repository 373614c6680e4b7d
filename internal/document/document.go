package document

import (
	"time"
)

// Type identifies the source format a Document was parsed from.
type Type string

const (
	Markdown Type = "markdown"
	HTML     Type = "html"
	Text     Type = "text"
	Unknown  Type = "unknown"
)

// SectionMetadata is the structural summary recorded for each parsed section.
type SectionMetadata struct {
	WordCount      int      `json:"word_count" yaml:"word_count"`
	CharCount      int      `json:"char_count" yaml:"char_count"`
	HasCodeBlocks  bool     `json:"has_code_blocks" yaml:"has_code_blocks"`
	HasLinks       bool     `json:"has_links" yaml:"has_links"`
	HasImages      bool     `json:"has_images" yaml:"has_images"`
	HasLists       bool     `json:"has_lists" yaml:"has_lists"`
	HasTables      bool     `json:"has_tables" yaml:"has_tables"`
	HasBlockquotes bool     `json:"has_blockquotes" yaml:"has_blockquotes"`
	CodeLanguages  []string `json:"code_languages,omitempty" yaml:"code_languages,omitempty"`
	CodeBlockCount int      `json:"code_block_count,omitempty" yaml:"code_block_count,omitempty"`
	ListTypes      []string `json:"list_types,omitempty" yaml:"list_types,omitempty"`
}

// Section is one heading-delimited node of a document.
// Level is always greater than Parent.Level.
type Section struct {
	ID       string          `json:"id" yaml:"id"`
	Title    string          `json:"title" yaml:"title"`
	Content  string          `json:"content" yaml:"content"`
	Level    int             `json:"level" yaml:"level"`
	Parent   *Section        `json:"-" yaml:"-"`
	Children []*Section      `json:"-" yaml:"-"`
	Metadata SectionMetadata `json:"metadata" yaml:"metadata"`
}

// ParentID returns the parent's identifier or "" for a top-level section.
func (s *Section) ParentID() string {
	if s == nil || s.Parent == nil {
		return ""
	}
	return s.Parent.ID
}

// Heading renders the section's ATX heading line.
func (s *Section) Heading() string {
	level := s.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	b := make([]byte, 0, level+1+len(s.Title))
	for i := 0; i < level; i++ {
		b = append(b, '#')
	}
	b = append(b, ' ')
	b = append(b, s.Title...)
	return string(b)
}

// Metadata describes where a document came from.
type Metadata struct {
	Path       string    `json:"path,omitempty" yaml:"path,omitempty"`
	Size       int64     `json:"size" yaml:"size"`
	ModifiedAt time.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	Tags       []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Document is a parsed unit of work. Sections lists every section in
// pre-order, which equals the heading order of the source text.
type Document struct {
	ID          string         `json:"id" yaml:"id"`
	Type        Type           `json:"type" yaml:"type"`
	Content     string         `json:"content" yaml:"content"`
	FrontMatter map[string]any `json:"front_matter,omitempty" yaml:"front_matter,omitempty"`
	Sections    []*Section     `json:"sections" yaml:"sections"`
	Metadata    Metadata       `json:"metadata" yaml:"metadata"`
}

// Roots returns the top-level sections in document order.
func (d *Document) Roots() []*Section {
	if d == nil {
		return nil
	}
	var out []*Section
	for _, s := range d.Sections {
		if s.Parent == nil {
			out = append(out, s)
		}
	}
	return out
}

// Index returns the position of the section with id in Sections, or -1.
func (d *Document) Index(id string) int {
	if d == nil {
		return -1
	}
	for i, s := range d.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (*Section, bool) {
	i := d.Index(id)
	if i < 0 {
		return nil, false
	}
	return d.Sections[i], true
}
