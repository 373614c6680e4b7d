package extract

import (
	"time"

	"github.com/hyperifyio/trapperkeeper/internal/category"
)

// Content is one extracted, categorized unit ready for organization.
// Importance is always within [0, 1]. SourceSection is empty for records
// synthesized from code blocks or link groups.
type Content struct {
	ID            string            `json:"id" yaml:"id"`
	DocumentID    string            `json:"document_id" yaml:"document_id"`
	Category      category.Category `json:"category" yaml:"category"`
	Title         string            `json:"title" yaml:"title"`
	Content       string            `json:"content" yaml:"content"`
	Importance    float64           `json:"importance" yaml:"importance"`
	SourceSection string            `json:"source_section,omitempty" yaml:"source_section,omitempty"`
	Tags          []string          `json:"tags" yaml:"tags"`
	Metadata      map[string]any    `json:"metadata" yaml:"metadata"`
	ExtractedAt   time.Time         `json:"extracted_at" yaml:"extracted_at"`
}

// HasTag reports whether tag is present.
func (c Content) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FilterByImportance returns the records with Importance >= threshold, in order.
func FilterByImportance(contents []Content, threshold float64) []Content {
	out := make([]Content, 0, len(contents))
	for _, c := range contents {
		if c.Importance >= threshold {
			out = append(out, c)
		}
	}
	return out
}
