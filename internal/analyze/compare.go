package analyze

import (
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
)

// Comparison contrasts two documents. Deltas are right minus left.
type Comparison struct {
	Left           Statistics          `json:"left" yaml:"left"`
	Right          Statistics          `json:"right" yaml:"right"`
	SizeDelta      int                 `json:"size_delta" yaml:"size_delta"`
	LineDelta      int                 `json:"line_delta" yaml:"line_delta"`
	SectionDelta   int                 `json:"section_delta" yaml:"section_delta"`
	CodeBlockDelta int                 `json:"code_block_delta" yaml:"code_block_delta"`
	LinkDelta      int                 `json:"link_delta" yaml:"link_delta"`
	Shared         []category.Category `json:"shared_categories" yaml:"shared_categories"`
	OnlyLeft       []category.Category `json:"only_left" yaml:"only_left"`
	OnlyRight      []category.Category `json:"only_right" yaml:"only_right"`
}

// Compare analyzes both documents and reports their differences.
func (a *Analyzer) Compare(left, right *document.Document) Comparison {
	ls, rs := ComputeStatistics(left), ComputeStatistics(right)
	c := Comparison{
		Left:           ls,
		Right:          rs,
		SizeDelta:      rs.TotalSize - ls.TotalSize,
		LineDelta:      rs.TotalLines - ls.TotalLines,
		SectionDelta:   rs.TotalSections - ls.TotalSections,
		CodeBlockDelta: rs.CodeBlockCount - ls.CodeBlockCount,
		LinkDelta:      rs.LinkCount - ls.LinkCount,
	}
	ld := distribution(left, a.categorize(left))
	rd := distribution(right, a.categorize(right))
	inRight := map[category.Category]bool{}
	for _, d := range rd {
		inRight[d.Category] = true
	}
	inLeft := map[category.Category]bool{}
	for _, d := range ld {
		inLeft[d.Category] = true
		if inRight[d.Category] {
			c.Shared = append(c.Shared, d.Category)
		} else {
			c.OnlyLeft = append(c.OnlyLeft, d.Category)
		}
	}
	for _, d := range rd {
		if !inLeft[d.Category] {
			c.OnlyRight = append(c.OnlyRight, d.Category)
		}
	}
	return c
}
