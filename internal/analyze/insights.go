package analyze

import (
	"fmt"

	"github.com/hyperifyio/trapperkeeper/internal/budget"
)

// insights turns report figures into short advice. It always returns at
// least one line.
func insights(r Report, b budget.Budget) []string {
	var out []string
	if st := r.Statistics; st != nil {
		switch {
		case st.TotalLines > 1000:
			out = append(out, fmt.Sprintf("Large document with %d lines. Consider extracting major sections for better organization.", st.TotalLines))
		case st.TotalLines < 100:
			out = append(out, "Small document. May not require extensive organization yet.")
		}
		if st.CodeBlockCount > 10 {
			out = append(out, fmt.Sprintf("High code content (%d blocks). Consider extracting code examples to separate files.", st.CodeBlockCount))
		}
		if st.DepthDistribution[1] > 20 {
			out = append(out, "Many top-level sections. Consider grouping related sections.")
		}
		if !b.Fits(st.EstimatedTokens) {
			out = append(out, fmt.Sprintf("About %d tokens, beyond the %d token budget. Split the document so it can be loaded whole.", st.EstimatedTokens, b.Max()))
		}
	}
	if len(r.Distribution) > 0 {
		top := r.Distribution[0]
		if top.Percentage > 40 {
			out = append(out, fmt.Sprintf("%s dominates (%.1f%%). Consider dedicated document for this category.", top.Category.Label(), top.Percentage))
		}
		if len(r.Distribution) > 5 {
			out = append(out, "Diverse content across many categories. Good candidate for category-based extraction.")
		}
	}
	if g := r.Growth; g != nil && g.GrowthRate > 15 {
		out = append(out, fmt.Sprintf("Fast growth rate (%.1f%%). Regular organization will help maintain clarity.", g.GrowthRate))
	}
	if len(out) == 0 {
		out = append(out, "Document appears well-structured. Monitor growth and extract sections as needed.")
	}
	return out
}
