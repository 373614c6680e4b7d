package extract

import (
	"math"
	"unicode/utf8"

	"github.com/hyperifyio/trapperkeeper/internal/category"
)

const (
	shortContentRunes = 100
	longContentRunes  = 1000

	codeBlockImportance = 0.7
	apiLinksImportance  = 0.6
	docLinksImportance  = 0.5
)

// Importance scores a section from its detector confidence, heading level
// and body length, boosting Critical and Security. The result is in [0, 1].
func Importance(cat category.Category, confidence float64, level int, content string) float64 {
	score := math.Min(confidence/10.0, 1.0)
	score *= math.Max(1.0-float64(level-1)*0.1, 0.5)

	switch n := utf8.RuneCountInString(content); {
	case n < shortContentRunes:
		score *= 0.8
	case n > longContentRunes:
		score *= 1.1
	}

	switch {
	case cat.Is(category.Critical):
		score *= 1.5
	case cat.Is(category.Security):
		score *= 1.3
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
