package category

import (
	"fmt"
	"strings"
)

// Suggestion is a ranked category with a human-readable explanation.
type Suggestion struct {
	Category    Category `json:"category" yaml:"category"`
	Score       float64  `json:"score" yaml:"score"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Suggest returns up to topN categories above SuggestThreshold, each with an
// explanation of which signals matched.
func (d *Detector) Suggest(content, title string, topN int) []Suggestion {
	if topN <= 0 {
		topN = 3
	}
	ranked := d.DetectMultiple(content, title, SuggestThreshold)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	out := make([]Suggestion, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, Suggestion{
			Category:    s.Category,
			Score:       s.Score,
			Explanation: d.explain(content, title, s.Category),
		})
	}
	return out
}

// explain describes the first rule registered for cat.
func (d *Detector) explain(content, title string, cat Category) string {
	rules, _ := d.registry.snapshot()
	cl := strings.ToLower(content)
	tl := strings.ToLower(title)
	for _, r := range rules {
		if r.category != cat {
			continue
		}
		var keywords []string
		titleHit := false
		for _, kw := range r.keywords {
			inTitle := title != "" && strings.Contains(tl, kw)
			if strings.Contains(cl, kw) || inTitle {
				keywords = append(keywords, kw)
			}
			if inTitle {
				titleHit = true
			}
		}
		patterns := 0
		for _, re := range r.patterns {
			if re.MatchString(cl) || (title != "" && re.MatchString(tl)) {
				patterns++
			}
		}
		var parts []string
		if len(keywords) > 0 {
			if len(keywords) > 3 {
				keywords = keywords[:3]
			}
			parts = append(parts, "Keywords found: "+strings.Join(keywords, ", "))
		}
		if patterns > 0 {
			parts = append(parts, fmt.Sprintf("Patterns matched: %d", patterns))
		}
		if titleHit {
			parts = append(parts, "Strong match in title")
		}
		if len(parts) == 0 {
			return "Pattern-based match"
		}
		return strings.Join(parts, " | ")
	}
	return "No specific pattern match"
}
