package reference

import (
	"sort"

	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

// relatedThreshold is the minimum score for a record to count as related.
const relatedThreshold = 0.3

// Scored is a related record with its similarity score.
type Scored struct {
	Content extract.Content
	Score   float64
}

// Related ranks the other records in all by tag overlap (Jaccard) plus 0.5
// for a shared category, returning at most n above the threshold.
func Related(c extract.Content, all []extract.Content, n int) []Scored {
	var out []Scored
	for _, other := range all {
		if other.ID == c.ID {
			continue
		}
		score := jaccard(c.Tags, other.Tags)
		if other.Category == c.Category {
			score += 0.5
		}
		if score >= relatedThreshold {
			out = append(out, Scored{Content: other, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}
