package category

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hyperifyio/trapperkeeper/internal/cache"
)

const (
	// DefaultThreshold is the normalized cut-off for multi-category detection.
	DefaultThreshold = 0.3
	// SuggestThreshold is the looser cut-off used by Suggest.
	SuggestThreshold = 0.1

	cacheCapacity = 1000
	cacheEvict    = 100
	cachePrefix   = 100
)

// Score pairs a category with a raw or normalized score.
type Score struct {
	Category Category `json:"category" yaml:"category"`
	Score    float64  `json:"score" yaml:"score"`
}

// Input is one (content, title) pair for batch detection.
type Input struct {
	Content string
	Title   string
}

// Detector scores content against a Registry. Detection is deterministic for
// a given registry state. A Detector is safe for concurrent use.
type Detector struct {
	registry *Registry
	cache    *cache.FIFO[string, Score]
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewDetector returns a detector over reg. A nil reg gets a fresh built-in registry.
func NewDetector(reg *Registry) *Detector {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Detector{
		registry: reg,
		cache:    cache.NewFIFO[string, Score](cacheCapacity, cacheEvict),
	}
}

// Registry exposes the detector's rule set for adding or removing custom rules.
func (d *Detector) Registry() *Registry { return d.registry }

type ruleScore struct {
	cat   Category
	score float64
}

// scoreAll returns the positive per-rule scores in registration order.
func (d *Detector) scoreAll(content, title string) []ruleScore {
	rules, _ := d.registry.snapshot()
	cl := strings.ToLower(content)
	tl := strings.ToLower(title)
	out := make([]ruleScore, 0, len(rules))
	for _, r := range rules {
		if s := r.score(cl, tl); s > 0 {
			out = append(out, ruleScore{cat: r.category, score: s})
		}
	}
	return out
}

// DetectCategory returns the highest scoring category and its raw score.
// The earliest registered rule wins ties. When nothing scores, it returns
// the Custom fallback with 0.
func (d *Detector) DetectCategory(content, title string) (Category, float64) {
	best := Score{Category: Fallback}
	found := false
	for _, rs := range d.scoreAll(content, title) {
		if !found || rs.score > best.Score {
			best = Score{Category: rs.cat, Score: rs.score}
			found = true
		}
	}
	return best.Category, best.Score
}

// DetectMultiple returns every category whose score, normalized by the
// maximum, is at least threshold, sorted by descending normalized score.
// Rules that share a category contribute their maximum.
func (d *Detector) DetectMultiple(content, title string, threshold float64) []Score {
	scored := d.scoreAll(content, title)
	if len(scored) == 0 {
		return nil
	}
	perCat := make(map[Category]float64, len(scored))
	var order []Category
	top := 0.0
	for _, rs := range scored {
		prev, seen := perCat[rs.cat]
		if !seen {
			order = append(order, rs.cat)
		}
		if !seen || rs.score > prev {
			perCat[rs.cat] = rs.score
		}
		if rs.score > top {
			top = rs.score
		}
	}
	out := make([]Score, 0, len(order))
	for _, c := range order {
		n := perCat[c] / top
		if n >= threshold {
			out = append(out, Score{Category: c, Score: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Detect is DetectCategory through the score cache, keyed by the first
// characters of the content and the title. Changing the rule set
// invalidates earlier entries.
func (d *Detector) Detect(content, title string) Score {
	_, version := d.registry.snapshot()
	key := cache.KeyFrom(strconv.FormatUint(version, 10), prefixRunes(content, cachePrefix), title)
	if s, ok := d.cache.Get(key); ok {
		d.hits.Add(1)
		return s
	}
	d.misses.Add(1)
	c, score := d.DetectCategory(content, title)
	s := Score{Category: c, Score: score}
	d.cache.Put(key, s)
	return s
}

// BatchDetect runs Detect over items in order.
func (d *Detector) BatchDetect(items []Input) []Score {
	out := make([]Score, 0, len(items))
	for _, it := range items {
		out = append(out, d.Detect(it.Content, it.Title))
	}
	return out
}

// CacheStats reports score cache hits and misses since creation.
func (d *Detector) CacheStats() (hits, misses uint64) {
	return d.hits.Load(), d.misses.Load()
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
