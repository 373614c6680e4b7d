// Package analyze computes statistics, category distribution, a growth
// estimate, extraction recommendations and short insights for a parsed
// document.
package analyze

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/budget"
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

const maxRecommendations = 10

var fencedBlockRe = regexp.MustCompile("(?s)```.*?```")

// Statistics summarizes the size and structure of a document.
type Statistics struct {
	TotalSize          int         `json:"total_size" yaml:"total_size"`
	TotalLines         int         `json:"total_lines" yaml:"total_lines"`
	TotalSections      int         `json:"total_sections" yaml:"total_sections"`
	DepthDistribution  map[int]int `json:"section_depth_distribution" yaml:"section_depth_distribution"`
	AverageSectionSize float64     `json:"average_section_size" yaml:"average_section_size"`
	CodeBlockCount     int         `json:"code_block_count" yaml:"code_block_count"`
	LinkCount          int         `json:"link_count" yaml:"link_count"`
	ImageCount         int         `json:"image_count" yaml:"image_count"`
	EstimatedTokens    int         `json:"estimated_tokens" yaml:"estimated_tokens"`
}

// CategoryShare is the portion of section content attributed to a category.
type CategoryShare struct {
	Category      category.Category `json:"category" yaml:"category"`
	SectionCount  int               `json:"section_count" yaml:"section_count"`
	EstimatedSize int               `json:"estimated_size" yaml:"estimated_size"`
	Percentage    float64           `json:"percentage" yaml:"percentage"`
}

// Growth is a heuristic growth estimate. ObservedLinesPerHour is set when
// recorded history for the file is available.
type Growth struct {
	PeriodDays           int      `json:"period_days" yaml:"period_days"`
	LinesAdded           int      `json:"lines_added" yaml:"lines_added"`
	SectionsAdded        int      `json:"sections_added" yaml:"sections_added"`
	GrowthRate           float64  `json:"growth_rate" yaml:"growth_rate"`
	MostActive           []string `json:"most_active_categories" yaml:"most_active_categories"`
	ObservedLinesPerHour *float64 `json:"observed_lines_per_hour,omitempty" yaml:"observed_lines_per_hour,omitempty"`
}

// Recommendation points at a section worth extracting.
type Recommendation struct {
	SectionID string `json:"section_id" yaml:"section_id"`
	Title     string `json:"title" yaml:"title"`
	Category  string `json:"category" yaml:"category"`
	Reason    string `json:"reason" yaml:"reason"`
	Priority  string `json:"priority" yaml:"priority"`
	Impact    string `json:"estimated_impact" yaml:"estimated_impact"`
}

// Report is the full analysis of one document.
type Report struct {
	DocumentID      string           `json:"document_id" yaml:"document_id"`
	Path            string           `json:"file_path" yaml:"file_path"`
	LastModified    time.Time        `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	Statistics      *Statistics      `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Distribution    []CategoryShare  `json:"category_distribution" yaml:"category_distribution"`
	Growth          *Growth          `json:"growth_patterns,omitempty" yaml:"growth_patterns,omitempty"`
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
	Insights        []string         `json:"insights" yaml:"insights"`
	TokenUsage      float64          `json:"token_budget_usage" yaml:"token_budget_usage"`
}

// History reports an observed growth rate for a path, in lines per hour.
type History interface {
	LinesPerHour(path string) (float64, bool)
}

// Options selects which parts of the report are computed.
type Options struct {
	Statistics      bool
	Growth          bool
	Recommendations bool
	Days            int
	Budget          budget.Budget
	History         History
}

// DefaultOptions enables every part with a 30 day growth window.
func DefaultOptions() Options {
	return Options{Statistics: true, Growth: true, Recommendations: true, Days: 30, Budget: budget.Default()}
}

// Analyzer builds Reports. It is safe for concurrent use.
type Analyzer struct {
	detector *category.Detector
}

// New returns an Analyzer. A nil detector gets the built-in taxonomy.
func New(detector *category.Detector) *Analyzer {
	if detector == nil {
		detector = category.NewDetector(nil)
	}
	return &Analyzer{detector: detector}
}

// Analyze builds a report for doc.
func (a *Analyzer) Analyze(doc *document.Document, opts Options) Report {
	cats := a.categorize(doc)
	r := Report{
		DocumentID:   doc.ID,
		Path:         doc.Metadata.Path,
		LastModified: doc.Metadata.ModifiedAt,
		Distribution: distribution(doc, cats),
	}
	stats := ComputeStatistics(doc)
	if opts.Statistics {
		r.Statistics = &stats
	}
	if opts.Growth {
		g := estimateGrowth(doc, opts.Days)
		if opts.History != nil && doc.Metadata.Path != "" {
			if rate, ok := opts.History.LinesPerHour(doc.Metadata.Path); ok {
				g.ObservedLinesPerHour = &rate
			}
		}
		r.Growth = &g
	}
	if opts.Recommendations {
		r.Recommendations = recommend(doc, cats, stats, r.Distribution)
	}
	r.TokenUsage = opts.Budget.Usage(stats.EstimatedTokens)
	r.Insights = insights(r, opts.Budget)
	log.Debug().Str("doc", doc.ID).Int("recommendations", len(r.Recommendations)).Msg("analyzed")
	return r
}

// categorize scores each section in document order through the detector cache.
func (a *Analyzer) categorize(doc *document.Document) []category.Category {
	out := make([]category.Category, len(doc.Sections))
	for i, s := range doc.Sections {
		out[i] = a.detector.Detect(s.Content, s.Title).Category
	}
	return out
}

// ComputeStatistics measures doc from its raw content and sections.
func ComputeStatistics(doc *document.Document) Statistics {
	st := Statistics{
		TotalSize:         utf8.RuneCountInString(doc.Content),
		TotalLines:        strings.Count(doc.Content, "\n") + 1,
		TotalSections:     len(doc.Sections),
		DepthDistribution: map[int]int{},
		CodeBlockCount:    len(fencedBlockRe.FindAllStringIndex(doc.Content, -1)),
		LinkCount:         len(parser.LinkRe.FindAllStringIndex(doc.Content, -1)),
		ImageCount:        len(parser.ImageRe.FindAllStringIndex(doc.Content, -1)),
		EstimatedTokens:   budget.EstimateTokens(doc.Content),
	}
	total := 0
	for _, s := range doc.Sections {
		st.DepthDistribution[s.Level]++
		total += utf8.RuneCountInString(s.Content)
	}
	if len(doc.Sections) > 0 {
		st.AverageSectionSize = float64(total) / float64(len(doc.Sections))
	}
	return st
}

// distribution aggregates non-Custom sections per category, most sections
// first, ties in first-seen order. Percentages are shares of content size.
func distribution(doc *document.Document, cats []category.Category) []CategoryShare {
	var out []CategoryShare
	index := map[category.Category]int{}
	total := 0
	for i, s := range doc.Sections {
		c := cats[i]
		if c.IsCustom() {
			continue
		}
		j, ok := index[c]
		if !ok {
			j = len(out)
			index[c] = j
			out = append(out, CategoryShare{Category: c})
		}
		size := utf8.RuneCountInString(s.Content)
		out[j].SectionCount++
		out[j].EstimatedSize += size
		total += size
	}
	for i := range out {
		if total > 0 {
			out[i].Percentage = float64(out[i].EstimatedSize) / float64(total) * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SectionCount > out[j].SectionCount })
	return out
}

// estimateGrowth is a size-based guess: small documents are assumed to grow
// faster than large ones.
func estimateGrowth(doc *document.Document, days int) Growth {
	if days <= 0 {
		days = 30
	}
	n := len(doc.Sections)
	rate := 10.0
	switch {
	case n > 50:
		rate = 5.0
	case n < 10:
		rate = 20.0
	}
	active := 0
	for _, s := range doc.Sections {
		t := strings.ToLower(s.Title)
		if strings.Contains(t, "recent") || strings.Contains(t, "new") {
			active++
		}
	}
	most := []string{"General Updates"}
	if active > 0 {
		most = []string{"Recent Updates"}
	}
	lines := strings.Count(doc.Content, "\n") + 1
	return Growth{
		PeriodDays:    days,
		LinesAdded:    int(float64(lines) * rate / 100),
		SectionsAdded: int(float64(n) * rate / 100),
		GrowthRate:    rate,
		MostActive:    most,
	}
}

var criticalMarkers = []string{"IMPORTANT", "CRITICAL", "URGENT", "REQUIRED"}

func recommend(doc *document.Document, cats []category.Category, st Statistics, dist []CategoryShare) []Recommendation {
	var out []Recommendation
	for _, s := range doc.Sections {
		if float64(utf8.RuneCountInString(s.Content)) > st.AverageSectionSize*2 {
			out = append(out, Recommendation{
				SectionID: s.ID,
				Title:     s.Title,
				Category:  "Large Content",
				Reason:    "Section is significantly larger than average",
				Priority:  "high",
				Impact:    "Reduce document complexity",
			})
		}
	}
	for _, d := range dist {
		if d.Percentage <= 30 {
			continue
		}
		for i, s := range doc.Sections {
			if i >= 5 {
				break
			}
			if cats[i] == d.Category {
				out = append(out, Recommendation{
					SectionID: s.ID,
					Title:     s.Title,
					Category:  d.Category.Label(),
					Reason:    "High concentration of " + d.Category.Label() + " content",
					Priority:  "medium",
					Impact:    "Better content organization",
				})
				break
			}
		}
	}
	for _, s := range doc.Sections {
		upper := strings.ToUpper(s.Content)
		for _, m := range criticalMarkers {
			if strings.Contains(upper, m) {
				out = append(out, Recommendation{
					SectionID: s.ID,
					Title:     s.Title,
					Category:  category.Of(category.Critical).Label(),
					Reason:    "Contains critical information",
					Priority:  "high",
					Impact:    "Ensure critical info is highlighted",
				})
				break
			}
		}
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
