package category

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlRe    = regexp.MustCompile(`https?://`)
	emailRe  = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	numberRe = regexp.MustCompile(`\d+`)
)

// ContentFeatures is a reproducible bag of content signals used for analysis.
type ContentFeatures struct {
	ContentLength    int                `json:"content_length" yaml:"content_length"`
	WordCount        int                `json:"word_count" yaml:"word_count"`
	LineCount        int                `json:"line_count" yaml:"line_count"`
	HasCode          bool               `json:"has_code" yaml:"has_code"`
	HasURLs          bool               `json:"has_urls" yaml:"has_urls"`
	HasEmails        bool               `json:"has_emails" yaml:"has_emails"`
	HasNumbers       bool               `json:"has_numbers" yaml:"has_numbers"`
	UppercaseRatio   float64            `json:"uppercase_ratio" yaml:"uppercase_ratio"`
	SpecialCharRatio float64            `json:"special_char_ratio" yaml:"special_char_ratio"`
	TitleLength      int                `json:"title_length,omitempty" yaml:"title_length,omitempty"`
	TitleWordCount   int                `json:"title_word_count,omitempty" yaml:"title_word_count,omitempty"`
	TitleHasNumbers  bool               `json:"title_has_numbers,omitempty" yaml:"title_has_numbers,omitempty"`
	PatternScores    map[string]float64 `json:"pattern_scores" yaml:"pattern_scores"`
	KeywordDensity   map[string]float64 `json:"keyword_density" yaml:"keyword_density"`
}

// AnalyzeFeatures computes the feature bag for content and an optional title.
// Per-category maps are keyed by display label and hold only positive values.
func (d *Detector) AnalyzeFeatures(content, title string) ContentFeatures {
	words := strings.Fields(content)
	f := ContentFeatures{
		ContentLength:  utf8.RuneCountInString(content),
		WordCount:      len(words),
		LineCount:      strings.Count(content, "\n") + 1,
		HasCode:        strings.Contains(content, "```"),
		HasURLs:        urlRe.MatchString(content),
		HasEmails:      emailRe.MatchString(content),
		HasNumbers:     numberRe.MatchString(content),
		PatternScores:  map[string]float64{},
		KeywordDensity: map[string]float64{},
	}
	if f.ContentLength > 0 {
		upper, special := 0, 0
		for _, r := range content {
			if unicode.IsUpper(r) {
				upper++
			}
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
				special++
			}
		}
		f.UppercaseRatio = float64(upper) / float64(f.ContentLength)
		f.SpecialCharRatio = float64(special) / float64(f.ContentLength)
	}
	if title != "" {
		f.TitleLength = utf8.RuneCountInString(title)
		f.TitleWordCount = len(strings.Fields(title))
		f.TitleHasNumbers = numberRe.MatchString(title)
	}

	rules, _ := d.registry.snapshot()
	cl := strings.ToLower(content)
	tl := strings.ToLower(title)
	for _, r := range rules {
		label := r.category.Label()
		if s := r.score(cl, tl); s > f.PatternScores[label] {
			f.PatternScores[label] = s
		}
		if len(words) == 0 {
			continue
		}
		hits := 0
		for _, kw := range r.keywords {
			if strings.Contains(cl, kw) {
				hits++
			}
		}
		if hits > 0 {
			density := float64(hits) / float64(len(words))
			if density > f.KeywordDensity[label] {
				f.KeywordDensity[label] = density
			}
		}
	}
	return f
}
