package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
)

// Strategy selects how sections are grouped before extraction.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyBySize    Strategy = "by_size"
	StrategyBySection Strategy = "by_section"
	StrategyByType    Strategy = "by_type"
	// StrategyDefault is the plain per-section walk of Extract.
	StrategyDefault Strategy = "default"
)

const (
	autoSizeThreshold    = 10000
	autoSectionThreshold = 10
)

// Strategies lists the accepted strategy names.
func Strategies() []Strategy {
	return []Strategy{StrategyAuto, StrategyBySize, StrategyBySection, StrategyByType, StrategyDefault}
}

// ParseStrategy maps a name to a Strategy. Unknown names fall back to auto.
func ParseStrategy(name string) Strategy {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s
		}
	}
	return StrategyAuto
}

// ExtractWithStrategy runs the named strategy. Strategies iterate the flat
// section list and never add code block or link records; only Extract does.
func (e *Extractor) ExtractWithStrategy(doc *document.Document, s Strategy) []Content {
	var out []Content
	switch ParseStrategy(string(s)) {
	case StrategyBySize:
		out = e.bySize(doc)
	case StrategyBySection:
		out = e.bySection(doc)
	case StrategyByType:
		out = e.byType(doc)
	case StrategyDefault:
		return e.Extract(doc)
	default:
		return e.auto(doc)
	}
	out = FilterByImportance(out, e.cfg.MinImportance)
	log.Debug().Str("doc", doc.ID).Str("strategy", string(s)).Int("extracted", len(out)).Msg("extracted")
	return out
}

// auto picks by_size for large documents, by_section for documents with
// many sections and the plain walk otherwise.
func (e *Extractor) auto(doc *document.Document) []Content {
	switch {
	case utf8.RuneCountInString(doc.Content) > autoSizeThreshold:
		return e.ExtractWithStrategy(doc, StrategyBySize)
	case len(doc.Sections) > autoSectionThreshold:
		return e.ExtractWithStrategy(doc, StrategyBySection)
	}
	return e.Extract(doc)
}

func (e *Extractor) bySize(doc *document.Document) []Content {
	var out []Content
	for _, s := range doc.Sections {
		if utf8.RuneCountInString(s.Content) <= e.cfg.MaxSectionSize {
			if c, ok := e.extractSection(doc, s); ok {
				out = append(out, c)
			}
			continue
		}
		for i, chunk := range SplitBySize(s.Content, e.cfg.MaxSectionSize) {
			part := &document.Section{
				ID:       s.ID + "_chunk_" + strconv.Itoa(i),
				Title:    s.Title + " (Part " + strconv.Itoa(i+1) + ")",
				Content:  chunk,
				Level:    s.Level,
				Parent:   s.Parent,
				Metadata: s.Metadata,
			}
			c, ok := e.extractSection(doc, part)
			if !ok {
				continue
			}
			c.Metadata["is_chunk"] = true
			c.Metadata["chunk_index"] = i
			out = append(out, c)
		}
	}
	return out
}

// SplitBySize splits content on line boundaries into chunks of at most limit
// characters, counting one extra character per line for the newline. A
// single line longer than limit becomes its own chunk.
func SplitBySize(content string, limit int) []string {
	var (
		chunks  []string
		current []string
		size    int
	)
	for _, line := range strings.Split(content, "\n") {
		n := utf8.RuneCountInString(line) + 1
		if size+n > limit && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			size = 0
		}
		current = append(current, line)
		size += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// GroupByHierarchy pairs each section with its direct children. Sections
// already placed in an earlier group are skipped.
func GroupByHierarchy(sections []*document.Section) [][]*document.Section {
	var groups [][]*document.Section
	seen := make(map[*document.Section]bool, len(sections))
	for _, s := range sections {
		if seen[s] {
			continue
		}
		seen[s] = true
		group := []*document.Section{s}
		for _, c := range s.Children {
			if !seen[c] {
				seen[c] = true
				group = append(group, c)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func (e *Extractor) bySection(doc *document.Document) []Content {
	var out []Content
	for _, group := range GroupByHierarchy(doc.Sections) {
		if len(group) == 1 {
			if c, ok := e.extractSection(doc, group[0]); ok {
				out = append(out, c)
			}
			continue
		}
		if c, ok := e.extractCombined(doc, group); ok {
			out = append(out, c)
		}
	}
	return out
}

// CombineSections renders each section with its heading line reinserted.
func CombineSections(sections []*document.Section) string {
	parts := make([]string, 0, len(sections)*4)
	for _, s := range sections {
		parts = append(parts, s.Heading(), "", s.Content, "")
	}
	return strings.Join(parts, "\n")
}

// extractCombined categorizes a group once, using the shallowest section's
// title as the title signal.
func (e *Extractor) extractCombined(doc *document.Document, group []*document.Section) (c Content, ok bool) {
	primary := group[0]
	for _, s := range group[1:] {
		if s.Level < primary.Level {
			primary = s
		}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("doc", doc.ID).Str("section", primary.ID).Interface("panic", r).Msg("section group skipped")
			c, ok = Content{}, false
		}
	}()
	combined := CombineSections(group)
	cat, confidence := e.detector.DetectCategory(combined, primary.Title)
	if !e.cfg.Allows(cat) {
		return Content{}, false
	}
	ids := make([]string, 0, len(group))
	for _, s := range group {
		ids = append(ids, s.ID)
	}
	return Content{
		ID:            newContentID(),
		DocumentID:    doc.ID,
		Category:      cat,
		Title:         primary.Title,
		Content:       combined,
		Importance:    Importance(cat, confidence, primary.Level, primary.Content),
		SourceSection: primary.ID,
		Tags:          tagsOf(group),
		Metadata: map[string]any{
			"is_combined":   true,
			"section_count": len(group),
			"section_ids":   ids,
			"confidence":    confidence,
		},
		ExtractedAt: e.now(),
	}, true
}

// ContentType buckets a category for by_type extraction.
func ContentType(cat category.Category) string {
	switch {
	case cat.Is(category.API), cat.Is(category.Testing):
		return "code"
	case cat.Is(category.Documentation), cat.Is(category.Setup):
		return "documentation"
	case cat.Is(category.Configuration):
		return "configuration"
	}
	return "other"
}

var contentTypeOrder = []string{"code", "documentation", "configuration", "other"}

// byType scores each section once through the detector's cache and reuses
// that score for the record.
func (e *Extractor) byType(doc *document.Document) []Content {
	buckets := make(map[string][]*document.Section, len(contentTypeOrder))
	scores := make(map[*document.Section]category.Score, len(doc.Sections))
	for _, s := range doc.Sections {
		sc, ok := e.classify(doc, s)
		if !ok {
			continue
		}
		scores[s] = sc
		t := ContentType(sc.Category)
		buckets[t] = append(buckets[t], s)
	}
	var out []Content
	for _, t := range contentTypeOrder {
		for _, s := range buckets[t] {
			c, ok := e.extractScored(doc, s, scores[s])
			if !ok {
				continue
			}
			c.Metadata["content_type"] = t
			out = append(out, c)
		}
	}
	return out
}
