package extract

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

// Extractor turns parsed documents into categorized Content records.
// It holds no per-call state and is safe for concurrent use when its
// Detector is.
type Extractor struct {
	cfg      Config
	detector *category.Detector
	now      func() time.Time
}

// New returns an Extractor. A nil detector gets the built-in taxonomy.
func New(cfg Config, detector *category.Detector) *Extractor {
	if detector == nil {
		detector = category.NewDetector(nil)
	}
	return &Extractor{cfg: cfg.withDefaults(), detector: detector, now: time.Now}
}

// Config returns the snapshot the Extractor was built with.
func (e *Extractor) Config() Config { return e.cfg }

// Detector returns the category detector in use.
func (e *Extractor) Detector() *category.Detector { return e.detector }

// Extract walks every section once in document order, then optionally adds
// records for fenced code blocks and link groups found in the raw document.
// Records below the configured minimum importance are dropped. A document
// with nothing qualifying yields an empty slice.
func (e *Extractor) Extract(doc *document.Document) []Content {
	var out []Content
	document.Walk(doc.Roots(), func(s *document.Section) bool {
		if c, ok := e.extractSection(doc, s); ok {
			out = append(out, c)
		}
		return true
	})
	if e.cfg.CodeBlocks {
		out = append(out, e.codeBlocks(doc)...)
	}
	if e.cfg.Links {
		out = append(out, e.linkGroups(doc)...)
	}
	out = FilterByImportance(out, e.cfg.MinImportance)
	log.Debug().Str("doc", doc.ID).Int("sections", len(doc.Sections)).Int("extracted", len(out)).Msg("extracted")
	return out
}

// ExtractFromSections extracts only the given sections, without visiting
// their children.
func (e *Extractor) ExtractFromSections(doc *document.Document, sections []*document.Section) []Content {
	out := make([]Content, 0, len(sections))
	for _, s := range sections {
		if c, ok := e.extractSection(doc, s); ok {
			out = append(out, c)
		}
	}
	return FilterByImportance(out, e.cfg.MinImportance)
}

// extractSection is the per-section primitive shared by every strategy.
// Empty sections and disallowed categories report ok=false. A panic while
// handling one section is logged and the section skipped.
func (e *Extractor) extractSection(doc *document.Document, s *document.Section) (c Content, ok bool) {
	defer e.skipOnPanic(doc, s, &c, &ok)
	if strings.TrimSpace(s.Content) == "" {
		return Content{}, false
	}
	cat, confidence := e.detector.DetectCategory(s.Content, s.Title)
	return e.sectionRecord(doc, s, cat, confidence)
}

// extractScored is extractSection for a section whose score is already known.
func (e *Extractor) extractScored(doc *document.Document, s *document.Section, sc category.Score) (c Content, ok bool) {
	defer e.skipOnPanic(doc, s, &c, &ok)
	if strings.TrimSpace(s.Content) == "" {
		return Content{}, false
	}
	return e.sectionRecord(doc, s, sc.Category, sc.Score)
}

// classify scores a section through the detector's score cache. A panic is
// logged and reported as ok=false.
func (e *Extractor) classify(doc *document.Document, s *document.Section) (sc category.Score, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("doc", doc.ID).Str("section", s.ID).Interface("panic", r).Msg("section not classified")
			sc, ok = category.Score{}, false
		}
	}()
	return e.detector.Detect(s.Content, s.Title), true
}

func (e *Extractor) skipOnPanic(doc *document.Document, s *document.Section, c *Content, ok *bool) {
	if r := recover(); r != nil {
		log.Warn().Str("doc", doc.ID).Str("section", s.ID).Interface("panic", r).Msg("section skipped")
		*c, *ok = Content{}, false
	}
}

func (e *Extractor) sectionRecord(doc *document.Document, s *document.Section, cat category.Category, confidence float64) (Content, bool) {
	if !e.cfg.Allows(cat) {
		return Content{}, false
	}
	return Content{
		ID:            newContentID(),
		DocumentID:    doc.ID,
		Category:      cat,
		Title:         s.Title,
		Content:       s.Content,
		Importance:    Importance(cat, confidence, s.Level, s.Content),
		SourceSection: s.ID,
		Tags:          Tags(s),
		Metadata: map[string]any{
			"level":      s.Level,
			"confidence": confidence,
			"has_code":   len(parser.FindCodeBlocks(s.Content)) > 0,
			"has_links":  len(parser.FindLinks(s.Content)) > 0,
		},
		ExtractedAt: e.now(),
	}, true
}

func newContentID() string { return uuid.NewString()[:8] }
