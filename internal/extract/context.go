package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

var (
	// ErrSectionNotFound is returned when a section id is not part of the document.
	ErrSectionNotFound = errors.New("section not found")
	// ErrSectionFailed is returned when a section could not be categorized.
	ErrSectionFailed = errors.New("section extraction failed")
)

const (
	contextBeforeStart = "<!-- Context before -->"
	contextAfterStart  = "<!-- Context after -->"
	contextEnd         = "<!-- End context -->"
	ellipsis           = "..."
)

// ExtractWithContext extracts one section wrapped with the tail of the
// preceding section and the head of the following one, in flat document
// order. Category and importance come from the target section alone and
// the allow-list and threshold are not applied.
func (e *Extractor) ExtractWithContext(doc *document.Document, sectionID string) (c Content, err error) {
	idx := doc.Index(sectionID)
	if idx < 0 {
		return Content{}, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	target := doc.Sections[idx]

	var before, after []string
	if idx > 0 {
		before = tailLines(doc.Sections[idx-1].Content, e.cfg.ContextBefore)
	}
	if idx < len(doc.Sections)-1 {
		after = headLines(doc.Sections[idx+1].Content, e.cfg.ContextAfter)
	}

	var parts []string
	if len(before) > 0 {
		parts = append(parts, contextBeforeStart)
		if strings.Count(doc.Sections[idx-1].Content, "\n")+1 > len(before) {
			parts = append(parts, ellipsis)
		}
		parts = append(parts, before...)
		parts = append(parts, contextEnd, "")
	}
	parts = append(parts, target.Content)
	if len(after) > 0 {
		parts = append(parts, "", contextAfterStart)
		parts = append(parts, after...)
		if strings.Count(doc.Sections[idx+1].Content, "\n")+1 > len(after) {
			parts = append(parts, ellipsis)
		}
		parts = append(parts, contextEnd)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("doc", doc.ID).Str("section", sectionID).Interface("panic", r).Msg("context extraction failed")
			c, err = Content{}, fmt.Errorf("%w: %s: %v", ErrSectionFailed, sectionID, r)
		}
	}()
	cat, confidence := e.detector.DetectCategory(target.Content, target.Title)
	return Content{
		ID:            newContentID(),
		DocumentID:    doc.ID,
		Category:      cat,
		Title:         target.Title,
		Content:       strings.Join(parts, "\n"),
		Importance:    Importance(cat, confidence, target.Level, target.Content),
		SourceSection: target.ID,
		Tags:          Tags(target),
		Metadata: map[string]any{
			"has_context":          true,
			"context_before_lines": len(before),
			"context_after_lines":  len(after),
			"confidence":           confidence,
		},
		ExtractedAt: e.now(),
	}, nil
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) []string {
	if n <= 0 || s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// headLines returns the first n lines of s.
func headLines(s string, n int) []string {
	if n <= 0 || s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
