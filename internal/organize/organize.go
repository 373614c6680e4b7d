// Package organize groups extracted content and writes it out as one file
// per group plus an index.
package organize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
	"github.com/hyperifyio/trapperkeeper/internal/reference"
)

// ErrUnsupportedFormat is returned by Save for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// GroupBy selects how records are grouped.
type GroupBy string

const (
	ByCategory GroupBy = "category"
	ByDocument GroupBy = "document"
	ByNone     GroupBy = "all"
)

// Format is an output file format.
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
	PDF      Format = "pdf"
)

// Formats lists the supported output formats.
func Formats() []Format { return []Format{Markdown, JSON, YAML, PDF} }

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// Groups maps a group key to its records, most important first.
type Groups map[string][]extract.Content

// Keys returns the group keys in sorted order.
func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the total number of records across all groups.
func (g Groups) Len() int {
	n := 0
	for _, c := range g {
		n += len(c)
	}
	return n
}

// Options controls grouping and output.
type Options struct {
	GroupBy         GroupBy
	Format          Format
	IncludeMetadata bool
	CreateIndex     bool
	// TOCMinHeadings is the heading count at which written Markdown gets a
	// table of contents. Zero uses the default of 12.
	TOCMinHeadings int
	// References, when set, appends a references block to each Markdown
	// record. Documents supplies source paths for those blocks.
	References *reference.Generator
	Documents  map[string]*document.Document
	Now        func() time.Time
}

// DefaultOptions groups by category into Markdown with metadata and index.
func DefaultOptions() Options {
	return Options{GroupBy: ByCategory, Format: Markdown, IncludeMetadata: true, CreateIndex: true}
}

// Organizer groups and saves records.
type Organizer struct {
	opts Options
}

// New returns an Organizer. Empty GroupBy and Format take the defaults.
func New(opts Options) *Organizer {
	if opts.GroupBy == "" {
		opts.GroupBy = ByCategory
	}
	if opts.Format == "" {
		opts.Format = Markdown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Organizer{opts: opts}
}

// Options returns the effective options.
func (o *Organizer) Options() Options { return o.opts }

// Organize groups contents and sorts each group by importance, descending.
// Records of equal importance keep their input order.
func (o *Organizer) Organize(contents []extract.Content) Groups {
	groups := Groups{}
	for _, c := range contents {
		var key string
		switch o.opts.GroupBy {
		case ByDocument:
			key = c.DocumentID
		case ByNone:
			key = "all"
		default:
			key = c.Category.Label()
		}
		groups[key] = append(groups[key], c)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Importance > g[j].Importance })
	}
	log.Debug().Int("groups", len(groups)).Int("contents", len(contents)).Msg("content organized")
	return groups
}

// Result lists what Save wrote.
type Result struct {
	Files       []string
	Index       string
	Extractions []reference.Extraction
}

// Save writes one file per group into dir, plus index.md when enabled.
func (o *Organizer) Save(groups Groups, dir string) (Result, error) {
	var res Result
	write, ok := writers[o.opts.Format]
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnsupportedFormat, o.opts.Format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	now := o.opts.Now().UTC()
	for _, key := range groups.Keys() {
		path := filepath.Join(dir, FileName(key, o.opts.Format))
		if err := write(o, path, key, groups[key], now); err != nil {
			return res, fmt.Errorf("write %s: %w", path, err)
		}
		res.Files = append(res.Files, path)
		for _, c := range groups[key] {
			res.Extractions = append(res.Extractions, reference.Extraction{Content: c, Path: path})
		}
	}
	if o.opts.CreateIndex {
		path := filepath.Join(dir, "index.md")
		if err := os.WriteFile(path, []byte(o.index(groups, now)), 0o644); err != nil {
			return res, fmt.Errorf("write index: %w", err)
		}
		res.Index = path
	}
	log.Info().Str("dir", dir).Str("format", string(o.opts.Format)).Int("files", len(res.Files)).Msg("content saved")
	return res, nil
}

// FileName is the sanitized output file name for a group key.
func FileName(key string, f Format) string {
	return SanitizeFilename(key) + "." + f.Ext()
}

var (
	unsafeNameRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRe  = regexp.MustCompile(`[-\s]+`)
)

// SanitizeFilename drops emoji and punctuation, joins words with
// underscores and lowercases. An empty result becomes "unknown".
func SanitizeFilename(name string) string {
	s := norm.NFKC.String(name)
	s = unsafeNameRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "_")
	s = strings.ToLower(strings.Trim(s, "_"))
	if s == "" {
		return "unknown"
	}
	return s
}
