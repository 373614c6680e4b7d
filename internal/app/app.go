// Package app wires configuration, parsing, extraction, organization and
// metrics into the batch pipeline used by the command line.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/hyperifyio/trapperkeeper/internal/analyze"
	"github.com/hyperifyio/trapperkeeper/internal/cache"
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
	"github.com/hyperifyio/trapperkeeper/internal/metrics"
	"github.com/hyperifyio/trapperkeeper/internal/organize"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
	"github.com/hyperifyio/trapperkeeper/internal/reference"
)

var (
	// ErrNoInputs is returned when a run has no files to process.
	ErrNoInputs = errors.New("no input files")
	// ErrAllInputsFailed is returned when every input of a batch failed.
	ErrAllInputsFailed = errors.New("all input files failed")
)

// App runs the extraction pipeline for one configuration snapshot.
type App struct {
	cfg       Config
	detector  *category.Detector
	extractor *extract.Extractor
	analyzer  *analyze.Analyzer
	metrics   *metrics.Collector
	history   analyze.History
	results   *cache.ResultCache
	cacheSalt string
}

// Option customizes an App.
type Option func(*App)

// WithMetrics records pipeline metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *App) { a.metrics = c }
}

// WithHistory supplies observed growth rates to analysis.
func WithHistory(h analyze.History) Option {
	return func(a *App) { a.history = h }
}

// New validates cfg and builds the pipeline collaborators.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	detector := category.NewDetector(reg)
	a := &App{
		cfg:       cfg,
		detector:  detector,
		extractor: extract.New(cfg.ExtractConfig(), detector),
		analyzer:  analyze.New(detector),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics != nil {
		if err := a.metrics.RegisterDetector(detector); err != nil {
			log.Warn().Err(err).Msg("detector metrics not registered")
		}
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged stale cache entries")
		}
		a.results = &cache.ResultCache{Dir: cfg.CacheDir}
		salt, _ := json.Marshal(struct {
			Extract  extract.Config
			Strategy string
			Rules    []Rule
		}{cfg.ExtractConfig(), cfg.Strategy, cfg.Rules})
		a.cacheSalt = string(salt)
	}
	return a, nil
}

// Config returns the configuration snapshot.
func (a *App) Config() Config { return a.cfg }

// Detector returns the shared category detector.
func (a *App) Detector() *category.Detector { return a.detector }

// Extractor returns the configured extractor.
func (a *App) Extractor() *extract.Extractor { return a.extractor }

// FileResult is the outcome for one input file. Err is set when the file
// could not be parsed; Contents may be empty without an error.
type FileResult struct {
	Path     string
	Document *document.Document
	Contents []extract.Content
	Cached   bool
	Duration time.Duration
	Err      error
}

// Batch collects the per-file results of one run in input order.
type Batch struct {
	Files []FileResult
}

// Contents returns every extracted record in input order.
func (b Batch) Contents() []extract.Content {
	var out []extract.Content
	for _, f := range b.Files {
		out = append(out, f.Contents...)
	}
	return out
}

// Documents indexes the parsed documents by id.
func (b Batch) Documents() map[string]*document.Document {
	out := make(map[string]*document.Document, len(b.Files))
	for _, f := range b.Files {
		if f.Document != nil {
			out[f.Document.ID] = f.Document
		}
	}
	return out
}

// Failed returns the results that carry an error.
func (b Batch) Failed() []FileResult {
	var out []FileResult
	for _, f := range b.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// ExpandInputs replaces directories with the parseable files below them,
// sorted, and keeps plain file arguments as given.
func ExpandInputs(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil || !st.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if parser.CanParse(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// ExtractFiles parses and extracts paths concurrently, bounded by
// MaxConcurrent. One failing file never discards the others; the error is
// ErrAllInputsFailed only when nothing succeeded.
func (a *App) ExtractFiles(ctx context.Context, paths []string) (Batch, error) {
	if len(paths) == 0 {
		return Batch{}, ErrNoInputs
	}
	results := make([]FileResult, len(paths))
	p := pool.New().WithMaxGoroutines(a.cfg.MaxConcurrent)
	for i, path := range paths {
		p.Go(func() {
			results[i] = a.ProcessFile(ctx, path)
		})
	}
	p.Wait()

	b := Batch{Files: results}
	failed := len(b.Failed())
	log.Info().Int("files", len(paths)).Int("failed", failed).Int("contents", len(b.Contents())).Msg("extraction finished")
	if err := ctx.Err(); err != nil {
		return b, err
	}
	if failed == len(paths) {
		return b, ErrAllInputsFailed
	}
	return b, nil
}

// ProcessFile parses and extracts one file.
func (a *App) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	defer func() {
		res.Duration = time.Since(start)
		if a.metrics != nil {
			a.metrics.FileDone(string(parser.TypeOf(path)), res.Duration, res.Err)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	doc, err := parser.ParseFile(path)
	if err != nil {
		res.Err = err
		log.Warn().Err(err).Str("path", path).Msg("file skipped")
		return res
	}
	res.Document = doc

	var key string
	if a.results != nil {
		key = cache.KeyFrom(a.cacheSalt, doc.Content)
		if contents, ok := a.cached(ctx, key, doc); ok {
			res.Contents, res.Cached = contents, true
			a.count(contents)
			return res
		}
	}

	exStart := time.Now()
	res.Contents = a.extract(doc)
	if a.metrics != nil {
		a.metrics.ExtractionDuration.Observe(time.Since(exStart).Seconds())
	}
	a.count(res.Contents)
	log.Debug().Str("path", path).Int("sections", len(doc.Sections)).Int("contents", len(res.Contents)).Msg("file extracted")

	if a.results != nil {
		if data, err := json.Marshal(cacheEntry{Sections: sectionIDs(doc), Contents: res.Contents}); err == nil {
			if err := a.results.Save(ctx, key, data); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("cache save failed")
			}
		}
	}
	return res
}

func (a *App) extract(doc *document.Document) []extract.Content {
	if a.cfg.Strategy == "" || a.cfg.Strategy == string(extract.StrategyDefault) {
		return a.extractor.Extract(doc)
	}
	return a.extractor.ExtractWithStrategy(doc, extract.ParseStrategy(a.cfg.Strategy))
}

// cacheEntry keeps the section ids of the parse that produced Contents so
// records can be remapped onto a later parse of the same text.
type cacheEntry struct {
	Sections []string          `json:"sections"`
	Contents []extract.Content `json:"contents"`
}

func sectionIDs(doc *document.Document) []string {
	ids := make([]string, len(doc.Sections))
	for i, sec := range doc.Sections {
		ids[i] = sec.ID
	}
	return ids
}

// cached loads records for key and points them at doc and its sections.
// Sections are matched by position; the key covers the text, so the
// section lists line up.
func (a *App) cached(ctx context.Context, key string, doc *document.Document) ([]extract.Content, bool) {
	data, ok, err := a.results.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Debug().Err(err).Msg("ignoring unreadable cache entry")
		return nil, false
	}
	if len(entry.Sections) != len(doc.Sections) {
		log.Debug().Str("doc", doc.ID).Msg("ignoring cache entry with a different section layout")
		return nil, false
	}
	remap := make(map[string]string, len(entry.Sections))
	for i, old := range entry.Sections {
		remap[old] = doc.Sections[i].ID
	}
	contents := entry.Contents
	for i := range contents {
		contents[i].DocumentID = doc.ID
		contents[i].SourceSection = remapSection(contents[i].SourceSection, remap)
		if ids, ok := contents[i].Metadata["section_ids"].([]any); ok {
			for j, id := range ids {
				if s, ok := id.(string); ok {
					ids[j] = remapSection(s, remap)
				}
			}
		}
	}
	return contents, true
}

// remapSection translates a section id, or a derived id such as a by_size
// chunk "<section>_chunk_<n>", through remap.
func remapSection(id string, remap map[string]string) string {
	if id == "" {
		return id
	}
	if fresh, ok := remap[id]; ok {
		return fresh
	}
	for old, fresh := range remap {
		if strings.HasPrefix(id, old+"_") {
			return fresh + id[len(old):]
		}
	}
	return id
}

func (a *App) count(contents []extract.Content) {
	if a.metrics == nil {
		return
	}
	counts := map[string]int{}
	cats := map[string]category.Category{}
	for _, c := range contents {
		counts[c.Category.Label()]++
		cats[c.Category.Label()] = c.Category
	}
	for label, n := range counts {
		a.metrics.Extracted(cats[label], n)
	}
}

// Organize groups the batch records and writes them below dir.
func (a *App) Organize(b Batch, dir string) (organize.Result, error) {
	start := time.Now()
	opts := organize.Options{
		GroupBy:         organize.GroupBy(a.cfg.GroupBy),
		Format:          organize.Format(a.cfg.Format),
		IncludeMetadata: a.cfg.IncludeMetadata,
		CreateIndex:     a.cfg.CreateIndex,
		Documents:       b.Documents(),
	}
	if a.cfg.References {
		opts.References = reference.NewGenerator(dir)
	}
	o := organize.New(opts)
	res, err := o.Save(o.Organize(b.Contents()), dir)
	if a.metrics != nil {
		a.metrics.OrganizeDuration.Observe(time.Since(start).Seconds())
	}
	return res, err
}

// LinkSources writes, next to the organized output in dir, a copy of every
// Markdown source with an "Extracted Content" section linking to where its
// records were written, plus extracted_content_index.md. It returns the
// written paths.
func (a *App) LinkSources(b Batch, res organize.Result, dir string) ([]string, error) {
	gen := reference.NewGenerator(dir)
	var written []string
	for _, f := range b.Files {
		if f.Document == nil || f.Document.Type != document.Markdown {
			continue
		}
		var items []reference.Extraction
		for _, it := range res.Extractions {
			if it.Content.DocumentID == f.Document.ID {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			continue
		}
		src, err := os.ReadFile(f.Path)
		if err != nil {
			return written, fmt.Errorf("read source: %w", err)
		}
		base := filepath.Base(f.Path)
		out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".linked.md")
		if err := os.WriteFile(out, []byte(gen.InsertExtractionLinks(string(src), out, items)), 0o644); err != nil {
			return written, fmt.Errorf("write linked source: %w", err)
		}
		written = append(written, out)
	}
	if len(res.Extractions) > 0 {
		out := filepath.Join(dir, "extracted_content_index.md")
		if err := os.WriteFile(out, []byte(reference.Index(dir, res.Extractions)), 0o644); err != nil {
			return written, fmt.Errorf("write extraction index: %w", err)
		}
		written = append(written, out)
	}
	log.Debug().Int("files", len(written)).Msg("source links written")
	return written, nil
}

// Analyze parses path and builds its analysis report.
func (a *App) Analyze(path string, opts analyze.Options) (analyze.Report, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return analyze.Report{}, err
	}
	if opts.History == nil {
		opts.History = a.history
	}
	return a.analyzer.Analyze(doc, opts), nil
}

// Compare analyzes two files side by side.
func (a *App) Compare(left, right string) (analyze.Comparison, error) {
	l, err := parser.ParseFile(left)
	if err != nil {
		return analyze.Comparison{}, err
	}
	r, err := parser.ParseFile(right)
	if err != nil {
		return analyze.Comparison{}, err
	}
	return a.analyzer.Compare(l, r), nil
}
