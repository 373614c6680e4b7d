// Package mcpserver exposes extraction, analysis, detection and validation
// as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/analyze"
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/document"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
	"github.com/hyperifyio/trapperkeeper/internal/validate"
)

// Name and Version identify the server to clients.
const (
	Name    = "trapperkeeper"
	Version = "0.1.0"
)

var errNoInput = errors.New("either path or content is required")

// Config holds the shared collaborators. Zero values get defaults.
type Config struct {
	Detector *category.Detector
	Extract  extract.Config
	History  analyze.History
}

// Server registers the tools on an mcp.Server.
type Server struct {
	detector *category.Detector
	extract  extract.Config
	analyzer *analyze.Analyzer
	history  analyze.History
}

// New builds a Server around cfg.
func New(cfg Config) *Server {
	if cfg.Detector == nil {
		cfg.Detector = category.NewDetector(nil)
	}
	return &Server{
		detector: cfg.Detector,
		extract:  cfg.Extract,
		analyzer: analyze.New(cfg.Detector),
		history:  cfg.History,
	}
}

// Register adds every tool to srv.
func (s *Server) Register(srv *mcp.Server) {
	addTool(srv, &mcp.Tool{
		Name:        "extract_content",
		Description: "Extract categorized content from a Markdown or HTML document. Provide either path or content.",
		InputSchema: schema(map[string]any{
			"path":                prop("string", "Path of the document to read"),
			"content":             prop("string", "Inline Markdown content"),
			"categories":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Category allow-list"},
			"min_importance":      prop("number", "Importance threshold in [0,1]"),
			"strategy":            prop("string", "auto, by_size, by_section, by_type or default"),
			"extract_code_blocks": prop("boolean", "Emit records for fenced code blocks"),
			"extract_links":       prop("boolean", "Emit link group records"),
			"with_context":        prop("string", "Title of one section to extract with the tail of the previous and head of the next section"),
		}),
	}, s.extractContent)

	addTool(srv, &mcp.Tool{
		Name:        "analyze_document",
		Description: "Report statistics, category distribution, growth and extraction recommendations for a document.",
		InputSchema: schema(map[string]any{
			"path":                    prop("string", "Path of the document to read"),
			"content":                 prop("string", "Inline Markdown content"),
			"include_statistics":      prop("boolean", "Include size statistics"),
			"include_growth_patterns": prop("boolean", "Include the growth estimate"),
			"include_recommendations": prop("boolean", "Include recommendations"),
			"days":                    prop("integer", "Growth estimate period in days"),
		}),
	}, s.analyzeDocument)

	addTool(srv, &mcp.Tool{
		Name:        "detect_category",
		Description: "Detect the category of a piece of content.",
		InputSchema: schema(map[string]any{
			"content":   prop("string", "Content to classify"),
			"title":     prop("string", "Optional title"),
			"multiple":  prop("boolean", "Return every category above threshold"),
			"threshold": prop("number", "Minimum normalized score when multiple is set"),
			"features":  prop("boolean", "Include the structural and keyword features of the content"),
		}, "content"),
	}, s.detectCategory)

	addTool(srv, &mcp.Tool{
		Name:        "suggest_categories",
		Description: "Suggest categories for content with explanations.",
		InputSchema: schema(map[string]any{
			"content": prop("string", "Content to classify"),
			"title":   prop("string", "Optional title"),
			"limit":   prop("integer", "Maximum number of suggestions"),
		}, "content"),
	}, s.suggestCategories)

	addTool(srv, &mcp.Tool{
		Name:        "validate_structure",
		Description: "Validate references, orphans, headings and categories in a documentation tree.",
		InputSchema: schema(map[string]any{
			"root_dir":         prop("string", "Root directory"),
			"source_files":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Explicit files to validate"},
			"patterns":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "File patterns when walking root_dir"},
			"check_references": prop("boolean", "Check local references"),
			"check_orphans":    prop("boolean", "Check for unreferenced files"),
			"check_structure":  prop("boolean", "Check heading structure"),
		}, "root_dir"),
	}, s.validateStructure)

	addTool(srv, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the built-in categories and registered custom rules.",
		InputSchema: schema(map[string]any{}),
	}, s.listCategories)
}

// Run serves the tools over stdio until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)
	s.Register(srv)
	log.Info().Str("transport", "stdio").Msg("mcp server starting")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func schema(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// addTool decodes the raw JSON arguments into R, runs fn and returns its
// result as JSON text. Failures are reported as tool errors.
func addTool[R any](srv *mcp.Server, tool *mcp.Tool, fn func(context.Context, *R) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args R
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}
		out, err := fn(ctx, &args)
		if err != nil {
			log.Debug().Err(err).Str("tool", tool.Name).Msg("tool failed")
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// source is the shared path-or-content input.
type source struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (src source) load() (*document.Document, error) {
	switch {
	case src.Path != "":
		if _, err := os.Stat(src.Path); err != nil {
			return nil, fmt.Errorf("file not found: %s", src.Path)
		}
		return parser.ParseFile(src.Path)
	case src.Content != "":
		return parser.ParseMarkdown(src.Content, ""), nil
	default:
		return nil, errNoInput
	}
}

type extractRequest struct {
	source
	Categories    []string `json:"categories"`
	MinImportance *float64 `json:"min_importance"`
	Strategy      string   `json:"strategy"`
	CodeBlocks    *bool    `json:"extract_code_blocks"`
	Links         *bool    `json:"extract_links"`
	WithContext   string   `json:"with_context"`
}

type extractResponse struct {
	DocumentID  string            `json:"document_id"`
	Sections    int               `json:"sections"`
	Extracted   int               `json:"extracted"`
	ByCategory  map[string]int    `json:"by_category"`
	Contents    []extract.Content `json:"contents"`
	Strategy    extract.Strategy  `json:"strategy"`
	Description string            `json:"summary"`
}

func (s *Server) extractContent(_ context.Context, r *extractRequest) (any, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	cfg := s.extract
	if cfg.MaxSectionSize == 0 {
		cfg = extract.DefaultConfig()
	}
	cfg.Categories = nil
	for _, name := range r.Categories {
		cfg.Categories = append(cfg.Categories, category.Parse(name))
	}
	if r.MinImportance != nil {
		if *r.MinImportance < 0 || *r.MinImportance > 1 {
			return nil, fmt.Errorf("min_importance must be within [0,1], got %g", *r.MinImportance)
		}
		cfg.MinImportance = *r.MinImportance
	}
	if r.CodeBlocks != nil {
		cfg.CodeBlocks = *r.CodeBlocks
	}
	if r.Links != nil {
		cfg.Links = *r.Links
	}
	strategy := extract.ParseStrategy(r.Strategy)
	ex := extract.New(cfg, s.detector)
	var contents []extract.Content
	switch {
	case r.WithContext != "":
		sec := findSection(doc, r.WithContext)
		if sec == nil {
			return nil, fmt.Errorf("%w: %q", extract.ErrSectionNotFound, r.WithContext)
		}
		c, err := ex.ExtractWithContext(doc, sec.ID)
		if err != nil {
			return nil, err
		}
		contents = []extract.Content{c}
	case r.Strategy == "":
		contents = ex.Extract(doc)
	default:
		contents = ex.ExtractWithStrategy(doc, strategy)
	}
	counts := map[string]int{}
	for _, c := range contents {
		counts[c.Category.Label()]++
	}
	if contents == nil {
		contents = []extract.Content{}
	}
	return extractResponse{
		DocumentID:  doc.ID,
		Sections:    len(doc.Sections),
		Extracted:   len(contents),
		ByCategory:  counts,
		Contents:    contents,
		Strategy:    strategy,
		Description: fmt.Sprintf("extracted %d items from %d sections", len(contents), len(doc.Sections)),
	}, nil
}

// findSection returns the first section in document order whose title
// matches title, ignoring case.
func findSection(doc *document.Document, title string) *document.Section {
	for _, sec := range doc.Sections {
		if strings.EqualFold(strings.TrimSpace(sec.Title), strings.TrimSpace(title)) {
			return sec
		}
	}
	return nil
}

type analyzeRequest struct {
	source
	Statistics      *bool `json:"include_statistics"`
	Growth          *bool `json:"include_growth_patterns"`
	Recommendations *bool `json:"include_recommendations"`
	Days            int   `json:"days"`
}

func (s *Server) analyzeDocument(_ context.Context, r *analyzeRequest) (any, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	opts := analyze.DefaultOptions()
	opts.History = s.history
	if r.Statistics != nil {
		opts.Statistics = *r.Statistics
	}
	if r.Growth != nil {
		opts.Growth = *r.Growth
	}
	if r.Recommendations != nil {
		opts.Recommendations = *r.Recommendations
	}
	if r.Days > 0 {
		opts.Days = r.Days
	}
	return s.analyzer.Analyze(doc, opts), nil
}

type detectRequest struct {
	Content   string   `json:"content"`
	Title     string   `json:"title"`
	Multiple  bool     `json:"multiple"`
	Threshold *float64 `json:"threshold"`
	Features  bool     `json:"features"`
}

type detectResponse struct {
	Category   category.Category         `json:"category"`
	Confidence float64                   `json:"confidence"`
	Scores     []category.Score          `json:"scores,omitempty"`
	Features   *category.ContentFeatures `json:"features,omitempty"`
}

func (s *Server) detectCategory(_ context.Context, r *detectRequest) (any, error) {
	if r.Content == "" {
		return nil, errors.New("content is required")
	}
	sc := s.detector.Detect(r.Content, r.Title)
	resp := detectResponse{Category: sc.Category, Confidence: sc.Score}
	if r.Multiple {
		threshold := category.DefaultThreshold
		if r.Threshold != nil {
			threshold = *r.Threshold
		}
		resp.Scores = s.detector.DetectMultiple(r.Content, r.Title, threshold)
		if resp.Scores == nil {
			resp.Scores = []category.Score{}
		}
	}
	if r.Features {
		f := s.detector.AnalyzeFeatures(r.Content, r.Title)
		resp.Features = &f
	}
	return resp, nil
}

type suggestRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	Limit   int    `json:"limit"`
}

func (s *Server) suggestCategories(_ context.Context, r *suggestRequest) (any, error) {
	if r.Content == "" {
		return nil, errors.New("content is required")
	}
	out := s.detector.Suggest(r.Content, r.Title, r.Limit)
	if out == nil {
		out = []category.Suggestion{}
	}
	return map[string]any{"suggestions": out}, nil
}

type validateRequest struct {
	Root            string   `json:"root_dir"`
	Files           []string `json:"source_files"`
	Patterns        []string `json:"patterns"`
	CheckReferences *bool    `json:"check_references"`
	CheckOrphans    *bool    `json:"check_orphans"`
	CheckStructure  *bool    `json:"check_structure"`
}

func (s *Server) validateStructure(ctx context.Context, r *validateRequest) (any, error) {
	if r.Root == "" {
		return nil, errors.New("root_dir is required")
	}
	opts := validate.DefaultOptions(r.Root)
	opts.Files = r.Files
	if len(r.Patterns) > 0 {
		opts.Patterns = r.Patterns
	}
	if r.CheckReferences != nil {
		opts.CheckReferences = *r.CheckReferences
	}
	if r.CheckOrphans != nil {
		opts.CheckOrphans = *r.CheckOrphans
	}
	if r.CheckStructure != nil {
		opts.CheckStructure = *r.CheckStructure
	}
	return validate.Validate(ctx, opts)
}

type listResponse struct {
	Categories  []category.Category     `json:"categories"`
	CustomRules []category.NamedPattern `json:"custom_rules"`
}

func (s *Server) listCategories(_ context.Context, _ *struct{}) (any, error) {
	rules := s.detector.Registry().CustomRules()
	if rules == nil {
		rules = []category.NamedPattern{}
	}
	return listResponse{Categories: category.All(), CustomRules: rules}, nil
}
