// Package validate checks a documentation tree for broken references,
// orphaned files, missing category information and heading structure.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRootNotFound is returned when the root directory does not exist.
var ErrRootNotFound = errors.New("root directory not found")

// Issue types.
const (
	BrokenReference  = "broken_reference"
	BrokenAnchor     = "broken_anchor"
	OrphanedFile     = "orphaned_file"
	MissingCategory  = "missing_category"
	InvalidStructure = "invalid_structure"
	ReadError        = "read_error"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single validation finding.
type Issue struct {
	Type     string            `json:"type" yaml:"type"`
	Severity Severity          `json:"severity" yaml:"severity"`
	Path     string            `json:"file_path" yaml:"file_path"`
	Message  string            `json:"message" yaml:"message"`
	Details  map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// FileResult is the outcome for one file. Valid means no error issues.
type FileResult struct {
	Path             string   `json:"file_path" yaml:"file_path"`
	Valid            bool     `json:"is_valid" yaml:"is_valid"`
	ReferenceCount   int      `json:"reference_count" yaml:"reference_count"`
	BrokenReferences []string `json:"broken_references" yaml:"broken_references"`
	Categories       []string `json:"categories_found" yaml:"categories_found"`
	Issues           []Issue  `json:"issues" yaml:"issues"`
}

// BrokenRef pairs a file with a reference that did not resolve.
type BrokenRef struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Report summarizes a validation run.
type Report struct {
	Root             string        `json:"root_dir" yaml:"root_dir"`
	TotalFiles       int           `json:"total_files_checked" yaml:"total_files_checked"`
	ValidFiles       int           `json:"valid_files" yaml:"valid_files"`
	FilesWithIssues  int           `json:"files_with_issues" yaml:"files_with_issues"`
	Orphans          []string      `json:"orphaned_files" yaml:"orphaned_files"`
	BrokenReferences []BrokenRef   `json:"broken_references" yaml:"broken_references"`
	Files            []FileResult  `json:"file_validations" yaml:"file_validations"`
	Issues           []Issue       `json:"issues" yaml:"issues"`
	Duration         time.Duration `json:"processing_time" yaml:"processing_time"`
}

// OK reports whether no error-severity issue was found.
func (r Report) OK() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Options selects the files and checks. Files, when set, replaces the
// pattern walk over Root.
type Options struct {
	Root            string
	Files           []string
	Patterns        []string
	CheckReferences bool
	CheckOrphans    bool
	CheckStructure  bool
}

// DefaultOptions validates *.md and *.txt under root with every check on.
func DefaultOptions(root string) Options {
	return Options{
		Root:            root,
		Patterns:        []string{"*.md", "*.txt"},
		CheckReferences: true,
		CheckOrphans:    true,
		CheckStructure:  true,
	}
}

var indexStems = map[string]bool{"index": true, "readme": true, "toc": true, "contents": true}

// Validate runs the selected checks. Per-file read failures become
// read_error issues; only a missing root or a cancelled context fail the run.
func Validate(ctx context.Context, opts Options) (Report, error) {
	start := time.Now()
	rep := Report{Root: opts.Root}
	if st, err := os.Stat(opts.Root); err != nil || !st.IsDir() {
		return rep, fmt.Errorf("%w: %s", ErrRootNotFound, opts.Root)
	}
	files, err := collectFiles(opts)
	if err != nil {
		return rep, err
	}

	referenced := map[string]bool{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		fr, targets := validateFile(path, opts)
		for _, t := range targets {
			referenced[t] = true
		}
		rep.Files = append(rep.Files, fr)
	}

	if opts.CheckOrphans {
		for i := range rep.Files {
			fr := &rep.Files[i]
			abs, _ := filepath.Abs(fr.Path)
			stem := strings.ToLower(strings.TrimSuffix(filepath.Base(fr.Path), filepath.Ext(fr.Path)))
			if referenced[abs] || indexStems[stem] {
				continue
			}
			rep.Orphans = append(rep.Orphans, fr.Path)
			fr.Issues = append(fr.Issues, Issue{
				Type:     OrphanedFile,
				Severity: SeverityWarning,
				Path:     fr.Path,
				Message:  "File is not referenced by any other document",
			})
		}
	}

	for _, fr := range rep.Files {
		rep.TotalFiles++
		if fr.Valid {
			rep.ValidFiles++
		}
		if len(fr.Issues) > 0 {
			rep.FilesWithIssues++
		}
		for _, ref := range fr.BrokenReferences {
			rep.BrokenReferences = append(rep.BrokenReferences, BrokenRef{Source: fr.Path, Target: ref})
		}
		rep.Issues = append(rep.Issues, fr.Issues...)
	}
	rep.Duration = time.Since(start)
	log.Debug().Str("root", opts.Root).Int("files", rep.TotalFiles).Int("issues", len(rep.Issues)).Msg("validation finished")
	return rep, nil
}

// collectFiles returns the explicit files that exist, or every file under
// Root whose base name matches a pattern. Hidden directories are skipped.
func collectFiles(opts Options) ([]string, error) {
	if len(opts.Files) > 0 {
		var out []string
		for _, f := range opts.Files {
			if st, err := os.Stat(f); err == nil && !st.IsDir() {
				out = append(out, f)
			}
		}
		return out, nil
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*.md", "*.txt"}
	}
	var out []string
	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != opts.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, d.Name()); ok {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", opts.Root, err)
	}
	sort.Strings(out)
	return out, nil
}

// validateFile checks one file and returns the absolute paths of the local
// files it references.
func validateFile(path string, opts Options) (FileResult, []string) {
	fr := FileResult{Path: path, BrokenReferences: []string{}, Categories: []string{}}
	b, err := os.ReadFile(path)
	if err != nil {
		fr.Issues = []Issue{{Type: ReadError, Severity: SeverityError, Path: path, Message: "Failed to read file: " + err.Error()}}
		return fr, nil
	}
	text := string(b)

	refs := References(text)
	fr.ReferenceCount = len(refs)
	var targets []string
	for _, ref := range refs {
		resolved, ok := Resolve(ref, path, opts.Root)
		if ok {
			targets = append(targets, resolved)
			continue
		}
		if !opts.CheckReferences {
			continue
		}
		fr.BrokenReferences = append(fr.BrokenReferences, ref)
		fr.Issues = append(fr.Issues, Issue{
			Type:     BrokenReference,
			Severity: SeverityError,
			Path:     path,
			Message:  "Broken reference: " + ref,
			Details:  map[string]string{"reference": ref},
		})
	}
	if opts.CheckReferences {
		for _, anchor := range BrokenAnchors(text) {
			fr.Issues = append(fr.Issues, Issue{
				Type:     BrokenAnchor,
				Severity: SeverityWarning,
				Path:     path,
				Message:  "Anchor link to missing heading: #" + anchor,
				Details:  map[string]string{"anchor": anchor},
			})
		}
	}

	fr.Categories = Categories(text)
	if len(fr.Categories) == 0 {
		fr.Issues = append(fr.Issues, Issue{
			Type:     MissingCategory,
			Severity: SeverityWarning,
			Path:     path,
			Message:  "No category information found",
		})
	}

	if opts.CheckStructure {
		if problem := HeadingProblem(text); problem != "" {
			fr.Issues = append(fr.Issues, Issue{
				Type:     InvalidStructure,
				Severity: SeverityWarning,
				Path:     path,
				Message:  problem,
			})
		}
	}

	fr.Valid = true
	for _, is := range fr.Issues {
		if is.Severity == SeverityError {
			fr.Valid = false
		}
	}
	return fr, targets
}
