package organize

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

type writeFunc func(o *Organizer, path, key string, contents []extract.Content, now time.Time) error

var writers = map[Format]writeFunc{
	Markdown: writeMarkdown,
	JSON:     writeJSON,
	YAML:     writeYAML,
	PDF:      writePDF,
}

// renderMarkdown renders one group as a Markdown document.
func (o *Organizer) renderMarkdown(path, key string, contents []extract.Content, now time.Time) string {
	lines := []string{
		"# " + key,
		"",
		"*Generated on " + now.Format(time.RFC3339) + "*",
		"",
		fmt.Sprintf("Total items: %d", len(contents)),
		"",
		"---",
		"",
	}
	for _, c := range contents {
		lines = append(lines, "## "+c.Title, "")
		if o.opts.IncludeMetadata {
			lines = append(lines,
				"- **Category**: "+c.Category.Label(),
				fmt.Sprintf("- **Importance**: %.2f", c.Importance),
				"- **Document**: "+c.DocumentID,
			)
			if len(c.Tags) > 0 {
				tags := append([]string(nil), c.Tags...)
				sort.Strings(tags)
				lines = append(lines, "- **Tags**: "+strings.Join(tags, ", "))
			}
			lines = append(lines, "")
		}
		lines = append(lines, c.Content, "")
		if o.opts.References != nil {
			lines = append(lines, o.opts.References.Block(c, path, o.opts.Documents[c.DocumentID], contents), "")
		}
		lines = append(lines, "---", "")
	}
	return appendAutoToC(strings.Join(lines, "\n"), o.opts.TOCMinHeadings)
}

func writeMarkdown(o *Organizer, path, key string, contents []extract.Content, now time.Time) error {
	return os.WriteFile(path, []byte(o.renderMarkdown(path, key, contents, now)), 0o644)
}

type groupFile struct {
	Group       string      `json:"group" yaml:"group"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	TotalItems  int         `json:"total_items" yaml:"total_items"`
	Contents    []groupItem `json:"contents" yaml:"contents"`
}

type groupItem struct {
	ID            string         `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Content       string         `json:"content" yaml:"content"`
	DocumentID    string         `json:"document_id" yaml:"document_id"`
	Importance    float64        `json:"importance" yaml:"importance"`
	ExtractedAt   time.Time      `json:"extracted_at" yaml:"extracted_at"`
	Category      string         `json:"category,omitempty" yaml:"category,omitempty"`
	Tags          []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	SourceSection string         `json:"source_section,omitempty" yaml:"source_section,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (o *Organizer) groupFile(key string, contents []extract.Content, now time.Time) groupFile {
	f := groupFile{Group: key, GeneratedAt: now, TotalItems: len(contents), Contents: make([]groupItem, 0, len(contents))}
	for _, c := range contents {
		it := groupItem{
			ID:          c.ID,
			Title:       c.Title,
			Content:     c.Content,
			DocumentID:  c.DocumentID,
			Importance:  c.Importance,
			ExtractedAt: c.ExtractedAt,
		}
		if o.opts.IncludeMetadata {
			it.Category = c.Category.Label()
			it.Tags = c.Tags
			it.SourceSection = c.SourceSection
			it.Metadata = c.Metadata
		}
		f.Contents = append(f.Contents, it)
	}
	return f
}

func writeJSON(o *Organizer, path, key string, contents []extract.Content, now time.Time) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(fh)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o.groupFile(key, contents, now)); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func writeYAML(o *Organizer, path, key string, contents []extract.Content, now time.Time) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(fh)
	enc.SetIndent(2)
	if err := enc.Encode(o.groupFile(key, contents, now)); err != nil {
		_ = fh.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
