// Package display renders command results for the terminal.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperifyio/trapperkeeper/internal/analyze"
	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/monitor"
	"github.com/hyperifyio/trapperkeeper/internal/organize"
	"github.com/hyperifyio/trapperkeeper/internal/validate"
)

// Printer writes styled output. Colors are dropped automatically when w is
// not a terminal.
type Printer struct {
	w       io.Writer
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	summary lipgloss.Style
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1F4E79", Dark: "#7FB3E0"}),
		label: r.NewStyle().Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}),
		good:  r.NewStyle().Foreground(lipgloss.Color("#2E8B57")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#D7A000")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#D0312D")),
		summary: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
			Padding(0, 1),
	}
}

func (p *Printer) println(s string) { fmt.Fprintln(p.w, s) }

func (p *Printer) heading(s string) { p.println(p.title.Render(s)) }

func (p *Printer) field(name string, v any) {
	p.println(p.label.Render(name+":") + " " + fmt.Sprint(v))
}

// Extraction prints per-file outcomes, category counts and written files.
// out may be nil for dry runs.
func (p *Printer) Extraction(b app.Batch, out *organize.Result) {
	p.heading("Extraction")
	for _, f := range b.Files {
		switch {
		case f.Err != nil:
			p.println(p.bad.Render("✗ "+f.Path) + " " + p.muted.Render(f.Err.Error()))
		case f.Cached:
			p.println(p.good.Render("✓ "+f.Path) + p.muted.Render(fmt.Sprintf(" %d items (cached)", len(f.Contents))))
		default:
			p.println(p.good.Render("✓ "+f.Path) + p.muted.Render(fmt.Sprintf(" %d items in %s", len(f.Contents), f.Duration.Round(1e6))))
		}
	}
	counts := map[string]int{}
	for _, c := range b.Contents() {
		counts[c.Category.Label()]++
	}
	if len(counts) > 0 {
		p.println("")
		p.heading("By category")
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if counts[keys[i]] != counts[keys[j]] {
				return counts[keys[i]] > counts[keys[j]]
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			p.println(fmt.Sprintf("  %-22s %d", k, counts[k]))
		}
	}
	lines := []string{
		fmt.Sprintf("Files: %d  Failed: %d  Items: %d", len(b.Files), len(b.Failed()), len(b.Contents())),
	}
	if out != nil {
		lines = append(lines, fmt.Sprintf("Wrote %d files", len(out.Files)))
		if out.Index != "" {
			lines = append(lines, "Index: "+out.Index)
		}
	}
	p.println("")
	p.println(p.summary.Render(strings.Join(lines, "\n")))
}

// Analysis prints an analysis report.
func (p *Printer) Analysis(r analyze.Report) {
	p.heading("Analysis: " + r.Path)
	if st := r.Statistics; st != nil {
		p.field("Size", fmt.Sprintf("%d chars, %d lines, %d sections", st.TotalSize, st.TotalLines, st.TotalSections))
		p.field("Content", fmt.Sprintf("%d code blocks, %d links, %d images", st.CodeBlockCount, st.LinkCount, st.ImageCount))
		p.field("Estimated tokens", fmt.Sprintf("%d (%.0f%% of budget)", st.EstimatedTokens, r.TokenUsage*100))
	}
	if len(r.Distribution) > 0 {
		p.println("")
		p.heading("Category distribution")
		for _, d := range r.Distribution {
			p.println(fmt.Sprintf("  %-22s %3d sections %6.1f%%", d.Category.Label(), d.SectionCount, d.Percentage))
		}
	}
	if g := r.Growth; g != nil {
		p.println("")
		p.heading("Growth")
		p.field("Estimated rate", fmt.Sprintf("%.0f%% over %d days (+%d lines, +%d sections)", g.GrowthRate, g.PeriodDays, g.LinesAdded, g.SectionsAdded))
		if g.ObservedLinesPerHour != nil {
			p.field("Observed", fmt.Sprintf("%.2f lines/hour", *g.ObservedLinesPerHour))
		}
	}
	if len(r.Recommendations) > 0 {
		p.println("")
		p.heading("Recommendations")
		for _, rec := range r.Recommendations {
			style := p.warn
			if rec.Priority == "high" {
				style = p.bad
			}
			p.println("  " + style.Render("["+rec.Priority+"]") + " " + rec.Title + p.muted.Render(" "+rec.Reason))
		}
	}
	if len(r.Insights) > 0 {
		p.println("")
		p.heading("Insights")
		for _, s := range r.Insights {
			p.println("  • " + s)
		}
	}
}

// Comparison prints the differences between two documents.
func (p *Printer) Comparison(c analyze.Comparison) {
	p.heading("Comparison")
	p.field("Size delta", c.SizeDelta)
	p.field("Line delta", c.LineDelta)
	p.field("Section delta", c.SectionDelta)
	p.field("Shared categories", labels(c.Shared))
	p.field("Only left", labels(c.OnlyLeft))
	p.field("Only right", labels(c.OnlyRight))
}

// Validation prints a validation report.
func (p *Printer) Validation(r validate.Report) {
	p.heading("Validation: " + r.Root)
	for _, is := range r.Issues {
		style := p.warn
		if is.Severity == validate.SeverityError {
			style = p.bad
		}
		p.println(style.Render(fmt.Sprintf("%-7s", is.Severity)) + " " + is.Path + ": " + is.Message)
	}
	status := p.good.Render("OK")
	if !r.OK() {
		status = p.bad.Render("FAILED")
	}
	p.println("")
	p.println(p.summary.Render(fmt.Sprintf("%s  files: %d  valid: %d  with issues: %d  orphans: %d  broken refs: %d",
		status, r.TotalFiles, r.ValidFiles, r.FilesWithIssues, len(r.Orphans), len(r.BrokenReferences))))
}

// Categories lists the built-ins and custom rules.
func (p *Printer) Categories(cats []category.Category, rules []category.NamedPattern) {
	p.heading("Categories")
	for _, c := range cats {
		p.println("  " + c.Label())
	}
	if len(rules) == 0 {
		return
	}
	p.println("")
	p.heading("Custom rules")
	for _, r := range rules {
		p.println(fmt.Sprintf("  %s → %s %s", r.Name, r.Pattern.Category.Label(),
			p.muted.Render(fmt.Sprintf("(%d keywords, %d patterns, weight %.1f)", len(r.Pattern.Keywords), len(r.Pattern.Patterns), r.Pattern.Weight))))
	}
}

// Suggestions prints ranked category suggestions.
func (p *Printer) Suggestions(path string, s []category.Suggestion) {
	p.heading("Suggestions: " + path)
	if len(s) == 0 {
		p.println(p.muted.Render("  no category scored above the suggestion threshold"))
		return
	}
	for i, sg := range s {
		p.println(fmt.Sprintf("  %d. %s %s", i+1, sg.Category.Label(), p.muted.Render(fmt.Sprintf("%.2f", sg.Score))))
		p.println("     " + sg.Explanation)
	}
}

// Event prints a monitor event.
func (p *Printer) Event(ev monitor.Event) {
	line := fmt.Sprintf("%s %-8s %s", ev.At.Format("15:04:05"), ev.Type, ev.Path)
	if ev.Stats != nil {
		line += p.muted.Render(fmt.Sprintf(" %d lines, %d bytes, %.1f lines/h", ev.Stats.Lines, ev.Stats.Size, ev.Stats.GrowthRate))
	}
	p.println(line)
	for _, v := range ev.Violations {
		p.println("  " + p.warn.Render("⚠ "+v))
	}
}

func labels(cats []category.Category) string {
	if len(cats) == 0 {
		return "-"
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Label()
	}
	return strings.Join(out, ", ")
}
