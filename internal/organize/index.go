package organize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

// index renders index.md: category links, a statistics table, the top
// records per group and the list of source documents.
func (o *Organizer) index(groups Groups, now time.Time) string {
	keys := groups.Keys()
	lines := []string{
		"# Trapper Keeper Content Index",
		"",
		"*Generated on " + now.Format(time.RFC3339) + "*",
		"",
		"## Categories",
		"",
	}
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("- [%s](./%s) (%d items)", key, FileName(key, o.opts.Format), len(groups[key])))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("**Total items**: %d", groups.Len()),
		"",
		"## Statistics",
		"",
		"| Category | Count | Avg Importance |",
		"|----------|-------|----------------|",
	)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("| %s | %d | %.2f |", key, len(groups[key]), averageImportance(groups[key])))
	}
	lines = append(lines, "")

	for _, key := range keys {
		lines = append(lines, "## "+key, "")
		for i, c := range groups[key] {
			if i == 5 {
				lines = append(lines, fmt.Sprintf("- ... and %d more", len(groups[key])-5))
				break
			}
			lines = append(lines, fmt.Sprintf("- %s (%.2f)", c.Title, c.Importance))
		}
		lines = append(lines, "")
	}

	docs := map[string]struct{}{}
	for _, contents := range groups {
		for _, c := range contents {
			docs[c.DocumentID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lines = append(lines, "## Source Documents", "", fmt.Sprintf("Total documents processed: %d", len(ids)), "")
	for _, id := range ids {
		lines = append(lines, "- "+id)
	}
	return appendAutoToC(strings.Join(lines, "\n"), o.opts.TOCMinHeadings)
}

func averageImportance(contents []extract.Content) float64 {
	if len(contents) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range contents {
		sum += c.Importance
	}
	return sum / float64(len(contents))
}
