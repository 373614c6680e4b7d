package validate

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/trapperkeeper/internal/parser"
	"github.com/hyperifyio/trapperkeeper/internal/reference"
)

var (
	refLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\[([^\]]+)\]`)
	refDefRe    = regexp.MustCompile(`(?m)^\s*\[([^\]]+)\]:\s*(\S+)`)
	anchorRe    = regexp.MustCompile(`\[[^\]]+\]\((#[^)]+)\)`)
	categoryRe  = regexp.MustCompile(`(?im)^\W*(?:category|categories)\W*:\s*(.+)$`)
	schemeRe    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
)

// isExternal reports whether ref points outside the file tree.
func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http") || schemeRe.MatchString(ref)
}

// References lists local link targets: inline [t](path) links and
// reference-style [t][id] links whose [id]: definition is local. Pure
// in-page anchors are excluded; see BrokenAnchors.
func References(text string) []string {
	var out []string
	for _, l := range parser.FindLinks(text) {
		u := strings.TrimSpace(l.URL)
		if u == "" || isExternal(u) || strings.HasPrefix(u, "#") {
			continue
		}
		out = append(out, u)
	}
	defs := map[string]string{}
	for _, m := range refDefRe.FindAllStringSubmatch(text, -1) {
		defs[strings.ToLower(m[1])] = m[2]
	}
	for _, m := range refLinkRe.FindAllStringSubmatch(text, -1) {
		target, ok := defs[strings.ToLower(m[2])]
		if !ok || isExternal(target) || strings.HasPrefix(target, "#") {
			continue
		}
		out = append(out, target)
	}
	return out
}

// Resolve finds ref relative to the source file, then the root, then as
// given. Fragments and query strings are ignored. The result is absolute.
func Resolve(ref, source, root string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	for _, cand := range []string{
		filepath.Join(filepath.Dir(source), ref),
		filepath.Join(root, ref),
		ref,
	} {
		if _, err := os.Stat(cand); err == nil {
			abs, err := filepath.Abs(cand)
			if err != nil {
				return cand, true
			}
			return abs, true
		}
	}
	return "", false
}

// BrokenAnchors returns the unique in-page anchors that match no heading.
func BrokenAnchors(text string) []string {
	slugs := map[string]bool{}
	for _, h := range headings(text) {
		if s := reference.Anchor(h.text); s != "" {
			slugs[s] = true
		}
	}
	seen := map[string]bool{}
	var out []string
	for _, m := range anchorRe.FindAllStringSubmatch(text, -1) {
		slug := reference.Anchor(strings.TrimPrefix(strings.TrimSpace(m[1]), "#"))
		if slug == "" || slugs[slug] || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// Categories collects category names from front matter ("category" or
// "categories") and from "Category:" lines, sorted and unique.
func Categories(text string) []string {
	set := map[string]bool{}
	fm, body := parser.SplitFrontMatter(text)
	for _, key := range []string{"category", "categories"} {
		switch v := fm[key].(type) {
		case string:
			set[strings.TrimSpace(v)] = true
		case []any:
			for _, it := range v {
				set[strings.TrimSpace(fmt.Sprint(it))] = true
			}
		}
	}
	for _, m := range categoryRe.FindAllStringSubmatch(body, -1) {
		for _, c := range strings.Split(m[1], ",") {
			set[strings.Trim(strings.TrimSpace(c), "*_`")] = true
		}
	}
	delete(set, "")
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type heading struct {
	level int
	text  string
}

// headings lists ATX headings outside code fences, in order.
func headings(text string) []heading {
	_, body := parser.SplitFrontMatter(text)
	var out []heading
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingLine.FindStringSubmatch(s); m != nil {
			out = append(out, heading{level: len(m[1]), text: strings.TrimSpace(m[2])})
		}
	}
	return out
}

// HeadingProblem describes the first structural problem in text, or
// returns "" when headings are present and never skip a level.
func HeadingProblem(text string) string {
	hs := headings(text)
	if len(hs) == 0 {
		return "No headings found"
	}
	for i := 1; i < len(hs); i++ {
		if hs[i].level > hs[i-1].level+1 {
			return fmt.Sprintf("Heading %q jumps from level %d to %d", hs[i].text, hs[i-1].level, hs[i].level)
		}
	}
	return ""
}
