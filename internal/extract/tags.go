package extract

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

var (
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)
)

// Tags collects #hashtags and @mentions from the section body plus an
// h<level> tag. The result is sorted and free of duplicates.
func Tags(s *document.Section) []string {
	set := map[string]struct{}{"h" + strconv.Itoa(s.Level): {}}
	for _, re := range []*regexp.Regexp{hashtagRe, mentionRe} {
		for _, m := range re.FindAllStringSubmatch(s.Content, -1) {
			set[m[1]] = struct{}{}
		}
	}
	return sortedSet(set)
}

func tagsOf(sections []*document.Section) []string {
	set := map[string]struct{}{}
	for _, s := range sections {
		for _, t := range Tags(s) {
			set[t] = struct{}{}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
