package parser

import (
	"strings"

	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// body. An unterminated block, or one that is not a YAML mapping, is treated
// as absent: the returned map is nil and body is the unchanged input.
func SplitFrontMatter(text string) (map[string]any, string) {
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, " \t\r") != frontMatterDelimiter {
		return nil, text
	}
	lines := strings.SplitAfter(rest, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r\n")
		if trimmed == frontMatterDelimiter || trimmed == "..." {
			block := rest[:offset]
			body := rest[offset+len(line):]
			fm := map[string]any{}
			if strings.TrimSpace(block) != "" {
				if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
					log.Warn().Err(err).Msg("ignoring malformed front matter")
					return nil, text
				}
			}
			return fm, body
		}
		offset += len(line)
	}
	return nil, text
}

// frontMatterTags reads a "tags" key holding either a list or a single string.
func frontMatterTags(fm map[string]any) []string {
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
