package parser

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

// HTML converts an HTML page into Markdown and parses that. Headings become
// ATX headings, <pre> blocks become fences, list items become bullets.
// Navigation, footers and cookie banners are skipped.
type HTML struct{}

func (HTML) Type() document.Type { return document.HTML }

// Parse converts text to Markdown first. The resulting Document's Content is
// the converted Markdown and the page <title> is stored as front matter.
func (HTML) Parse(text, path string) (*document.Document, error) {
	node, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(findTitle(node))
	root := findFirst(node, "main")
	if root == nil {
		root = findFirst(node, "article")
	}
	if root == nil {
		root = findFirst(node, "body")
	}
	var b strings.Builder
	if root != nil {
		writeMarkdown(&b, root)
	}
	md := normalizeBlankLines(b.String())

	doc := ParseMarkdown(md, path)
	doc.Type = document.HTML
	doc.Metadata.Size = int64(len(text))
	if title != "" {
		doc.FrontMatter = map[string]any{"title": title}
	}
	return doc, nil
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func writeMarkdown(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(name[1] - '0')
			text := collapseSpaces(strings.TrimSpace(textOf(n)))
			if text != "" {
				b.WriteString("\n\n")
				b.WriteString(strings.Repeat("#", level))
				b.WriteString(" ")
				b.WriteString(text)
				b.WriteString("\n\n")
			}
			return
		case "pre":
			b.WriteString("\n\n```")
			b.WriteString(codeLanguage(n))
			b.WriteString("\n")
			b.WriteString(strings.TrimRight(textOf(n), "\n"))
			b.WriteString("\n```\n\n")
			return
		case "br", "hr":
			b.WriteString("\n")
		case "p", "ul", "ol", "table", "blockquote":
			b.WriteString("\n\n")
		case "li":
			b.WriteString("\n- ")
		case "a":
			if href := attr(n, "href"); href != "" {
				if text := collapseSpaces(strings.TrimSpace(textOf(n))); text != "" {
					b.WriteString("[" + text + "](" + href + ")")
					return
				}
			}
		}
	}

	if n.Type == html.TextNode {
		b.WriteString(whitespace.Replace(n.Data))
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeMarkdown(b, c)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "ul", "ol", "table", "blockquote":
			b.WriteString("\n\n")
		}
	}
}

var whitespace = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// codeLanguage reads a "language-xxx" class from <pre> or its <code> child.
func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	if code := findFirst(pre, "code"); code != nil {
		nodes = append(nodes, code)
	}
	for _, n := range nodes {
		for _, cls := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(cls, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if key != "id" && key != "class" && key != "role" && key != "aria-label" && !strings.HasPrefix(key, "data-") {
			continue
		}
		val := strings.ToLower(a.Val)
		for _, marker := range []string{"cookie", "consent", "gdpr"} {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}

// normalizeBlankLines trims trailing spaces and keeps at most one blank line
// between blocks. Fenced content is left untouched.
func normalizeBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) == 0 || out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
