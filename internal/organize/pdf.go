package organize

import (
	"bufio"
	"strings"
	"time"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/trapperkeeper/internal/extract"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

func writePDF(o *Organizer, path, key string, contents []extract.Content, now time.Time) error {
	return renderPDF(o.renderMarkdown(path, key, contents, now), path)
}

// renderPDF lays out Markdown line by line: headings in bold, fenced code
// in a monospace font, links as clickable PDF links. The core fonts only
// cover cp1252, so other symbols are dropped before translation.
func renderPDF(markdown, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	inCode := false
	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, "```") {
			inCode = !inCode
			if inCode {
				pdf.SetFont("Courier", "", 9)
			} else {
				pdf.SetFont("Helvetica", "", 11)
			}
			continue
		}
		if inCode {
			pdf.CellFormat(0, 4, tr(printable(line)), "", 1, "L", false, 0, "")
			continue
		}
		if s == "" {
			pdf.Ln(5)
			continue
		}
		if strings.HasPrefix(s, "#") {
			i := countPrefix(s, '#')
			text := strings.TrimSpace(printable(s[i:]))
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		s = printable(s)
		parts := parser.LinkRe.FindAllStringSubmatchIndex(s, -1)
		if len(parts) == 0 {
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
			continue
		}
		pos := 0
		for _, m := range parts {
			if m[0] > pos {
				pdf.Write(5, tr(s[pos:m[0]]))
			}
			text := tr(s[m[2]:m[3]])
			url := s[m[4]:m[5]]
			if strings.HasPrefix(url, "#") {
				pdf.Write(5, text)
			} else {
				pdf.WriteLinkString(5, text, url)
			}
			pos = m[1]
		}
		if pos < len(s) {
			pdf.Write(5, tr(s[pos:]))
		}
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

// printable keeps letters, digits, punctuation and spaces.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}
