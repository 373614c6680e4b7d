package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperifyio/trapperkeeper/internal/document"
)

// ErrNoParser is returned for files whose type has no registered parser.
var ErrNoParser = errors.New("no parser available")

// Parser turns raw text into a Document. path is optional.
type Parser interface {
	Type() document.Type
	Parse(text, path string) (*document.Document, error)
}

var extensionTypes = map[string]document.Type{
	".md":       document.Markdown,
	".markdown": document.Markdown,
	".mdown":    document.Markdown,
	".mkd":      document.Markdown,
	".html":     document.HTML,
	".htm":      document.HTML,
	".txt":      document.Text,
}

// TypeOf maps a file extension to a document type.
func TypeOf(path string) document.Type {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return document.Unknown
}

// For returns the parser for path or ErrNoParser.
func For(path string) (Parser, error) {
	switch TypeOf(path) {
	case document.Markdown:
		return Markdown{}, nil
	case document.HTML:
		return HTML{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoParser, filepath.Base(path))
}

// CanParse reports whether For would succeed for path.
func CanParse(path string) bool {
	_, err := For(path)
	return err == nil
}

// ParseFile reads path and parses it with the matching parser, recording
// the file size and modification time.
func ParseFile(path string) (*document.Document, error) {
	p, err := For(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(string(b), path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc.Metadata.Size = info.Size()
	doc.Metadata.ModifiedAt = info.ModTime()
	return doc, nil
}
