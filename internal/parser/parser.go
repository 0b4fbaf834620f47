// Package parser reads source documents into a page model of positioned
// glyphs. PDF pages keep the glyph geometry from the file; flow formats
// (text, Markdown, HTML, DOCX) are typeset onto Letter pages so the
// geometric steps downstream can treat every input the same way.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

// Parser converts raw document bytes into a document with one flat chunk
// list per page.
type Parser interface {
	Extract(ctx context.Context, r io.Reader) (*structure.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Auto picks a parser from the leading bytes of the input. It is the
// character extractor used when no filename is known.
type Auto struct {
	PDF PDFParser
}

func (a *Auto) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(512)

	var p Parser
	switch trimmed := bytes.TrimLeft(head, " \t\r\n\ufeff"); {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		p = &a.PDF
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		p = &DOCXParser{}
	case looksLikeHTML(trimmed):
		p = &HTMLParser{}
	default:
		p = &TextParser{}
	}
	return p.Extract(ctx, br)
}

// ForFile is ForFile with a's PDF settings applied.
func (a *Auto) ForFile(filename string) (Parser, error) {
	p, err := ForFile(filename)
	if pdf, ok := p.(*PDFParser); ok {
		*pdf = a.PDF
	}
	return p, err
}

func looksLikeHTML(b []byte) bool {
	lower := bytes.ToLower(b)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// readAll reads r into memory. The PDF and DOCX readers need random access.
func readAll(r io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return bytes.NewReader(data), nil
}
