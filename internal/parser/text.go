package parser

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

// TextParser handles plain text files. Blank lines separate paragraphs and
// every paragraph is set in the body font.
type TextParser struct{}

func (p *TextParser) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	paragraphs, err := textParagraphs(r)
	if err != nil {
		return nil, err
	}
	blocks := make([]block, 0, len(paragraphs))
	for _, para := range paragraphs {
		blocks = append(blocks, paragraph(para))
	}
	return typeset(ctx, blocks)
}

func textParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}
