package parser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Title and HeadingN paragraph styles map to
// title and heading blocks. Other paragraphs keep their explicit run size
// and are bold when every run is.
type DOCXParser struct{}

func (p *DOCXParser) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := docx.Parse(data, data.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []block
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text, size, bold := docxParagraph(para)
		if text == "" {
			continue
		}
		switch style := docxStyle(para); {
		case strings.EqualFold(style, "title"):
			blocks = append(blocks, title(text))
		case docxHeadingLevel(style) > 0:
			blocks = append(blocks, heading(text, docxHeadingLevel(style)))
		default:
			b := paragraph(text)
			if size > 0 {
				b.size = size
			}
			b.bold = bold
			blocks = append(blocks, b)
		}
	}
	return typeset(ctx, blocks)
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel accepts both "Heading1" and "heading 1".
func docxHeadingLevel(style string) int {
	s := strings.ReplaceAll(strings.ToLower(style), " ", "")
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

// docxParagraph returns the paragraph text, the largest explicit run size in
// points (0 when none is set) and whether every text run is bold.
func docxParagraph(para *docx.Paragraph) (string, float64, bool) {
	var buf strings.Builder
	var size float64
	bold, runs := true, 0
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var text strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				text.WriteString(t.Text)
			}
		}
		if text.Len() == 0 {
			continue
		}
		buf.WriteString(text.String())
		runs++

		props := run.RunProperties
		if props == nil || props.Bold == nil {
			bold = false
		}
		if props != nil && props.Size != nil {
			// w:sz is in half-points.
			if hp, err := strconv.Atoi(props.Size.Val); err == nil {
				size = max(size, float64(hp)/2)
			}
		}
	}
	return strings.TrimSpace(buf.String()), size, bold && runs > 0
}
