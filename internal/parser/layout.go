package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/papertree/internal/structure"
)

const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 72.0

	bodySize  = 10.0
	titleSize = 18.0

	// Glyphs are set fixed-width at half the font size.
	advance     = 0.5
	lineHeight  = 1.2
	blockSpacer = 1.0

	regularFont = "Times-Roman"
	boldFont    = "Times-Bold"
)

// block is one paragraph or heading of a flow document.
type block struct {
	text string
	size float64
	bold bool
}

func paragraph(text string) block { return block{text: text, size: bodySize} }

func title(text string) block { return block{text: text, size: titleSize, bold: true} }

// heading returns a bold block sized by level: 1 is the largest.
func heading(text string, level int) block {
	size := bodySize + 2*float64(4-min(max(level, 1), 4))
	if level >= 4 {
		size = bodySize + 1
	}
	return block{text: text, size: size, bold: true}
}

// typeset lays blocks out top to bottom on Letter pages, wrapping at the
// text width. Every block starts a new zone: the gap between blocks is
// larger than any segmenter line spacing.
func typeset(ctx context.Context, blocks []block) (*structure.Document, error) {
	t := &typesetter{doc: structure.NewDocument()}
	for _, b := range blocks {
		words := strings.Fields(b.text)
		if len(words) == 0 {
			continue
		}
		font := regularFont
		if b.bold {
			font = boldFont
		}
		for _, line := range wrap(words, b.size) {
			if err := t.ensureRoom(ctx, b.size); err != nil {
				return nil, err
			}
			if err := t.place(line, font, b.size); err != nil {
				return nil, err
			}
			t.y += lineHeight * b.size
		}
		t.y += blockSpacer * b.size
	}
	return t.doc, nil
}

type typesetter struct {
	doc  *structure.Document
	page *structure.Page
	y    float64
}

func (t *typesetter) ensureRoom(ctx context.Context, size float64) error {
	if t.page != nil && t.y+size <= pageHeight-margin {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.page = structure.NewPage(t.doc.PageCount()+1, pageWidth, pageHeight)
	t.y = margin
	return t.doc.AppendPage(t.page)
}

func (t *typesetter) place(line, font string, size float64) error {
	x := margin
	w := advance * size
	for _, r := range line {
		if r != ' ' {
			c := structure.NewChunk(string(r), structure.NewBBox(x, t.y, w, size), font, size)
			if err := t.page.AppendChunk(c); err != nil {
				return err
			}
		}
		x += w
	}
	return nil
}

// wrap greedily fills lines up to the text width. A word longer than a line
// gets a line of its own.
func wrap(words []string, size float64) []string {
	limit := int((pageWidth - 2*margin) / (advance * size))
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+n > limit {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
