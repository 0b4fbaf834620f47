package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dgallion1/papertree/internal/structure"
	pdflib "github.com/ledongthuc/pdf"
)

// ascent is the share of the font size drawn above the baseline.
const ascent = 0.8

// ErrNoPages is returned for a PDF without a single readable page.
var ErrNoPages = errors.New("pdf has no readable pages")

// PDFParser reads the positioned glyphs of every page. Coordinates are
// flipped so Y grows downwards from the top of the media box.
type PDFParser struct {
	// SkipBrokenPages drops pages whose content stream cannot be
	// interpreted instead of failing the whole document.
	SkipBrokenPages bool
}

func (p *PDFParser) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	reader, err := pdflib.NewReader(data, data.Size())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc := structure.NewDocument()
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pg := reader.Page(i)
		if pg.V.IsNull() {
			continue
		}
		texts, err := pageText(pg)
		if err != nil {
			if p.SkipBrokenPages {
				continue
			}
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		box := mediaBox(pg)
		page := structure.NewPage(doc.PageCount()+1, box.Width, box.Height)
		for _, t := range texts {
			if c := glyph(t, box); c != nil {
				if err := page.AppendChunk(c); err != nil {
					return nil, err
				}
			}
		}
		if err := doc.AppendPage(page); err != nil {
			return nil, err
		}
	}
	if doc.PageCount() == 0 {
		return nil, ErrNoPages
	}
	return doc, nil
}

// pageText interprets the content stream. The library panics on malformed
// operators.
func pageText(pg pdflib.Page) (texts []pdflib.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return pg.Content().Text, nil
}

// glyph converts one drawn character to a chunk in top-down page space.
func glyph(t pdflib.Text, box structure.BBox) *structure.Chunk {
	if t.S == "" {
		return nil
	}
	size := math.Abs(t.FontSize)
	if size == 0 {
		return nil
	}
	width := t.W
	if width <= 0 {
		width = advance * size
	}
	top := box.Y + box.Height - (t.Y + ascent*size)
	return structure.NewChunk(t.S, structure.NewBBox(t.X-box.X, top, width, size), t.Font, size)
}

// mediaBox returns the page's media box in PDF units, walking up the page
// tree when the page inherits it. Y is the bottom edge. Pages without a
// usable box get US Letter.
func mediaBox(pg pdflib.Page) structure.BBox {
	for v := pg.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.Len() != 4 {
			continue
		}
		x0, y0 := mb.Index(0).Float64(), mb.Index(1).Float64()
		x1, y1 := mb.Index(2).Float64(), mb.Index(3).Float64()
		if x1 > x0 && y1 > y0 {
			return structure.NewBBox(x0, y0, x1-x0, y1-y0)
		}
	}
	return structure.NewBBox(0, 0, pageWidth, pageHeight)
}
