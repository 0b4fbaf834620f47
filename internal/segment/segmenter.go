// Package segment groups the flat glyph list of each page into words, lines
// and zones, and orders zones for reading.
package segment

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

// Segmenter is a bottom-up geometric segmenter. Glyphs sharing a baseline
// band form lines, horizontal gaps split lines into words and columns, and
// vertically adjacent lines of similar size form zones.
type Segmenter struct {
	// WordGap is the gap between glyphs, as a fraction of font size, that
	// starts a new word. Zero means 0.25.
	WordGap float64
	// ColumnGap is the gap, as a fraction of font size, that splits a line
	// in two. Zero means 2.5.
	ColumnGap float64
	// LineSpacing is the vertical gap, as a fraction of line height, under
	// which consecutive lines share a zone. Zero means 0.8.
	LineSpacing float64
	// FontTolerance is the relative font size difference allowed inside a
	// zone. Zero means 0.2.
	FontTolerance float64
}

func (s Segmenter) withDefaults() Segmenter {
	if s.WordGap == 0 {
		s.WordGap = 0.25
	}
	if s.ColumnGap == 0 {
		s.ColumnGap = 2.5
	}
	if s.LineSpacing == 0 {
		s.LineSpacing = 0.8
	}
	if s.FontTolerance == 0 {
		s.FontTolerance = 0.2
	}
	return s
}

func (s Segmenter) Segment(ctx context.Context, doc *structure.Document) (*structure.Document, error) {
	s = s.withDefaults()
	for _, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks := page.TakeChunks()
		lines, err := s.lines(chunks)
		if err != nil {
			return nil, err
		}
		zones, err := s.zones(lines)
		if err != nil {
			return nil, err
		}
		if err := page.AppendZone(zones...); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// lines groups glyphs into baseline bands, then splits each band at word
// and column gaps. Whitespace glyphs only act as separators.
func (s Segmenter) lines(chunks []*structure.Chunk) ([]*structure.Line, error) {
	var glyphs []*structure.Chunk
	for _, c := range chunks {
		if strings.TrimSpace(c.Char) != "" {
			glyphs = append(glyphs, c)
		}
	}
	slices.SortStableFunc(glyphs, func(a, b *structure.Chunk) int {
		return cmp.Or(cmp.Compare(a.Box.CenterY(), b.Box.CenterY()), cmp.Compare(a.Box.X, b.Box.X))
	})

	var bands [][]*structure.Chunk
	var bandY, bandH float64
	for _, c := range glyphs {
		n := len(bands)
		if n > 0 && math.Abs(c.Box.CenterY()-bandY) <= 0.5*math.Max(bandH, c.Box.Height) {
			bands[n-1] = append(bands[n-1], c)
			continue
		}
		bands = append(bands, []*structure.Chunk{c})
		bandY, bandH = c.Box.CenterY(), c.Box.Height
	}

	var out []*structure.Line
	for _, band := range bands {
		slices.SortStableFunc(band, func(a, b *structure.Chunk) int { return cmp.Compare(a.Box.X, b.Box.X) })

		var words []*structure.Word
		var cur []*structure.Chunk
		flushWord := func() error {
			if len(cur) == 0 {
				return nil
			}
			w, err := structure.NewWord(cur...)
			if err != nil {
				return err
			}
			words = append(words, w)
			cur = nil
			return nil
		}
		flushLine := func() error {
			if err := flushWord(); err != nil {
				return err
			}
			if len(words) == 0 {
				return nil
			}
			l, err := structure.NewLine(words...)
			if err != nil {
				return err
			}
			out = append(out, l)
			words = nil
			return nil
		}

		for i, c := range band {
			if i > 0 {
				prev := band[i-1]
				gap := c.Box.Left() - prev.Box.Right()
				size := math.Max(math.Max(prev.FontSize, c.FontSize), 1)
				switch {
				case gap > s.ColumnGap*size:
					if err := flushLine(); err != nil {
						return nil, err
					}
				case gap > s.WordGap*size:
					if err := flushWord(); err != nil {
						return nil, err
					}
				}
			}
			cur = append(cur, c)
		}
		if err := flushLine(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// zones attaches each line, top to bottom, to the open zone it continues, or
// opens a new one.
func (s Segmenter) zones(lines []*structure.Line) ([]*structure.Zone, error) {
	slices.SortStableFunc(lines, func(a, b *structure.Line) int {
		return cmp.Or(cmp.Compare(a.Bounds().Top(), b.Bounds().Top()), cmp.Compare(a.Bounds().Left(), b.Bounds().Left()))
	})

	type group struct {
		lines []*structure.Line
		size  float64
	}
	var groups []*group
	for _, l := range lines {
		lb := l.Bounds()
		size := lineFontSize(l)
		var target *group
		for _, g := range slices.Backward(groups) {
			last := g.lines[len(g.lines)-1].Bounds()
			gap := last.VerticalGap(lb)
			if gap < -0.5*lb.Height || gap > s.LineSpacing*math.Max(last.Height, lb.Height) {
				continue
			}
			if last.HorizontalOverlap(lb) <= 0 {
				continue
			}
			if math.Abs(size-g.size) > s.FontTolerance*math.Max(size, g.size) {
				continue
			}
			target = g
			break
		}
		if target == nil {
			groups = append(groups, &group{lines: []*structure.Line{l}, size: size})
			continue
		}
		target.lines = append(target.lines, l)
	}

	zones := make([]*structure.Zone, 0, len(groups))
	for _, g := range groups {
		z, err := structure.NewZone(g.lines...)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func lineFontSize(l *structure.Line) float64 {
	var sum float64
	var n int
	for _, w := range l.Words() {
		for _, c := range w.Chunks() {
			sum += c.FontSize
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
