package structure

import (
	"slices"
	"strings"
)

// Zone is a rectangular block of coherent text: a paragraph, a heading, a
// reference list. It is the unit classification labels.
type Zone struct {
	link

	label Label
	lines []*Line
}

// NewZone creates an unlabeled zone holding the given lines.
func NewZone(lines ...*Line) (*Zone, error) {
	z := &Zone{}
	if err := z.AppendLine(lines...); err != nil {
		return nil, err
	}
	return z, nil
}

// Label returns the current label; LabelNone until a classifier runs.
func (z *Zone) Label() Label { return z.label }

// SetLabel overwrites the label.
func (z *Zone) SetLabel(l Label) { z.label = l }

// Page returns the owning page, or nil.
func (z *Zone) Page() *Page {
	p, _ := z.parent.(*Page)
	return p
}

func (z *Zone) Bounds() BBox { return unionBounds(z.lines) }

// Lines returns the lines in order. The slice is a copy.
func (z *Zone) Lines() []*Line { return slices.Clone(z.lines) }

// AppendLine adds unowned lines to the zone.
func (z *Zone) AppendLine(lines ...*Line) error {
	var err error
	z.lines, err = appendOwned[*Line](z, z.lines, lines)
	return err
}

// SetLines replaces or reorders the line list.
func (z *Zone) SetLines(lines []*Line) error {
	var err error
	z.lines, err = replaceOwned[*Line](z, z.lines, lines)
	return err
}

// Text joins the line texts with newlines.
func (z *Zone) Text() string {
	parts := make([]string, len(z.lines))
	for i, l := range z.lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, "\n")
}

// Chunks returns every chunk of the zone in reading order.
func (z *Zone) Chunks() []*Chunk {
	var out []*Chunk
	for _, l := range z.lines {
		for _, w := range l.words {
			out = append(out, w.chunks...)
		}
	}
	return out
}

// FontSize returns the mean chunk font size, or 0 for an empty zone.
func (z *Zone) FontSize() float64 {
	chunks := z.Chunks()
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.FontSize
	}
	return sum / float64(len(chunks))
}

func (z *Zone) walk(fn func(Node) error) error {
	if err := fn(z); err != nil {
		return err
	}
	for _, l := range z.lines {
		if err := fn(l); err != nil {
			return err
		}
		for _, w := range l.words {
			if err := fn(w); err != nil {
				return err
			}
			for _, c := range w.chunks {
				if err := fn(c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Line is a run of words sharing a baseline.
type Line struct {
	link

	words []*Word
}

// NewLine creates a line holding the given words.
func NewLine(words ...*Word) (*Line, error) {
	l := &Line{}
	if err := l.AppendWord(words...); err != nil {
		return nil, err
	}
	return l, nil
}

// Zone returns the owning zone, or nil.
func (l *Line) Zone() *Zone {
	z, _ := l.parent.(*Zone)
	return z
}

func (l *Line) Bounds() BBox { return unionBounds(l.words) }

// Words returns the words in order. The slice is a copy.
func (l *Line) Words() []*Word { return slices.Clone(l.words) }

// AppendWord adds unowned words to the line.
func (l *Line) AppendWord(words ...*Word) error {
	var err error
	l.words, err = appendOwned[*Word](l, l.words, words)
	return err
}

// SetWords replaces or reorders the word list.
func (l *Line) SetWords(words []*Word) error {
	var err error
	l.words, err = replaceOwned[*Word](l, l.words, words)
	return err
}

// Text joins the word texts with single spaces.
func (l *Line) Text() string {
	parts := make([]string, len(l.words))
	for i, w := range l.words {
		parts[i] = w.Text()
	}
	return strings.Join(parts, " ")
}

// Word is a run of chunks without whitespace between them.
type Word struct {
	link

	chunks []*Chunk
}

// NewWord creates a word holding the given chunks.
func NewWord(chunks ...*Chunk) (*Word, error) {
	w := &Word{}
	if err := w.AppendChunk(chunks...); err != nil {
		return nil, err
	}
	return w, nil
}

// Line returns the owning line, or nil.
func (w *Word) Line() *Line {
	l, _ := w.parent.(*Line)
	return l
}

func (w *Word) Bounds() BBox { return unionBounds(w.chunks) }

// Chunks returns the chunks in order. The slice is a copy.
func (w *Word) Chunks() []*Chunk { return slices.Clone(w.chunks) }

// AppendChunk adds unowned chunks to the word.
func (w *Word) AppendChunk(chunks ...*Chunk) error {
	var err error
	w.chunks, err = appendOwned[*Chunk](w, w.chunks, chunks)
	return err
}

// Text concatenates the chunk characters.
func (w *Word) Text() string {
	var sb strings.Builder
	for _, c := range w.chunks {
		sb.WriteString(c.Char)
	}
	return sb.String()
}

// Chunk is a single glyph as drawn on the page.
type Chunk struct {
	link

	Char     string
	FontName string
	FontSize float64
	Box      BBox
}

// NewChunk creates an unowned chunk.
func NewChunk(char string, box BBox, fontName string, fontSize float64) *Chunk {
	return &Chunk{Char: char, Box: box, FontName: fontName, FontSize: fontSize}
}

func (c *Chunk) Bounds() BBox { return c.Box }
func (c *Chunk) Text() string { return c.Char }

// Word returns the owning word, or nil while the chunk still sits on its page.
func (c *Chunk) Word() *Word {
	w, _ := c.parent.(*Word)
	return w
}

// Bold reports whether the glyph's font name marks it as bold.
func (c *Chunk) Bold() bool {
	name := strings.ToLower(c.FontName)
	return strings.Contains(name, "bold") || strings.Contains(name, "black") || strings.Contains(name, "heavy")
}
