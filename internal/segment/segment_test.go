package segment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/papertree/internal/structure"
)

// place writes text onto the page as fixed-width glyphs and returns the
// number of non-space glyphs.
func place(t *testing.T, p *structure.Page, text string, x, y, size float64) int {
	t.Helper()
	n := 0
	for _, r := range text {
		c := structure.NewChunk(string(r), structure.NewBBox(x, y, size*0.5, size), "Times-Roman", size)
		require.NoError(t, p.AppendChunk(c))
		x += size * 0.5
		if r != ' ' {
			n++
		}
	}
	return n
}

func twoColumnDoc(t *testing.T) (*structure.Document, int) {
	t.Helper()
	doc := structure.NewDocument()
	p := structure.NewPage(1, 612, 792)
	require.NoError(t, doc.AppendPage(p))

	n := 0
	n += place(t, p, "right column one", 320, 96, 10)
	n += place(t, p, "right column two", 320, 108, 10)
	n += place(t, p, "left column one", 50, 100, 10)
	n += place(t, p, "left column two", 50, 112, 10)
	n += place(t, p, "A Study of Layout", 150, 50, 16)
	n += place(t, p, "This abstract spans the full width of the page and is long enough to count twice", 50, 72, 10)
	return doc, n
}

func TestSegmenter_Ownership(t *testing.T) {
	doc, glyphs := twoColumnDoc(t)

	_, err := Segmenter{}.Segment(context.Background(), doc)
	require.NoError(t, err)

	page := doc.Pages()[0]
	assert.Empty(t, page.Chunks())
	require.Len(t, page.Zones(), 4)

	seen := make(map[structure.Node]int)
	chunks := 0
	require.NoError(t, doc.Walk(func(n structure.Node) error {
		seen[n]++
		switch v := n.(type) {
		case *structure.Zone:
			assert.Same(t, page, v.Page())
		case *structure.Line:
			assert.NotNil(t, v.Zone())
		case *structure.Word:
			assert.NotNil(t, v.Line())
		case *structure.Chunk:
			chunks++
			require.NotNil(t, v.Word())
			assert.Contains(t, v.Word().Chunks(), v)
		}
		return nil
	}))
	for n, c := range seen {
		assert.Equal(t, 1, c, "node %T visited %d times", n, c)
	}
	assert.Equal(t, glyphs, chunks)
}

func TestSegmenter_WordsAndColumns(t *testing.T) {
	doc, _ := twoColumnDoc(t)
	_, err := Segmenter{}.Segment(context.Background(), doc)
	require.NoError(t, err)

	var texts []string
	for _, z := range doc.Zones() {
		texts = append(texts, z.Text())
	}
	assert.Equal(t, []string{
		"A Study of Layout",
		"This abstract spans the full width of the page and is long enough to count twice",
		"right column one\nright column two",
		"left column one\nleft column two",
	}, texts)
}

func TestReadingOrder_ColumnsAfterSpanningZone(t *testing.T) {
	doc, _ := twoColumnDoc(t)
	ctx := context.Background()
	_, err := Segmenter{}.Segment(ctx, doc)
	require.NoError(t, err)

	_, err = ReadingOrder{}.Resolve(ctx, doc)
	require.NoError(t, err)

	var firstWords []string
	for _, z := range doc.Zones() {
		firstWords = append(firstWords, strings.Fields(z.Text())[0])
	}
	assert.Equal(t, []string{"A", "This", "left", "right"}, firstWords)
}

func TestReadingOrder_SortsLinesAndWords(t *testing.T) {
	w1, _ := structure.NewWord(structure.NewChunk("b", structure.NewBBox(60, 20, 5, 10), "F", 10))
	w0, _ := structure.NewWord(structure.NewChunk("a", structure.NewBBox(50, 20, 5, 10), "F", 10))
	bottom, _ := structure.NewLine(w1, w0)
	top, _ := structure.NewLine(mustWord(t, "t", 50, 5))
	z, _ := structure.NewZone(bottom, top)

	doc := structure.NewDocument()
	p := structure.NewPage(1, 612, 792)
	require.NoError(t, doc.AppendPage(p))
	require.NoError(t, p.AppendZone(z))

	_, err := ReadingOrder{}.Resolve(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "t\na b", z.Text())
}

func mustWord(t *testing.T, s string, x, y float64) *structure.Word {
	t.Helper()
	w, err := structure.NewWord(structure.NewChunk(s, structure.NewBBox(x, y, 5, 10), "F", 10))
	require.NoError(t, err)
	return w
}

func TestSegmenter_HonorsCancellation(t *testing.T) {
	doc, _ := twoColumnDoc(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Segmenter{}.Segment(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}
