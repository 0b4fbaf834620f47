package bibref

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/papertree/internal/structure"
)

type lineSpec struct {
	text string
	left float64
}

func refDoc(t *testing.T, zones ...[]lineSpec) *structure.Document {
	t.Helper()
	doc := structure.NewDocument()
	p := structure.NewPage(1, 612, 792)
	require.NoError(t, doc.AppendPage(p))

	y := 100.0
	for _, spec := range zones {
		z := &structure.Zone{}
		for _, ls := range spec {
			l := &structure.Line{}
			x := ls.left
			for _, w := range strings.Fields(ls.text) {
				var chunks []*structure.Chunk
				for _, r := range w {
					chunks = append(chunks, structure.NewChunk(string(r), structure.NewBBox(x, y, 4, 9), "Times-Roman", 9))
					x += 4
				}
				word, err := structure.NewWord(chunks...)
				require.NoError(t, err)
				require.NoError(t, l.AppendWord(word))
				x += 2
			}
			require.NoError(t, z.AppendLine(l))
			y += 11
		}
		z.SetLabel(structure.LabelGenReferences)
		require.NoError(t, p.AppendZone(z))
	}
	return doc
}

func TestExtractor_BracketLabels(t *testing.T) {
	doc := refDoc(t, []lineSpec{
		{"References", 50},
		{"[1] A. Smith. A study of para-", 50},
		{"graphs. J. Doc. 2001.", 60},
		{"[2] B. Jones. Another study.", 50},
		{"Proc. X, 2002.", 60},
	})

	got, err := Extractor{}.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[1] A. Smith. A study of paragraphs. J. Doc. 2001.",
		"[2] B. Jones. Another study. Proc. X, 2002.",
	}, got)
}

func TestExtractor_HangingIndent(t *testing.T) {
	doc := refDoc(t, []lineSpec{
		{"Smith, J. (2001). First paper.", 50},
		{"Journal A, 1, 1-2.", 62},
		{"Jones, K. (2002). Second paper.", 50},
	})

	got, err := Extractor{}.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Smith, J. (2001). First paper. Journal A, 1, 1-2.",
		"Jones, K. (2002). Second paper.",
	}, got)
}

func TestExtractor_OneEntryPerZone(t *testing.T) {
	doc := refDoc(t,
		[]lineSpec{{"Smith J. First paper.", 50}, {"Journal A.", 50}},
		[]lineSpec{{"Jones K. Second paper.", 50}},
	)

	got, err := Extractor{}.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Smith J. First paper. Journal A.", "Jones K. Second paper."}, got)
}

func TestExtractor_NoReferences(t *testing.T) {
	got, err := Extractor{}.Extract(context.Background(), structure.NewDocument())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Entry
	}{
		{
			name: "author year",
			raw:  "Smith, J., & Jones, K. (2019). Parsing scientific papers. Journal of Documents, 12(3), 45–67. doi:10.1000/xyz.1",
			want: Entry{
				Authors: []string{"Smith, J.", "Jones, K"},
				Title:   "Parsing scientific papers",
				Venue:   "Journal of Documents, 12(3), 45–67",
				Year:    2019,
				Volume:  "12",
				Pages:   "45-67",
				DOI:     "10.1000/xyz.1",
			},
		},
		{
			name: "numbered",
			raw:  "[7] J. Smith and K. Jones. Deep parsing of papers. In Proc. ACL, pages 1-10, 2018.",
			want: Entry{
				Label:   "7",
				Authors: []string{"J. Smith", "K. Jones"},
				Title:   "Deep parsing of papers",
				Venue:   "In Proc. ACL, pages 1-10, 2018",
				Year:    2018,
				Pages:   "1-10",
			},
		},
		{
			name: "quoted title",
			raw:  `3. A. Lee et al., "Citation matching," IEEE Trans., vol. 4, pp. 100–110, 2005.`,
			want: Entry{
				Label:   "3",
				Authors: []string{"A. Lee"},
				Title:   "Citation matching",
				Venue:   "IEEE Trans., vol. 4, pp. 100–110, 2005",
				Year:    2005,
				Volume:  "4",
				Pages:   "100-110",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parser{}.Parse(context.Background(), tt.raw)
			require.NoError(t, err)
			tt.want.Raw = tt.raw
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestParser_Unstructured(t *testing.T) {
	got, err := Parser{}.Parse(context.Background(), "  some   free text  ")
	require.NoError(t, err)
	assert.Equal(t, "some free text", got.Raw)
	assert.Equal(t, []string{"some free text"}, got.Authors)
}

func TestParser_Empty(t *testing.T) {
	_, err := Parser{}.Parse(context.Background(), " \n ")
	assert.True(t, errors.Is(err, ErrEmptyReference))
}

func TestEntry_FirstAuthorSurname(t *testing.T) {
	assert.Equal(t, "Smith", (&Entry{Authors: []string{"Smith, J."}}).FirstAuthorSurname())
	assert.Equal(t, "Jones", (&Entry{Authors: []string{"K. Jones"}}).FirstAuthorSurname())
	assert.Equal(t, "", (&Entry{}).FirstAuthorSurname())
}
