// Package citations maps in-text citation markers to bibliography entries.
package citations

import (
	"cmp"
	"encoding/json"
	"slices"
)

// Span is one citation marker in the content structure.
type Span struct {
	// Paragraph indexes content.Structure.Paragraphs.
	Paragraph int `json:"paragraph"`
	// Start and End are byte offsets into the paragraph text.
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Marker string `json:"marker"`
	// Entries indexes the bibliography, in the order the marker cites them.
	Entries []int `json:"entries"`
}

// Positions is the read-only citation map.
type Positions struct {
	spans   []Span
	byEntry map[int][]int
}

// NewPositions builds a map from spans, ordering them by paragraph then
// offset. The spans are copied.
func NewPositions(spans []Span) *Positions {
	p := &Positions{spans: make([]Span, len(spans)), byEntry: make(map[int][]int)}
	for i, s := range spans {
		s.Entries = slices.Clone(s.Entries)
		p.spans[i] = s
	}
	slices.SortStableFunc(p.spans, func(a, b Span) int {
		return cmp.Or(cmp.Compare(a.Paragraph, b.Paragraph), cmp.Compare(a.Start, b.Start))
	})
	for i, s := range p.spans {
		for _, e := range s.Entries {
			p.byEntry[e] = append(p.byEntry[e], i)
		}
	}
	return p
}

// Len returns the number of spans.
func (p *Positions) Len() int { return len(p.spans) }

// Spans returns a copy of every span.
func (p *Positions) Spans() []Span {
	out := make([]Span, len(p.spans))
	for i, s := range p.spans {
		s.Entries = slices.Clone(s.Entries)
		out[i] = s
	}
	return out
}

// ForEntry returns the spans citing bibliography entry i.
func (p *Positions) ForEntry(i int) []Span {
	var out []Span
	for _, idx := range p.byEntry[i] {
		s := p.spans[idx]
		s.Entries = slices.Clone(s.Entries)
		out = append(out, s)
	}
	return out
}

// Cited returns the bibliography indices cited at least once, ascending.
func (p *Positions) Cited() []int {
	out := make([]int, 0, len(p.byEntry))
	for e := range p.byEntry {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func (p *Positions) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.spans)
}
