package content

import "strings"

// Paragraph is a cleaned block of body text.
type Paragraph struct {
	Text string `json:"text"`
}

// Section is a heading with its paragraphs and nested subsections.
type Section struct {
	Title       string       `json:"title"`
	Level       int          `json:"level"`
	Paragraphs  []*Paragraph `json:"paragraphs,omitempty"`
	Subsections []*Section   `json:"subsections,omitempty"`
}

// Structure is the final content tree. Preamble holds paragraphs that
// appear before the first section.
type Structure struct {
	Preamble []*Paragraph `json:"preamble,omitempty"`
	Sections []*Section   `json:"sections"`
}

// Paragraphs returns every paragraph in document order: the preamble, then
// each section's own paragraphs before its subsections.
func (s *Structure) Paragraphs() []*Paragraph {
	out := append([]*Paragraph(nil), s.Preamble...)
	s.Walk(func(sec *Section) {
		out = append(out, sec.Paragraphs...)
	})
	return out
}

// Walk visits sections depth-first in document order.
func (s *Structure) Walk(fn func(*Section)) {
	var visit func([]*Section)
	visit = func(secs []*Section) {
		for _, sec := range secs {
			fn(sec)
			visit(sec.Subsections)
		}
	}
	visit(s.Sections)
}

// Text renders the tree as plain text with blank lines between blocks.
func (s *Structure) Text() string {
	var parts []string
	for _, p := range s.Preamble {
		parts = append(parts, p.Text)
	}
	s.Walk(func(sec *Section) {
		parts = append(parts, sec.Title)
		for _, p := range sec.Paragraphs {
			parts = append(parts, p.Text)
		}
	})
	return strings.Join(parts, "\n\n")
}
