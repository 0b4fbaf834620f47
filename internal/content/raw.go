// Package content holds the section/paragraph view of a document's body and
// the collaborators that build it: filtering, header detection, header level
// clustering and cleaning.
//
// Nothing in this package points back into the geometric document model.
// Citation matching refers to paragraphs by index and byte offset.
package content

// Header is a detected section heading.
type Header struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold"`
	// Depth is the number of components in a numbering prefix such as
	// "2.3.1", or 0 for unnumbered headings.
	Depth int `json:"depth"`
	Page  int `json:"page"`
	// Level is the nesting level assigned by header clustering, starting at
	// 1 for top-level sections. 0 means unassigned.
	Level int `json:"level"`
}

// Part is a heading followed by the paragraphs under it. Header is nil for
// text that precedes the first heading.
type Part struct {
	Header     *Header  `json:"header,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

// Raw is the flat output of header detection.
type Raw struct {
	Parts []*Part `json:"parts"`
}

// Headers returns the headers in document order.
func (r *Raw) Headers() []*Header {
	var out []*Header
	for _, p := range r.Parts {
		if p.Header != nil {
			out = append(out, p.Header)
		}
	}
	return out
}

// ParagraphCount returns the total number of paragraphs.
func (r *Raw) ParagraphCount() int {
	n := 0
	for _, p := range r.Parts {
		n += len(p.Paragraphs)
	}
	return n
}
