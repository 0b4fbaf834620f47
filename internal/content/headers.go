package content

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

var (
	numberingRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+\S`)
	romanRe     = regexp.MustCompile(`^(?i:[ivx]+)\.\s+\S`)
	namedRe     = regexp.MustCompile(`(?i)^(abstract|introduction|background|related work|methods?|materials and methods|results|discussion|conclusions?|acknowledge?ments?|appendix\b.*)$`)
)

// HeaderDetector splits body zones into headers and paragraphs.
//
// A zone is a header when it is short and either set in a font noticeably
// larger than the body text, entirely bold, numbered, or a well-known
// section name.
type HeaderDetector struct {
	// MaxWords caps the length of a heading. Zero means 12.
	MaxWords int
	// SizeRatio is how much larger than the median body font a heading must
	// be. Zero means 1.1.
	SizeRatio float64
}

func (h HeaderDetector) Extract(ctx context.Context, doc *structure.Document) (*Raw, error) {
	zones := doc.Zones()
	body := medianFontSize(zones)

	raw := &Raw{}
	var cur *Part
	for _, z := range zones {
		text := strings.TrimSpace(z.Text())
		if text == "" {
			continue
		}
		if hdr := h.header(z, text, body); hdr != nil {
			z.SetLabel(structure.LabelBodyHeading)
			cur = &Part{Header: hdr}
			raw.Parts = append(raw.Parts, cur)
			continue
		}
		z.SetLabel(structure.LabelBodyContent)
		if cur == nil {
			cur = &Part{}
			raw.Parts = append(raw.Parts, cur)
		}
		cur.Paragraphs = append(cur.Paragraphs, text)
	}
	return raw, nil
}

func (h HeaderDetector) header(z *structure.Zone, text string, bodySize float64) *Header {
	maxWords := h.MaxWords
	if maxWords == 0 {
		maxWords = 12
	}
	ratio := h.SizeRatio
	if ratio == 0 {
		ratio = 1.1
	}

	flat := strings.Join(strings.Fields(text), " ")
	if len(z.Lines()) > 2 || len(strings.Fields(flat)) > maxWords {
		return nil
	}
	if strings.HasSuffix(flat, ".") && !numberingRe.MatchString(flat) {
		return nil
	}

	size := z.FontSize()
	bold := allBold(z)
	depth := numberingDepth(flat)
	larger := bodySize > 0 && size >= bodySize*ratio

	if !larger && !bold && depth == 0 && !romanRe.MatchString(flat) && !namedRe.MatchString(flat) {
		return nil
	}

	page := 0
	if p := z.Page(); p != nil {
		page = p.Number
	}
	return &Header{Text: flat, FontSize: size, Bold: bold, Depth: depth, Page: page}
}

func numberingDepth(text string) int {
	m := numberingRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return strings.Count(m[1], ".") + 1
}

func allBold(z *structure.Zone) bool {
	chunks := z.Chunks()
	if len(chunks) == 0 {
		return false
	}
	for _, c := range chunks {
		if !c.Bold() {
			return false
		}
	}
	return true
}

// medianFontSize weighs each zone by its chunk count so long paragraphs
// dominate.
func medianFontSize(zones []*structure.Zone) float64 {
	var sizes []float64
	for _, z := range zones {
		for _, c := range z.Chunks() {
			sizes = append(sizes, c.FontSize)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	slices.Sort(sizes)
	return sizes[len(sizes)/2]
}
