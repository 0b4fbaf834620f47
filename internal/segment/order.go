package segment

import (
	"cmp"
	"context"
	"slices"

	"github.com/dgallion1/papertree/internal/structure"
)

// ReadingOrder sorts zones into column-major reading order.
//
// Zones wider than SpanRatio of the page split the page into horizontal
// bands. Inside a band, the left column is read before the right. Lines are
// sorted top to bottom and words left to right.
type ReadingOrder struct {
	// SpanRatio is the fraction of page width above which a zone spans both
	// columns. Zero means 0.6.
	SpanRatio float64
}

func (r ReadingOrder) Resolve(ctx context.Context, doc *structure.Document) (*structure.Document, error) {
	ratio := r.SpanRatio
	if ratio == 0 {
		ratio = 0.6
	}
	for _, page := range doc.Pages() {
		for _, z := range page.Zones() {
			if err := sortZone(z); err != nil {
				return nil, err
			}
		}
		if err := page.SetZones(orderZones(page, ratio)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func sortZone(z *structure.Zone) error {
	lines := z.Lines()
	slices.SortStableFunc(lines, func(a, b *structure.Line) int {
		return cmp.Compare(a.Bounds().Top(), b.Bounds().Top())
	})
	for _, l := range lines {
		words := l.Words()
		slices.SortStableFunc(words, func(a, b *structure.Word) int {
			return cmp.Compare(a.Bounds().Left(), b.Bounds().Left())
		})
		if err := l.SetWords(words); err != nil {
			return err
		}
	}
	return z.SetLines(lines)
}

func orderZones(page *structure.Page, ratio float64) []*structure.Zone {
	zones := page.Zones()
	byTop := func(a, b *structure.Zone) int {
		return cmp.Or(cmp.Compare(a.Bounds().Top(), b.Bounds().Top()), cmp.Compare(a.Bounds().Left(), b.Bounds().Left()))
	}
	slices.SortStableFunc(zones, byTop)

	width := page.Width
	if width <= 0 {
		width = page.Bounds().Width
	}
	mid := width / 2

	var out, left, right []*structure.Zone
	flush := func() {
		out = append(out, left...)
		out = append(out, right...)
		left, right = nil, nil
	}
	for _, z := range zones {
		b := z.Bounds()
		switch {
		case width > 0 && b.Width >= ratio*width:
			flush()
			out = append(out, z)
		case b.CenterX() < mid:
			left = append(left, z)
		default:
			right = append(right, z)
		}
	}
	flush()
	return out
}
