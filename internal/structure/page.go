package structure

import (
	"slices"
	"strings"
)

// Page is a single page. Before segmentation it holds a flat list of
// chunks; segmentation moves them into words and fills the zone list.
type Page struct {
	link

	Number int
	Width  float64
	Height float64

	zones  []*Zone
	chunks []*Chunk
}

// NewPage creates a page with the given 1-based number and size in points.
func NewPage(number int, width, height float64) *Page {
	return &Page{Number: number, Width: width, Height: height}
}

// Bounds returns the full page rectangle.
func (p *Page) Bounds() BBox { return BBox{Width: p.Width, Height: p.Height} }

// Document returns the owning document, or nil.
func (p *Page) Document() *Document {
	d, _ := p.parent.(*Document)
	return d
}

// Zones returns the zones in current order. The slice is a copy.
func (p *Page) Zones() []*Zone { return slices.Clone(p.zones) }

// AppendZone adds unowned zones to the page.
func (p *Page) AppendZone(zones ...*Zone) error {
	var err error
	p.zones, err = appendOwned[*Zone](p, p.zones, zones)
	return err
}

// SetZones replaces the zone list. It is used to reorder zones and to drop
// zones the page should no longer contain.
func (p *Page) SetZones(zones []*Zone) error {
	var err error
	p.zones, err = replaceOwned[*Zone](p, p.zones, zones)
	return err
}

// Chunks returns the unsegmented chunks. The slice is a copy.
func (p *Page) Chunks() []*Chunk { return slices.Clone(p.chunks) }

// AppendChunk adds raw chunks to the page.
func (p *Page) AppendChunk(chunks ...*Chunk) error {
	var err error
	p.chunks, err = appendOwned[*Chunk](p, p.chunks, chunks)
	return err
}

// TakeChunks detaches and returns the raw chunks so a segmenter can hand
// them to words.
func (p *Page) TakeChunks() []*Chunk {
	out := p.chunks
	for _, c := range out {
		c.setOwner(nil)
	}
	p.chunks = nil
	return out
}

// Text returns the zone texts in order, or the raw chunk characters when the
// page has not been segmented.
func (p *Page) Text() string {
	if len(p.zones) == 0 {
		var sb strings.Builder
		for _, c := range p.chunks {
			sb.WriteString(c.Char)
		}
		return sb.String()
	}
	parts := make([]string, len(p.zones))
	for i, z := range p.zones {
		parts[i] = z.Text()
	}
	return strings.Join(parts, "\n")
}
