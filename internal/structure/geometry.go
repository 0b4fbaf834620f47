package structure

import "math"

// BBox is a rectangle in page coordinates. The origin is the top-left corner
// of the page and Y grows downward.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewBBox creates a bounding box from its top-left corner and extent.
func NewBBox(x, y, width, height float64) BBox {
	return BBox{X: x, Y: y, Width: width, Height: height}
}

func (b BBox) Left() float64   { return b.X }
func (b BBox) Right() float64  { return b.X + b.Width }
func (b BBox) Top() float64    { return b.Y }
func (b BBox) Bottom() float64 { return b.Y + b.Height }

// CenterX returns the horizontal midpoint.
func (b BBox) CenterX() float64 { return b.X + b.Width/2 }

// CenterY returns the vertical midpoint.
func (b BBox) CenterY() float64 { return b.Y + b.Height/2 }

// IsZero reports whether the box is the zero value.
func (b BBox) IsZero() bool { return b == BBox{} }

// Union returns the smallest box containing both boxes. A zero box is
// treated as empty.
func (b BBox) Union(other BBox) BBox {
	if b.IsZero() {
		return other
	}
	if other.IsZero() {
		return b
	}
	x := math.Min(b.Left(), other.Left())
	y := math.Min(b.Top(), other.Top())
	right := math.Max(b.Right(), other.Right())
	bottom := math.Max(b.Bottom(), other.Bottom())
	return BBox{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// HorizontalOverlap returns the width shared by the two boxes' X ranges,
// or a negative gap when they do not overlap.
func (b BBox) HorizontalOverlap(other BBox) float64 {
	return math.Min(b.Right(), other.Right()) - math.Max(b.Left(), other.Left())
}

// VerticalGap returns the distance between the bottom of b and the top of
// other. Negative when they overlap.
func (b BBox) VerticalGap(other BBox) float64 {
	return other.Top() - b.Bottom()
}

func unionBounds[T interface{ Bounds() BBox }](items []T) BBox {
	var out BBox
	for _, it := range items {
		out = out.Union(it.Bounds())
	}
	return out
}
