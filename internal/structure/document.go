// Package structure holds the geometric document model that the extraction
// steps enrich in place: Document ⊃ Page ⊃ Zone ⊃ Line ⊃ Word ⊃ Chunk.
//
// Every node except the document has exactly one owner. Append and Set
// operations refuse children that already belong to another parent, so a
// subtree can never be reachable from two places.
package structure

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrOwned is returned when a child already belongs to another parent.
	ErrOwned = errors.New("structure: node already has a parent")
	// ErrDuplicate is returned when the same child appears twice in a list.
	ErrDuplicate = errors.New("structure: node listed twice")
)

// Node is implemented by every level of the tree.
type Node interface {
	Bounds() BBox
	Text() string
}

// link records the single owner of a node.
type link struct {
	parent any
}

func (l *link) owner() any     { return l.parent }
func (l *link) setOwner(p any) { l.parent = p }

type ownable interface {
	comparable
	owner() any
	setOwner(any)
}

func appendOwned[T ownable](parent any, list []T, children []T) ([]T, error) {
	seen := make(map[T]bool, len(children))
	for _, c := range children {
		if c.owner() != nil {
			return list, ErrOwned
		}
		if seen[c] {
			return list, ErrDuplicate
		}
		seen[c] = true
	}
	for _, c := range children {
		c.setOwner(parent)
		list = append(list, c)
	}
	return list, nil
}

// replaceOwned swaps the child list. Children already owned by parent may be
// reordered freely; children dropped from the list are detached.
func replaceOwned[T ownable](parent any, old, next []T) ([]T, error) {
	seen := make(map[T]bool, len(next))
	for _, c := range next {
		if o := c.owner(); o != nil && o != parent {
			return old, ErrOwned
		}
		if seen[c] {
			return old, ErrDuplicate
		}
		seen[c] = true
	}
	for _, c := range old {
		if !seen[c] {
			c.setOwner(nil)
		}
	}
	for _, c := range next {
		c.setOwner(parent)
	}
	return slices.Clone(next), nil
}

// Document is the root of the tree.
type Document struct {
	pages []*Page
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Pages returns the pages in order. The slice is a copy.
func (d *Document) Pages() []*Page { return slices.Clone(d.pages) }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// AppendPage adds pages to the end of the document.
func (d *Document) AppendPage(pages ...*Page) error {
	var err error
	d.pages, err = appendOwned[*Page](d, d.pages, pages)
	return err
}

// Bounds returns the union of the page boxes.
func (d *Document) Bounds() BBox { return unionBounds(d.pages) }

// Zones returns every zone of every page in current order.
func (d *Document) Zones() []*Zone {
	var zones []*Zone
	for _, p := range d.pages {
		zones = append(zones, p.zones...)
	}
	return zones
}

// Text concatenates the page texts separated by form feeds.
func (d *Document) Text() string {
	parts := make([]string, len(d.pages))
	for i, p := range d.pages {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\f")
}

// Walk visits every node below the document in pre-order. Returning an
// error from fn stops the walk.
func (d *Document) Walk(fn func(Node) error) error {
	for _, p := range d.pages {
		if err := fn(p); err != nil {
			return err
		}
		for _, c := range p.chunks {
			if err := fn(c); err != nil {
				return err
			}
		}
		for _, z := range p.zones {
			if err := z.walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}
