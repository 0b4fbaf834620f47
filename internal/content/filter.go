package content

import (
	"context"

	"github.com/dgallion1/papertree/internal/structure"
)

// Filter drops every zone that is not labeled as body content.
type Filter struct{}

func (Filter) Filter(ctx context.Context, doc *structure.Document) (*structure.Document, error) {
	for _, p := range doc.Pages() {
		var keep []*structure.Zone
		for _, z := range p.Zones() {
			if z.Label().Category() == structure.CategoryBody {
				keep = append(keep, z)
			}
		}
		if err := p.SetZones(keep); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
