// Package zoneclass assigns labels to zones: first a coarse category, then
// finer metadata labels on the front matter.
package zoneclass

import (
	"context"
	"regexp"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

var (
	referencesHeadRe = regexp.MustCompile(`(?i)^(\d+\.?\s+)?(references|bibliography|literature cited|works cited|references and notes)$`)
	backMatterRe     = regexp.MustCompile(`(?i)^([A-Z]\.?\s+)?(appendix|appendices|supplementary)`)
	introRe          = regexp.MustCompile(`(?i)^((1|i)\.?\s+)?introduction\b`)
	abstractRe       = regexp.MustCompile(`(?i)^(abstract|summary)\b`)
	pageNumberRe     = regexp.MustCompile(`^(page\s+)?\d{1,4}(\s*(of|/)\s*\d{1,4})?$`)
)

// Initial labels every zone as metadata, body, references or other.
//
// Front matter is the first-page text up to the introduction heading, or up
// to the abstract when there is no introduction heading. References run
// from a references heading to the end of the document or to an appendix.
// Short zones in the top and bottom margins are running headers, footers
// and page numbers.
type Initial struct {
	// Margin is the fraction of page height treated as header or footer
	// area. Zero means 0.06.
	Margin float64
}

func (c Initial) Classify(ctx context.Context, doc *structure.Document) (*structure.Document, error) {
	margin := c.Margin
	if margin == 0 {
		margin = 0.06
	}

	frontEnd := frontMatterEnd(doc)
	inRefs := false
	idx := 0
	for _, page := range doc.Pages() {
		for _, z := range page.Zones() {
			text := strings.Join(strings.Fields(z.Text()), " ")
			i := idx
			idx++

			switch {
			case isMarginal(page, z, text, margin):
				z.SetLabel(structure.LabelGenOther)
			case referencesHeadRe.MatchString(text):
				inRefs = true
				z.SetLabel(structure.LabelGenReferences)
			case inRefs && backMatterRe.MatchString(text):
				inRefs = false
				z.SetLabel(structure.LabelGenBody)
			case inRefs:
				z.SetLabel(structure.LabelGenReferences)
			case i < frontEnd:
				z.SetLabel(structure.LabelGenMetadata)
			default:
				z.SetLabel(structure.LabelGenBody)
			}
		}
	}
	return doc, nil
}

// frontMatterEnd returns the document-order index of the first zone after
// the front matter.
func frontMatterEnd(doc *structure.Document) int {
	pages := doc.Pages()
	if len(pages) == 0 {
		return 0
	}
	zones := pages[0].Zones()
	abstractEnd := -1
	for i, z := range zones {
		text := strings.TrimSpace(z.Text())
		if introRe.MatchString(text) {
			return i
		}
		if abstractEnd < 0 && abstractRe.MatchString(text) {
			abstractEnd = i + 1
			// A bare "Abstract" heading owns the zone after it.
			if len(strings.Fields(text)) == 1 && i+1 < len(zones) {
				abstractEnd = i + 2
			}
		}
	}
	if abstractEnd > 0 {
		return abstractEnd
	}
	return min(1, len(zones))
}

func isMarginal(page *structure.Page, z *structure.Zone, text string, margin float64) bool {
	if page.Height <= 0 {
		return false
	}
	b := z.Bounds()
	inMargin := b.Bottom() <= page.Height*margin || b.Top() >= page.Height*(1-margin)
	if !inMargin {
		return false
	}
	return pageNumberRe.MatchString(strings.ToLower(text)) || len(strings.Fields(text)) <= 8
}
