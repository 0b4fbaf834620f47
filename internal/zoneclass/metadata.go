package zoneclass

import (
	"context"
	"regexp"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

var (
	keywordsRe       = regexp.MustCompile(`(?i)^(key\s*words|keywords|index terms)\b`)
	correspondenceRe = regexp.MustCompile(`(?i)(corresponding author|correspondence|e-?mail\s*:|@[\w-]+\.)`)
	datesRe          = regexp.MustCompile(`(?i)\b(received|accepted|published( online)?|revised|available online)\b.*\b(19|20)\d{2}\b`)
	bibInfoRe        = regexp.MustCompile(`(?i)(\bdoi\b|10\.\d{4,9}/|\bvol(ume)?\.?\s*\d|\bissn\b|©|\bcopyright\b|\bjournal\b|\bproceedings\b|\bpp\.\s*\d)`)
	affiliationRe    = regexp.MustCompile(`(?i)\b(universit\w*|institut\w*|department|dept\.|laboratory|college|school of|faculty|centre|center|hospital|academy)\b`)
)

// Metadata refines front-matter zones into title, authors, affiliations,
// abstract and the other metadata labels. The title is the front-matter
// zone with the largest font; the zone right after it is taken as the
// author list unless it reads as something else.
type Metadata struct{}

func (Metadata) Classify(ctx context.Context, doc *structure.Document) (*structure.Document, error) {
	var front []*structure.Zone
	for _, z := range doc.Zones() {
		if z.Label().Category() == structure.CategoryMetadata {
			front = append(front, z)
		}
	}
	if len(front) == 0 {
		return doc, nil
	}

	labels := make([]structure.Label, len(front))
	afterAbstractHead := false
	for i, z := range front {
		text := strings.Join(strings.Fields(z.Text()), " ")
		switch {
		case afterAbstractHead:
			labels[i] = structure.LabelAbstract
		case abstractRe.MatchString(text):
			labels[i] = structure.LabelAbstract
			afterAbstractHead = len(strings.Fields(text)) == 1
			continue
		case keywordsRe.MatchString(text):
			labels[i] = structure.LabelKeywords
		case datesRe.MatchString(text):
			labels[i] = structure.LabelDates
		case correspondenceRe.MatchString(text):
			labels[i] = structure.LabelCorrespondence
		case bibInfoRe.MatchString(text):
			labels[i] = structure.LabelBibInfo
		case affiliationRe.MatchString(text):
			labels[i] = structure.LabelAffiliation
		}
		afterAbstractHead = false
	}

	title := -1
	for i, z := range front {
		if labels[i].IsSet() {
			continue
		}
		if title < 0 || z.FontSize() > front[title].FontSize() {
			title = i
		}
	}
	if title >= 0 {
		labels[title] = structure.LabelTitle
		if next := title + 1; next < len(front) && !labels[next].IsSet() {
			labels[next] = structure.LabelAuthor
		}
	}

	for i, z := range front {
		if !labels[i].IsSet() {
			labels[i] = structure.LabelMetadataUnknown
		}
		z.SetLabel(labels[i])
	}
	return doc, nil
}
