package metadata

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
)

var (
	emailRe    = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	doiRe      = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"<>]+`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	volumeRe   = regexp.MustCompile(`(?i)\bvol(?:ume)?\.?\s*(\d+)`)
	issueRe    = regexp.MustCompile(`(?i)\b(?:no|issue)\.?\s*(\d+)`)
	pagesRe    = regexp.MustCompile(`(?i)(?:\bpp?\.?\s*)?\b(\d+)\s*[-–]\s*(\d+)\b`)
	journalRe  = regexp.MustCompile(`^([A-Z][^,\d()]{3,}?)\s*(?:,|\d|\(|$)`)
	markerRe   = regexp.MustCompile(`^\s*(\d{1,2}|[*†‡§¶]|[a-z][).\s])[).]?\s*([^\d\s].*)$`)
	authorTail = regexp.MustCompile(`[\d*†‡§¶,]+$`)
	authorSep  = regexp.MustCompile(`\s*(?:,|;|\band\b|&)\s*`)
	prefixRe   = regexp.MustCompile(`(?i)^\s*(abstract|summary|key\s*words|keywords|index terms)\s*[:.—–-]?\s*`)
	keywordSep = regexp.MustCompile(`\s*[;,·•]\s*`)
)

// Extractor builds a Metadata record from zones labeled by metadata
// classification.
type Extractor struct{}

func (Extractor) Extract(ctx context.Context, doc *structure.Document) (*Metadata, error) {
	m := &Metadata{}
	var title, abstract []string
	var bib []string

	for _, z := range doc.Zones() {
		text := strings.TrimSpace(z.Text())
		if text == "" {
			continue
		}
		switch z.Label() {
		case structure.LabelTitle:
			title = append(title, text)
		case structure.LabelAuthor:
			m.Authors = append(m.Authors, parseAuthors(text)...)
		case structure.LabelAffiliation:
			for _, line := range z.Lines() {
				m.Affiliations = append(m.Affiliations, newAffiliation(line.Text()))
			}
		case structure.LabelAbstract:
			abstract = append(abstract, prefixRe.ReplaceAllString(text, ""))
		case structure.LabelKeywords:
			m.Keywords = append(m.Keywords, splitKeywords(text)...)
		case structure.LabelDates:
			m.Dates = append(m.Dates, strings.Join(strings.Fields(text), " "))
		case structure.LabelBibInfo:
			bib = append(bib, text)
		}
		m.Emails = append(m.Emails, emailRe.FindAllString(text, -1)...)
	}

	m.Title = strings.Join(strings.Fields(strings.Join(title, " ")), " ")
	m.Abstract = strings.Join(strings.Fields(strings.Join(abstract, " ")), " ")
	m.Emails = dedupe(m.Emails)
	fillBibInfo(m, strings.Join(bib, "\n"))
	return m, nil
}

func newAffiliation(line string) *Affiliation {
	line = strings.TrimSpace(line)
	a := &Affiliation{Raw: line}
	if m := markerRe.FindStringSubmatch(line); m != nil && len(m[2]) > 3 {
		a.Marker = strings.TrimRight(m[1], "). \t")
		a.Raw = strings.TrimSpace(m[2])
	}
	return a
}

// parseAuthors splits an author line on commas, semicolons and "and",
// peeling trailing affiliation markers off each name.
func parseAuthors(text string) []Author {
	var out []Author
	for _, part := range authorSep.Split(strings.Join(strings.Fields(text), " "), -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a := Author{Name: part}
		if tail := authorTail.FindString(part); tail != "" && len(tail) < len(part) {
			a.Name = strings.TrimSpace(strings.TrimSuffix(part, tail))
			for _, r := range tail {
				if r != ',' {
					a.Markers = append(a.Markers, string(r))
				}
			}
		}
		// A lone marker left by splitting "Smith 1, 2" belongs to the
		// previous author.
		if len([]rune(a.Name)) <= 1 && len(out) > 0 {
			out[len(out)-1].Markers = append(out[len(out)-1].Markers, a.Name)
			continue
		}
		out = append(out, a)
	}
	return out
}

func splitKeywords(text string) []string {
	text = prefixRe.ReplaceAllString(strings.Join(strings.Fields(text), " "), "")
	var out []string
	for _, k := range keywordSep.Split(text, -1) {
		if k = strings.TrimSpace(strings.TrimSuffix(k, ".")); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func fillBibInfo(m *Metadata, text string) {
	if text == "" {
		return
	}
	if d := doiRe.FindString(text); d != "" {
		m.DOI = strings.TrimRight(d, ".,;)")
	}
	if y := yearRe.FindString(text); y != "" {
		m.Year, _ = strconv.Atoi(y)
	}
	if v := volumeRe.FindStringSubmatch(text); v != nil {
		m.Volume = v[1]
	}
	if v := issueRe.FindStringSubmatch(text); v != nil {
		m.Issue = v[1]
	}
	if p := pagesRe.FindStringSubmatch(text); p != nil {
		m.Pages = p[1] + "-" + p[2]
	}
	for _, line := range strings.Split(text, "\n") {
		if j := journalRe.FindStringSubmatch(strings.TrimSpace(line)); j != nil && !strings.Contains(strings.ToLower(j[1]), "doi") {
			m.Journal = strings.TrimSpace(j[1])
			break
		}
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
