package metadata

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyAffiliation is returned for an affiliation with no text.
var ErrEmptyAffiliation = errors.New("metadata: empty affiliation")

var (
	departmentRe  = regexp.MustCompile(`(?i)\b(department|dept\.?|school|faculty|division|laboratory|lab|group|chair)\b`)
	institutionRe = regexp.MustCompile(`(?i)\b(universit\w*|institut\w*|college|academy|hospital|centre|center|inc\.?|ltd\.?|corporation|gmbh|research|cnrs|inria)\b`)
	postcodeRe    = regexp.MustCompile(`\d`)
)

// countries holds lowercase country names and common short forms.
var countries = map[string]string{
	"usa": "USA", "u.s.a.": "USA", "united states": "USA", "united states of america": "USA",
	"uk": "UK", "u.k.": "UK", "united kingdom": "UK", "england": "UK", "scotland": "UK",
	"canada": "Canada", "mexico": "Mexico", "brazil": "Brazil", "argentina": "Argentina",
	"germany": "Germany", "france": "France", "italy": "Italy", "spain": "Spain",
	"portugal": "Portugal", "netherlands": "Netherlands", "the netherlands": "Netherlands",
	"belgium": "Belgium", "switzerland": "Switzerland", "austria": "Austria",
	"poland": "Poland", "czech republic": "Czech Republic", "sweden": "Sweden",
	"norway": "Norway", "denmark": "Denmark", "finland": "Finland", "ireland": "Ireland",
	"greece": "Greece", "russia": "Russia", "turkey": "Turkey", "israel": "Israel",
	"china": "China", "p.r. china": "China", "japan": "Japan", "korea": "Korea",
	"south korea": "Korea", "india": "India", "singapore": "Singapore",
	"australia": "Australia", "new zealand": "New Zealand", "south africa": "South Africa",
	"egypt": "Egypt", "iran": "Iran", "taiwan": "Taiwan", "hong kong": "Hong Kong",
}

// AffiliationParser splits a raw affiliation on commas into department,
// institution, address and country. Each affiliation is parsed on its own.
type AffiliationParser struct{}

func (AffiliationParser) Parse(ctx context.Context, a *Affiliation) error {
	raw := strings.TrimSpace(a.Raw)
	if raw == "" {
		return ErrEmptyAffiliation
	}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), ".")); p != "" {
			parts = append(parts, p)
		}
	}

	a.Institution, a.Department, a.Address, a.Country = "", "", "", ""
	if n := len(parts); n > 1 {
		if c, ok := countries[strings.ToLower(parts[n-1])]; ok {
			a.Country = c
			parts = parts[:n-1]
		}
	}

	var rest []string
	for _, p := range parts {
		switch {
		case a.Department == "" && departmentRe.MatchString(p) && !postcodeRe.MatchString(p):
			a.Department = p
		case a.Institution == "" && institutionRe.MatchString(p) && !postcodeRe.MatchString(p):
			a.Institution = p
		default:
			rest = append(rest, p)
		}
	}
	if a.Institution == "" && len(rest) > 0 {
		a.Institution, rest = rest[0], rest[1:]
	}
	a.Address = strings.Join(rest, ", ")
	a.Parsed = true
	return nil
}
