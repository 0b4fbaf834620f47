package claude

import (
	"regexp"
	"strings"

	"github.com/dgallion1/papertree/internal/bibref"
)

// reference is the JSON object the model is asked to produce.
type reference struct {
	Label   string   `json:"label"`
	Authors []string `json:"authors"`
	Title   string   `json:"title"`
	Venue   string   `json:"venue"`
	Year    int      `json:"year"`
	Volume  string   `json:"volume"`
	Pages   string   `json:"pages"`
	DOI     string   `json:"doi"`
}

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

const maxAuthors = 100

// validateReference checks a parsed reference and normalises it in place.
// It returns false when the result should be discarded. Fields that look
// like injected instructions only count when they do not appear in the raw
// string itself.
func validateReference(r *reference, raw string) bool {
	if r == nil {
		return false
	}
	r.Title = strings.TrimSpace(r.Title)
	if len(r.Title) < 3 || len(r.Title) > 500 {
		return false
	}
	for _, field := range []string{r.Title, r.Venue} {
		if injectionPattern.MatchString(field) && !strings.Contains(raw, field) {
			return false
		}
	}
	if r.Year != 0 && (r.Year < 1400 || r.Year > 2100) {
		r.Year = 0
	}

	authors := r.Authors[:0]
	for _, a := range r.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) > maxAuthors {
		authors = authors[:maxAuthors]
	}
	r.Authors = authors

	r.DOI = strings.TrimSpace(r.DOI)
	if r.DOI != "" && !doiPattern.MatchString(r.DOI) {
		r.DOI = ""
	}
	r.Label = strings.Trim(strings.TrimSpace(r.Label), "[].")
	r.Venue = strings.TrimSpace(r.Venue)
	r.Volume = strings.TrimSpace(r.Volume)
	r.Pages = strings.TrimSpace(r.Pages)
	return true
}

func (r *reference) entry(raw string) *bibref.Entry {
	e := &bibref.Entry{
		Raw:    raw,
		Label:  r.Label,
		Title:  r.Title,
		Venue:  r.Venue,
		Year:   r.Year,
		Volume: r.Volume,
		Pages:  r.Pages,
		DOI:    r.DOI,
	}
	if len(r.Authors) > 0 {
		e.Authors = r.Authors
	}
	return e
}
