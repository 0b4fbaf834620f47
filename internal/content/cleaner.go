package content

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var hyphenBreakRe = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)

// Cleaner normalizes header and paragraph text and converts the raw
// structure into the final section tree.
type Cleaner struct{}

func (Cleaner) Clean(ctx context.Context, raw *Raw) (*Structure, error) {
	if raw == nil {
		return Convert(nil)
	}
	cleaned := &Raw{Parts: make([]*Part, 0, len(raw.Parts))}
	for _, p := range raw.Parts {
		np := &Part{}
		if p.Header != nil {
			h := *p.Header
			h.Text = CleanText(h.Text)
			np.Header = &h
		}
		for _, t := range p.Paragraphs {
			if t = CleanText(t); t != "" {
				np.Paragraphs = append(np.Paragraphs, t)
			}
		}
		if np.Header == nil && len(np.Paragraphs) == 0 {
			continue
		}
		cleaned.Parts = append(cleaned.Parts, np)
	}
	return Convert(cleaned)
}

// CleanText applies NFKC normalization (which also splits ligatures such as
// "ﬁ"), rejoins words hyphenated across line breaks, drops control
// characters and collapses whitespace.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	s = hyphenBreakRe.ReplaceAllString(s, "$1$2")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u00ad':
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
