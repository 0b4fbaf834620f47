package bibref

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrEmptyReference is returned when asked to parse a blank string.
var ErrEmptyReference = errors.New("bibref: empty reference string")

var (
	labelRe     = regexp.MustCompile(`^\s*(?:\[([^\]]{1,12})\]|(\d{1,3})\.)\s*`)
	doiRe       = regexp.MustCompile(`(?i)(?:doi:\s*|https?://(?:dx\.)?doi\.org/)?\b(10\.\d{4,9}/[^\s"<>]+)`)
	parenYearRe = regexp.MustCompile(`\(((?:19|20)\d{2})[a-z]?\)`)
	yearRe      = regexp.MustCompile(`\b((?:19|20)\d{2})[a-z]?\b`)
	volumeRe    = regexp.MustCompile(`(?i)\bvol(?:ume)?\.?\s*(\d+)|\b(\d+)\s*\(\d+\)`)
	refPagesRe  = regexp.MustCompile(`(?i)(?:\bpp?\.?\s*)?\b(\d+)\s*[-–]{1,2}\s*(\d+)\b`)
	quotedRe    = regexp.MustCompile(`[“"]([^”"]+)[”"]`)
	etAlRe      = regexp.MustCompile(`(?i),?\s*et\s+al\.?`)
	authorSepRe = regexp.MustCompile(`\s*(?:;|\band\b|&)\s*`)
)

// Parser is a rule-based reference parser. It recognizes the common
// "Authors (Year). Title. Venue" and "Authors. Title. Venue, Year" layouts
// and falls back to keeping only the raw string.
type Parser struct{}

func (Parser) Parse(ctx context.Context, raw string) (*Entry, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return nil, ErrEmptyReference
	}
	e := &Entry{Raw: s}

	if m := labelRe.FindStringSubmatch(s); m != nil {
		e.Label = m[1] + m[2]
		s = s[len(m[0]):]
	}
	if m := doiRe.FindStringSubmatchIndex(s); m != nil {
		e.DOI = strings.TrimRight(s[m[2]:m[3]], ".,;)")
		s = strings.TrimSpace(s[:m[0]] + s[m[1]:])
	}

	var authors string
	switch {
	case parenYearRe.MatchString(s):
		loc := parenYearRe.FindStringSubmatchIndex(s)
		e.Year, _ = strconv.Atoi(s[loc[2]:loc[3]])
		authors = s[:loc[0]]
		e.Title, e.Venue = splitTitle(strings.TrimLeft(s[loc[1]:], " .,:"))
	case quotedRe.MatchString(s):
		loc := quotedRe.FindStringSubmatchIndex(s)
		authors = s[:loc[0]]
		e.Title = s[loc[2]:loc[3]]
		e.Venue = s[loc[1]:]
	default:
		segs := sentences(s)
		authors = segs[0]
		if len(segs) > 1 {
			e.Title = segs[1]
		}
		if len(segs) > 2 {
			e.Venue = strings.Join(segs[2:], ". ")
		}
	}

	e.Authors = splitAuthors(authors)
	e.Title = strings.Trim(e.Title, " .,")
	e.Venue = strings.Trim(e.Venue, " .,")

	if e.Year == 0 {
		if m := yearRe.FindStringSubmatch(e.Venue); m != nil {
			e.Year, _ = strconv.Atoi(m[1])
		} else if m := yearRe.FindStringSubmatch(s); m != nil {
			e.Year, _ = strconv.Atoi(m[1])
		}
	}
	if m := volumeRe.FindStringSubmatch(e.Venue); m != nil {
		e.Volume = m[1] + m[2]
	}
	if m := refPagesRe.FindStringSubmatch(e.Venue); m != nil {
		e.Pages = m[1] + "-" + m[2]
	}
	return e, nil
}

func splitTitle(s string) (string, string) {
	segs := sentences(s)
	return segs[0], strings.Join(segs[1:], ". ")
}

// sentences splits on ". " boundaries that do not follow an initial, so
// "J. Smith. A title. Venue" yields three parts.
func sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '.' || s[i+1] != ' ' {
			continue
		}
		fields := strings.Fields(s[start:i])
		if len(fields) == 0 || isInitials(fields[len(fields)-1]) {
			continue
		}
		out = append(out, strings.TrimSpace(s[start:i]))
		start = i + 2
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(out) == 0 {
		out = append(out, strings.Trim(rest, " ."))
	}
	return out
}

// isInitials reports whether word looks like "J", "J.K", "J. K" or "J.-P".
func isInitials(word string) bool {
	word = strings.Trim(word, ".,")
	if word == "" {
		return false
	}
	for _, part := range strings.FieldsFunc(word, func(r rune) bool { return r == '.' || r == '-' || r == ' ' }) {
		r := []rune(part)
		if len(r) != 1 || !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

// splitAuthors handles both "A. Smith, B. Jones and C. Lee" and
// "Smith, A., Jones, B." by gluing initials-only fragments onto the name
// before them.
func splitAuthors(s string) []string {
	s = etAlRe.ReplaceAllString(s, "")
	s = strings.Trim(s, " .,:")
	if s == "" {
		return nil
	}
	var out []string
	for _, group := range authorSepRe.Split(s, -1) {
		var names []string
		for _, frag := range strings.Split(group, ",") {
			frag = strings.TrimSpace(frag)
			if frag == "" {
				continue
			}
			if isInitials(frag) && len(names) > 0 && !strings.Contains(names[len(names)-1], ",") {
				names[len(names)-1] += ", " + frag
				continue
			}
			names = append(names, frag)
		}
		out = append(out, names...)
	}
	return out
}

func surname(name string) string {
	if i := strings.Index(name, ","); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	f := strings.Fields(name)
	if len(f) == 0 {
		return ""
	}
	return strings.Trim(f[len(f)-1], ".,")
}
