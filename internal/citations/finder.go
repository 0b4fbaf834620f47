package citations

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/content"
)

var (
	numericRe   = regexp.MustCompile(`\[(\d{1,3}(?:\s*[-–,]\s*\d{1,3})*)\]`)
	parenRe     = regexp.MustCompile(`\(([^()]*\b(?:19|20)\d{2}[a-z]?)\)`)
	authorYrRe  = regexp.MustCompile(`([A-Z][\p{L}'’-]+)(?:\s+(?:et\s+al\.?|and|&)\s*(?:[A-Z][\p{L}'’-]+)?)?,?\s+((?:19|20)\d{2})[a-z]?`)
	rangeSplit  = regexp.MustCompile(`\s*,\s*`)
	rangeDashRe = regexp.MustCompile(`^(\d+)\s*[-–]\s*(\d+)$`)
)

// maxRange bounds "[1-999]"-style ranges so a misread marker cannot expand
// into thousands of spans.
const maxRange = 50

// Finder locates numeric ("[3]", "[1-4, 7]") and author-year
// ("(Smith et al., 2019; Lee 2020)") citation markers in paragraph text.
type Finder struct{}

func (Finder) Find(ctx context.Context, s *content.Structure, entries []*bibref.Entry) (*Positions, error) {
	byLabel := make(map[string]int)
	for i, e := range entries {
		if e.Label != "" {
			if _, dup := byLabel[e.Label]; !dup {
				byLabel[e.Label] = i
			}
		}
	}

	var spans []Span
	for pi, para := range s.Paragraphs() {
		for _, m := range numericRe.FindAllStringSubmatchIndex(para.Text, -1) {
			refs := resolveNumeric(para.Text[m[2]:m[3]], byLabel, len(entries))
			if len(refs) == 0 {
				continue
			}
			spans = append(spans, Span{Paragraph: pi, Start: m[0], End: m[1], Marker: para.Text[m[0]:m[1]], Entries: refs})
		}
		for _, m := range parenRe.FindAllStringSubmatchIndex(para.Text, -1) {
			refs := resolveAuthorYear(para.Text[m[2]:m[3]], entries)
			if len(refs) == 0 {
				continue
			}
			spans = append(spans, Span{Paragraph: pi, Start: m[0], End: m[1], Marker: para.Text[m[0]:m[1]], Entries: refs})
		}
	}
	return NewPositions(spans), nil
}

// resolveNumeric maps each number to the entry with that label, or to the
// entry at that 1-based position when entries are unlabeled.
func resolveNumeric(list string, byLabel map[string]int, n int) []int {
	var nums []int
	for _, part := range rangeSplit.Split(list, -1) {
		if m := rangeDashRe.FindStringSubmatch(part); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			if hi < lo || hi-lo > maxRange {
				continue
			}
			for k := lo; k <= hi; k++ {
				nums = append(nums, k)
			}
			continue
		}
		if k, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			nums = append(nums, k)
		}
	}

	var out []int
	seen := make(map[int]bool)
	for _, k := range nums {
		idx, ok := byLabel[strconv.Itoa(k)]
		if !ok && len(byLabel) == 0 && k >= 1 && k <= n {
			idx, ok = k-1, true
		}
		if ok && !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

func resolveAuthorYear(inner string, entries []*bibref.Entry) []int {
	var out []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(inner, ";") {
		m := authorYrRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		for i, e := range entries {
			if seen[i] || e.Year != year {
				continue
			}
			if strings.EqualFold(e.FirstAuthorSurname(), m[1]) {
				seen[i] = true
				out = append(out, i)
				break
			}
		}
	}
	return out
}
