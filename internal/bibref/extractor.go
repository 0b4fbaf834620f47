package bibref

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/papertree/internal/structure"
)

var (
	bracketStartRe = regexp.MustCompile(`^\[[^\]]{1,12}\]`)
	numberStartRe  = regexp.MustCompile(`^\d{1,3}\.\s`)
	sectionTitleRe = regexp.MustCompile(`(?i)^(references|bibliography|literature cited|works cited|references and notes)$`)
)

type refLine struct {
	text string
	left float64
	zone int
}

// Extractor splits the references region into one string per reference.
//
// Entries start at "[n]" or "n." markers when the list is labeled. An
// unlabeled list is split on hanging indentation, or one entry per zone when
// every line starts at the same offset.
type Extractor struct {
	// IndentTolerance is the horizontal slack, in points, for a line to count
	// as starting at the left margin. Zero means 2.
	IndentTolerance float64
}

func (e Extractor) Extract(ctx context.Context, doc *structure.Document) ([]string, error) {
	var lines []refLine
	for zi, z := range doc.Zones() {
		if z.Label().Category() != structure.CategoryReferences {
			continue
		}
		for _, l := range z.Lines() {
			text := strings.TrimSpace(l.Text())
			if text == "" || sectionTitleRe.MatchString(text) {
				continue
			}
			lines = append(lines, refLine{text: text, left: l.Bounds().Left(), zone: zi})
		}
	}
	if len(lines) == 0 {
		return []string{}, nil
	}
	return join(lines, e.starts(lines)), nil
}

func (e Extractor) starts(lines []refLine) []bool {
	starts := make([]bool, len(lines))
	mark := func(re *regexp.Regexp) bool {
		n := 0
		for i, l := range lines {
			if re.MatchString(l.text) {
				starts[i] = true
				n++
			}
		}
		return n >= 2 || (n == 1 && len(lines) == 1)
	}
	if mark(bracketStartRe) {
		starts[0] = true
		return starts
	}
	clear(starts)
	if mark(numberStartRe) {
		starts[0] = true
		return starts
	}
	clear(starts)

	tol := e.IndentTolerance
	if tol == 0 {
		tol = 2
	}
	minLeft, maxLeft := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		minLeft = math.Min(minLeft, l.left)
		maxLeft = math.Max(maxLeft, l.left)
	}
	for i, l := range lines {
		if maxLeft-minLeft > tol {
			starts[i] = l.left-minLeft <= tol
		} else {
			starts[i] = i == 0 || l.zone != lines[i-1].zone
		}
	}
	starts[0] = true
	return starts
}

func join(lines []refLine, starts []bool) []string {
	var out []string
	var cur strings.Builder
	for i, l := range lines {
		if starts[i] && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		appendLine(&cur, l.text)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// appendLine joins a wrapped line, undoing end-of-line hyphenation when the
// next line continues in lowercase.
func appendLine(sb *strings.Builder, text string) {
	if sb.Len() == 0 {
		sb.WriteString(text)
		return
	}
	prev := sb.String()
	first, _ := firstRune(text)
	if strings.HasSuffix(prev, "-") && unicode.IsLower(first) {
		sb.Reset()
		sb.WriteString(strings.TrimSuffix(prev, "-"))
		sb.WriteString(text)
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(text)
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
