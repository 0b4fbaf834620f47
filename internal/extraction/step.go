package extraction

import (
	"fmt"
	"math/bits"
	"strings"
)

// Step names one stage of the extraction pipeline.
type Step uint8

const (
	CharacterExtraction Step = iota
	PageSegmentation
	ReadingOrder
	InitialClassification
	MetadataClassification
	MetadataCleaning
	AffiliationParsing
	ReferenceExtraction
	ReferenceParsing
	ContentFiltering
	HeaderDetection
	TOCExtraction
	ContentCleaning
	CitationPositions

	numSteps
)

var stepNames = [numSteps]string{
	CharacterExtraction:    "CHARACTER_EXTRACTION",
	PageSegmentation:       "PAGE_SEGMENTATION",
	ReadingOrder:           "READING_ORDER",
	InitialClassification:  "INITIAL_CLASSIFICATION",
	MetadataClassification: "METADATA_CLASSIFICATION",
	MetadataCleaning:       "METADATA_CLEANING",
	AffiliationParsing:     "AFFILIATION_PARSING",
	ReferenceExtraction:    "REFERENCE_EXTRACTION",
	ReferenceParsing:       "REFERENCE_PARSING",
	ContentFiltering:       "CONTENT_FILTERING",
	HeaderDetection:        "HEADER_DETECTION",
	TOCExtraction:          "TOC_EXTRACTION",
	ContentCleaning:        "CONTENT_CLEANING",
	CitationPositions:      "CITPOS_DETECTION",
}

// prerequisites lists the direct prerequisites of each step. The constant
// order above is a topological order of this graph.
var prerequisites = [numSteps]StepSet{
	CharacterExtraction:    0,
	PageSegmentation:       setOf(CharacterExtraction),
	ReadingOrder:           setOf(PageSegmentation),
	InitialClassification:  setOf(ReadingOrder),
	MetadataClassification: setOf(InitialClassification),
	MetadataCleaning:       setOf(MetadataClassification),
	AffiliationParsing:     setOf(MetadataCleaning),
	ReferenceExtraction:    setOf(InitialClassification),
	ReferenceParsing:       setOf(ReferenceExtraction),
	ContentFiltering:       setOf(InitialClassification),
	HeaderDetection:        setOf(ContentFiltering),
	TOCExtraction:          setOf(HeaderDetection),
	ContentCleaning:        setOf(TOCExtraction),
	CitationPositions:      setOf(ContentCleaning, ReferenceParsing),
}

// Steps returns every step in canonical execution order.
func Steps() []Step {
	out := make([]Step, numSteps)
	for i := range out {
		out[i] = Step(i)
	}
	return out
}

// ParseStep looks a step up by its name, ignoring case.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if strings.EqualFold(n, name) {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

func (s Step) String() string {
	if s < numSteps {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", uint8(s))
}

// Valid reports whether s is one of the defined steps.
func (s Step) Valid() bool { return s < numSteps }

// Prerequisites returns the direct prerequisites of s.
func (s Step) Prerequisites() StepSet {
	if !s.Valid() {
		return 0
	}
	return prerequisites[s]
}

// Eligible reports whether every direct prerequisite of s is in done.
func (s Step) Eligible(done StepSet) bool {
	return s.Valid() && done.ContainsAll(prerequisites[s])
}

// Closure returns every step s transitively depends on, excluding s.
func Closure(s Step) StepSet {
	var out StepSet
	pending := s.Prerequisites()
	for pending != 0 {
		next := pending.Steps()[0]
		pending = pending.Remove(next)
		if !out.Has(next) {
			out = out.Add(next)
			pending |= prerequisites[next] &^ out
		}
	}
	return out
}

// OrderError reports a step scheduled before its prerequisites.
type OrderError struct {
	Step    Step
	Missing StepSet
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("step %s scheduled before %s", e.Step, e.Missing)
}

// ValidateOrder checks an externally composed order against the
// prerequisite table, given the steps already done. Repeating a step is
// rejected too.
func ValidateOrder(done StepSet, order []Step) error {
	for _, s := range order {
		if !s.Valid() {
			return fmt.Errorf("invalid step %d", uint8(s))
		}
		if done.Has(s) {
			return fmt.Errorf("step %s scheduled twice", s)
		}
		if !s.Eligible(done) {
			return &OrderError{Step: s, Missing: prerequisites[s] &^ done}
		}
		done = done.Add(s)
	}
	return nil
}

// Plan returns the steps, in canonical order, that must run after done to
// complete targets. No targets means every step.
func Plan(done StepSet, targets ...Step) []Step {
	var want StepSet
	if len(targets) == 0 {
		want = AllSteps()
	}
	for _, t := range targets {
		if t.Valid() {
			want = want.Add(t) | Closure(t)
		}
	}
	return (want &^ done).Steps()
}

// StepSet is a set of steps.
type StepSet uint16

func setOf(steps ...Step) StepSet {
	var s StepSet
	for _, st := range steps {
		s = s.Add(st)
	}
	return s
}

// NewStepSet returns a set holding the given steps.
func NewStepSet(steps ...Step) StepSet { return setOf(steps...) }

// AllSteps returns the set of every step.
func AllSteps() StepSet { return StepSet(1)<<numSteps - 1 }

func (s StepSet) Add(st Step) StepSet    { return s | 1<<st }
func (s StepSet) Remove(st Step) StepSet { return s &^ (1 << st) }
func (s StepSet) Has(st Step) bool       { return st < numSteps && s&(1<<st) != 0 }

// ContainsAll reports whether every step of other is in s.
func (s StepSet) ContainsAll(other StepSet) bool { return s&other == other }

// Len returns the number of steps in the set.
func (s StepSet) Len() int { return bits.OnesCount16(uint16(s)) }

// Steps lists the members in canonical order.
func (s StepSet) Steps() []Step {
	var out []Step
	for i := Step(0); i < numSteps; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

func (s StepSet) String() string {
	names := make([]string, 0, s.Len())
	for _, st := range s.Steps() {
		names = append(names, st.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}
