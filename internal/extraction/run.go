package extraction

import (
	"context"
	"errors"
	"io"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/citations"
	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/metadata"
	"github.com/dgallion1/papertree/internal/structure"
)

// Result carries every model produced so far and the set of completed
// steps. After a failure it still holds the output of the steps that
// completed, and Advance can pick up from there.
type Result struct {
	Document   *structure.Document
	Metadata   *metadata.Metadata
	References []string
	Entries    []*bibref.Entry
	RawContent *content.Raw
	Content    *content.Structure
	Citations  *citations.Positions

	Done StepSet

	input io.Reader
}

// NewResult starts an empty result reading from input.
func NewResult(input io.Reader) *Result {
	return &Result{input: input}
}

// Run executes every step needed for targets, or the whole pipeline when no
// target is given.
func Run(ctx context.Context, c *Components, input io.Reader, targets ...Step) (*Result, error) {
	res := NewResult(input)
	return res, res.Advance(ctx, c, targets...)
}

// Resume continues prev towards targets, skipping completed steps. prev is
// updated in place and returned.
func Resume(ctx context.Context, c *Components, prev *Result, targets ...Step) (*Result, error) {
	if prev == nil {
		return nil, errors.New("resume: nil result")
	}
	return prev, prev.Advance(ctx, c, targets...)
}

// Advance runs Plan(r.Done, targets...) in order and stops at the first
// failure.
//
// Content filtering drops zones from Document in place. The canonical order
// runs the metadata and reference branches first; a caller that targets the
// content branch alone and resumes the others later gets them computed from
// body zones only.
func (r *Result) Advance(ctx context.Context, c *Components, targets ...Step) error {
	for _, s := range Plan(r.Done, targets...) {
		if err := r.Run(ctx, c, s); err != nil {
			return err
		}
	}
	return nil
}

// Run executes a single step against the models in r. The step must be
// eligible. On success its output is stored and the step is marked done.
func (r *Result) Run(ctx context.Context, c *Components, s Step) error {
	if !s.Valid() {
		return &Error{Step: s, Kind: KindAnalysis, Err: ErrNotEligible}
	}
	if !s.Eligible(r.Done) {
		return &Error{Step: s, Kind: KindAnalysis, Err: &OrderError{Step: s, Missing: s.Prerequisites() &^ r.Done}}
	}

	var err error
	switch s {
	case CharacterExtraction:
		if r.input == nil {
			return &Error{Step: s, Kind: KindAnalysis, Err: errors.New("no input")}
		}
		err = store(&r.Document)(ExtractCharacters(ctx, c, r.input))
	case PageSegmentation:
		err = store(&r.Document)(SegmentPages(ctx, c, r.Document))
	case ReadingOrder:
		err = store(&r.Document)(ResolveReadingOrder(ctx, c, r.Document))
	case InitialClassification:
		err = store(&r.Document)(ClassifyInitially(ctx, c, r.Document))
	case MetadataClassification:
		err = store(&r.Document)(ClassifyMetadata(ctx, c, r.Document))
	case MetadataCleaning:
		err = store(&r.Metadata)(CleanMetadata(ctx, c, r.Document))
	case AffiliationParsing:
		err = store(&r.Metadata)(ParseAffiliations(ctx, c, r.Metadata))
	case ReferenceExtraction:
		err = store(&r.References)(ExtractReferenceStrings(ctx, c, r.Document))
	case ReferenceParsing:
		err = store(&r.Entries)(ParseReferences(ctx, c, r.References))
	case ContentFiltering:
		err = store(&r.Document)(FilterContent(ctx, c, r.Document))
	case HeaderDetection:
		err = store(&r.RawContent)(ExtractHeaders(ctx, c, r.Document))
	case TOCExtraction:
		err = store(&r.RawContent)(ClusterHeaders(ctx, c, r.RawContent))
	case ContentCleaning:
		err = store(&r.Content)(CleanStructure(ctx, c, r.RawContent))
	case CitationPositions:
		err = store(&r.Citations)(FindCitationPositions(ctx, c, r.Content, r.Entries))
	}
	if err != nil {
		return err
	}
	r.Done = r.Done.Add(s)
	return nil
}

// store commits a step's output only when the step succeeded, so a failed
// step leaves the previous models in place.
func store[T any](dst *T) func(T, error) error {
	return func(v T, err error) error {
		if err == nil {
			*dst = v
		}
		return err
	}
}
