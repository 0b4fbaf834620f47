// Package extraction sequences the document analysis steps.
//
// Each step is a plain function that takes the model produced by its
// prerequisites, resolves its component from a *Components registry and
// returns the enriched model. Before doing anything a step checks the
// context deadline and fails with a timeout Error without calling the
// component. Component failures come back as analysis Errors. Nothing is
// retried and the functions keep no state between calls.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/citations"
	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/metadata"
	"github.com/dgallion1/papertree/internal/structure"
)

// checkDeadline fails when ctx is done or its deadline has already passed.
// The explicit deadline comparison catches an expired deadline before the
// context's timer has fired.
func checkDeadline(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return &Error{Step: step, Kind: KindTimeout, Err: err}
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return &Error{Step: step, Kind: KindTimeout, Err: context.DeadlineExceeded}
	}
	return nil
}

// invoke runs one component call with the deadline check, timing and error
// wrapping every step shares.
func invoke[C, T any](ctx context.Context, c *Components, step Step, comp C, call func(C) (T, error)) (T, error) {
	var zero T
	if err := checkDeadline(ctx, step); err != nil {
		return zero, err
	}
	if any(comp) == nil {
		return zero, &Error{Step: step, Kind: KindAnalysis, Err: ErrMissingComponent}
	}

	start := time.Now()
	out, err := call(comp)
	c.observe(step, time.Since(start), err)
	if err != nil {
		return zero, wrap(step, err)
	}
	return out, nil
}

func wrap(step Step, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindAnalysis
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &Error{Step: step, Kind: kind, Err: err}
}

func notNil[T any](v *T, what string) error {
	if v == nil {
		return fmt.Errorf("component returned no %s", what)
	}
	return nil
}

// ExtractCharacters reads the raw document into a model holding one flat
// chunk list per page.
func ExtractCharacters(ctx context.Context, c *Components, r io.Reader) (*structure.Document, error) {
	return invoke(ctx, c, CharacterExtraction, c.CharacterExtractor, func(x CharacterExtractor) (*structure.Document, error) {
		doc, err := x.Extract(ctx, r)
		if err == nil {
			err = notNil(doc, "document")
		}
		return doc, err
	})
}

// SegmentPages groups chunks into words, lines and zones.
func SegmentPages(ctx context.Context, c *Components, doc *structure.Document) (*structure.Document, error) {
	return invoke(ctx, c, PageSegmentation, c.Segmenter, func(x DocumentSegmenter) (*structure.Document, error) {
		return documentOrErr(x.Segment(ctx, doc))
	})
}

// ResolveReadingOrder reorders zones, lines and words for reading.
func ResolveReadingOrder(ctx context.Context, c *Components, doc *structure.Document) (*structure.Document, error) {
	return invoke(ctx, c, ReadingOrder, c.ReadingOrder, func(x ReadingOrderResolver) (*structure.Document, error) {
		return documentOrErr(x.Resolve(ctx, doc))
	})
}

// ClassifyInitially assigns coarse labels to every zone.
func ClassifyInitially(ctx context.Context, c *Components, doc *structure.Document) (*structure.Document, error) {
	return invoke(ctx, c, InitialClassification, c.InitialClassifier, func(x ZoneClassifier) (*structure.Document, error) {
		return documentOrErr(x.Classify(ctx, doc))
	})
}

// ClassifyMetadata refines metadata zone labels.
func ClassifyMetadata(ctx context.Context, c *Components, doc *structure.Document) (*structure.Document, error) {
	return invoke(ctx, c, MetadataClassification, c.MetadataClassifier, func(x ZoneClassifier) (*structure.Document, error) {
		return documentOrErr(x.Classify(ctx, doc))
	})
}

// CleanMetadata builds the metadata record from labeled zones.
func CleanMetadata(ctx context.Context, c *Components, doc *structure.Document) (*metadata.Metadata, error) {
	return invoke(ctx, c, MetadataCleaning, c.MetadataExtractor, func(x MetadataExtractor) (*metadata.Metadata, error) {
		m, err := x.Extract(ctx, doc)
		if err == nil {
			err = notNil(m, "metadata")
		}
		return m, err
	})
}

// ParseAffiliations parses every affiliation of m in place and returns m.
func ParseAffiliations(ctx context.Context, c *Components, m *metadata.Metadata) (*metadata.Metadata, error) {
	return invoke(ctx, c, AffiliationParsing, c.AffiliationParser, func(x AffiliationParser) (*metadata.Metadata, error) {
		if m == nil {
			return nil, errors.New("no metadata to parse affiliations of")
		}
		for i, a := range m.Affiliations {
			if err := x.Parse(ctx, a); err != nil {
				return nil, fmt.Errorf("affiliation %d: %w", i, err)
			}
		}
		return m, nil
	})
}

// ExtractReferenceStrings returns the raw bibliography strings.
func ExtractReferenceStrings(ctx context.Context, c *Components, doc *structure.Document) ([]string, error) {
	return invoke(ctx, c, ReferenceExtraction, c.ReferenceExtractor, func(x ReferenceExtractor) ([]string, error) {
		return x.Extract(ctx, doc)
	})
}

// ParseReferences parses every raw reference. The result has one entry per
// input string, in the same order.
func ParseReferences(ctx context.Context, c *Components, refs []string) ([]*bibref.Entry, error) {
	return invoke(ctx, c, ReferenceParsing, c.ReferenceParser, func(x ReferenceParser) ([]*bibref.Entry, error) {
		out := make([]*bibref.Entry, len(refs))
		for i, raw := range refs {
			e, err := x.Parse(ctx, raw)
			if err == nil {
				err = notNil(e, "entry")
			}
			if err != nil {
				return nil, fmt.Errorf("reference %d: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	})
}

// FilterContent drops zones that are not body content.
func FilterContent(ctx context.Context, c *Components, doc *structure.Document) (*structure.Document, error) {
	return invoke(ctx, c, ContentFiltering, c.ContentFilter, func(x ContentFilter) (*structure.Document, error) {
		return documentOrErr(x.Filter(ctx, doc))
	})
}

// ExtractHeaders builds the raw content structure.
func ExtractHeaders(ctx context.Context, c *Components, doc *structure.Document) (*content.Raw, error) {
	return invoke(ctx, c, HeaderDetection, c.HeaderExtractor, func(x HeaderExtractor) (*content.Raw, error) {
		raw, err := x.Extract(ctx, doc)
		if err == nil {
			err = notNil(raw, "content")
		}
		return raw, err
	})
}

// ClusterHeaders assigns levels to the detected headers.
func ClusterHeaders(ctx context.Context, c *Components, raw *content.Raw) (*content.Raw, error) {
	return invoke(ctx, c, TOCExtraction, c.HeaderClusterizer, func(x HeaderClusterizer) (*content.Raw, error) {
		out, err := x.Cluster(ctx, raw)
		if err == nil {
			err = notNil(out, "content")
		}
		return out, err
	})
}

// CleanStructure cleans the raw content and converts it to the final tree.
// A content.TransformationError surfaces as an analysis failure.
func CleanStructure(ctx context.Context, c *Components, raw *content.Raw) (*content.Structure, error) {
	return invoke(ctx, c, ContentCleaning, c.ContentCleaner, func(x ContentCleaner) (*content.Structure, error) {
		s, err := x.Clean(ctx, raw)
		if err == nil {
			err = notNil(s, "structure")
		}
		return s, err
	})
}

// FindCitationPositions maps citation markers in s to entries.
func FindCitationPositions(ctx context.Context, c *Components, s *content.Structure, entries []*bibref.Entry) (*citations.Positions, error) {
	return invoke(ctx, c, CitationPositions, c.CitationFinder, func(x CitationPositionFinder) (*citations.Positions, error) {
		p, err := x.Find(ctx, s, entries)
		if err == nil {
			err = notNil(p, "citation map")
		}
		return p, err
	})
}

func documentOrErr(doc *structure.Document, err error) (*structure.Document, error) {
	if err == nil {
		err = notNil(doc, "document")
	}
	return doc, err
}
