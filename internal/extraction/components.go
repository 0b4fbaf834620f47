package extraction

import (
	"context"
	"io"
	"time"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/citations"
	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/metadata"
	"github.com/dgallion1/papertree/internal/structure"
)

// CharacterExtractor reads glyphs from a raw document.
type CharacterExtractor interface {
	Extract(ctx context.Context, r io.Reader) (*structure.Document, error)
}

// DocumentSegmenter groups page chunks into words, lines and zones.
type DocumentSegmenter interface {
	Segment(ctx context.Context, doc *structure.Document) (*structure.Document, error)
}

// ReadingOrderResolver reorders zones and lines for reading.
type ReadingOrderResolver interface {
	Resolve(ctx context.Context, doc *structure.Document) (*structure.Document, error)
}

// ZoneClassifier assigns zone labels. It serves both the initial and the
// metadata classification steps.
type ZoneClassifier interface {
	Classify(ctx context.Context, doc *structure.Document) (*structure.Document, error)
}

// MetadataExtractor derives the metadata record from labeled zones.
type MetadataExtractor interface {
	Extract(ctx context.Context, doc *structure.Document) (*metadata.Metadata, error)
}

// AffiliationParser fills in one affiliation's fields in place.
type AffiliationParser interface {
	Parse(ctx context.Context, a *metadata.Affiliation) error
}

// ReferenceExtractor returns the raw reference strings in document order.
type ReferenceExtractor interface {
	Extract(ctx context.Context, doc *structure.Document) ([]string, error)
}

// ReferenceParser parses one raw reference string.
type ReferenceParser interface {
	Parse(ctx context.Context, raw string) (*bibref.Entry, error)
}

// ContentFilter drops zones that are not body content.
type ContentFilter interface {
	Filter(ctx context.Context, doc *structure.Document) (*structure.Document, error)
}

// HeaderExtractor splits body zones into headers and paragraphs.
type HeaderExtractor interface {
	Extract(ctx context.Context, doc *structure.Document) (*content.Raw, error)
}

// HeaderClusterizer assigns a level to every header.
type HeaderClusterizer interface {
	Cluster(ctx context.Context, raw *content.Raw) (*content.Raw, error)
}

// ContentCleaner cleans text and builds the final section tree.
type ContentCleaner interface {
	Clean(ctx context.Context, raw *content.Raw) (*content.Structure, error)
}

// CitationPositionFinder maps citation markers to bibliography entries.
type CitationPositionFinder interface {
	Find(ctx context.Context, s *content.Structure, entries []*bibref.Entry) (*citations.Positions, error)
}

// StepObserver receives the elapsed time of every step invocation when
// Components.Debug is set. err is the component's error, if any.
type StepObserver interface {
	ObserveStep(step Step, elapsed time.Duration, err error)
}

// StepObserverFunc adapts a function to StepObserver.
type StepObserverFunc func(step Step, elapsed time.Duration, err error)

func (f StepObserverFunc) ObserveStep(step Step, elapsed time.Duration, err error) {
	f(step, elapsed, err)
}

// Observers fans one observation out to several observers. Nil entries are
// skipped.
func Observers(obs ...StepObserver) StepObserver {
	return StepObserverFunc(func(step Step, elapsed time.Duration, err error) {
		for _, o := range obs {
			if o != nil {
				o.ObserveStep(step, elapsed, err)
			}
		}
	})
}

// Components is the registry of collaborators, one per step. It is built
// once and must not be modified while runs are using it; every component
// must be safe for concurrent use.
type Components struct {
	CharacterExtractor CharacterExtractor
	Segmenter          DocumentSegmenter
	ReadingOrder       ReadingOrderResolver
	InitialClassifier  ZoneClassifier
	MetadataClassifier ZoneClassifier
	MetadataExtractor  MetadataExtractor
	AffiliationParser  AffiliationParser
	ReferenceExtractor ReferenceExtractor
	ReferenceParser    ReferenceParser
	ContentFilter      ContentFilter
	HeaderExtractor    HeaderExtractor
	HeaderClusterizer  HeaderClusterizer
	ContentCleaner     ContentCleaner
	CitationFinder     CitationPositionFinder

	// Debug enables per-step timing through Observer.
	Debug    bool
	Observer StepObserver
}

// WithObserver returns a shallow copy of c that reports to obs in addition
// to c's own observer, with Debug switched on.
func (c *Components) WithObserver(obs StepObserver) *Components {
	cp := *c
	cp.Debug = true
	if c.Debug && c.Observer != nil {
		cp.Observer = Observers(c.Observer, obs)
	} else {
		cp.Observer = obs
	}
	return &cp
}

func (c *Components) observe(step Step, elapsed time.Duration, err error) {
	if c.Debug && c.Observer != nil {
		c.Observer.ObserveStep(step, elapsed, err)
	}
}
