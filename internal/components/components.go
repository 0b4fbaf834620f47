// Package components assembles the default extraction collaborators from
// configuration.
package components

import (
	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/citations"
	"github.com/dgallion1/papertree/internal/config"
	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/metadata"
	"github.com/dgallion1/papertree/internal/parser"
	"github.com/dgallion1/papertree/internal/segment"
	"github.com/dgallion1/papertree/internal/zoneclass"
)

// Default returns the rule-based pipeline tuned by cfg. refs replaces the
// rule-based reference parser when non-nil.
func Default(cfg config.ExtractionConfig, refs extraction.ReferenceParser) *extraction.Components {
	if refs == nil {
		refs = bibref.Parser{}
	}

	maxDistance := cfg.HeaderMaxDistance
	if maxDistance <= 0 {
		maxDistance = 1.5
	}
	headers := content.NewHeaderClusterer(maxDistance, cfg.MaxHeaderLevels)

	return &extraction.Components{
		CharacterExtractor: &parser.Auto{PDF: parser.PDFParser{SkipBrokenPages: cfg.SkipBrokenPages}},
		Segmenter: segment.Segmenter{
			WordGap:       cfg.WordGap,
			ColumnGap:     cfg.ColumnGap,
			LineSpacing:   cfg.LineSpacing,
			FontTolerance: cfg.FontTolerance,
		},
		ReadingOrder:       segment.ReadingOrder{SpanRatio: cfg.SpanRatio},
		InitialClassifier:  zoneclass.Initial{Margin: cfg.MarginRatio},
		MetadataClassifier: zoneclass.Metadata{},
		MetadataExtractor:  metadata.Extractor{},
		AffiliationParser:  metadata.AffiliationParser{},
		ReferenceExtractor: bibref.Extractor{IndentTolerance: cfg.IndentTolerance},
		ReferenceParser:    refs,
		ContentFilter:      content.Filter{},
		HeaderExtractor: content.HeaderDetector{
			MaxWords:  cfg.HeaderMaxWords,
			SizeRatio: cfg.HeaderSizeRatio,
		},
		HeaderClusterizer: headers,
		ContentCleaner:    content.Cleaner{},
		CitationFinder:    citations.Finder{},
	}
}

// ForFile returns a shallow copy of c whose character extractor is chosen
// by the extension of filename. An empty filename keeps c unchanged.
func ForFile(c *extraction.Components, filename string) (*extraction.Components, error) {
	if filename == "" {
		return c, nil
	}

	var p parser.Parser
	var err error
	if auto, ok := c.CharacterExtractor.(*parser.Auto); ok {
		p, err = auto.ForFile(filename)
	} else {
		p, err = parser.ForFile(filename)
	}
	if err != nil {
		return nil, err
	}

	cp := *c
	cp.CharacterExtractor = p
	return &cp, nil
}
