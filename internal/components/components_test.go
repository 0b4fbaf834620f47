package components

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/config"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/parser"
)

const paper = `# Layout Analysis of Scientific Papers

Jane Smith and John Doe

Department of Computing, University of Leeds, UK

Abstract. We study how zones on a page can be grouped and labeled.

## Introduction

Earlier work [1] classified zones with hand written rules.

## References

[1] J. Smith. Zone classification with rules. Journal of Documents, 2001.
`

func TestDefault_EndToEnd(t *testing.T) {
	comps, err := ForFile(Default(config.ExtractionConfig{}, nil), "paper.md")
	require.NoError(t, err)

	res, err := extraction.Run(context.Background(), comps, strings.NewReader(paper))
	require.NoError(t, err)
	assert.Equal(t, extraction.AllSteps(), res.Done)

	require.NotNil(t, res.Metadata)
	assert.Equal(t, "Layout Analysis of Scientific Papers", res.Metadata.Title)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "1", res.Entries[0].Label)
	assert.Equal(t, 2001, res.Entries[0].Year)

	require.NotNil(t, res.Content)
	require.NotNil(t, res.Citations)
}

func TestDefault_Wiring(t *testing.T) {
	c := Default(config.ExtractionConfig{SkipBrokenPages: true, SpanRatio: 0.7}, nil)

	auto, ok := c.CharacterExtractor.(*parser.Auto)
	require.True(t, ok)
	assert.True(t, auto.PDF.SkipBrokenPages)
	assert.IsType(t, bibref.Parser{}, c.ReferenceParser)
	assert.False(t, c.Debug)

	custom := bibref.Parser{}
	c = Default(config.ExtractionConfig{}, &custom)
	assert.Same(t, &custom, c.ReferenceParser)
}

func TestForFile(t *testing.T) {
	base := Default(config.ExtractionConfig{SkipBrokenPages: true}, nil)

	same, err := ForFile(base, "")
	require.NoError(t, err)
	assert.Same(t, base, same)

	c, err := ForFile(base, "paper.PDF")
	require.NoError(t, err)
	pdf, ok := c.CharacterExtractor.(*parser.PDFParser)
	require.True(t, ok)
	assert.True(t, pdf.SkipBrokenPages)
	assert.IsType(t, &parser.Auto{}, base.CharacterExtractor, "base must not change")

	_, err = ForFile(base, "data.xlsx")
	assert.Error(t, err)
}
