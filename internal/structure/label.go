package structure

import "strings"

// Label classifies a zone. The set is open: collaborators may introduce
// their own labels as long as they follow the prefix convention used by
// Category.
type Label string

// Category is the general class a label belongs to.
type Category string

const (
	CategoryUnknown    Category = "unknown"
	CategoryMetadata   Category = "metadata"
	CategoryBody       Category = "body"
	CategoryReferences Category = "references"
	CategoryOther      Category = "other"
)

const (
	LabelNone Label = ""

	// Labels assigned by initial classification.
	LabelGenMetadata   Label = "gen_metadata"
	LabelGenBody       Label = "gen_body"
	LabelGenReferences Label = "gen_references"
	LabelGenOther      Label = "gen_other"

	// Labels assigned by metadata classification.
	LabelTitle           Label = "met_title"
	LabelAuthor          Label = "met_author"
	LabelAffiliation     Label = "met_affiliation"
	LabelAbstract        Label = "met_abstract"
	LabelKeywords        Label = "met_keywords"
	LabelBibInfo         Label = "met_bib_info"
	LabelCorrespondence  Label = "met_correspondence"
	LabelDates           Label = "met_dates"
	LabelMetadataUnknown Label = "met_unknown"

	// Labels available to body-level classifiers.
	LabelBodyContent Label = "body_content"
	LabelBodyHeading Label = "body_heading"
)

// Category derives the general category from the label prefix.
func (l Label) Category() Category {
	s := string(l)
	switch {
	case s == "":
		return CategoryUnknown
	case s == string(LabelGenMetadata), strings.HasPrefix(s, "met_"):
		return CategoryMetadata
	case s == string(LabelGenBody), strings.HasPrefix(s, "body_"):
		return CategoryBody
	case s == string(LabelGenReferences), strings.HasPrefix(s, "ref_"):
		return CategoryReferences
	case s == string(LabelGenOther), strings.HasPrefix(s, "other_"):
		return CategoryOther
	}
	return CategoryUnknown
}

// IsSet reports whether a classifier has assigned the label.
func (l Label) IsSet() bool { return l != LabelNone }
