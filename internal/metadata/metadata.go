// Package metadata holds the bibliographic record of a document and the
// collaborators that derive it from labeled zones.
package metadata

// Metadata is the flat record produced by metadata cleaning.
type Metadata struct {
	Title        string         `json:"title"`
	Authors      []Author       `json:"authors"`
	Affiliations []*Affiliation `json:"affiliations"`
	Abstract     string         `json:"abstract,omitempty"`
	Keywords     []string       `json:"keywords,omitempty"`
	Emails       []string       `json:"emails,omitempty"`
	DOI          string         `json:"doi,omitempty"`
	Journal      string         `json:"journal,omitempty"`
	Volume       string         `json:"volume,omitempty"`
	Issue        string         `json:"issue,omitempty"`
	Pages        string         `json:"pages,omitempty"`
	Year         int            `json:"year,omitempty"`
	Dates        []string       `json:"dates,omitempty"`
}

// Author is a single author name with the affiliation markers that
// followed it, such as "1" or "a".
type Author struct {
	Name    string   `json:"name"`
	Markers []string `json:"markers,omitempty"`
}

// Affiliation starts as raw text and is filled in by an AffiliationParser.
type Affiliation struct {
	Raw    string `json:"raw"`
	Marker string `json:"marker,omitempty"`

	Institution string `json:"institution,omitempty"`
	Department  string `json:"department,omitempty"`
	Address     string `json:"address,omitempty"`
	Country     string `json:"country,omitempty"`
	Parsed      bool   `json:"parsed"`
}
