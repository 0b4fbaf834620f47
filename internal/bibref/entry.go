// Package bibref extracts raw reference strings from the references region
// of a document and parses them into bibliography entries.
package bibref

// Entry is one parsed bibliography item.
type Entry struct {
	Raw     string   `json:"raw"`
	Label   string   `json:"label,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Title   string   `json:"title,omitempty"`
	Venue   string   `json:"venue,omitempty"`
	Year    int      `json:"year,omitempty"`
	Volume  string   `json:"volume,omitempty"`
	Pages   string   `json:"pages,omitempty"`
	DOI     string   `json:"doi,omitempty"`
}

// FirstAuthorSurname returns the last word of the first author's name, or
// the first word when the name is written "Surname, I.".
func (e *Entry) FirstAuthorSurname() string {
	if len(e.Authors) == 0 {
		return ""
	}
	return surname(e.Authors[0])
}
