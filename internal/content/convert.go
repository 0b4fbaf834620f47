package content

import "fmt"

// TransformationError reports a raw structure that cannot be turned into a
// section tree.
type TransformationError struct {
	Part   int
	Reason string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("content: part %d: %s", e.Part, e.Reason)
}

// Convert builds the section tree from a raw structure whose headers have
// levels assigned. A section nests under the closest preceding section with
// a smaller level. The raw structure is not modified.
func Convert(raw *Raw) (*Structure, error) {
	if raw == nil {
		return nil, &TransformationError{Part: -1, Reason: "nil structure"}
	}
	out := &Structure{Sections: []*Section{}}
	var stack []*Section

	for i, part := range raw.Parts {
		paras := make([]*Paragraph, 0, len(part.Paragraphs))
		for _, t := range part.Paragraphs {
			paras = append(paras, &Paragraph{Text: t})
		}

		if part.Header == nil {
			if i != 0 {
				return nil, &TransformationError{Part: i, Reason: "headerless part after the first"}
			}
			out.Preamble = paras
			continue
		}
		if part.Header.Level < 1 {
			return nil, &TransformationError{Part: i, Reason: fmt.Sprintf("header %q has no level", part.Header.Text)}
		}

		sec := &Section{Title: part.Header.Text, Level: part.Header.Level, Paragraphs: paras}
		for len(stack) > 0 && stack[len(stack)-1].Level >= sec.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			out.Sections = append(out.Sections, sec)
		} else {
			parent := stack[len(stack)-1]
			parent.Subsections = append(parent.Subsections, sec)
		}
		stack = append(stack, sec)
	}
	return out, nil
}
