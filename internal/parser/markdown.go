package parser

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings become bold blocks sized by level; the first level-1 heading is
// set as the document title.
type MarkdownParser struct{}

func (p *MarkdownParser) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []block
	haveTitle := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			t := extractText(node, src)
			if t == "" {
				continue
			}
			if node.Level == 1 && !haveTitle {
				blocks = append(blocks, title(t))
				haveTitle = true
				continue
			}
			blocks = append(blocks, heading(t, node.Level))
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if t := extractText(item, src); t != "" {
					blocks = append(blocks, paragraph(t))
				}
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			if t := extractText(n, src); t != "" {
				blocks = append(blocks, paragraph(t))
			}
		}
	}
	return typeset(ctx, blocks)
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.ChildCount() == 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			if buf.Len() > 0 && c.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
