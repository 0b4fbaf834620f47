package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/papertree/internal/structure"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The <title> element is set as the title
// block, h1-h6 as headings and block-level text elements as paragraphs.
type HTMLParser struct{}

func (p *HTMLParser) Extract(ctx context.Context, r io.Reader) (*structure.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []block
	if t := findTitle(doc); t != "" {
		blocks = append(blocks, title(t))
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textContent(n); t != "" {
					blocks = append(blocks, heading(t, level))
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "p", "li", "td", "blockquote", "figcaption", "dd", "dt", "pre":
				if t := textContent(n); t != "" {
					blocks = append(blocks, paragraph(t))
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return typeset(ctx, blocks)
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
