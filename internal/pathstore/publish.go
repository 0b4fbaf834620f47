// Package pathstore publishes extraction results to a pathstore server as
// a small graph: one node for the document record, one per section and one
// per bibliography entry, with links from citing sections to the entries
// they cite.
package pathstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/extraction"
)

// Publication is one finished extraction to publish.
type Publication struct {
	DocID       string
	Filename    string
	ContentHash string
	CreatedAt   time.Time
	Result      *extraction.Result
}

// Summary counts what Publish wrote.
type Summary struct {
	Sections   int `json:"sections"`
	References int `json:"references"`
	Links      int `json:"links"`
}

// Publisher writes publications under Prefix.
type Publisher struct {
	Client *Client
	// Prefix is the root key, e.g. "papers". Documents live under
	// Prefix/documents/<doc_id>.
	Prefix string
}

func NewPublisher(c *Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "papers"
	}
	return &Publisher{Client: c, Prefix: strings.Trim(prefix, "/")}
}

func (p *Publisher) docKey(docID string) string {
	return fmt.Sprintf("%s/documents/%s", p.Prefix, docID)
}

func (p *Publisher) hashKey(hash string) string {
	return fmt.Sprintf("%s/by_hash/%s", p.Prefix, hash)
}

// FindDuplicate returns the doc id already published for contentHash.
func (p *Publisher) FindDuplicate(ctx context.Context, contentHash string) (string, bool, error) {
	children, err := p.Client.ListChildren(ctx, p.hashKey(contentHash), 1)
	if err != nil {
		return "", false, err
	}
	if len(children) == 0 {
		return "", false, nil
	}
	// Keys come back dot separated; the doc id is the last segment.
	parts := strings.FieldsFunc(children[0].Key, func(r rune) bool { return r == '.' || r == '/' })
	if len(parts) == 0 {
		return "", false, nil
	}
	return parts[len(parts)-1], true, nil
}

// Publish writes the models present in pub.Result. Missing models are
// skipped. Section and reference writes stop at the first error.
func (p *Publisher) Publish(ctx context.Context, pub Publication) (Summary, error) {
	var sum Summary
	res := pub.Result
	if res == nil {
		return sum, fmt.Errorf("publish %s: nil result", pub.DocID)
	}
	docKey := p.docKey(pub.DocID)
	source := "papertree:" + pub.DocID

	meta := map[string]any{
		"filename":     pub.Filename,
		"content_hash": pub.ContentHash,
		"created_at":   pub.CreatedAt.Format(time.RFC3339),
		"steps":        res.Done.String(),
	}
	if res.Metadata != nil {
		meta["metadata"] = res.Metadata
	}
	if res.Document != nil {
		meta["pages"] = res.Document.PageCount()
	}

	// paraSection maps a paragraph index to the key of the section holding
	// it; preamble paragraphs map to the document node.
	var paraSection []string
	if res.Content != nil {
		paraSection = make([]string, len(res.Content.Preamble))
		for i := range paraSection {
			paraSection[i] = docKey + "/meta"
		}
		var err error
		i := 0
		res.Content.Walk(func(sec *content.Section) {
			if err != nil {
				return
			}
			key := fmt.Sprintf("%s/sections/%d", docKey, i)
			i++
			paras := make([]string, len(sec.Paragraphs))
			for j, para := range sec.Paragraphs {
				paras[j] = para.Text
				paraSection = append(paraSection, key)
			}
			err = p.Client.PutNode(ctx, key, NodeRequest{
				Value: map[string]any{
					"title":      sec.Title,
					"level":      sec.Level,
					"paragraphs": paras,
				},
				MemoryType: "semantic",
				Salience:   0.5,
				Source:     source,
			})
			if err == nil {
				sum.Sections++
			}
		})
		if err != nil {
			return sum, err
		}
	}

	for i, e := range res.Entries {
		if e == nil {
			continue
		}
		if err := p.Client.PutNode(ctx, fmt.Sprintf("%s/references/%d", docKey, i), NodeRequest{
			Value:      e,
			MemoryType: "semantic",
			Salience:   0.3,
			Source:     source,
		}); err != nil {
			return sum, err
		}
		sum.References++
	}

	if err := p.Client.PutNode(ctx, docKey+"/meta", NodeRequest{
		Value:      meta,
		MemoryType: "metacognitive",
		Salience:   0.5,
		Source:     source,
	}); err != nil {
		return sum, err
	}

	if res.Citations != nil {
		type edge struct {
			from string
			to   int
		}
		weights := map[edge]int{}
		var order []edge
		for _, span := range res.Citations.Spans() {
			if span.Paragraph < 0 || span.Paragraph >= len(paraSection) {
				continue
			}
			for _, ref := range span.Entries {
				e := edge{paraSection[span.Paragraph], ref}
				if weights[e] == 0 {
					order = append(order, e)
				}
				weights[e]++
			}
		}
		for _, e := range order {
			if err := p.Client.PutLink(ctx, LinkRequest{
				From:    e.from,
				To:      fmt.Sprintf("%s/references/%d", docKey, e.to),
				Weight:  float64(weights[e]),
				Summary: "cites",
			}); err != nil {
				return sum, err
			}
			sum.Links++
		}
	}

	if pub.ContentHash != "" {
		if err := p.Client.PutNode(ctx, p.hashKey(pub.ContentHash)+"/"+pub.DocID, NodeRequest{
			Value:      map[string]any{"filename": pub.Filename},
			MemoryType: "metacognitive",
			Salience:   0.1,
			Source:     source,
		}); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// Documents lists the published document records.
func (p *Publisher) Documents(ctx context.Context, limit int) ([]ListChildrenResponse, error) {
	children, err := p.Client.ListChildren(ctx, p.Prefix+"/documents", limit)
	if err != nil {
		return nil, err
	}
	var docs []ListChildrenResponse
	for _, c := range children {
		if strings.HasSuffix(c.Key, ".meta") || strings.HasSuffix(c.Key, "/meta") {
			docs = append(docs, c)
		}
	}
	return docs, nil
}

// Unpublish removes a document subtree and its hash index entry. It
// reports whether the document existed.
func (p *Publisher) Unpublish(ctx context.Context, docID string) (bool, error) {
	docKey := p.docKey(docID)
	meta, err := p.Client.GetNode(ctx, docKey+"/meta")
	if err != nil {
		return false, err
	}
	if meta == nil {
		return false, nil
	}
	if err := p.Client.DeleteNode(ctx, docKey, true); err != nil {
		return true, err
	}
	if m, ok := meta.Value.(map[string]any); ok {
		if hash, _ := m["content_hash"].(string); hash != "" {
			if err := p.Client.DeleteNode(ctx, p.hashKey(hash)+"/"+docID, false); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}
