package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/papertree/internal/bibref"
	"github.com/dgallion1/papertree/internal/citations"
	"github.com/dgallion1/papertree/internal/content"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/metadata"
)

// fakeStore is an in-memory pathstore speaking the subset of the HTTP API
// the client uses. Keys are listed back dot separated, like the real
// server.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
	links []LinkRequest
}

func newFakeStore(t *testing.T) (*fakeStore, *Client) {
	t.Helper()
	fs := &fakeStore{nodes: map[string]json.RawMessage{}}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return fs, NewClient(srv.URL, "secret")
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/links" && r.Method == http.MethodPut {
		var l LinkRequest
		json.NewDecoder(r.Body).Decode(&l)
		f.links = append(f.links, l)
		w.WriteHeader(http.StatusCreated)
		return
	}

	key, ok := strings.CutPrefix(r.URL.Path, "/kv/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.nodes[key] = req.Value
	case http.MethodGet:
		if prefix, ok := strings.CutSuffix(key, "/*"); ok {
			var nodes []map[string]any
			for _, k := range f.sortedKeys() {
				if strings.HasPrefix(k, prefix+"/") {
					nodes = append(nodes, map[string]any{
						"key_path": strings.ReplaceAll(k, "/", "."),
						"value":    f.nodes[k],
					})
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
			return
		}
		v, ok := f.nodes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case http.MethodDelete:
		if _, ok := f.nodes[key]; !ok && r.URL.Query().Get("children") != "true" {
			http.NotFound(w, r)
			return
		}
		delete(f.nodes, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range f.nodes {
				if strings.HasPrefix(k, key+"/") {
					delete(f.nodes, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeStore) sortedKeys() []string {
	keys := make([]string, 0, len(f.nodes))
	for k := range f.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sampleResult() *extraction.Result {
	return &extraction.Result{
		Metadata: &metadata.Metadata{Title: "Zone Classification"},
		Entries:  []*bibref.Entry{{Raw: "A. 2001."}, nil, {Raw: "C. 2003."}},
		Content: &content.Structure{
			Preamble: []*content.Paragraph{{Text: "p0"}},
			Sections: []*content.Section{{
				Title:      "Introduction",
				Level:      1,
				Paragraphs: []*content.Paragraph{{Text: "p1"}, {Text: "p2"}},
				Subsections: []*content.Section{{
					Title: "Scope", Level: 2,
					Paragraphs: []*content.Paragraph{{Text: "p3"}},
				}},
			}},
		},
		Citations: citations.NewPositions([]citations.Span{
			{Paragraph: 1, Entries: []int{0, 2}},
			{Paragraph: 2, Entries: []int{0}},
			{Paragraph: 0, Entries: []int{2}},
			{Paragraph: 3, Entries: []int{2}},
			{Paragraph: 9, Entries: []int{0}},
		}),
		Done: extraction.AllSteps(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	fs, c := newFakeStore(t)
	p := NewPublisher(c, "/papers/")

	sum, err := p.Publish(context.Background(), Publication{
		DocID:       "doc1",
		Filename:    "paper.pdf",
		ContentHash: "abc",
		CreatedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Result:      sampleResult(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != (Summary{Sections: 2, References: 2, Links: 4}) {
		t.Errorf("unexpected summary %+v", sum)
	}

	for _, key := range []string{
		"papers/documents/doc1/meta",
		"papers/documents/doc1/sections/0",
		"papers/documents/doc1/sections/1",
		"papers/documents/doc1/references/0",
		"papers/documents/doc1/references/2",
		"papers/by_hash/abc/doc1",
	} {
		if _, ok := fs.nodes[key]; !ok {
			t.Errorf("missing node %s", key)
		}
	}
	if _, ok := fs.nodes["papers/documents/doc1/references/1"]; ok {
		t.Error("nil entries must not be published")
	}

	var meta map[string]any
	json.Unmarshal(fs.nodes["papers/documents/doc1/meta"], &meta)
	if meta["content_hash"] != "abc" || meta["metadata"].(map[string]any)["title"] != "Zone Classification" {
		t.Errorf("unexpected meta %v", meta)
	}

	// Section 0 cites entry 0 twice and entry 2 once; the preamble and the
	// subsection cite entry 2; the out of range span is ignored.
	want := []LinkRequest{
		{From: "papers/documents/doc1/sections/0", To: "papers/documents/doc1/references/2", Weight: 1, Summary: "cites"},
		{From: "papers/documents/doc1/meta", To: "papers/documents/doc1/references/2", Weight: 1, Summary: "cites"},
		{From: "papers/documents/doc1/sections/0", To: "papers/documents/doc1/references/0", Weight: 2, Summary: "cites"},
		{From: "papers/documents/doc1/sections/1", To: "papers/documents/doc1/references/2", Weight: 1, Summary: "cites"},
	}
	got := slices.Clone(fs.links)
	sortLinks := func(ls []LinkRequest) {
		slices.SortFunc(ls, func(a, b LinkRequest) int {
			return strings.Compare(a.From+a.To, b.From+b.To)
		})
	}
	sortLinks(got)
	sortLinks(want)
	if !slices.Equal(got, want) {
		t.Errorf("links:\n got %+v\nwant %+v", got, want)
	}
}

func TestPublisher_FindDuplicateAndUnpublish(t *testing.T) {
	fs, c := newFakeStore(t)
	p := NewPublisher(c, "")
	ctx := context.Background()

	if _, found, err := p.FindDuplicate(ctx, "abc"); err != nil || found {
		t.Fatalf("expected no duplicate, got found=%v err=%v", found, err)
	}

	if _, err := p.Publish(ctx, Publication{DocID: "doc1", ContentHash: "abc", Result: sampleResult()}); err != nil {
		t.Fatal(err)
	}

	docID, found, err := p.FindDuplicate(ctx, "abc")
	if err != nil || !found || docID != "doc1" {
		t.Fatalf("expected doc1, got %q found=%v err=%v", docID, found, err)
	}

	docs, err := p.Documents(ctx, 100)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected one document record, got %v err=%v", docs, err)
	}

	existed, err := p.Unpublish(ctx, "doc1")
	if err != nil || !existed {
		t.Fatalf("unpublish: existed=%v err=%v", existed, err)
	}
	for k := range fs.nodes {
		t.Errorf("node %s left after unpublish", k)
	}

	existed, err = p.Unpublish(ctx, "doc1")
	if err != nil || existed {
		t.Errorf("second unpublish: existed=%v err=%v", existed, err)
	}
}

func TestPublisher_PartialResult(t *testing.T) {
	fs, c := newFakeStore(t)
	p := NewPublisher(c, "")

	res := &extraction.Result{Metadata: &metadata.Metadata{Title: "Only metadata"}}
	sum, err := p.Publish(context.Background(), Publication{DocID: "d", Result: res})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != (Summary{}) || len(fs.links) != 0 {
		t.Errorf("expected only the record, got %+v", sum)
	}
	if _, ok := fs.nodes["papers/documents/d/meta"]; !ok {
		t.Error("missing document record")
	}

	if _, err := p.Publish(context.Background(), Publication{DocID: "d"}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PutNode(context.Background(), "a/b", NodeRequest{Value: 1})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
}
