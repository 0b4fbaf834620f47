package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists published document records.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.opts.Documents == nil {
		jsonError(w, "publishing is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 200
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	children, err := s.opts.Documents.Documents(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	docs := make([]map[string]any, 0, len(children))
	for _, child := range children {
		docs = append(docs, map[string]any{
			"key":   child.Key,
			"value": child.Value,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDeleteDocument removes a published document with its sections,
// references and hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.opts.Documents == nil {
		jsonError(w, "publishing is not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")

	existed, err := s.opts.Documents.Unpublish(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !existed {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"doc_id": docID, "deleted": true})
}
