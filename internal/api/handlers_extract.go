package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/parser"
	"github.com/dgallion1/papertree/internal/pipeline"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	targets, err := parseTargets(r.FormValue("targets"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	job := newJob(r.FormValue("doc_id"), filename, data, targets, r.FormValue("force") == "true")
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(accepted(job))
}

func (s *Server) handleBatchExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	targets, err := parseTargets(r.FormValue("targets"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	force := r.FormValue("force") == "true"

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := newJob("", filename, data, targets, force)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		res := accepted(job)
		res["filename"] = filename
		results = append(results, res)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func (s *Server) handleExtractStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleExtractResult returns the models extracted so far. A failed or
// timed out job still returns the output of the steps that completed.
func (s *Server) handleExtractResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if !snap.Status.Terminal() {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	res := job.Result()
	if res == nil {
		body := map[string]any{"error": "no result", "status": snap.Status}
		if snap.DuplicateOf != "" {
			body["duplicate_of"] = snap.DuplicateOf
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(body)
		return
	}

	steps := make([]string, 0, res.Done.Len())
	for _, st := range res.Done.Steps() {
		steps = append(steps, st.String())
	}
	body := map[string]any{
		"job_id":     snap.ID,
		"doc_id":     snap.DocID,
		"status":     snap.Status,
		"steps":      steps,
		"metadata":   res.Metadata,
		"references": res.Entries,
		"content":    res.Content,
		"citations":  res.Citations,
	}
	if res.Document != nil {
		body["pages"] = res.Document.PageCount()
	}
	if snap.DuplicateOf != "" {
		body["duplicate_of"] = snap.DuplicateOf
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func newJob(docID, filename string, data []byte, targets []extraction.Step, force bool) *pipeline.Job {
	if docID == "" {
		docID = pipeline.ContentHashHex(data)[:16]
	}
	job := pipeline.NewJob(docID, filename, data)
	job.Targets = targets
	job.Force = force
	return job
}

func accepted(job *pipeline.Job) map[string]any {
	return map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/extract/%s/status", job.ID),
	}
}

// parseTargets reads a comma separated list of step names.
func parseTargets(v string) ([]extraction.Step, error) {
	var out []extraction.Step
	for name := range strings.SplitSeq(v, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		st, err := extraction.ParseStep(name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
