package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgallion1/papertree/internal/extraction"
)

// handleStepStats reports step latency percentiles. Timings are only
// collected while debug mode is on. With a metrics database configured,
// ?step=NAME also returns that step's most recent timings.
func (s *Server) handleStepStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Steps == nil {
		jsonError(w, "step stats unavailable", http.StatusServiceUnavailable)
		return
	}

	body := map[string]any{
		"debug":       s.cfg.Debug,
		"queue_depth": s.orchestrator.QueueDepth(),
		"jobs":        s.orchestrator.JobCount(),
		"steps":       s.opts.Steps.Snapshot(),
	}

	if name := r.URL.Query().Get("step"); name != "" && s.opts.Sink != nil {
		step, err := extraction.ParseStep(name)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = min(v, 1000)
		}
		recent, err := s.opts.Sink.Query(r.Context(), step.String(), limit)
		if err != nil {
			jsonError(w, "failed to query step timings: "+err.Error(), http.StatusInternalServerError)
			return
		}
		body["recent"] = recent
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Claude == nil || s.opts.Claude.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": s.opts.Claude.Model(),
		"stats": s.opts.Claude.Stats.Snapshot(),
	})
}
