package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/papertree/internal/components"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/observability"
	"github.com/dgallion1/papertree/internal/pathstore"
)

// Publisher stores finished results outside the process.
type Publisher interface {
	FindDuplicate(ctx context.Context, contentHash string) (string, bool, error)
	Publish(ctx context.Context, pub pathstore.Publication) (pathstore.Summary, error)
}

// Worker processes a single document job.
type Worker struct {
	comps     *extraction.Components
	jobs      *JobStore
	publisher Publisher
	stats     extraction.StepObserver
	sink      *observability.Sink
	log       *slog.Logger
	timeout   time.Duration
}

// Process runs the extraction pipeline for a job and publishes the result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	need := extraction.AllSteps()
	if len(job.Targets) > 0 {
		need = 0
		for _, t := range job.Targets {
			need = need.Add(t) | extraction.Closure(t)
		}
	}
	if !job.Force && w.skipDuplicate(ctx, job, need, log) {
		return
	}

	comps, err := components.ForFile(w.comps, job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if comps.Debug {
		var obs []extraction.StepObserver
		obs = append(obs, w.stats, observability.LogObserver(log))
		if w.sink != nil {
			obs = append(obs, w.sink.ForJob(job.ID))
		}
		comps = comps.WithObserver(extraction.Observers(obs...))
	}

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	res := extraction.NewResult(bytes.NewReader(job.FileData()))
	plan := extraction.Plan(res.Done, job.Targets...)
	job.SetPlan(plan)
	job.SetStatus(StatusExtracting, "extracting")
	start := time.Now()

	for _, step := range plan {
		job.StartStep(step)
		err := res.Run(runCtx, comps, step)
		job.FinishStep(step, err)
		if err == nil {
			continue
		}

		job.SetResult(res)
		job.AddError(err.Error())
		if extraction.IsTimeout(err) {
			log.Warn("extraction timed out", "step", step.String(), "timeout", w.timeout, "error", err)
			job.SetStatus(StatusTimedOut, step.String())
		} else {
			log.Error("extraction failed", "step", step.String(), "error", err)
			job.SetStatus(StatusFailed, step.String())
		}
		return
	}
	job.SetResult(res)
	log.Info("extraction complete",
		"steps", len(plan),
		"references", len(res.Entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if w.publisher == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	job.SetStatus(StatusPublishing, "publishing")
	sum, err := w.publisher.Publish(ctx, pathstore.Publication{
		DocID:       job.DocID,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		CreatedAt:   job.CreatedAt,
		Result:      res,
	})
	if err != nil {
		log.Error("publish failed", "error", err)
		job.AddError(fmt.Sprintf("publish: %s", err))
		job.SetStatus(StatusPartial, "publishing")
		return
	}
	log.Info("published", "sections", sum.Sections, "references", sum.References, "links", sum.Links)
	job.SetStatus(StatusCompleted, "done")
}

// skipDuplicate finishes job when the same content was already extracted,
// either by a job still in memory or as a published document.
func (w *Worker) skipDuplicate(ctx context.Context, job *Job, need extraction.StepSet, log *slog.Logger) bool {
	if prev := w.jobs.FindCompleted(job.ContentHash, job.ID, need); prev != nil {
		log.Info("duplicate content, reusing result", "previous_job_id", prev.ID)
		job.MarkDuplicate(prev.DocID, prev.Result())
		return true
	}
	if w.publisher == nil {
		return false
	}

	existing, found, err := w.publisher.FindDuplicate(ctx, job.ContentHash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
		return false
	}
	if found {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.MarkDuplicate(existing, nil)
		return true
	}
	return false
}
