package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/papertree/internal/config"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/observability"
)

// Deps are the collaborators shared by every worker. Publisher, Stats and
// Sink are optional.
type Deps struct {
	Components *extraction.Components
	Publisher  Publisher
	Stats      extraction.StepObserver
	Sink       *observability.Sink
}

// Orchestrator manages the document extraction queue.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	deps  Deps
	log   *slog.Logger
	cfg   config.Config

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, deps Deps, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		deps:  deps,
		log:   log,
		cfg:   cfg,
	}
}

func (o *Orchestrator) newWorker() *Worker {
	return &Worker{
		comps:     o.deps.Components,
		jobs:      o.jobs,
		publisher: o.deps.Publisher,
		stats:     o.deps.Stats,
		sink:      o.deps.Sink,
		log:       o.log,
		timeout:   o.cfg.ExtractTimeout,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store and step timing cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
				if o.deps.Sink != nil {
					n, err := o.deps.Sink.Cleanup(workerCtx, o.cfg.MetricsRetention)
					if err != nil {
						o.log.Warn("step timing cleanup failed", "error", err)
					} else if n > 0 {
						o.log.Debug("step timings pruned", "rows", n)
					}
				}
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Jobs still queued are dropped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return fmt.Errorf("pipeline is shutting down")
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns the number of jobs held in memory.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}
