package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/papertree/internal/extraction"
)

// Schema holds the DDL for the step timing table.
const Schema = `
CREATE TABLE IF NOT EXISTS step_timings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    step TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    elapsed_us INTEGER NOT NULL,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_step_timings_step_time
    ON step_timings(step, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_step_timings_job
    ON step_timings(job_id);
`

// Open opens (or creates) the SQLite database at path, applies the usual
// pragmas and the schema. Use ":memory:" in tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// StepTiming is one recorded step invocation.
type StepTiming struct {
	JobID     string        `json:"job_id"`
	Step      string        `json:"step"`
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Error     string        `json:"error,omitempty"`
}

// Sink buffers step timings and flushes them to SQLite in batches. Record
// never blocks on the database.
type Sink struct {
	db            *sql.DB
	log           *slog.Logger
	bufferSize    int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []StepTiming
	stop   chan struct{}
	done   chan struct{}
}

// NewSink starts a sink that flushes every flushInterval or whenever
// bufferSize timings are pending.
func NewSink(db *sql.DB, log *slog.Logger, bufferSize int, flushInterval time.Duration) *Sink {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	s := &Sink{
		db:            db,
		log:           log,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		buffer:        make([]StepTiming, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// ForJob returns an observer that records timings under jobID.
func (s *Sink) ForJob(jobID string) extraction.StepObserver {
	return extraction.StepObserverFunc(func(step extraction.Step, elapsed time.Duration, err error) {
		t := StepTiming{JobID: jobID, Step: step.String(), Timestamp: time.Now(), Elapsed: elapsed}
		if err != nil {
			t.Error = err.Error()
		}
		s.Record(t)
	})
}

// Record queues a timing for persistence.
func (s *Sink) Record(t StepTiming) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, t)
	if len(s.buffer) >= s.bufferSize {
		s.flushLocked()
	}
}

// Flush writes pending timings now.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Query returns the most recent timings, newest first. An empty step
// matches every step; limit <= 0 means no limit.
func (s *Sink) Query(ctx context.Context, step string, limit int) ([]StepTiming, error) {
	q := "SELECT job_id, step, timestamp, elapsed_us, error FROM step_timings WHERE 1=1"
	var args []any
	if step != "" {
		q += " AND step = ?"
		args = append(args, step)
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query step timings: %w", err)
	}
	defer rows.Close()

	var out []StepTiming
	for rows.Next() {
		var t StepTiming
		var ts, us int64
		var errText sql.NullString
		if err := rows.Scan(&t.JobID, &t.Step, &ts, &us, &errText); err != nil {
			return nil, fmt.Errorf("scan step timing: %w", err)
		}
		t.Timestamp = time.UnixMilli(ts)
		t.Elapsed = time.Duration(us) * time.Microsecond
		t.Error = errText.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// Cleanup deletes timings older than retention and returns the count
// removed.
func (s *Sink) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM step_timings WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup step timings: %w", err)
	}
	return res.RowsAffected()
}

// Close flushes pending timings and stops the background goroutine.
func (s *Sink) Close() error {
	close(s.stop)
	<-s.done
	return nil
}

func (s *Sink) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

func (s *Sink) flushLocked() {
	if len(s.buffer) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Error("step timings: begin tx", "error", err)
		return
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO step_timings (job_id, step, timestamp, elapsed_us, error) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		s.log.Error("step timings: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, t := range s.buffer {
		errText := sql.NullString{String: t.Error, Valid: t.Error != ""}
		if _, err := stmt.ExecContext(ctx, t.JobID, t.Step, t.Timestamp.UnixMilli(), t.Elapsed.Microseconds(), errText); err != nil {
			s.log.Error("step timings: insert", "error", err, "step", t.Step)
		}
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("step timings: commit", "error", err)
	}
	s.buffer = s.buffer[:0]
}
