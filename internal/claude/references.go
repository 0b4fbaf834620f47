package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/papertree/internal/bibref"
)

// Completer is the part of Client the reference parser needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// EntryParser parses a single raw reference string.
type EntryParser interface {
	Parse(ctx context.Context, raw string) (*bibref.Entry, error)
}

// ReferenceParser asks the model to parse each reference, retrying
// transient API failures, and hands the string to Fallback when the model
// cannot produce a valid entry. Context errors are never masked by the
// fallback.
type ReferenceParser struct {
	Client     Completer
	Fallback   EntryParser
	MaxRetries int
	// Backoff returns the wait before retry attempt n. Defaults to Backoff.
	Backoff func(attempt int) time.Duration
	Log     *slog.Logger
}

func NewReferenceParser(client Completer, log *slog.Logger) *ReferenceParser {
	return &ReferenceParser{
		Client:     client,
		Fallback:   bibref.Parser{},
		MaxRetries: MaxRetries,
		Backoff:    Backoff,
		Log:        log,
	}
}

func (p *ReferenceParser) Parse(ctx context.Context, raw string) (*bibref.Entry, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return nil, bibref.ErrEmptyReference
	}

	text, err := p.complete(ctx, BuildReferencePrompt(s))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		p.logger().Warn("llm reference parse failed, using rules", "error", err)
		return p.fallback(ctx, s)
	}

	var r reference
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		p.logger().Warn("llm reference reply is not json, using rules", "error", err, "raw", truncate(text, 200))
		return p.fallback(ctx, s)
	}
	if !validateReference(&r, s) {
		p.logger().Warn("llm reference rejected, using rules", "title", truncate(r.Title, 80))
		return p.fallback(ctx, s)
	}
	return r.entry(s), nil
}

func (p *ReferenceParser) complete(ctx context.Context, prompt string) (string, error) {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Backoff
	}

	var lastErr error
	tries := 0
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			p.logger().Info("retrying reference parse", "attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		tries++
		text, err := p.Client.Complete(ctx, referenceSystem, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", tries, lastErr)
}

func (p *ReferenceParser) fallback(ctx context.Context, raw string) (*bibref.Entry, error) {
	if p.Fallback == nil {
		return &bibref.Entry{Raw: raw}, nil
	}
	return p.Fallback.Parse(ctx, raw)
}

func (p *ReferenceParser) logger() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}
