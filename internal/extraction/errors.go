package extraction

import (
	"errors"
	"fmt"
)

// Kind distinguishes the two ways a step can fail.
type Kind int

const (
	// KindAnalysis means a component could not process its input.
	KindAnalysis Kind = iota + 1
	// KindTimeout means the deadline passed before the step started.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindTimeout:
		return "timeout"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	// ErrAnalysis matches every analysis failure with errors.Is.
	ErrAnalysis = errors.New("analysis failed")
	// ErrTimeout matches every timeout failure with errors.Is.
	ErrTimeout = errors.New("extraction timed out")
	// ErrMissingComponent is the cause when no component is registered for
	// a step.
	ErrMissingComponent = errors.New("no component registered")
	// ErrNotEligible is the cause when Run is asked to execute a step whose
	// prerequisites have not completed.
	ErrNotEligible = errors.New("prerequisites not completed")
)

// Error is the single failure type returned by pipeline steps.
type Error struct {
	Step Step
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is(err, ErrTimeout) and errors.As(err, &componentErr) both work.
func (e *Error) Unwrap() []error {
	var kind error
	switch e.Kind {
	case KindAnalysis:
		kind = ErrAnalysis
	case KindTimeout:
		kind = ErrTimeout
	}
	if kind == nil {
		return []error{e.Err}
	}
	return []error{kind, e.Err}
}

// IsTimeout reports whether err is a step timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// FailedStep returns the step an error came from.
func FailedStep(err error) (Step, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Step, true
	}
	return 0, false
}
