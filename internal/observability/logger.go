package observability

import (
	"log/slog"
	"time"

	"github.com/dgallion1/papertree/internal/extraction"
)

// LogObserver logs every step at debug level, and failed steps at warn.
func LogObserver(log *slog.Logger) extraction.StepObserver {
	return extraction.StepObserverFunc(func(step extraction.Step, elapsed time.Duration, err error) {
		if err != nil {
			log.Warn("step failed", "step", step.String(), "elapsed_ms", elapsed.Milliseconds(), "error", err)
			return
		}
		log.Debug("step done", "step", step.String(), "elapsed_ms", elapsed.Milliseconds())
	})
}
