package event

import (
	"slices"
	"sync"

	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/metrics"
)

// Reporter accumulates failure events for one job. It is safe for
// concurrent use by all backend invocations of that job.
type Reporter struct {
	mu       sync.Mutex
	failures []Failure
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report records one failure event.
func (r *Reporter) Report(f Failure) {
	metrics.BackendFailuresTotal.WithLabelValues(f.Backend, f.Code.String()).Inc()
	switch f.Severity {
	case SeverityFatal:
		log.Errorw("backend failure", "action", f.Action.String(),
			"backend", f.Backend, "code", f.Code.String(), "error", f.Err)
	default:
		log.Warnw("backend failure", "action", f.Action.String(),
			"backend", f.Backend, "code", f.Code.String(), "error", f.Err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

// Failures returns a snapshot of the recorded events.
func (r *Reporter) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.failures)
}

// HasFatal reports whether any recorded event is fatal.
func (r *Reporter) HasFatal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.failures {
		if f.Severity == SeverityFatal {
			return true
		}
	}
	return false
}
