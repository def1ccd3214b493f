// Package event collects non-fatal per-backend failures into structured
// events surfaced to the caller without aborting the overall job, and
// carries the pending-changed notifications the presentation layer
// subscribes to.
package event

import (
	"fmt"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
)

// Severity classifies a failure event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return "info"
	}
}

// Failure is one structured failure event produced while serving a job.
type Failure struct {
	Action   job.Action
	Backend  string
	App      *app.App // optional origin entity
	Code     errs.Code
	Severity Severity
	Err      error
}

func (f Failure) String() string {
	origin := ""
	if f.App != nil {
		origin = " app=" + f.App.Key()
	}
	return fmt.Sprintf("[%s] %s backend=%s%s code=%s: %v",
		f.Severity, f.Action, f.Backend, origin, f.Code, f.Err)
}

// ClassifyNetwork maps an error to a severity following the degradation
// policy: a missing network during optional enrichment is always a
// warning, never fatal.
func ClassifyNetwork(err error) Severity {
	if errs.CodeOf(err) == errs.CodeNoNetwork {
		return SeverityWarning
	}
	if errs.IsFatal(err) {
		return SeverityFatal
	}
	return SeverityWarning
}
