package dispatch

import (
	"context"
	"sync"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/event"
	"github.com/appdex/appdex/internal/catalog/job"
)

// Status is the terminal (or running) state of a submitted job.
type Status int

const (
	StatusRunning Status = iota
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "running"
	}
}

// Ticket is the async completion handle for one submitted job. The result
// is delivered exactly once; cancelled jobs resolve with whatever partial
// result was merged before cancellation.
type Ticket struct {
	job    *job.Job
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	status   Status
	list     *app.List
	failures []event.Failure
	err      error
}

func newTicket(j *job.Job, cancel context.CancelFunc) *Ticket {
	return &Ticket{
		job:    j,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Job returns the submitted job.
func (t *Ticket) Job() *job.Job {
	return t.job
}

// Cancel requests cooperative cancellation. In-flight cheap operations
// may complete; no new backend invocations are started.
func (t *Ticket) Cancel() {
	t.cancel()
}

// Done is closed when the job reaches a terminal status.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Status returns the current status without blocking.
func (t *Ticket) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Wait blocks until the job completes and returns the merged result, the
// accumulated failure events, and the job error (nil for succeeded and
// cancelled jobs; cancellation is a distinct status, not an error).
func (t *Ticket) Wait() (*app.List, []event.Failure, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.list, t.failures, t.err
}

func (t *Ticket) complete(status Status, list *app.List, failures []event.Failure, err error) {
	t.mu.Lock()
	t.status = status
	t.list = list
	t.failures = failures
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
