// Package dispatch is the concurrency core: it fans one job out across
// the applicable backends under a bounded worker pool, merges their
// partial views into one deduplicated list, runs the refinement engine,
// and resolves the caller's ticket with the merged result plus any
// accumulated failure events.
package dispatch

import (
	"context"
	"time"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/event"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/internal/catalog/refine"
	"github.com/appdex/appdex/internal/catalog/registry"
	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/metrics"
	"github.com/appdex/appdex/pkg/parallel"
	"github.com/appdex/appdex/pkg/safe"
)

const defaultMaxWorkers = 4

// defaultRefineFlags maps each action to the flags it implies, so the
// common views arrive presentable without the caller spelling them out.
var defaultRefineFlags = map[job.Action]job.RefineFlags{
	job.ActionGetInstalled: job.RefineRequireName | job.RefineRequireIcon,
	job.ActionGetUpdates:   job.RefineRequireName | job.RefineRequireVersion | job.RefineRequireUpdateDetails,
	job.ActionGetPopular:   job.RefineRequireName | job.RefineRequireIcon | job.RefineRequireRating,
	job.ActionGetFeatured:  job.RefineRequireName | job.RefineRequireIcon,
	job.ActionSearch:       job.RefineRequireName | job.RefineRequireIcon,
}

// Conf tunes the dispatcher.
type Conf struct {
	// MaxWorkers bounds concurrent backend invocations per job.
	MaxWorkers int
}

// Dispatcher coordinates job execution. It owns the staging list for the
// duration of a job and publishes the merged result to the caller only at
// completion.
type Dispatcher struct {
	reg        *registry.Registry
	engine     *refine.Engine
	maxWorkers int

	pending *app.List
	bus     *event.PendingBus
}

// New creates a Dispatcher on top of a set-up registry.
func New(reg *registry.Registry, engine *refine.Engine, conf Conf) *Dispatcher {
	maxWorkers := conf.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Dispatcher{
		reg:        reg,
		engine:     engine,
		maxWorkers: maxWorkers,
		pending:    app.NewList(),
		bus:        event.NewPendingBus(),
	}
}

// OnPendingChanged subscribes to background state changes (install
// progress, queueing) happening outside an explicit job.
func (d *Dispatcher) OnPendingChanged(fn event.PendingListener) {
	d.bus.Subscribe(fn)
}

// Pending returns the apps currently queued or mid-operation.
func (d *Dispatcher) Pending() *app.List {
	return d.pending.Filter(func(a *app.App) bool { return a.InstallPending() })
}

// Submit starts executing j asynchronously and returns its completion
// ticket. The passed context bounds the whole job; Ticket.Cancel cancels
// just this job.
func (d *Dispatcher) Submit(ctx context.Context, j *job.Job) *Ticket {
	jobCtx, cancel := context.WithCancel(ctx)
	t := newTicket(j, cancel)

	safe.Go(func() {
		defer cancel()
		start := time.Now()

		status, list, failures, err := d.run(jobCtx, j)

		metrics.JobsTotal.WithLabelValues(j.Action.String(), status.String()).Inc()
		metrics.JobDurationSeconds.WithLabelValues(j.Action.String()).Observe(time.Since(start).Seconds())
		log.Debugw("job finished", "job", j.ID, "action", j.Action.String(),
			"status", status.String(), "apps", list.Len(), "failures", len(failures))

		t.complete(status, list, failures, err)
	})
	return t
}

func (d *Dispatcher) run(ctx context.Context, j *job.Job) (Status, *app.List, []event.Failure, error) {
	rep := event.NewReporter()
	staging := app.NewList()
	if j.TargetList != nil {
		staging.AddList(j.TargetList)
	}
	if j.Target != nil {
		staging.Add(j.Target)
	}

	var err error
	if j.Action.RequiresOwner() {
		err = d.runOwnerAction(ctx, j, staging, rep)
	} else {
		err = d.fanOut(ctx, j, staging, rep)
	}

	// Cancellation beats failure: the partial result is still delivered,
	// tagged cancelled, and never surfaced as a user-facing error.
	if ctx.Err() != nil {
		return StatusCancelled, staging, rep.Failures(), nil
	}
	if err != nil {
		return StatusFailed, staging, rep.Failures(), err
	}

	if flags := j.Refine | defaultRefineFlags[j.Action]; flags != 0 {
		if rerr := d.engine.Refine(ctx, staging, flags, j.Action, rep); rerr != nil {
			if ctx.Err() != nil || errs.CodeOf(rerr) == errs.CodeCancelled {
				return StatusCancelled, staging, rep.Failures(), nil
			}
			return StatusFailed, staging, rep.Failures(), rerr
		}
	}

	if ctx.Err() != nil {
		return StatusCancelled, staging, rep.Failures(), nil
	}
	return StatusSucceeded, staging, rep.Failures(), nil
}

// fanOut invokes every applicable backend concurrently under the worker
// bound. One backend's failure never discards another's partial result.
func (d *Dispatcher) fanOut(ctx context.Context, j *job.Job, staging *app.List, rep *event.Reporter) error {
	backends := d.reg.ResolveOrder(j.Action)
	if len(backends) == 0 {
		// no serving backend degrades to an empty result, not an error
		log.Debugw("no backend serves action", "action", j.Action.String())
		return nil
	}

	group := parallel.GoGroup(ctx, parallel.WithMaxWorkers(d.maxWorkers))
	for _, b := range backends {
		b := b
		group.Go(func(taskCtx context.Context) error {
			// cooperative cancellation: a cancelled job starts no new
			// backend invocations
			if taskCtx.Err() != nil {
				return nil
			}
			partial, err := b.Execute(taskCtx, j)
			if err != nil {
				if taskCtx.Err() != nil {
					return nil
				}
				rep.Report(event.Failure{
					Action:   j.Action,
					Backend:  b.Name(),
					Code:     errs.CodeOf(err),
					Severity: event.ClassifyNetwork(err),
					Err:      err,
				})
				return nil
			}
			staging.AddList(partial)
			return nil
		})
	}
	// errors are routed through the reporter, so Wait only observes
	// context cancellation
	_ = group.Wait()

	if j.Action == job.ActionRefresh {
		d.refreshSnapshots(ctx, j, rep)
	}

	if rep.HasFatal() {
		return errs.New(errs.CodeFailed, "job aborted by fatal backend failure")
	}
	return nil
}

// refreshSnapshots asks snapshot-holding backends to re-download anything
// older than the job's cache-age tolerance.
func (d *Dispatcher) refreshSnapshots(ctx context.Context, j *job.Job, rep *event.Reporter) {
	maxAge := j.MaxCacheAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	for _, r := range d.reg.Refreshers() {
		if ctx.Err() != nil {
			return
		}
		if err := r.Refresh(ctx, maxAge); err != nil {
			rep.Report(event.Failure{
				Action:   j.Action,
				Backend:  refresherName(r),
				Code:     errs.CodeOf(err),
				Severity: event.ClassifyNetwork(err),
				Err:      err,
			})
		}
	}
}

func refresherName(r backend.Refresher) string {
	if b, ok := r.(backend.Backend); ok {
		return b.Name()
	}
	return "unknown"
}

// runOwnerAction routes install/remove/review actions to the single
// authoritative backend; that backend's failure is the job's failure.
func (d *Dispatcher) runOwnerAction(ctx context.Context, j *job.Job, staging *app.List, rep *event.Reporter) error {
	target := j.Target
	if target == nil {
		return errs.New(errs.CodeFailed, "action requires a target app")
	}

	b, err := d.ownerBackend(j, target)
	if err != nil {
		return err
	}

	switch j.Action {
	case job.ActionInstall:
		return d.runStateChange(ctx, j, b, target, rep,
			app.StateQueued, app.StateInstalling, app.StateInstalled, app.StateAvailable)
	case job.ActionRemove:
		return d.runStateChange(ctx, j, b, target, rep,
			app.StateQueued, app.StateRemoving, app.StateAvailable, app.StateInstalled)
	default:
		// set-rating / submit-review have no state machine side
		if _, execErr := b.Execute(ctx, j); execErr != nil {
			rep.Report(event.Failure{
				Action:   j.Action,
				Backend:  b.Name(),
				App:      target,
				Code:     errs.CodeOf(execErr),
				Severity: event.SeverityFatal,
				Err:      execErr,
			})
			return execErr
		}
		staging.Add(target)
		return nil
	}
}

// ownerBackend picks the authoritative backend for an owner action: the
// management owner for install/remove, the first capable backend for the
// review actions.
func (d *Dispatcher) ownerBackend(j *job.Job, target *app.App) (backend.Backend, error) {
	if j.Action == job.ActionInstall || j.Action == job.ActionRemove {
		owner := target.ManagedBy()
		if owner == "" {
			return nil, errs.Newf(errs.CodeNotSupported, "app %s has no management owner", target.Key())
		}
		b, ok := d.reg.Lookup(owner)
		if !ok {
			return nil, errs.Newf(errs.CodeNotSupported, "management owner %q is not available", owner)
		}
		if !b.Capabilities().ServesAction(j.Action) {
			return nil, errs.Newf(errs.CodeNotSupported, "backend %q cannot serve %s", owner, j.Action)
		}
		return b, nil
	}
	backends := d.reg.ResolveOrder(j.Action)
	if len(backends) == 0 {
		return nil, errs.Newf(errs.CodeNotSupported, "no backend serves %s", j.Action)
	}
	return backends[0], nil
}

// runStateChange drives the app's lifecycle around an install or remove:
// queued -> working -> success state, falling back to failState on error.
// Every transition publishes a pending-changed notification.
func (d *Dispatcher) runStateChange(ctx context.Context, j *job.Job, b backend.Backend, target *app.App,
	rep *event.Reporter, queued, working, success, failState app.State) error {

	d.pending.Add(target)

	d.setStateNotify(target, queued)
	d.setStateNotify(target, working)

	if ctx.Err() != nil {
		d.setStateNotify(target, failState)
		return errs.WithCode(ctx.Err(), errs.CodeCancelled)
	}

	_, err := b.Execute(ctx, j)
	if err != nil {
		d.setStateNotify(target, failState)
		if ctx.Err() != nil {
			return errs.WithCode(err, errs.CodeCancelled)
		}
		rep.Report(event.Failure{
			Action:   j.Action,
			Backend:  b.Name(),
			App:      target,
			Code:     errs.CodeOf(err),
			Severity: event.SeverityFatal,
			Err:      err,
		})
		return err
	}

	d.setStateNotify(target, success)
	return nil
}

func (d *Dispatcher) setStateNotify(a *app.App, st app.State) {
	if a.SetState(st) {
		d.bus.Publish(d.Pending())
	}
}
