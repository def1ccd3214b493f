// Package refine implements the refinement engine: given a merged app
// list and a set of requested attribute flags, it cascades backend calls
// in dependency order until every flag is satisfied or failed for every
// app, skipping work that a cheap local check proves unnecessary.
package refine

import (
	"context"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/event"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/internal/catalog/registry"
	"github.com/appdex/appdex/internal/catalog/settings"
	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/metrics"
)

// satisfied holds the cheap local checks that make refinement idempotent:
// a flag whose check passes triggers zero backend work.
var satisfied = map[job.RefineFlags]func(*app.App) bool{
	job.RefineRequireID:            func(a *app.App) bool { return a.ID().Name != "" },
	job.RefineRequireName:          func(a *app.App) bool { return a.Name() != "" },
	job.RefineRequireDescription:   func(a *app.App) bool { return a.Description() != "" },
	job.RefineRequireIcon:          func(a *app.App) bool { return a.Icon() != "" },
	job.RefineRequireVersion:       func(a *app.App) bool { return a.Version() != "" },
	job.RefineRequireSize:          func(a *app.App) bool { return a.InstalledSize() > 0 || a.DownloadSize() > 0 },
	job.RefineRequireRating:        func(a *app.App) bool { return a.Rating() >= 0 || len(a.ReviewRatings()) > 0 },
	job.RefineRequireReviews:       func(a *app.App) bool { return len(a.Reviews()) > 0 },
	job.RefineRequireUpdateDetails: func(a *app.App) bool { return a.UpdateDetails() != "" },
	job.RefineRequireProvenance:    func(a *app.App) bool { return a.ID().Origin != "" },
	job.RefineRequireRelated:       func(a *app.App) bool { return len(a.ProvidedIDs()) > 0 },
}

// Engine drives the refinement pipeline against the registry's refiners.
type Engine struct {
	reg      *registry.Registry
	settings settings.Store
}

// New creates an Engine.
func New(reg *registry.Registry, st settings.Store) *Engine {
	if st == nil {
		st = settings.NewMapStore()
	}
	return &Engine{reg: reg, settings: st}
}

// applyToggles drops flags the user switched off; they are evaluated at
// refine time, not at registration time.
func (e *Engine) applyToggles(flags job.RefineFlags) job.RefineFlags {
	if !e.settings.GetBool(settings.KeyShowSize, true) {
		flags &^= job.RefineRequireSize
	}
	if !e.settings.GetBool(settings.KeyShowRatings, true) {
		flags &^= job.RefineRequireRating | job.RefineRequireReviews
	}
	return flags
}

// Refine enriches every app in list with the requested flags, recording
// non-fatal backend failures on rep. It returns an error only for hard
// infrastructure failures or cancellation; ordinary per-pair failures
// degrade gracefully.
func (e *Engine) Refine(ctx context.Context, list *app.List, flags job.RefineFlags, act job.Action, rep *event.Reporter) error {
	flags = e.applyToggles(flags)
	if flags == 0 || list == nil || list.Len() == 0 {
		return nil
	}

	apps := list.Apps()
	bindings := e.reg.ResolveRefiners(flags)

	// A later refiner may rely on attributes an earlier one set, so the
	// outer loop is over backends in dependency order, never over apps.
	for _, binding := range bindings {
		if err := ctx.Err(); err != nil {
			return errs.WithCode(err, errs.CodeCancelled)
		}
		for _, a := range apps {
			needed := pendingFlags(a, binding.Flags)
			if needed == 0 {
				metrics.RefineSkipsTotal.Inc()
				continue
			}
			if err := ctx.Err(); err != nil {
				return errs.WithCode(err, errs.CodeCancelled)
			}
			if err := binding.Refiner.Refine(ctx, a, needed); err != nil {
				if errs.IsFatal(err) {
					return errs.Wrap(err, errs.CodeOf(err), "refinement aborted")
				}
				rep.Report(event.Failure{
					Action:   act,
					Backend:  binding.Name,
					App:      a,
					Code:     errs.CodeOf(err),
					Severity: event.ClassifyNetwork(err),
					Err:      err,
				})
				continue
			}
			log.Debugw("refined app", "backend", binding.Name,
				"app", a.Key(), "flags", needed.String())
		}
	}
	return nil
}

// pendingFlags returns the subset of flags not yet satisfied on a.
func pendingFlags(a *app.App, flags job.RefineFlags) job.RefineFlags {
	var pending job.RefineFlags
	for _, f := range flags.Split() {
		check, ok := satisfied[f]
		if ok && check(a) {
			continue
		}
		pending |= f
	}
	return pending
}
