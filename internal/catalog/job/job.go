// Package job defines the immutable value object submitted to the
// dispatcher: one logical request made of an action, refinement flags and
// an optional target.
package job

import (
	"time"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/pkg/id"
)

// Action is the operation a job asks the backends to perform.
type Action int

const (
	ActionUnknown Action = iota
	ActionGetInstalled
	ActionGetUpdates
	ActionGetPopular
	ActionGetFeatured
	ActionSearch
	ActionRefresh
	ActionRefine
	ActionFileToApp
	ActionInstall
	ActionRemove
	ActionSetRating
	ActionSubmitReview
)

func (a Action) String() string {
	switch a {
	case ActionGetInstalled:
		return "get-installed"
	case ActionGetUpdates:
		return "get-updates"
	case ActionGetPopular:
		return "get-popular"
	case ActionGetFeatured:
		return "get-featured"
	case ActionSearch:
		return "search"
	case ActionRefresh:
		return "refresh"
	case ActionRefine:
		return "refine"
	case ActionFileToApp:
		return "file-to-app"
	case ActionInstall:
		return "install"
	case ActionRemove:
		return "remove"
	case ActionSetRating:
		return "set-rating"
	case ActionSubmitReview:
		return "submit-review"
	default:
		return "unknown"
	}
}

// RequiresOwner reports whether the action must be served by the single
// backend that manages the target app, making that backend's failure the
// job's failure.
func (a Action) RequiresOwner() bool {
	switch a {
	case ActionInstall, ActionRemove, ActionSetRating, ActionSubmitReview:
		return true
	default:
		return false
	}
}

// DedupeFlags tune merge behavior for one job.
type DedupeFlags uint32

const (
	// DedupeDefault merges by full identity key.
	DedupeDefault DedupeFlags = 0
)

// Job is one logical request. It is immutable once built; the dispatcher
// never writes to it.
type Job struct {
	ID          string
	Action      Action
	Refine      RefineFlags
	Dedupe      DedupeFlags
	Target      *app.App
	TargetList  *app.List
	Query       string // search text or file path, depending on action
	Review      *app.Review
	Rating      int
	MaxCacheAge time.Duration // refresh: tolerate caches younger than this
	SubmittedAt time.Time
}

// Option configures a Job at construction time.
type Option func(*Job)

// WithRefine requests additional attribute flags.
func WithRefine(flags RefineFlags) Option {
	return func(j *Job) { j.Refine |= flags }
}

// WithTarget sets the single app the job operates on.
func WithTarget(a *app.App) Option {
	return func(j *Job) { j.Target = a }
}

// WithTargetList sets the app list the job operates on.
func WithTargetList(l *app.List) Option {
	return func(j *Job) { j.TargetList = l }
}

// WithQuery sets the search text or file path.
func WithQuery(q string) Option {
	return func(j *Job) { j.Query = q }
}

// WithReview attaches a review for ActionSubmitReview.
func WithReview(r *app.Review) Option {
	return func(j *Job) { j.Review = r }
}

// WithRating attaches a rating for ActionSetRating.
func WithRating(rating int) Option {
	return func(j *Job) { j.Rating = rating }
}

// WithMaxCacheAge sets the cache staleness tolerance for ActionRefresh.
func WithMaxCacheAge(age time.Duration) Option {
	return func(j *Job) { j.MaxCacheAge = age }
}

// New builds an immutable Job.
func New(action Action, opts ...Option) *Job {
	j := &Job{
		ID:          id.GetUUID(),
		Action:      action,
		Rating:      -1,
		SubmittedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}
