// Package pkgdb is the authoritative local package backend. It reads and
// mutates a JSON package database on disk and owns install/remove for the
// apps it manages. Installation state and versions from this backend are
// highest quality; display metadata is normal quality so the catalog
// backend can improve it.
package pkgdb

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/pkg/log"
)

// Name is the backend's registry name; apps managed here carry it in
// their ManagedBy attribute.
const Name = "pkgdb"

const dbCacheKey = "db"

// record is one package in the database file.
type record struct {
	Name          string `json:"name"`
	Origin        string `json:"origin"`
	Version       string `json:"version"`
	Summary       string `json:"summary"`
	Installed     bool   `json:"installed"`
	UpdateVersion string `json:"update_version,omitempty"`
	InstalledSize uint64 `json:"installed_size,omitempty"`
	DownloadSize  uint64 `json:"download_size,omitempty"`
	Compulsory    bool   `json:"compulsory,omitempty"`
}

type database struct {
	Packages []record `json:"packages"`
}

func (db *database) clone() *database {
	out := &database{Packages: make([]record, len(db.Packages))}
	copy(out.Packages, db.Packages)
	return out
}

// Backend serves the local package database.
type Backend struct {
	path string

	mu   sync.Mutex // serializes database mutations
	memo *cache.Memo

	// installDelay simulates the package manager doing real work, with a
	// cancellation point; zero in tests.
	installDelay time.Duration
}

// Option configures the backend.
type Option func(*Backend)

// WithInstallDelay simulates the package manager taking time per
// install/remove, adding a cancellation point.
func WithInstallDelay(d time.Duration) Option {
	return func(b *Backend) { b.installDelay = d }
}

// New creates the backend over the database file at path.
func New(path string, opts ...Option) *Backend {
	b := &Backend{
		path: path,
		memo: cache.NewMemo(Name),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Actions: []job.Action{
			job.ActionGetInstalled, job.ActionGetUpdates, job.ActionSearch,
			job.ActionInstall, job.ActionRemove, job.ActionRefresh,
			job.ActionFileToApp,
		},
		Refine: job.RefineRequireVersion | job.RefineRequireSize | job.RefineRequireID,
	}
}

// Setup verifies the database file parses so a corrupt installation fails
// at startup, not mid-job.
func (b *Backend) Setup(ctx context.Context) error {
	_, err := b.load(ctx)
	return err
}

func (b *Backend) load(ctx context.Context) (*database, error) {
	v, err := b.memo.Do(ctx, dbCacheKey, cache.ClassDefault, func(ctx context.Context) (any, error) {
		data, err := os.ReadFile(b.path)
		if err != nil {
			if os.IsNotExist(err) {
				return &database{}, nil
			}
			return nil, errs.Wrap(err, errs.CodeFailed, "failed to read package db")
		}
		var db database
		if err := sonic.Unmarshal(data, &db); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidFormat, "malformed package db")
		}
		return &db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*database), nil
}

func (b *Backend) save(db *database) error {
	data, err := sonic.MarshalIndent(db, "", "  ")
	if err != nil {
		return errs.Wrap(err, errs.CodeFailed, "failed to encode package db")
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeWriteFailed, "failed to write package db")
	}
	b.memo.Invalidate(dbCacheKey)
	return nil
}

// toApp converts a database record into the shared app record.
func (b *Backend) toApp(r record) *app.App {
	a := app.New(app.ID{
		Scope:  app.ScopeSystem,
		Kind:   app.BundlePackage,
		Origin: r.Origin,
		Name:   r.Name,
		Branch: "stable",
	})
	a.SetManagedBy(Name)
	a.SetName(app.QualityNormal, r.Name)
	a.SetSummary(app.QualityNormal, r.Summary)
	a.SetVersion(app.QualityHighest, r.Version)
	a.SetInstalledSize(r.InstalledSize)
	a.SetDownloadSize(r.DownloadSize)
	if r.Compulsory {
		a.AddQuirk(app.QuirkCompulsory)
	}
	switch {
	case r.Installed && r.UpdateVersion != "":
		a.SetState(app.StateUpdatable)
		a.SetUpdateVersion(r.UpdateVersion)
	case r.Installed:
		a.SetState(app.StateInstalled)
	default:
		a.SetState(app.StateAvailable)
	}
	return a
}

func (b *Backend) Execute(ctx context.Context, j *job.Job) (*app.List, error) {
	switch j.Action {
	case job.ActionGetInstalled:
		return b.collect(ctx, func(r record) bool { return r.Installed })
	case job.ActionGetUpdates:
		return b.collect(ctx, func(r record) bool { return r.Installed && r.UpdateVersion != "" })
	case job.ActionSearch:
		q := strings.ToLower(j.Query)
		return b.collect(ctx, func(r record) bool {
			return strings.Contains(strings.ToLower(r.Name), q) ||
				strings.Contains(strings.ToLower(r.Summary), q)
		})
	case job.ActionFileToApp:
		return b.fileToApp(ctx, j.Query)
	case job.ActionInstall:
		return nil, b.setInstalled(ctx, j, true)
	case job.ActionRemove:
		return nil, b.setInstalled(ctx, j, false)
	case job.ActionRefresh:
		b.memo.InvalidateAll()
		return app.NewList(), nil
	default:
		return nil, errs.Newf(errs.CodeNotSupported, "pkgdb cannot serve %s", j.Action)
	}
}

func (b *Backend) collect(ctx context.Context, keep func(record) bool) (*app.List, error) {
	db, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := app.NewList()
	for _, r := range db.Packages {
		if keep(r) {
			out.Add(b.toApp(r))
		}
	}
	return out, nil
}

// fileToApp maps a local package file path onto a catalog entry by its
// basename, the way a file-open handler asks "what app is this file?".
func (b *Backend) fileToApp(ctx context.Context, path string) (*app.List, error) {
	base := strings.TrimSuffix(strings.ToLower(trimDirs(path)), ".pkg")
	db, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := app.NewList()
	for _, r := range db.Packages {
		if strings.ToLower(r.Name) == base {
			out.Add(b.toApp(r))
			return out, nil
		}
	}
	return out, nil
}

func trimDirs(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// setInstalled flips the installed flag for the job's target and persists
// the database. The dispatcher drives the app's state machine; this only
// mutates local state.
func (b *Backend) setInstalled(ctx context.Context, j *job.Job, installed bool) error {
	if j.Target == nil {
		return errs.New(errs.CodeFailed, "install/remove requires a target app")
	}
	if !installed && j.Target.HasQuirk(app.QuirkCompulsory) {
		return errs.Newf(errs.CodeNotSupported, "%s is compulsory and cannot be removed", j.Target.Key())
	}

	if b.installDelay > 0 {
		select {
		case <-time.After(b.installDelay):
		case <-ctx.Done():
			return errs.WithCode(ctx.Err(), errs.CodeCancelled)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.load(ctx)
	if err != nil {
		return err
	}
	// mutate a copy so a failed persist never leaves the cached db out
	// of step with the file on disk
	name := j.Target.ID().Name
	for i := range db.Packages {
		if db.Packages[i].Name == name {
			next := db.clone()
			next.Packages[i].Installed = installed
			if installed {
				next.Packages[i].UpdateVersion = ""
			}
			if err := b.save(next); err != nil {
				return err
			}
			log.Infow("package db updated", "package", name, "installed", installed)
			return nil
		}
	}
	return errs.Newf(errs.CodeFailed, "package %q not present in db", name)
}

// Refine fills versions and sizes for apps this backend manages.
func (b *Backend) Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error {
	if a.ManagedBy() != Name {
		return nil
	}
	db, err := b.load(ctx)
	if err != nil {
		return err
	}
	name := a.ID().Name
	for _, r := range db.Packages {
		if r.Name != name {
			continue
		}
		if flags.Has(job.RefineRequireVersion) {
			a.SetVersion(app.QualityHighest, r.Version)
		}
		if flags&job.RefineRequireSize != 0 {
			a.SetInstalledSize(r.InstalledSize)
			a.SetDownloadSize(r.DownloadSize)
		}
		return nil
	}
	return nil
}
