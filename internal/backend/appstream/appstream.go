// Package appstream serves catalog metadata from a DEP-11 style YAML
// file. It is the highest-quality source for display attributes (name,
// summary, description, icon) and feeds the search, popular and featured
// views. It never owns installation state.
package appstream

import (
	"context"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
)

// Name is the backend's registry name.
const Name = "appstream"

const catalogCacheKey = "catalog"

// component is one catalog entry.
type component struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Origin      string   `json:"origin"`
	Categories  []string `json:"categories"`
	Provides    []string `json:"provides"`
	Featured    bool     `json:"featured"`
	Popular     bool     `json:"popular"`
}

type catalog struct {
	Components []component `json:"components"`
}

// Backend serves the catalog file at a fixed path.
type Backend struct {
	path string
	memo *cache.Memo
}

// New creates the backend over the catalog file at path.
func New(path string) *Backend {
	return &Backend{
		path: path,
		memo: cache.NewMemo(Name),
	}
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Actions: []job.Action{
			job.ActionSearch, job.ActionGetPopular, job.ActionGetFeatured,
			job.ActionRefresh,
		},
		Refine: job.RefineRequireName | job.RefineRequireDescription |
			job.RefineRequireIcon | job.RefineRequireRelated,
	}
}

// Setup parses the catalog once so a malformed file is a startup error.
func (b *Backend) Setup(ctx context.Context) error {
	_, err := b.load(ctx)
	return err
}

func (b *Backend) load(ctx context.Context) (*catalog, error) {
	v, err := b.memo.Do(ctx, catalogCacheKey, cache.ClassMetadata, func(ctx context.Context) (any, error) {
		data, err := os.ReadFile(b.path)
		if err != nil {
			if os.IsNotExist(err) {
				return &catalog{}, nil
			}
			return nil, errs.Wrap(err, errs.CodeFailed, "failed to read appstream catalog")
		}
		var c catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidFormat, "malformed appstream catalog")
		}
		return &c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog), nil
}

func (b *Backend) toApp(c component) *app.App {
	a := app.New(app.ID{
		Scope:  app.ScopeSystem,
		Kind:   app.BundlePackage,
		Origin: c.Origin,
		Name:   c.ID,
		Branch: "stable",
	})
	b.fill(a, c, ^job.RefineFlags(0))
	return a
}

func (b *Backend) fill(a *app.App, c component, flags job.RefineFlags) {
	if flags.Has(job.RefineRequireName) {
		a.SetName(app.QualityHighest, c.Name)
		a.SetSummary(app.QualityHighest, c.Summary)
	}
	if flags.Has(job.RefineRequireDescription) {
		a.SetDescription(app.QualityHighest, c.Description)
	}
	if flags.Has(job.RefineRequireIcon) {
		a.SetIcon(app.QualityHighest, c.Icon)
	}
	if flags.Has(job.RefineRequireRelated) {
		for _, p := range c.Provides {
			a.AddProvidedID(p)
		}
	}
}

func (b *Backend) Execute(ctx context.Context, j *job.Job) (*app.List, error) {
	switch j.Action {
	case job.ActionSearch:
		return b.collect(ctx, func(c component) bool { return matches(c, j.Query) })
	case job.ActionGetPopular:
		return b.collect(ctx, func(c component) bool { return c.Popular })
	case job.ActionGetFeatured:
		return b.collect(ctx, func(c component) bool { return c.Featured })
	case job.ActionRefresh:
		b.memo.InvalidateAll()
		return app.NewList(), nil
	default:
		return nil, errs.Newf(errs.CodeNotSupported, "appstream cannot serve %s", j.Action)
	}
}

func (b *Backend) collect(ctx context.Context, keep func(component) bool) (*app.List, error) {
	c, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := app.NewList()
	for _, comp := range c.Components {
		if keep(comp) {
			out.Add(b.toApp(comp))
		}
	}
	return out, nil
}

func matches(c component, query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(c.ID), q) ||
		strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Summary), q) {
		return true
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, query) {
			return true
		}
	}
	return false
}

// Refine improves display attributes for any app the catalog knows,
// matched by component id against the app's identity name or its
// provided identifiers.
func (b *Backend) Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error {
	c, err := b.load(ctx)
	if err != nil {
		return err
	}
	names := append([]string{a.ID().Name}, a.ProvidedIDs()...)
	for _, comp := range c.Components {
		for _, n := range names {
			if comp.ID == n || contains(comp.Provides, n) {
				b.fill(a, comp, flags)
				return nil
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
