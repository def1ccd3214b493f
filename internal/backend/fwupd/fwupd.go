// Package fwupd surfaces firmware updates from an update server.
// Firmware entries are never launchable, never auto-updated, and are
// dropped with a warning when the server provides no integrity checksum.
package fwupd

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/pkg/log"
)

// Name is the backend's registry name.
const Name = "fwupd"

const (
	metadataResource = "metadata.json"
	metadataCacheKey = "metadata"

	requestTimeout = 15 * time.Second
)

// device is one updatable device in the server metadata.
type device struct {
	DeviceID       string `json:"device_id"`
	Name           string `json:"name"`
	Summary        string `json:"summary"`
	Vendor         string `json:"vendor"`
	CurrentVersion string `json:"current_version"`
	UpdateVersion  string `json:"update_version"`
	UpdateDetails  string `json:"update_details"`
	Size           uint64 `json:"size"`
	Checksum       string `json:"checksum"`
	NeedsReboot    bool   `json:"needs_reboot"`
}

type metadata struct {
	Devices []device `json:"devices"`
}

// Backend is the firmware update client.
type Backend struct {
	client *resty.Client
	blobs  *cache.BlobStore
	memo   *cache.Memo
}

// New creates the backend against the given server base URL.
func New(server string, blobs *cache.BlobStore) *Backend {
	client := resty.New().
		SetBaseURL(server).
		SetTimeout(requestTimeout)
	return &Backend{
		client: client,
		blobs:  blobs,
		memo:   cache.NewMemo(Name),
	}
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Actions: []job.Action{job.ActionGetUpdates, job.ActionRefresh},
		Refine:  job.RefineRequireUpdateDetails | job.RefineRequireSize,
	}
}

// Refresh re-downloads the firmware metadata when it is stale.
func (b *Backend) Refresh(ctx context.Context, maxCacheAge time.Duration) error {
	if !b.blobs.IsStale(Name, metadataResource, maxCacheAge) {
		return nil
	}
	resp, err := b.client.R().SetContext(ctx).Get("/metadata")
	if err != nil {
		return errs.Wrap(err, errs.CodeNoNetwork, "firmware metadata download failed")
	}
	if resp.IsError() {
		return errs.Newf(errs.CodeDownloadFailed, "firmware metadata download failed: %s", resp.Status())
	}
	if err := b.blobs.Write(Name, metadataResource, resp.Body()); err != nil {
		return err
	}
	b.memo.Invalidate(metadataCacheKey)
	return nil
}

func (b *Backend) load(ctx context.Context) (*metadata, error) {
	v, err := b.memo.Do(ctx, metadataCacheKey, cache.ClassMetadata, func(ctx context.Context) (any, error) {
		data, err := b.blobs.Read(Name, metadataResource)
		if err != nil {
			if rerr := b.Refresh(ctx, 0); rerr != nil {
				return nil, rerr
			}
			if data, err = b.blobs.Read(Name, metadataResource); err != nil {
				return nil, err
			}
		}
		var md metadata
		if err := sonic.Unmarshal(data, &md); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidFormat, "malformed firmware metadata")
		}
		return &md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*metadata), nil
}

func (b *Backend) toApp(d device) *app.App {
	a := app.New(app.ID{
		Scope:  app.ScopeSystem,
		Kind:   app.BundleFirmware,
		Origin: d.Vendor,
		Name:   d.DeviceID,
		Branch: "default",
	})
	a.SetManagedBy(Name)
	a.AddQuirk(app.QuirkNotLaunchable | app.QuirkDoNotAutoUpdate)
	if d.NeedsReboot {
		a.AddQuirk(app.QuirkNeedsReboot)
	}
	a.SetName(app.QualityLowest, d.Name)
	a.SetSummary(app.QualityLowest, d.Summary)
	a.SetVersion(app.QualityHighest, d.CurrentVersion)
	a.SetUpdateVersion(d.UpdateVersion)
	a.SetUpdateDetails(d.UpdateDetails)
	a.SetDownloadSize(d.Size)
	a.SetState(app.StateUpdatable)
	return a
}

func (b *Backend) Execute(ctx context.Context, j *job.Job) (*app.List, error) {
	switch j.Action {
	case job.ActionGetUpdates:
		return b.updates(ctx)
	case job.ActionRefresh:
		return app.NewList(), b.Refresh(ctx, j.MaxCacheAge)
	default:
		return nil, errs.Newf(errs.CodeNotSupported, "fwupd cannot serve %s", j.Action)
	}
}

func (b *Backend) updates(ctx context.Context) (*app.List, error) {
	md, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := app.NewList()
	for _, d := range md.Devices {
		if d.UpdateVersion == "" || d.UpdateVersion == d.CurrentVersion {
			continue
		}
		if d.Checksum == "" {
			// no integrity data, never offer the update
			log.Warnw("firmware update has no checksum, skipping",
				"device", d.DeviceID, "version", d.UpdateVersion,
				"code", errs.CodeNoSecurity.String())
			continue
		}
		out.Add(b.toApp(d))
	}
	return out, nil
}

// Refine fills update details and sizes for firmware apps.
func (b *Backend) Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error {
	if a.ID().Kind != app.BundleFirmware {
		return nil
	}
	md, err := b.load(ctx)
	if err != nil {
		return err
	}
	for _, d := range md.Devices {
		if d.DeviceID != a.ID().Name {
			continue
		}
		if flags.Has(job.RefineRequireUpdateDetails) {
			a.SetUpdateDetails(d.UpdateDetails)
		}
		if flags.Has(job.RefineRequireSize) {
			a.SetDownloadSize(d.Size)
		}
		return nil
	}
	return nil
}
