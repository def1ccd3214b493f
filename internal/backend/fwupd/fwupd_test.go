package fwupd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
)

const metadataPayload = `{
  "devices": [
    {
      "device_id": "usb-dock-1",
      "name": "USB Dock",
      "summary": "Docking station firmware",
      "vendor": "acme",
      "current_version": "1.0.0",
      "update_version": "1.2.0",
      "update_details": "Fixes display flicker",
      "size": 4096,
      "checksum": "sha256:abc",
      "needs_reboot": true
    },
    {
      "device_id": "nvme-ssd-1",
      "name": "NVMe SSD",
      "summary": "Storage firmware",
      "vendor": "acme",
      "current_version": "2.1",
      "update_version": "2.2",
      "size": 1024,
      "checksum": ""
    },
    {
      "device_id": "up-to-date-1",
      "name": "Webcam",
      "summary": "Camera firmware",
      "vendor": "acme",
      "current_version": "3.0",
      "update_version": "3.0",
      "checksum": "sha256:def"
    }
  ]
}`

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(metadataPayload))
	}))
	t.Cleanup(srv.Close)

	blobs, err := cache.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	return New(srv.URL, blobs)
}

func TestUpdatesSkipUncheckedAndCurrent(t *testing.T) {
	b := newTestBackend(t)

	list, err := b.Execute(context.Background(), job.New(job.ActionGetUpdates))
	require.NoError(t, err)
	require.Equal(t, 1, list.Len(), "missing checksum and up-to-date devices are skipped")

	dock := list.Apps()[0]
	assert.Equal(t, "usb-dock-1", dock.ID().Name)
	assert.Equal(t, app.BundleFirmware, dock.ID().Kind)
	assert.Equal(t, app.StateUpdatable, dock.State())
	assert.Equal(t, "1.2.0", dock.UpdateVersion())
}

func TestFirmwareQuirks(t *testing.T) {
	b := newTestBackend(t)

	list, err := b.Execute(context.Background(), job.New(job.ActionGetUpdates))
	require.NoError(t, err)
	dock := list.Apps()[0]

	assert.True(t, dock.HasQuirk(app.QuirkNotLaunchable))
	assert.True(t, dock.HasQuirk(app.QuirkDoNotAutoUpdate))
	assert.True(t, dock.HasQuirk(app.QuirkNeedsReboot))
	assert.Equal(t, Name, dock.ManagedBy())
}

func TestRefineFillsDetailsAndSize(t *testing.T) {
	b := newTestBackend(t)

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundleFirmware,
		Origin: "acme", Name: "usb-dock-1", Branch: "default"})

	err := b.Refine(context.Background(), a, job.RefineRequireUpdateDetails|job.RefineRequireSize)
	require.NoError(t, err)
	assert.Equal(t, "Fixes display flicker", a.UpdateDetails())
	assert.Equal(t, uint64(4096), a.DownloadSize())
}

func TestRefineIgnoresNonFirmware(t *testing.T) {
	b := newTestBackend(t)

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "usb-dock-1", Branch: "stable"})

	require.NoError(t, b.Refine(context.Background(), a, job.RefineRequireUpdateDetails))
	assert.Empty(t, a.UpdateDetails())
}

func TestRefreshFailureIsNetworkGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	blobs, err := cache.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	b := New(srv.URL, blobs)

	rerr := b.Refresh(context.Background(), time.Hour)
	require.Error(t, rerr)
	assert.Equal(t, errs.CodeDownloadFailed, errs.CodeOf(rerr))
}

func TestUnsupportedAction(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Execute(context.Background(), job.New(job.ActionSearch, job.WithQuery("dock")))
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotSupported, errs.CodeOf(err))
}
