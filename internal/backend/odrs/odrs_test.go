package odrs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
)

const ratingsPayload = `{
  "org.gimp.GIMP": {"star0": 0, "star1": 1, "star2": 2, "star3": 3, "star4": 4, "star5": 10, "total": 20}
}`

func newTestServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var ratingsHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/ratings", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&ratingsHits, 1)
		w.Write([]byte(ratingsPayload))
	})
	mux.HandleFunc("/reviews/fetch", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"reviewer": "alice", "summary": "Great", "text": "Works well", "rating": 90, "date": 1755907200}]`))
	})
	mux.HandleFunc("/reviews/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ratings/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &ratingsHits
}

func newTestBackend(t *testing.T) (*Backend, *cache.BlobStore, *int64) {
	t.Helper()
	srv, hits := newTestServer(t)
	blobs, err := cache.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	return New(srv.URL, blobs), blobs, hits
}

func TestStarCountsPercentage(t *testing.T) {
	tests := []struct {
		name string
		s    starCounts
		want int
	}{
		{"unset", starCounts{}, -1},
		{"all five star", starCounts{Star5: 10, Total: 10}, 100},
		{"all one star", starCounts{Star1: 10, Total: 10}, 20},
		{"mixed", starCounts{Star1: 1, Star2: 2, Star3: 3, Star4: 4, Star5: 10, Total: 20}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.percentage())
		})
	}
}

func TestRefreshPersistsSnapshot(t *testing.T) {
	b, blobs, _ := newTestBackend(t)

	require.NoError(t, b.Refresh(context.Background(), time.Hour))
	assert.False(t, blobs.IsStale(Name, ratingsResource, time.Hour))

	data, err := blobs.Read(Name, ratingsResource)
	require.NoError(t, err)
	assert.JSONEq(t, ratingsPayload, string(data))
}

func TestRefreshSkipsFreshSnapshot(t *testing.T) {
	b, _, hits := newTestBackend(t)

	require.NoError(t, b.Refresh(context.Background(), time.Hour))
	require.NoError(t, b.Refresh(context.Background(), time.Hour))
	assert.Equal(t, int64(1), atomic.LoadInt64(hits), "fresh snapshot must not re-download")
}

func TestRefineFillsRatingFromSnapshot(t *testing.T) {
	b, _, _ := newTestBackend(t)

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})

	require.NoError(t, b.Refine(context.Background(), a, job.RefineRequireRating))
	assert.Equal(t, 80, a.Rating())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 10}, a.ReviewRatings())
}

func TestRefineUnknownAppLeavesRatingUnset(t *testing.T) {
	b, _, _ := newTestBackend(t)

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.unknown.App", Branch: "stable"})

	require.NoError(t, b.Refine(context.Background(), a, job.RefineRequireRating))
	assert.Equal(t, -1, a.Rating())
}

func TestRefineFetchesReviews(t *testing.T) {
	b, _, _ := newTestBackend(t)

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})

	require.NoError(t, b.Refine(context.Background(), a, job.RefineRequireReviews))
	reviews := a.Reviews()
	require.Len(t, reviews, 1)
	assert.Equal(t, "alice", reviews[0].Reviewer)
	assert.Equal(t, 90, reviews[0].Rating)
}

func TestSubmitReview(t *testing.T) {
	b, _, _ := newTestBackend(t)

	target := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})
	review := &app.Review{Reviewer: "bob", Summary: "Nice", Text: "Solid editor", Rating: 85}

	_, err := b.Execute(context.Background(),
		job.New(job.ActionSubmitReview, job.WithTarget(target), job.WithReview(review)))
	require.NoError(t, err)
}

func TestSubmitRejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ratings/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	blobs, err := cache.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	b := New(srv.URL, blobs)

	target := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})
	_, err = b.Execute(context.Background(),
		job.New(job.ActionSetRating, job.WithTarget(target), job.WithRating(50)))
	require.Error(t, err)
	assert.Equal(t, errs.CodeAuthFailed, errs.CodeOf(err))
}

func TestSubmitReviewRequiresTarget(t *testing.T) {
	b, _, _ := newTestBackend(t)
	_, err := b.Execute(context.Background(), job.New(job.ActionSubmitReview))
	require.Error(t, err)
}

func TestSetRating(t *testing.T) {
	b, _, _ := newTestBackend(t)

	target := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})

	_, err := b.Execute(context.Background(),
		job.New(job.ActionSetRating, job.WithTarget(target), job.WithRating(70)))
	require.NoError(t, err)
}

func TestMalformedSnapshotIsFatal(t *testing.T) {
	b, blobs, _ := newTestBackend(t)
	require.NoError(t, blobs.Write(Name, ratingsResource, []byte("not json")))

	a := app.New(app.ID{Scope: app.ScopeSystem, Kind: app.BundlePackage,
		Origin: "main", Name: "org.gimp.GIMP", Branch: "stable"})

	err := b.Refine(context.Background(), a, job.RefineRequireRating)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidFormat, errs.CodeOf(err))
	assert.True(t, errs.IsFatal(err))
}

func TestDownloadFailureIsWarningGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	blobs, err := cache.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	b := New(srv.URL, blobs)

	rerr := b.Refresh(context.Background(), time.Hour)
	require.Error(t, rerr)
	assert.Equal(t, errs.CodeDownloadFailed, errs.CodeOf(rerr))
	assert.False(t, errs.IsFatal(rerr))
}
