// Package odrs talks to an open review service over HTTP. It refines
// apps with aggregate ratings and user reviews, accepts review
// submissions, and keeps a downloaded ratings snapshot on disk so the
// common case needs no network at all. Ratings are optional enrichment:
// a missing network degrades to a warning, never a job failure.
package odrs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/errs"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/retry"
)

// Name is the backend's registry name.
const Name = "odrs"

const (
	ratingsResource = "ratings.json"
	ratingsCacheKey = "ratings"

	requestTimeout = 10 * time.Second
)

// starCounts is the per-app star histogram the service returns.
type starCounts struct {
	Star0 int `json:"star0"`
	Star1 int `json:"star1"`
	Star2 int `json:"star2"`
	Star3 int `json:"star3"`
	Star4 int `json:"star4"`
	Star5 int `json:"star5"`
	Total int `json:"total"`
}

func (s starCounts) histogram() []int {
	return []int{s.Star0, s.Star1, s.Star2, s.Star3, s.Star4, s.Star5}
}

// percentage converts the histogram into a 0-100 aggregate rating.
func (s starCounts) percentage() int {
	if s.Total <= 0 {
		return -1
	}
	sum := s.Star1 + 2*s.Star2 + 3*s.Star3 + 4*s.Star4 + 5*s.Star5
	return int(float64(sum) / float64(5*s.Total) * 100.0)
}

type wireReview struct {
	Reviewer string `json:"reviewer"`
	Summary  string `json:"summary"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Date     int64  `json:"date"` // unix seconds
}

// Backend is the review-service client.
type Backend struct {
	server string
	client *resty.Client
	blobs  *cache.BlobStore
	memo   *cache.Memo
}

// New creates the backend against the given server base URL, persisting
// its ratings snapshot in blobs.
func New(server string, blobs *cache.BlobStore) *Backend {
	client := resty.New().
		SetBaseURL(server).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")
	return &Backend{
		server: server,
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
		Actions: []job.Action{
			job.ActionSetRating, job.ActionSubmitReview, job.ActionRefresh,
		},
		Refine: job.RefineRequireRating | job.RefineRequireReviews,
	}
}

// Refresh re-downloads the ratings snapshot when it is older than
// maxCacheAge. The weekly cadence comes from the snapshot's TTL class.
func (b *Backend) Refresh(ctx context.Context, maxCacheAge time.Duration) error {
	if !b.blobs.IsStale(Name, ratingsResource, maxCacheAge) {
		return nil
	}
	data, err := b.downloadRatings(ctx)
	if err != nil {
		return err
	}
	if err := b.blobs.Write(Name, ratingsResource, data); err != nil {
		return err
	}
	b.memo.Invalidate(ratingsCacheKey)
	log.Infow("ratings snapshot refreshed", "bytes", len(data))
	return nil
}

func (b *Backend) downloadRatings(ctx context.Context) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := b.client.R().SetContext(ctx).Get("/ratings")
		if err != nil {
			return errs.Wrap(err, errs.CodeNoNetwork, "ratings download failed")
		}
		if resp.IsError() {
			return errs.Newf(errs.CodeDownloadFailed, "ratings download failed: %s", resp.Status())
		}
		body = resp.Body()
		return nil
	}, retry.WithMaxAttempts(3), retry.WithBackoff(retry.Exponential(200*time.Millisecond, 2*time.Second)),
		retry.WithRetryIf(func(err error) bool { return errs.CodeOf(err) == errs.CodeNoNetwork }))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// loadRatings returns the parsed snapshot, downloading it on first use.
// A malformed persisted snapshot is a hard infrastructure failure.
func (b *Backend) loadRatings(ctx context.Context) (map[string]starCounts, error) {
	v, err := b.memo.Do(ctx, ratingsCacheKey, cache.ClassRatings, func(ctx context.Context) (any, error) {
		data, err := b.blobs.Read(Name, ratingsResource)
		if err != nil {
			if data, err = b.downloadRatings(ctx); err != nil {
				return nil, err
			}
			if werr := b.blobs.Write(Name, ratingsResource, data); werr != nil {
				return nil, werr
			}
		}
		ratings := map[string]starCounts{}
		if err := sonic.Unmarshal(data, &ratings); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidFormat, "malformed ratings snapshot")
		}
		return ratings, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]starCounts), nil
}

// Refine fills ratings and reviews for one app.
func (b *Backend) Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error {
	if flags.Has(job.RefineRequireRating) {
		ratings, err := b.loadRatings(ctx)
		if err != nil {
			return err
		}
		if counts, ok := ratings[a.ID().Name]; ok {
			a.SetReviewRatings(counts.histogram())
			a.SetRating(counts.percentage())
		}
	}
	if flags.Has(job.RefineRequireReviews) {
		reviews, err := b.fetchReviews(ctx, a.ID().Name)
		if err != nil {
			return err
		}
		a.SetReviews(reviews)
	}
	return nil
}

// fetchReviews loads the review list for one app id; concurrent callers
// for the same app share one request.
func (b *Backend) fetchReviews(ctx context.Context, appID string) ([]app.Review, error) {
	key := fmt.Sprintf("reviews/%s", appID)
	v, err := b.memo.Do(ctx, key, cache.ClassRatings, func(ctx context.Context) (any, error) {
		resp, err := b.client.R().
			SetContext(ctx).
			SetBody(map[string]string{"app_id": appID}).
			Post("/reviews/fetch")
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeNoNetwork, "review fetch failed")
		}
		if resp.IsError() {
			return nil, errs.Newf(errs.CodeDownloadFailed, "review fetch failed: %s", resp.Status())
		}
		var wire []wireReview
		if err := sonic.Unmarshal(resp.Body(), &wire); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidFormat, "malformed review payload")
		}
		reviews := make([]app.Review, 0, len(wire))
		for _, w := range wire {
			reviews = append(reviews, app.Review{
				Reviewer: w.Reviewer,
				Summary:  w.Summary,
				Text:     w.Text,
				Rating:   w.Rating,
				Date:     time.Unix(w.Date, 0),
			})
		}
		return reviews, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]app.Review), nil
}

func (b *Backend) Execute(ctx context.Context, j *job.Job) (*app.List, error) {
	switch j.Action {
	case job.ActionSubmitReview:
		return nil, b.submitReview(ctx, j)
	case job.ActionSetRating:
		return nil, b.submitRating(ctx, j)
	case job.ActionRefresh:
		return app.NewList(), b.Refresh(ctx, j.MaxCacheAge)
	default:
		return nil, errs.Newf(errs.CodeNotSupported, "odrs cannot serve %s", j.Action)
	}
}

func (b *Backend) submitReview(ctx context.Context, j *job.Job) error {
	if j.Target == nil || j.Review == nil {
		return errs.New(errs.CodeFailed, "submit-review requires a target app and a review")
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"app_id":   j.Target.ID().Name,
			"reviewer": j.Review.Reviewer,
			"summary":  j.Review.Summary,
			"text":     j.Review.Text,
			"rating":   j.Review.Rating,
		}).
		Post("/reviews/submit")
	if err != nil {
		return errs.Wrap(err, errs.CodeNoNetwork, "review submit failed")
	}
	if resp.IsError() {
		return errs.Newf(submitErrCode(resp.StatusCode()), "review submit failed: %s", resp.Status())
	}
	b.memo.Invalidate(fmt.Sprintf("reviews/%s", j.Target.ID().Name))
	return nil
}

func (b *Backend) submitRating(ctx context.Context, j *job.Job) error {
	if j.Target == nil || j.Rating < 0 {
		return errs.New(errs.CodeFailed, "set-rating requires a target app and a rating")
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"app_id": j.Target.ID().Name,
			"rating": j.Rating,
		}).
		Post("/ratings/submit")
	if err != nil {
		return errs.Wrap(err, errs.CodeNoNetwork, "rating submit failed")
	}
	if resp.IsError() {
		return errs.Newf(submitErrCode(resp.StatusCode()), "rating submit failed: %s", resp.Status())
	}
	return nil
}

// submitErrCode maps a submission response status to a failure code.
func submitErrCode(status int) errs.Code {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errs.CodeAuthFailed
	}
	return errs.CodeFailed
}
