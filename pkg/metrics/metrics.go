// Copyright 2026 Appdex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JobsTotal counts submitted jobs by action and terminal status.
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appdex_jobs_total",
			Help: "Total number of dispatched jobs",
		},
		[]string{"action", "status"},
	)

	// JobDurationSeconds measures end-to-end job duration.
	JobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appdex_job_duration_seconds",
			Help:    "Duration of dispatched jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"action"},
	)

	// BackendFailuresTotal counts non-fatal and fatal backend failures.
	BackendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appdex_backend_failures_total",
			Help: "Total number of per-backend failures",
		},
		[]string{"backend", "code"},
	)

	// CacheLookupsTotal counts result cache lookups by outcome.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appdex_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"namespace", "outcome"},
	)

	// RefineSkipsTotal counts refine flag+app pairs satisfied without backend work.
	RefineSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appdex_refine_skips_total",
			Help: "Total number of refine pairs already satisfied locally",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the given registerer. It is safe
// to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			JobsTotal,
			JobDurationSeconds,
			BackendFailuresTotal,
			CacheLookupsTotal,
			RefineSkipsTotal,
		)
	})
}
