/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics exports dashboard state as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/backupradar/pkg/models"
)

const namespace = "backupradar"

// Recorder owns a private registry so tests and multiple dashboards do
// not collide on the global one.
type Recorder struct {
	registry    *prometheus.Registry
	clients     *prometheus.GaugeVec
	snapshotAge prometheus.Gauge
	fetchErrors prometheus.Counter
	skippedRows prometheus.Gauge

	mu        sync.Mutex
	lastFetch time.Time
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Machines in the current snapshot by alert level.",
		}, []string{"level"}),
		snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_age_seconds",
			Help:      "Seconds since the shown snapshot was fetched.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed report sheet fetches.",
		}),
		skippedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_rows",
			Help:      "Malformed rows dropped from the last fetch.",
		}),
	}

	r.registry.MustRegister(r.clients, r.snapshotAge, r.fetchErrors, r.skippedRows)

	for _, level := range []models.AlertLevel{models.AlertOK, models.AlertPending, models.AlertCritical} {
		r.clients.WithLabelValues(string(level)).Set(0)
	}

	return r
}

// Observe records a successful snapshot.
func (r *Recorder) Observe(summary models.Summary, skipped int, fetchedAt, now time.Time) {
	r.clients.WithLabelValues(string(models.AlertOK)).Set(float64(summary.OK))
	r.clients.WithLabelValues(string(models.AlertPending)).Set(float64(summary.Pending))
	r.clients.WithLabelValues(string(models.AlertCritical)).Set(float64(summary.Critical))
	r.skippedRows.Set(float64(skipped))

	r.mu.Lock()
	r.lastFetch = fetchedAt
	r.mu.Unlock()

	r.Age(now)
}

// Age updates the snapshot age gauge. Without a snapshot it stays zero.
func (r *Recorder) Age(now time.Time) {
	r.mu.Lock()
	last := r.lastFetch
	r.mu.Unlock()

	if last.IsZero() {
		return
	}

	r.snapshotAge.Set(now.Sub(last).Seconds())
}

// FetchFailed counts one failed fetch.
func (r *Recorder) FetchFailed() {
	r.fetchErrors.Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
