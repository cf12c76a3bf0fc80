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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/backupradar/pkg/models"
)

func TestRecorderObserve(t *testing.T) {
	r := NewRecorder()
	fetched := time.Date(2024, time.June, 11, 9, 0, 0, 0, time.UTC)

	r.Observe(models.Summary{Total: 6, OK: 3, Pending: 1, Critical: 2}, 4, fetched, fetched.Add(90*time.Second))

	assert.InDelta(t, 3, testutil.ToFloat64(r.clients.WithLabelValues("OK")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.clients.WithLabelValues("PENDING")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.clients.WithLabelValues("CRITICAL")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(r.skippedRows), 0)
	assert.InDelta(t, 90, testutil.ToFloat64(r.snapshotAge), 0.001)

	r.Age(fetched.Add(10 * time.Minute))
	assert.InDelta(t, 600, testutil.ToFloat64(r.snapshotAge), 0.001)
}

func TestRecorderFetchFailed(t *testing.T) {
	r := NewRecorder()

	r.Age(time.Now())
	assert.Zero(t, testutil.ToFloat64(r.snapshotAge))

	r.FetchFailed()
	r.FetchFailed()
	assert.InDelta(t, 2, testutil.ToFloat64(r.fetchErrors), 0)
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	r.FetchFailed()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "backupradar_fetch_errors_total 1")
	assert.Contains(t, body, `backupradar_clients{level="CRITICAL"} 0`)

	count, err := testutil.GatherAndCount(r.Registry())
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.True(t, strings.Contains(body, "backupradar_snapshot_age_seconds"))
}
