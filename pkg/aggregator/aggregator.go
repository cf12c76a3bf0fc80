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

package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/backupradar/pkg/clock"
	"github.com/carverauto/backupradar/pkg/freshness"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
	"github.com/carverauto/backupradar/pkg/sheet"
)

// Snapshot is one complete aggregation cycle.
type Snapshot struct {
	Statuses  []models.ClientStatus `json:"statuses"`
	Summary   models.Summary        `json:"summary"`
	Records   int                   `json:"records"`
	Skipped   int                   `json:"skipped"`
	Policy    string                `json:"policy"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// Aggregator fetches the sheet and builds snapshots.
type Aggregator struct {
	source sheet.Source
	names  NameResolver
	policy freshness.Policy
	clock  clock.Clock
	logger logger.Logger
}

// New returns an aggregator. A nil clock uses wall time.
func New(source sheet.Source, names NameResolver, policy freshness.Policy, clk clock.Clock, log logger.Logger) *Aggregator {
	if clk == nil {
		clk = clock.Real()
	}

	return &Aggregator{
		source: source,
		names:  names,
		policy: policy,
		clock:  clk,
		logger: log,
	}
}

// Build runs one fetch, reduce and classify cycle. A fetch failure
// returns no snapshot so callers keep the previous one.
func (a *Aggregator) Build(ctx context.Context) (*Snapshot, error) {
	res, err := a.source.Fetch(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to fetch report sheet")

		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	for _, rowErr := range res.Errors {
		a.logger.Warn().Err(rowErr).Msg("Skipped malformed report row")
	}

	now := a.clock.Now()
	statuses := Evaluate(res.Records, a.names, a.policy, now)

	snap := &Snapshot{
		Statuses:  statuses,
		Summary:   models.Summarize(statuses),
		Records:   len(res.Records),
		Skipped:   res.Skipped,
		Policy:    a.policy.Name(),
		FetchedAt: now,
	}

	a.logger.Info().
		Int("records", snap.Records).
		Int("skipped", snap.Skipped).
		Int("clients", snap.Summary.Total).
		Int("critical", snap.Summary.Critical).
		Int("pending", snap.Summary.Pending).
		Str("policy", snap.Policy).
		Msg("Built status snapshot")

	return snap, nil
}
