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

// Package dashboard presents aggregated backup status as a terminal UI, an
// HTTP view or a plain-text table.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/backupradar/pkg/aggregator"
	"github.com/carverauto/backupradar/pkg/cache"
	"github.com/carverauto/backupradar/pkg/clock"
	"github.com/carverauto/backupradar/pkg/freshness"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/metrics"
	"github.com/carverauto/backupradar/pkg/names"
	"github.com/carverauto/backupradar/pkg/notify"
	"github.com/carverauto/backupradar/pkg/sheet"
)

//go:generate mockgen -destination=mock_dashboard.go -package=dashboard github.com/carverauto/backupradar/pkg/dashboard SnapshotBuilder

// SnapshotBuilder runs one aggregation cycle.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*aggregator.Snapshot, error)
}

// Viewer is what the presentation layers read.
type Viewer interface {
	Current(ctx context.Context) View
	Refresh(ctx context.Context) View
}

// View is the snapshot to show plus the outcome of the latest fetch. A
// nil Snapshot with an Err means nothing has ever been fetched.
type View struct {
	Snapshot  *aggregator.Snapshot
	Err       error
	FetchedAt time.Time
	Stale     bool
}

// Age is how old the shown snapshot is at now.
func (v *View) Age(now time.Time) time.Duration {
	if v.Snapshot == nil {
		return 0
	}

	return now.Sub(v.FetchedAt)
}

// Service caches snapshots and feeds metrics and notifications after each
// successful build.
type Service struct {
	memo     *cache.Memo[*aggregator.Snapshot]
	builder  SnapshotBuilder
	metrics  *metrics.Recorder
	notifier *notify.Notifier
	clock    clock.Clock
	logger   logger.Logger
	closers  []func()
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics records every build on r.
func WithMetrics(r *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.metrics = r }
}

// WithNotifier publishes level transitions after every build.
func WithNotifier(n *notify.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the clock used for expiry and ages.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

func NewService(builder SnapshotBuilder, ttl time.Duration, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		builder: builder,
		clock:   clock.Real(),
		logger:  log,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}

	s.memo = cache.New(s.build, ttl, s.clock)

	return s
}

func (s *Service) build(ctx context.Context) (*aggregator.Snapshot, error) {
	snap, err := s.builder.Build(ctx)
	if err != nil {
		s.metrics.FetchFailed()

		return nil, err
	}

	s.metrics.Observe(snap.Summary, snap.Skipped, snap.FetchedAt, s.clock.Now())

	if s.notifier != nil {
		s.notifier.Observe(snap.Statuses, snap.FetchedAt)
	}

	return snap, nil
}

// Current returns the cached view, refetching if it has expired.
func (s *Service) Current(ctx context.Context) View {
	return s.view(s.memo.Get(ctx))
}

// Refresh drops the cache and fetches now.
func (s *Service) Refresh(ctx context.Context) View {
	s.logger.Info().Msg("Manual refresh requested")

	return s.view(s.memo.Refresh(ctx))
}

// Metrics exposes the recorder for the HTTP view.
func (s *Service) Metrics() *metrics.Recorder {
	return s.metrics
}

// Close releases connections opened by NewFromConfig.
func (s *Service) Close() {
	for _, c := range s.closers {
		c()
	}

	s.closers = nil
}

func (s *Service) view(e cache.Entry[*aggregator.Snapshot]) View {
	s.metrics.Age(s.clock.Now())

	v := View{Err: e.Err, Stale: e.Stale()}
	if e.Valid {
		v.Snapshot = e.Value
		v.FetchedAt = e.FetchedAt
	}

	return v
}

// NewFromConfig assembles the sheet source, name resolver, policy,
// aggregator and optional NATS notifier described by cfg. cfg must have
// been validated. A NATS connection failure disables notifications and
// is logged.
func NewFromConfig(cfg *Config, log logger.Logger) (*Service, error) {
	decoder := sheet.NewDecoder(cfg.Location())
	decoder.HasHeader = cfg.HasHeader == nil || *cfg.HasHeader
	decoder.Layouts = cfg.Layouts()

	source, err := sheet.NewSource(cfg.CSVURL, decoder, time.Duration(cfg.FetchTimeout))
	if err != nil {
		return nil, fmt.Errorf("sheet source: %w", err)
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := freshness.New(cfg.Policy, time.Duration(cfg.RollingWindow), cfg.Location())
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(source, resolver, policy, nil, log)

	var (
		opts []ServiceOption
		nc   *nats.Conn
	)

	if cfg.NATSURL != "" {
		nc, err = notify.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Warn().Err(err).Str("nats_url", cfg.NATSURL).Msg("Alert notifications disabled")
		} else {
			opts = append(opts, WithNotifier(notify.NewNotifier(nc, cfg.AlertSubject, log)))
		}
	}

	svc := NewService(agg, time.Duration(cfg.RefreshInterval), log, opts...)

	if nc != nil {
		svc.closers = append(svc.closers, func() { notify.Close(nc) })
	}

	log.Info().
		Str("policy", policy.Name()).
		Dur("refresh_interval", time.Duration(cfg.RefreshInterval)).
		Bool("names_configured", resolver.Configured()).
		Bool("notifications", nc != nil).
		Msg("Dashboard initialized")

	return svc, nil
}

func newResolver(cfg *Config) (*names.Resolver, error) {
	var sources []names.Lookup

	if cfg.NamesFile != "" {
		table, err := names.LoadFile(cfg.NamesFile)
		if err != nil {
			return nil, fmt.Errorf("names file: %w", err)
		}

		sources = append(sources, table)
	}

	if len(cfg.Names) > 0 {
		sources = append(sources, names.Table(cfg.Names))
	}

	return names.NewResolver(sources...), nil
}
