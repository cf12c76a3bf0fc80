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

package reporter

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/backupradar/pkg/clock"
	"github.com/carverauto/backupradar/pkg/logger"
)

// Loop reruns the reporter on a fixed interval. It implements
// lifecycle.Service. Runs never overlap.
type Loop struct {
	reporter *Reporter
	interval time.Duration
	clock    clock.Clock
	logger   logger.Logger

	done      chan struct{}
	closeOnce sync.Once

	// OnRun, when set, receives every result. Used by tests.
	OnRun func(RunResult)
}

// NewLoop returns a loop. A nil clock uses wall time.
func NewLoop(r *Reporter, interval time.Duration, clk clock.Clock, log logger.Logger) *Loop {
	if clk == nil {
		clk = clock.Real()
	}

	return &Loop{
		reporter: r,
		interval: interval,
		clock:    clk,
		logger:   log,
		done:     make(chan struct{}),
	}
}

// Start runs immediately, then once per tick until ctx is done or Stop
// is called.
func (l *Loop) Start(ctx context.Context) error {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	l.logger.Info().Dur("interval", l.interval).Msg("Starting report loop")

	l.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-ticker.Chan():
			l.runOnce(ctx)
		}
	}
}

// Stop implements the lifecycle.Service interface.
func (l *Loop) Stop(context.Context) error {
	l.closeOnce.Do(func() { close(l.done) })

	return nil
}

func (l *Loop) runOnce(ctx context.Context) {
	res := l.reporter.Run(ctx)

	l.logger.Debug().
		Str("run_id", res.RunID).
		Bool("submitted", res.Submitted()).
		Dur("took", res.Duration).
		Msg("Report run finished")

	if l.OnRun != nil {
		l.OnRun(res)
	}
}
