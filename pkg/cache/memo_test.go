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

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/backupradar/pkg/clock"
)

var errUpstream = errors.New("upstream down")

type counter struct {
	calls atomic.Int32
	err   atomic.Pointer[error]
}

func (c *counter) fetch(context.Context) (int, error) {
	n := c.calls.Add(1)

	if p := c.err.Load(); p != nil && *p != nil {
		return 0, *p
	}

	return int(n), nil
}

func (c *counter) fail(err error) {
	c.err.Store(&err)
}

func TestMemoExpiry(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, time.June, 11, 9, 0, 0, 0, time.UTC))
	c := &counter{}
	m := New(c.fetch, 5*time.Minute, clk)

	e := m.Get(context.Background())
	require.NoError(t, e.Err)
	assert.Equal(t, 1, e.Value)
	assert.True(t, e.Valid)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, m.Get(context.Background()).Value, "ttl boundary is inclusive")

	clk.Advance(time.Second)
	assert.Equal(t, 2, m.Get(context.Background()).Value)
	assert.Equal(t, clk.Now(), m.Peek().FetchedAt)
}

func TestMemoRefreshAndInvalidate(t *testing.T) {
	c := &counter{}
	m := New(c.fetch, time.Hour, clock.NewFixed(time.Now()))

	assert.Equal(t, 1, m.Get(context.Background()).Value)
	assert.Equal(t, 2, m.Refresh(context.Background()).Value)

	m.Invalidate()
	assert.Equal(t, 2, m.Peek().Value)
	assert.Equal(t, 3, m.Get(context.Background()).Value)
	assert.EqualValues(t, 3, c.calls.Load())
}

func TestMemoKeepsLastGoodValueOnError(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, time.June, 11, 9, 0, 0, 0, time.UTC))
	c := &counter{}
	m := New(c.fetch, time.Minute, clk)

	good := m.Get(context.Background())
	require.NoError(t, good.Err)

	c.fail(errUpstream)
	clk.Advance(2 * time.Minute)

	e := m.Get(context.Background())
	require.ErrorIs(t, e.Err, errUpstream)
	assert.True(t, e.Stale())
	assert.Equal(t, 1, e.Value)
	assert.Equal(t, good.FetchedAt, e.FetchedAt)

	// The failed attempt counts toward the ttl.
	m.Get(context.Background())
	assert.EqualValues(t, 2, c.calls.Load())

	c.fail(nil)
	e = m.Refresh(context.Background())
	require.NoError(t, e.Err)
	assert.False(t, e.Stale())
	assert.Equal(t, 3, e.Value)
}

func TestMemoErrorWithoutValue(t *testing.T) {
	c := &counter{}
	c.fail(errUpstream)

	e := New(c.fetch, time.Minute, nil).Get(context.Background())
	require.ErrorIs(t, e.Err, errUpstream)
	assert.False(t, e.Valid)
	assert.False(t, e.Stale())
	assert.Zero(t, e.Value)
}

func TestMemoSerializesFetches(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	fetch := func(context.Context) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}

		time.Sleep(time.Millisecond)

		return "ok", nil
	}

	m := New(fetch, 0, nil)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			m.Refresh(context.Background())
		}()
	}

	wg.Wait()
	assert.EqualValues(t, 1, maxInFlight.Load())
}
