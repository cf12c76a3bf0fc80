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

// Package cache provides a memoized fetch with expiry.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/backupradar/pkg/clock"
)

// FetchFunc produces a fresh value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Entry is what a caller sees: the last good value, if any, and the error
// of the most recent attempt.
type Entry[T any] struct {
	Value     T
	Valid     bool
	FetchedAt time.Time
	Err       error
}

// Stale reports whether the last attempt failed while an older value is
// still being served.
func (e *Entry[T]) Stale() bool {
	return e.Valid && e.Err != nil
}

// Memo caches the result of fetch for ttl. Fetches are serialized; callers
// arriving during a fetch wait for it and share its result. A failed fetch
// keeps the previous value and counts as an attempt, so the source is hit
// at most once per ttl unless Refresh is called.
type Memo[T any] struct {
	fetch FetchFunc[T]
	ttl   time.Duration
	clock clock.Clock

	mu          sync.Mutex
	value       T
	valid       bool
	fetchedAt   time.Time
	lastAttempt time.Time
	attempted   bool
	lastErr     error
}

// New returns a memo. A nil clock uses wall time.
func New[T any](fetch FetchFunc[T], ttl time.Duration, clk clock.Clock) *Memo[T] {
	if clk == nil {
		clk = clock.Real()
	}

	return &Memo[T]{fetch: fetch, ttl: ttl, clock: clk}
}

// Get returns the cached entry, fetching first if it has expired.
func (m *Memo[T]) Get(ctx context.Context) Entry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.attempted || m.clock.Now().Sub(m.lastAttempt) > m.ttl {
		m.load(ctx)
	}

	return m.entry()
}

// Refresh fetches unconditionally.
func (m *Memo[T]) Refresh(ctx context.Context) Entry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.load(ctx)

	return m.entry()
}

// Peek returns the cached entry without fetching.
func (m *Memo[T]) Peek() Entry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.entry()
}

// Invalidate makes the next Get fetch. The cached value is kept until
// that fetch succeeds.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempted = false
}

func (m *Memo[T]) load(ctx context.Context) {
	v, err := m.fetch(ctx)

	now := m.clock.Now()
	m.attempted = true
	m.lastAttempt = now
	m.lastErr = err

	if err != nil {
		return
	}

	m.value = v
	m.valid = true
	m.fetchedAt = now
}

func (m *Memo[T]) entry() Entry[T] {
	return Entry[T]{
		Value:     m.value,
		Valid:     m.valid,
		FetchedAt: m.fetchedAt,
		Err:       m.lastErr,
	}
}
