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

// Package freshness classifies a machine's latest report into an alert
// level. A deployment picks one policy and applies it to every record.
package freshness

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/models"
)

const (
	PolicyCalendar = "calendar"
	PolicyRolling  = "rolling"

	// DefaultWindow is the rolling policy's freshness window.
	DefaultWindow = 24 * time.Hour
)

// ErrUnknownPolicy is returned by New for names other than calendar and
// rolling.
var ErrUnknownPolicy = errors.New("unknown freshness policy")

// Policy is a pure function of status, artifact time and evaluation
// instant.
type Policy interface {
	Name() string
	Classify(status string, artifact *time.Time, now time.Time) models.AlertLevel
}

// New builds the named policy. An empty name selects the calendar
// policy. loc is used by the calendar policy to derive today and
// yesterday; nil means time.Local.
func New(name string, window time.Duration, loc *time.Location) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyCalendar:
		return &Calendar{Location: loc}, nil
	case PolicyRolling:
		return &Rolling{Window: window}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Calendar compares calendar dates. An artifact dated today, or later, is
// OK; one dated yesterday is PENDING; anything older is CRITICAL.
type Calendar struct {
	Location *time.Location
}

func (*Calendar) Name() string {
	return PolicyCalendar
}

func (c *Calendar) Classify(status string, artifact *time.Time, now time.Time) models.AlertLevel {
	if !models.IsHealthyStatus(status) || artifact == nil || artifact.IsZero() {
		return models.AlertCritical
	}

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}

	today := midnight(now.In(loc))
	yesterday := today.AddDate(0, 0, -1)
	day := midnight(artifact.In(loc))

	switch {
	case !day.Before(today):
		return models.AlertOK
	case day.Equal(yesterday):
		return models.AlertPending
	default:
		return models.AlertCritical
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Rolling is OK when the artifact is newer than now minus Window and
// CRITICAL otherwise. It has no PENDING tier.
type Rolling struct {
	Window time.Duration
}

func (*Rolling) Name() string {
	return PolicyRolling
}

func (r *Rolling) Classify(status string, artifact *time.Time, now time.Time) models.AlertLevel {
	if !models.IsHealthyStatus(status) || artifact == nil || artifact.IsZero() {
		return models.AlertCritical
	}

	window := r.Window
	if window <= 0 {
		window = DefaultWindow
	}

	if artifact.After(now.Add(-window)) {
		return models.AlertOK
	}

	return models.AlertCritical
}
