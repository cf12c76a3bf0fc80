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

package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/freshness"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
	"github.com/carverauto/backupradar/pkg/notify"
	"github.com/carverauto/backupradar/pkg/sheet"
)

const (
	// ConfigFileName is the default dashboard config path.
	ConfigFileName = "backupradar-dashboard.json"

	defaultRefreshInterval = 5 * time.Minute
)

var (
	errCSVURLRequired   = errors.New("csv_url is required")
	errInvalidRefresh   = errors.New("refresh_interval must be positive")
	errInvalidTimezone  = errors.New("invalid timezone")
	errInvalidLayoutSet = errors.New("timestamp_layouts must not contain empty entries")
)

// Config represents dashboard configuration.
type Config struct {
	CSVURL           string            `json:"csv_url" yaml:"csv_url"`
	HasHeader        *bool             `json:"has_header,omitempty" yaml:"has_header,omitempty"`
	RefreshInterval  models.Duration   `json:"refresh_interval,omitempty" yaml:"refresh_interval,omitempty"`
	FetchTimeout     models.Duration   `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
	Policy           string            `json:"policy,omitempty" yaml:"policy,omitempty"`
	RollingWindow    models.Duration   `json:"rolling_window,omitempty" yaml:"rolling_window,omitempty"`
	Timezone         string            `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	DateOrder        string            `json:"date_order,omitempty" yaml:"date_order,omitempty"`
	TimestampLayouts []string          `json:"timestamp_layouts,omitempty" yaml:"timestamp_layouts,omitempty"`
	NamesFile        string            `json:"names_file,omitempty" yaml:"names_file,omitempty"`
	Names            map[string]string `json:"names,omitempty" yaml:"names,omitempty"`
	ListenAddr       string            `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	NATSURL          string            `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	AlertSubject     string            `json:"alert_subject,omitempty" yaml:"alert_subject,omitempty"`
	Logging          *logger.Config    `json:"logging,omitempty" yaml:"logging,omitempty"`

	location *time.Location
}

// Validate implements config.Validator interface.
func (c *Config) Validate() error {
	c.CSVURL = strings.TrimSpace(c.CSVURL)
	if c.CSVURL == "" {
		return errCSVURLRequired
	}

	if c.HasHeader == nil {
		header := true
		c.HasHeader = &header
	}

	if time.Duration(c.RefreshInterval) == 0 {
		c.RefreshInterval = models.Duration(defaultRefreshInterval)
	}

	if time.Duration(c.RefreshInterval) < 0 {
		return errInvalidRefresh
	}

	if time.Duration(c.FetchTimeout) <= 0 {
		c.FetchTimeout = models.Duration(sheet.DefaultFetchTimeout)
	}

	c.Policy = strings.ToLower(strings.TrimSpace(c.Policy))
	if c.Policy == "" {
		c.Policy = freshness.PolicyCalendar
	}

	if c.Policy != freshness.PolicyCalendar && c.Policy != freshness.PolicyRolling {
		return fmt.Errorf("%w: %q", freshness.ErrUnknownPolicy, c.Policy)
	}

	if time.Duration(c.RollingWindow) <= 0 {
		c.RollingWindow = models.Duration(freshness.DefaultWindow)
	}

	c.location = time.Local

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("%w %q: %w", errInvalidTimezone, c.Timezone, err)
		}

		c.location = loc
	}

	c.DateOrder = strings.ToLower(strings.TrimSpace(c.DateOrder))
	if c.DateOrder == "" {
		c.DateOrder = sheet.DateOrderDMY
	}

	if _, err := sheet.LayoutsFor(c.DateOrder); err != nil {
		return err
	}

	for _, layout := range c.TimestampLayouts {
		if strings.TrimSpace(layout) == "" {
			return errInvalidLayoutSet
		}
	}

	if c.AlertSubject == "" {
		c.AlertSubject = notify.DefaultSubjectPrefix
	}

	return nil
}

// Location is the zone used for parsing and calendar dates.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}

	return c.location
}

// Layouts returns the configured timestamp layouts, or the set for
// DateOrder when none are listed.
func (c *Config) Layouts() []string {
	if len(c.TimestampLayouts) > 0 {
		return c.TimestampLayouts
	}

	layouts, err := sheet.LayoutsFor(c.DateOrder)
	if err != nil {
		return sheet.DefaultLayouts
	}

	return layouts
}
