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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
	"github.com/carverauto/backupradar/pkg/scanner"
	"github.com/carverauto/backupradar/pkg/transport"
)

var (
	errBackupDirRequired = errors.New("backup_dir is required")
	errFormURLRequired   = errors.New("form_url is required")
	errInvalidInterval   = errors.New("check_interval must be positive")
)

const (
	// ConfigFileName is looked up next to the agent executable.
	ConfigFileName = "backupradar-agent.json"
	// LegacyConfigFileName is the config written by earlier installers. It
	// only holds BACKUP_DIR.
	LegacyConfigFileName = "monitor_config.json"
	// LogFileName is the default agent log, next to the executable.
	LogFileName = "monitor_service.log"

	defaultCheckInterval = time.Hour
)

// Config represents agent configuration. The JSON key backup_dir also
// matches the legacy BACKUP_DIR spelling, since encoding/json matches
// keys case-insensitively.
type Config struct {
	BackupDir     string               `json:"backup_dir" yaml:"backup_dir"`
	SearchTerm    string               `json:"search_term,omitempty" yaml:"search_term,omitempty"`
	FormURL       string               `json:"form_url" yaml:"form_url"`
	FormFields    transport.FormFields `json:"form_fields" yaml:"form_fields"`
	SubmitTimeout models.Duration      `json:"submit_timeout,omitempty" yaml:"submit_timeout,omitempty"`
	CheckInterval models.Duration      `json:"check_interval,omitempty" yaml:"check_interval,omitempty"`
	Logging       *logger.Config       `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Validate implements config.Validator interface.
func (c *Config) Validate() error {
	c.BackupDir = strings.TrimSpace(c.BackupDir)
	if c.BackupDir == "" {
		return errBackupDirRequired
	}

	if strings.TrimSpace(c.FormURL) == "" {
		return errFormURLRequired
	}

	if err := c.FormFields.Validate(); err != nil {
		return fmt.Errorf("form_fields: %w", err)
	}

	if c.SearchTerm == "" {
		c.SearchTerm = scanner.DefaultSearchTerm
	}

	if time.Duration(c.SubmitTimeout) == 0 {
		c.SubmitTimeout = models.Duration(transport.DefaultSubmitTimeout)
	}

	if time.Duration(c.CheckInterval) == 0 {
		c.CheckInterval = models.Duration(defaultCheckInterval)
	}

	if time.Duration(c.CheckInterval) < 0 {
		return errInvalidInterval
	}

	return nil
}

// ExecutableDir returns the directory holding the running binary, or the
// working directory when it cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe)
}

// DefaultConfigPath is the agent config file next to the executable.
func DefaultConfigPath() string {
	return filepath.Join(ExecutableDir(), ConfigFileName)
}

// LegacyConfigPath is the legacy config file next to path, or "" when path
// does not use the default file name.
func LegacyConfigPath(path string) string {
	if filepath.Base(path) != ConfigFileName {
		return ""
	}

	return filepath.Join(filepath.Dir(path), LegacyConfigFileName)
}

// ResolveConfigPath returns path, or the legacy config next to it when
// path does not exist and the legacy file does.
func ResolveConfigPath(path string) string {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return path
	}

	legacy := LegacyConfigPath(path)
	if legacy == "" {
		return path
	}

	if _, err := os.Stat(legacy); err != nil {
		return path
	}

	return legacy
}

// DefaultLogPath is the agent log file next to the executable.
func DefaultLogPath() string {
	return filepath.Join(ExecutableDir(), LogFileName)
}
