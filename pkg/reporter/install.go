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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carverauto/backupradar/pkg/transport"
)

const configFilePerms = 0o600

var (
	// ErrNotADirectory is returned by CleanBackupDir for paths that are
	// missing or not directories.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIncompleteConfig is returned by WriteInstall when the merged
	// config would not pass Validate. Nothing is written in that case.
	ErrIncompleteConfig = errors.New("incomplete agent config")
)

// InstallSettings are the values an operator supplies at install time.
// Blank values keep whatever the existing config holds.
type InstallSettings struct {
	BackupDir  string
	FormURL    string
	FormFields transport.FormFields
}

// Merge fills blank values in s from base.
func (s InstallSettings) Merge(base InstallSettings) InstallSettings {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}

		return v
	}

	return InstallSettings{
		BackupDir: pick(s.BackupDir, base.BackupDir),
		FormURL:   pick(s.FormURL, base.FormURL),
		FormFields: transport.FormFields{
			Hash:          pick(s.FormFields.Hash, base.FormFields.Hash),
			Status:        pick(s.FormFields.Status, base.FormFields.Status),
			Filename:      pick(s.FormFields.Filename, base.FormFields.Filename),
			FileTimestamp: pick(s.FormFields.FileTimestamp, base.FormFields.FileTimestamp),
		},
	}
}

// CleanBackupDir normalizes an operator-entered path, dropping
// surrounding whitespace and quotes, and checks that it is a directory.
func CleanBackupDir(input string) (string, error) {
	dir := strings.TrimSpace(strings.ReplaceAll(input, `"`, ""))
	if dir == "" {
		return "", errBackupDirRequired
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	return dir, nil
}

// ReadInstalled returns the install settings already present in the
// config at path, or in the legacy config next to it when path does not
// exist yet. No config at all yields zero settings.
func ReadInstalled(path string) (InstallSettings, error) {
	doc, err := readConfigDoc(path)
	if err != nil {
		return InstallSettings{}, err
	}

	return settingsFromDoc(doc)
}

// WriteInstall merges s into the JSON config at path, keeping any other
// keys already present, and writes it with owner-only permissions. When
// path does not exist yet, a legacy config next to it is used as the
// starting point. The result must be a config the agent can run with.
func WriteInstall(path string, s InstallSettings) error {
	doc, err := readConfigDoc(path)
	if err != nil {
		return err
	}

	existing, err := settingsFromDoc(doc)
	if err != nil {
		return err
	}

	merged := s.Merge(existing)

	if err := setKey(doc, "backup_dir", merged.BackupDir); err != nil {
		return err
	}

	if err := setKey(doc, "form_url", merged.FormURL); err != nil {
		return err
	}

	if err := setKey(doc, "form_fields", merged.FormFields); err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	var check Config
	if err := json.Unmarshal(out, &check); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := check.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrIncompleteConfig, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), configFilePerms); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// readConfigDoc loads the config at path as a raw key map, falling back to
// the legacy file in the same directory. Neither existing yields an empty
// map.
func readConfigDoc(path string) (map[string]json.RawMessage, error) {
	doc := map[string]json.RawMessage{}

	for _, candidate := range []string{path, LegacyConfigPath(path)} {
		if candidate == "" {
			continue
		}

		data, err := os.ReadFile(candidate)

		switch {
		case err == nil:
			if len(strings.TrimSpace(string(data))) > 0 {
				if err := json.Unmarshal(data, &doc); err != nil {
					return nil, fmt.Errorf("existing config %s: %w", candidate, err)
				}
			}

			return doc, nil
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return doc, nil
}

func settingsFromDoc(doc map[string]json.RawMessage) (InstallSettings, error) {
	if len(doc) == 0 {
		return InstallSettings{}, nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return InstallSettings{}, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return InstallSettings{}, fmt.Errorf("existing config: %w", err)
	}

	return InstallSettings{
		BackupDir:  cfg.BackupDir,
		FormURL:    cfg.FormURL,
		FormFields: cfg.FormFields,
	}, nil
}

// setKey replaces every case-insensitive spelling of key with value.
func setKey(doc map[string]json.RawMessage, key string, value any) error {
	for existing := range doc {
		if strings.EqualFold(existing, key) {
			delete(doc, existing)
		}
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	doc[key] = encoded

	return nil
}
