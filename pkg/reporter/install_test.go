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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/backupradar/pkg/transport"
)

func testFormFields() transport.FormFields {
	return transport.FormFields{
		Hash:          "entry.1",
		Status:        "entry.2",
		Filename:      "entry.3",
		FileTimestamp: "entry.4",
	}
}

func readDoc(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))

	return doc
}

func TestCleanBackupDir(t *testing.T) {
	dir := t.TempDir()

	got, err := CleanBackupDir(`  "` + dir + `"  `)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "dump.sql")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err = CleanBackupDir(file)
	require.ErrorIs(t, err, ErrNotADirectory)

	_, err = CleanBackupDir(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrNotADirectory)

	_, err = CleanBackupDir(" ")
	require.ErrorIs(t, err, errBackupDirRequired)
}

func TestInstallSettingsMerge(t *testing.T) {
	base := InstallSettings{BackupDir: "/old", FormURL: "https://old.example.test", FormFields: testFormFields()}

	got := InstallSettings{BackupDir: "/new", FormFields: transport.FormFields{Status: "entry.9"}}.Merge(base)

	assert.Equal(t, "/new", got.BackupDir)
	assert.Equal(t, "https://old.example.test", got.FormURL)
	assert.Equal(t, "entry.1", got.FormFields.Hash)
	assert.Equal(t, "entry.9", got.FormFields.Status)
}

func TestWriteInstallCreatesRunnableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ConfigFileName)

	require.NoError(t, WriteInstall(path, InstallSettings{
		BackupDir:  `D:\Backups`,
		FormURL:    "https://forms.example.test/formResponse",
		FormFields: testFormFields(),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, `D:\Backups`, cfg.BackupDir)
	assert.Equal(t, "https://forms.example.test/formResponse", cfg.FormURL)
	assert.Equal(t, testFormFields(), cfg.FormFields)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteInstallRejectsIncompleteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	err := WriteInstall(path, InstallSettings{BackupDir: "/srv/backups"})
	require.ErrorIs(t, err, ErrIncompleteConfig)
	require.ErrorIs(t, err, errFormURLRequired)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteInstallMergesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"BACKUP_DIR":"C:\\old","form_url":"https://forms.example.test","form_fields":{"hash":"entry.1","status":"entry.2","filename":"entry.3","file_timestamp":"entry.4"},"check_interval":"30m"}`), 0o600))

	require.NoError(t, WriteInstall(path, InstallSettings{BackupDir: "/srv/new"}))

	doc := readDoc(t, path)
	assert.NotContains(t, doc, "BACKUP_DIR")
	assert.JSONEq(t, `"/srv/new"`, string(doc["backup_dir"]))
	assert.JSONEq(t, `"https://forms.example.test"`, string(doc["form_url"]))
	assert.JSONEq(t, `{"hash":"entry.1","status":"entry.2","filename":"entry.3","file_timestamp":"entry.4"}`, string(doc["form_fields"]))
	assert.JSONEq(t, `"30m"`, string(doc["check_interval"]))
}

func TestWriteInstallMigratesLegacyConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyConfigFileName), []byte(`{"BACKUP_DIR": "C:\\Backups"}`), 0o600))

	path := filepath.Join(dir, ConfigFileName)

	installed, err := ReadInstalled(path)
	require.NoError(t, err)
	assert.Equal(t, `C:\Backups`, installed.BackupDir)

	require.NoError(t, WriteInstall(path, InstallSettings{
		FormURL:    "https://forms.example.test",
		FormFields: testFormFields(),
	}))

	doc := readDoc(t, path)
	assert.JSONEq(t, `"C:\\Backups"`, string(doc["backup_dir"]))
	assert.NotContains(t, doc, "BACKUP_DIR")
}

func TestWriteInstallRejectsCorruptConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"backup_dir":`), 0o600))

	require.Error(t, WriteInstall(path, InstallSettings{BackupDir: "/srv"}))
}

func TestReadInstalledWithoutConfig(t *testing.T) {
	got, err := ReadInstalled(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, InstallSettings{}, got)
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	legacy := filepath.Join(dir, LegacyConfigFileName)

	assert.Equal(t, path, ResolveConfigPath(path))

	require.NoError(t, os.WriteFile(legacy, []byte(`{"BACKUP_DIR":"/srv"}`), 0o600))
	assert.Equal(t, legacy, ResolveConfigPath(path))

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	assert.Equal(t, path, ResolveConfigPath(path))

	custom := filepath.Join(dir, "custom.json")
	assert.Equal(t, custom, ResolveConfigPath(custom))
	assert.Empty(t, LegacyConfigPath(custom))
}
