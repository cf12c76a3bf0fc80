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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	require.NoError(t, Init(context.Background(), config))
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "loud"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("test-component")

	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "monitor_service.log")

	zlog, err := New(context.Background(), &Config{Level: "info", Output: path})
	require.NoError(t, err)

	zlog.Info().Str("backup_dir", "/srv/backups").Msg("scan finished")
	require.NoError(t, Shutdown())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "scan finished", line["message"])
	assert.Equal(t, "/srv/backups", line["backup_dir"])
}

func TestOTelEnabledWithoutEndpointFallsBack(t *testing.T) {
	config := &Config{
		Level:  "info",
		Output: "stderr",
		OTel:   OTelConfig{Enabled: true},
	}

	_, err := New(context.Background(), config)
	require.NoError(t, err)
}

func TestNewOTelWriterValidation(t *testing.T) {
	w, err := NewOTelWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, w)

	w, err = NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, w)
}

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		level string
		want  string
	}{
		{"trace", "TRACE"},
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"fatal", "FATAL"},
		{"panic", "FATAL"},
		{"unknown", "INFO"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, severityFor(tc.level).String(), "level %s", tc.level)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghijk", 7))
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer

	l := NewWriterLogger(&buf)
	l.Info().Str("machine_id", "abc").Msg("hello")

	assert.Contains(t, buf.String(), `"machine_id":"abc"`)

	l.SetLevel(zerolog.ErrorLevel)
	buf.Reset()
	l.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "a=1, b = 2")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.Equal(t, OutputStdout, config.Output)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, config.OTel.Headers)
	assert.Equal(t, "backupradar", config.OTel.ServiceName)
}
