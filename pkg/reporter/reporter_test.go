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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/backupradar/pkg/clock"
	"github.com/carverauto/backupradar/pkg/identity"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
	"github.com/carverauto/backupradar/pkg/scanner"
	"github.com/carverauto/backupradar/pkg/transport"
)

var (
	errNoWMI        = errors.New("wmi unavailable")
	errPermission   = errors.New("permission denied")
	errFormRejected = &transport.TransportError{Op: "submit", StatusCode: 500, Err: errors.New("server error")}
)

type fakeFinder struct {
	artifact *scanner.Artifact
	err      error
	dirs     []string
}

func (f *fakeFinder) Latest(dir string) (*scanner.Artifact, error) {
	f.dirs = append(f.dirs, dir)

	return f.artifact, f.err
}

func testConfig() *Config {
	return &Config{
		BackupDir:  "/srv/backups",
		SearchTerm: "dump",
		FormURL:    "https://forms.example.test/formResponse",
		FormFields: transport.FormFields{
			Hash:          "entry.1",
			Status:        "entry.2",
			Filename:      "entry.3",
			FileTimestamp: "entry.4",
		},
	}
}

func newTestReporter(t *testing.T, finder ArtifactFinder) (*Reporter, *identity.MockProvider, *transport.MockTransport) {
	t.Helper()

	ctrl := gomock.NewController(t)
	id := identity.NewMockProvider(ctrl)
	tr := transport.NewMockTransport(ctrl)

	r := New(testConfig(), id, finder, tr, logger.NewTestLogger())
	r.newRunID = func() string { return "run-1" }

	return r, id, tr
}

func TestRunSubmitsLatestArtifact(t *testing.T) {
	created := time.Date(2024, time.June, 10, 3, 0, 0, 0, time.Local)
	finder := &fakeFinder{artifact: &scanner.Artifact{Name: "nightly_dump.sql", CreatedAt: created}}

	r, id, tr := newTestReporter(t, finder)

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.ReportRecord) error {
		assert.Equal(t, "abc123", rec.MachineID)
		assert.Equal(t, models.StatusOK, rec.Status)
		assert.Equal(t, "nightly_dump.sql", rec.ArtifactName)
		require.NotNil(t, rec.ArtifactTime)
		assert.True(t, created.Equal(*rec.ArtifactTime))
		assert.Nil(t, rec.SubmittedAt)

		return nil
	})

	res := r.Run(context.Background())

	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Submitted())
	require.NoError(t, res.IdentityErr)
	require.NoError(t, res.ScanErr)
	assert.Equal(t, []string{"/srv/backups"}, finder.dirs)
}

// The directory is missing and the identity is known.
func TestRunMissingDirectory(t *testing.T) {
	finder := &fakeFinder{err: fmt.Errorf("%w: /srv/backups", scanner.ErrDirectoryNotFound)}
	r, id, tr := newTestReporter(t, finder)

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), models.ReportRecord{
		MachineID:    "abc123",
		Status:       "ERRO",
		ArtifactName: "Nao encontrado",
	}).Return(nil)

	res := r.Run(context.Background())

	require.ErrorIs(t, res.ScanErr, scanner.ErrDirectoryNotFound)
	assert.True(t, res.Submitted())
	assert.Equal(t, "N/A", models.FormatArtifactTime(res.Record.ArtifactTime))
}

func TestRunNoMatchingArtifact(t *testing.T) {
	r, id, tr := newTestReporter(t, &fakeFinder{})

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)

	res := r.Run(context.Background())

	require.NoError(t, res.ScanErr)
	assert.Equal(t, models.StatusError, res.Record.Status)
	assert.Equal(t, models.ArtifactNotFound, res.Record.ArtifactName)
}

func TestRunOtherScanError(t *testing.T) {
	r, id, tr := newTestReporter(t, &fakeFinder{err: errPermission})

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)

	res := r.Run(context.Background())

	require.ErrorIs(t, res.ScanErr, errPermission)
	assert.Equal(t, models.StatusError, res.Record.Status)
}

func TestRunIdentityFailureUsesSentinel(t *testing.T) {
	finder := &fakeFinder{artifact: &scanner.Artifact{Name: "dump.bak", CreatedAt: time.Now()}}
	r, id, tr := newTestReporter(t, finder)

	id.EXPECT().ID(gomock.Any()).Return("", errNoWMI)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.ReportRecord) error {
		assert.Equal(t, models.UnknownIdentity, rec.MachineID)

		return nil
	})

	res := r.Run(context.Background())

	require.ErrorIs(t, res.IdentityErr, errNoWMI)
	assert.True(t, res.Submitted())
}

func TestRunEmptyIdentityUsesSentinel(t *testing.T) {
	r, id, tr := newTestReporter(t, &fakeFinder{})

	id.EXPECT().ID(gomock.Any()).Return("", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)

	res := r.Run(context.Background())

	require.ErrorIs(t, res.IdentityErr, identity.ErrIdentityUnavailable)
	assert.Equal(t, models.UnknownIdentity, res.Record.MachineID)
}

// Submission failures are swallowed; the run still completes.
func TestRunSubmitFailureIsSwallowed(t *testing.T) {
	r, id, tr := newTestReporter(t, &fakeFinder{})

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(errFormRejected).Times(1)

	res := r.Run(context.Background())

	assert.False(t, res.Submitted())
	assert.True(t, transport.IsTransportError(res.SubmitErr))
}

func TestRunWithRealScanner(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "erp_DUMP_01.sql"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	ctrl := gomock.NewController(t)
	id := identity.NewMockProvider(ctrl)
	tr := transport.NewMockTransport(ctrl)

	cfg := testConfig()
	cfg.BackupDir = dir

	r := New(cfg, id, nil, tr, logger.NewTestLogger())

	id.EXPECT().ID(gomock.Any()).Return("abc123", nil)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)

	res := r.Run(context.Background())

	require.NotNil(t, res.Artifact)
	assert.Equal(t, "erp_DUMP_01.sql", res.Record.ArtifactName)
	assert.NotEmpty(t, res.RunID)
}

func TestLoopRunsImmediatelyAndOnTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClock := clock.NewMockClock(ctrl)
	mockTicker := clock.NewMockTicker(ctrl)
	ticks := make(chan time.Time)

	mockClock.EXPECT().Ticker(time.Hour).Return(mockTicker)
	mockTicker.EXPECT().Chan().Return((<-chan time.Time)(ticks)).AnyTimes()
	mockTicker.EXPECT().Stop()

	r, id, tr := newTestReporter(t, &fakeFinder{})
	id.EXPECT().ID(gomock.Any()).Return("abc123", nil).Times(2)
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	runs := make(chan RunResult, 2)
	loop := NewLoop(r, time.Hour, mockClock, logger.NewTestLogger())
	loop.OnRun = func(res RunResult) { runs <- res }

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- loop.Start(ctx) }()

	<-runs

	ticks <- time.Now()

	<-runs

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoopStop(t *testing.T) {
	r, id, tr := newTestReporter(t, &fakeFinder{})
	id.EXPECT().ID(gomock.Any()).Return("abc123", nil).AnyTimes()
	tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	loop := NewLoop(r, time.Hour, clock.NewFixed(time.Now()), logger.NewTestLogger())
	errCh := make(chan error, 1)

	go func() { errCh <- loop.Start(context.Background()) }()

	require.NoError(t, loop.Stop(context.Background()))
	require.NoError(t, loop.Stop(context.Background()))
	require.NoError(t, <-errCh)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	cfg.SearchTerm = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dump", cfg.SearchTerm)
	assert.Equal(t, models.Duration(20*time.Second), cfg.SubmitTimeout)
	assert.Equal(t, models.Duration(time.Hour), cfg.CheckInterval)

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no dir", func(c *Config) { c.BackupDir = "  " }, errBackupDirRequired},
		{"no url", func(c *Config) { c.FormURL = "" }, errFormURLRequired},
		{"negative interval", func(c *Config) { c.CheckInterval = models.Duration(-time.Second) }, errInvalidInterval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testConfig()
			tc.mutate(c)
			require.ErrorIs(t, c.Validate(), tc.want)
		})
	}

	c := testConfig()
	c.FormFields.Hash = ""
	require.Error(t, c.Validate())
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, ConfigFileName, filepath.Base(DefaultConfigPath()))
	assert.Equal(t, LogFileName, filepath.Base(DefaultLogPath()))
}
