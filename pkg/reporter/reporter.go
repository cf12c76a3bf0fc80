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

// Package reporter runs the agent pipeline: identify the machine, find
// the newest backup artifact, build one report record and submit it.
// Every stage degrades to a safe default; a run never fails.
package reporter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/backupradar/pkg/identity"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
	"github.com/carverauto/backupradar/pkg/scanner"
	"github.com/carverauto/backupradar/pkg/transport"
)

// ArtifactFinder locates the newest backup artifact in a directory.
type ArtifactFinder interface {
	Latest(dir string) (*scanner.Artifact, error)
}

// RunResult describes one pipeline run. The error fields record what was
// degraded; they are informational.
type RunResult struct {
	RunID       string
	Record      models.ReportRecord
	Artifact    *scanner.Artifact
	IdentityErr error
	ScanErr     error
	SubmitErr   error
	Duration    time.Duration
}

// Submitted reports whether the endpoint accepted the record.
func (r *RunResult) Submitted() bool {
	return r.SubmitErr == nil
}

type Reporter struct {
	config   *Config
	identity identity.Provider
	finder   ArtifactFinder
	sender   transport.Transport
	logger   logger.Logger
	newRunID func() string
}

// New wires a reporter. A nil finder scans with config.SearchTerm.
func New(config *Config, id identity.Provider, finder ArtifactFinder, sender transport.Transport, log logger.Logger) *Reporter {
	if finder == nil {
		finder = scanner.New(config.SearchTerm)
	}

	return &Reporter{
		config:   config,
		identity: id,
		finder:   finder,
		sender:   sender,
		logger:   log,
		newRunID: uuid.NewString,
	}
}

// Run executes one identify, scan, build and submit cycle.
func (r *Reporter) Run(ctx context.Context) RunResult {
	start := time.Now()
	res := RunResult{RunID: r.newRunID()}

	machineID, err := r.identify(ctx)
	res.IdentityErr = err

	log := r.logger.With().Str("run_id", res.RunID).Str("machine_id", machineID).Logger()

	if err != nil {
		log.Warn().Err(err).Msg("Machine identity unavailable, reporting with sentinel")
	}

	res.Artifact, res.ScanErr = r.finder.Latest(r.config.BackupDir)

	switch {
	case errors.Is(res.ScanErr, scanner.ErrDirectoryNotFound):
		log.Error().Err(res.ScanErr).Str("backup_dir", r.config.BackupDir).Msg("Backup directory not found")
	case res.ScanErr != nil:
		log.Error().Err(res.ScanErr).Str("backup_dir", r.config.BackupDir).Msg("Backup directory scan failed")
	case res.Artifact == nil:
		log.Warn().Str("backup_dir", r.config.BackupDir).Str("search_term", r.config.SearchTerm).Msg("No backup artifact found")
	default:
		log.Info().
			Str("artifact", res.Artifact.Name).
			Time("artifact_time", res.Artifact.CreatedAt).
			Msg("Latest backup artifact found")
	}

	res.Record = BuildRecord(machineID, res.Artifact)

	res.SubmitErr = r.sender.Submit(ctx, res.Record)
	if res.SubmitErr != nil {
		log.Error().Err(res.SubmitErr).Str("status", res.Record.Status).Msg("Report submission failed")
	} else {
		log.Info().Str("status", res.Record.Status).Str("artifact", res.Record.ArtifactName).Msg("Report submitted")
	}

	res.Duration = time.Since(start)

	return res
}

func (r *Reporter) identify(ctx context.Context) (string, error) {
	id, err := r.identity.ID(ctx)
	if err != nil {
		return models.UnknownIdentity, err
	}

	if id == "" {
		return models.UnknownIdentity, identity.ErrIdentityUnavailable
	}

	return id, nil
}

// BuildRecord turns a scan outcome into the record to submit. A nil
// artifact yields the ERRO status with the not-found sentinels.
func BuildRecord(machineID string, artifact *scanner.Artifact) models.ReportRecord {
	if artifact == nil {
		return models.ReportRecord{
			MachineID:    machineID,
			Status:       models.StatusError,
			ArtifactName: models.ArtifactNotFound,
		}
	}

	created := artifact.CreatedAt

	return models.ReportRecord{
		MachineID:    machineID,
		Status:       models.StatusOK,
		ArtifactName: artifact.Name,
		ArtifactTime: &created,
	}
}
