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

// Package models holds the types shared by the reporter agent and the dashboard.
package models

import (
	"strings"
	"time"
)

// Wire literals. Existing spreadsheets already hold these values, so they
// must not change.
const (
	StatusOK    = "OK"
	StatusError = "ERRO"

	ArtifactNotFound    = "Nao encontrado"
	ArtifactTimeMissing = "N/A"

	UnknownIdentity = "HASH_DESCONHECIDO"
	UnknownName     = "unknown"

	// ArtifactTimeLayout is dd/mm/yyyy HH:MM:SS.
	ArtifactTimeLayout = "02/01/2006 15:04:05"
)

// AlertLevel is the dashboard classification of a machine.
type AlertLevel string

const (
	AlertOK       AlertLevel = "OK"
	AlertPending  AlertLevel = "PENDING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Rank orders levels by severity, most severe first.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertCritical:
		return 0
	case AlertPending:
		return 1
	case AlertOK:
		return 2
	default:
		return 0
	}
}

// ReportRecord is one row of the report log, either built by the agent
// before submission or decoded from the published spreadsheet.
// Timestamps are nil when missing or unparseable; the Raw fields keep the
// source text for display.
type ReportRecord struct {
	Row          int        `json:"row"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	SubmittedRaw string     `json:"submitted_raw,omitempty"`
	MachineID    string     `json:"machine_id"`
	Status       string     `json:"status"`
	ArtifactName string     `json:"artifact_name"`
	ArtifactTime *time.Time `json:"artifact_time,omitempty"`
	ArtifactRaw  string     `json:"artifact_raw,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
}

// Healthy reports whether the status field says OK. Surrounding whitespace
// left by spreadsheet exports is ignored.
func (r *ReportRecord) Healthy() bool {
	return IsHealthyStatus(r.Status)
}

// IsHealthyStatus reports whether a raw status value is the OK literal.
func IsHealthyStatus(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusOK)
}

// FormatArtifactTime renders an artifact timestamp for the wire, or the
// N/A sentinel when there is none.
func FormatArtifactTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ArtifactTimeMissing
	}

	return t.Format(ArtifactTimeLayout)
}

// ClientStatus is the evaluated state of one machine.
type ClientStatus struct {
	MachineID    string     `json:"machine_id"`
	DisplayName  string     `json:"display_name"`
	Status       string     `json:"status"`
	ArtifactName string     `json:"artifact_name"`
	ArtifactTime *time.Time `json:"artifact_time,omitempty"`
	ArtifactRaw  string     `json:"artifact_raw,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	Level        AlertLevel `json:"level"`
}

// ArtifactLabel is the artifact timestamp as shown to operators.
func (c *ClientStatus) ArtifactLabel() string {
	if c.ArtifactTime != nil {
		return FormatArtifactTime(c.ArtifactTime)
	}

	if c.ArtifactRaw != "" {
		return c.ArtifactRaw
	}

	return ArtifactTimeMissing
}

// Summary counts machines per alert level.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Pending  int `json:"pending"`
	Critical int `json:"critical"`
}

// Summarize counts statuses by level. Unrecognized levels count as critical.
func Summarize(statuses []ClientStatus) Summary {
	s := Summary{Total: len(statuses)}

	for i := range statuses {
		switch statuses[i].Level {
		case AlertOK:
			s.OK++
		case AlertPending:
			s.Pending++
		case AlertCritical:
			s.Critical++
		default:
			s.Critical++
		}
	}

	return s
}
