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

// Package aggregator reduces the report history to one current record per
// machine and classifies each with the configured freshness policy.
package aggregator

import (
	"sort"
	"time"

	"github.com/carverauto/backupradar/pkg/freshness"
	"github.com/carverauto/backupradar/pkg/models"
)

// NameResolver supplies display names for machine ids.
type NameResolver interface {
	Resolve(machineID string) string
}

// Reduce keeps the most recently submitted record per machine id. A valid
// submission time beats a missing one; equal times, or no valid time at
// all, fall back to the later row. The result is sorted by machine id.
func Reduce(records []models.ReportRecord) []models.ReportRecord {
	latest := make(map[string]models.ReportRecord, len(records))

	for i := range records {
		rec := records[i]

		cur, ok := latest[rec.MachineID]
		if !ok || supersedes(&rec, &cur) {
			latest[rec.MachineID] = rec
		}
	}

	out := make([]models.ReportRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MachineID < out[j].MachineID
	})

	return out
}

// supersedes reports whether candidate replaces current. Rows are compared
// with >= so that, for identical rows, the one seen last wins.
func supersedes(candidate, current *models.ReportRecord) bool {
	cs, ks := validTime(candidate.SubmittedAt), validTime(current.SubmittedAt)

	switch {
	case cs && !ks:
		return true
	case !cs && ks:
		return false
	case cs && ks && !candidate.SubmittedAt.Equal(*current.SubmittedAt):
		return candidate.SubmittedAt.After(*current.SubmittedAt)
	default:
		return candidate.Row >= current.Row
	}
}

func validTime(t *time.Time) bool {
	return t != nil && !t.IsZero()
}

// Evaluate reduces records and classifies each survivor at now. The
// record's own display name wins over the resolver.
func Evaluate(records []models.ReportRecord, names NameResolver, policy freshness.Policy, now time.Time) []models.ClientStatus {
	reduced := Reduce(records)
	out := make([]models.ClientStatus, 0, len(reduced))

	for i := range reduced {
		rec := &reduced[i]

		name := rec.DisplayName
		if name == "" && names != nil {
			name = names.Resolve(rec.MachineID)
		}

		if name == "" {
			name = models.UnknownName
		}

		out = append(out, models.ClientStatus{
			MachineID:    rec.MachineID,
			DisplayName:  name,
			Status:       rec.Status,
			ArtifactName: rec.ArtifactName,
			ArtifactTime: rec.ArtifactTime,
			ArtifactRaw:  rec.ArtifactRaw,
			SubmittedAt:  rec.SubmittedAt,
			Level:        policy.Classify(rec.Status, rec.ArtifactTime, now),
		})
	}

	return out
}
