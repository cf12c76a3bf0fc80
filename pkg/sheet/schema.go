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

// Package sheet decodes the published report spreadsheet. Columns are
// mapped by position through an explicit schema; missing trailing
// columns take their fallback and extra columns are ignored.
package sheet

// Field names one column of the report log.
type Field int

const (
	FieldSubmittedAt Field = iota
	FieldMachineID
	FieldStatus
	FieldArtifactName
	FieldArtifactTime
	FieldDisplayName
)

var fieldNames = map[Field]string{
	FieldSubmittedAt:  "submitted_at",
	FieldMachineID:    "machine_id",
	FieldStatus:       "status",
	FieldArtifactName: "artifact_name",
	FieldArtifactTime: "artifact_time",
	FieldDisplayName:  "display_name",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}

	return "unknown"
}

// Column binds a field to a position. Fallback is used when the row is
// shorter than the column's position.
type Column struct {
	Field    Field
	Fallback string
}

// Schema is the ordered list of expected columns.
type Schema []Column

// DefaultSchema is the column order written by the report form: submission
// timestamp, machine id, status, artifact name, artifact timestamp and an
// optional display name.
func DefaultSchema() Schema {
	return Schema{
		{Field: FieldSubmittedAt},
		{Field: FieldMachineID},
		{Field: FieldStatus},
		{Field: FieldArtifactName},
		{Field: FieldArtifactTime},
		{Field: FieldDisplayName},
	}
}

// Map fills every schema field from row by position. It never fails on a
// column count mismatch.
func (s Schema) Map(row []string) map[Field]string {
	out := make(map[Field]string, len(s))

	for i, col := range s {
		if i < len(row) {
			out[col.Field] = row[i]

			continue
		}

		out[col.Field] = col.Fallback
	}

	return out
}
