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

package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/models"
)

var (
	// ErrMalformedRecord marks a row that could not be used.
	ErrMalformedRecord = errors.New("malformed record")

	errMissingMachineID = errors.New("missing machine id")
)

// RowError describes one skipped row. Row is 1-based and counts the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result is a decoded sheet.
type Result struct {
	Records []models.ReportRecord
	Skipped int
	Errors  []error
}

// Decoder reads report rows from CSV.
type Decoder struct {
	Schema    Schema
	HasHeader bool
	Location  *time.Location
	Layouts   []string
}

// NewDecoder returns a decoder with the default schema that expects a
// header row.
func NewDecoder(loc *time.Location) *Decoder {
	return &Decoder{
		Schema:    DefaultSchema(),
		HasHeader: true,
		Location:  loc,
		Layouts:   DefaultLayouts,
	}
}

// Decode reads every row. Malformed rows are skipped and counted; only
// an unreadable stream is an error.
func (d *Decoder) Decode(r io.Reader) (*Result, error) {
	schema := d.Schema
	if len(schema) == 0 {
		schema = DefaultSchema()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &Result{}
	row := 0
	headerPending := d.HasHeader

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		row++

		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("read sheet: %w", err)
			}

			if headerPending {
				headerPending = false

				continue
			}

			res.skip(row, fmt.Errorf("%w: %w", ErrMalformedRecord, err))

			continue
		}

		if headerPending {
			headerPending = false

			continue
		}

		if isBlank(fields) {
			continue
		}

		record, err := d.record(schema, row, fields)
		if err != nil {
			res.skip(row, err)

			continue
		}

		res.Records = append(res.Records, record)
	}

	return res, nil
}

func (d *Decoder) record(schema Schema, row int, fields []string) (models.ReportRecord, error) {
	values := schema.Map(fields)

	rec := models.ReportRecord{
		Row:          row,
		SubmittedRaw: strings.TrimSpace(values[FieldSubmittedAt]),
		MachineID:    strings.TrimSpace(values[FieldMachineID]),
		Status:       strings.TrimSpace(values[FieldStatus]),
		ArtifactName: strings.TrimSpace(values[FieldArtifactName]),
		ArtifactRaw:  strings.TrimSpace(values[FieldArtifactTime]),
		DisplayName:  strings.TrimSpace(values[FieldDisplayName]),
	}

	if rec.MachineID == "" {
		return rec, fmt.Errorf("%w: %w", ErrMalformedRecord, errMissingMachineID)
	}

	// Unparseable timestamps stay nil. The reducer and the policies decide
	// what a missing value means.
	rec.SubmittedAt, _ = ParseTimestamp(rec.SubmittedRaw, d.Layouts, d.Location)
	rec.ArtifactTime, _ = ParseTimestamp(rec.ArtifactRaw, d.Layouts, d.Location)

	return rec, nil
}

func (r *Result) skip(row int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, &RowError{Row: row, Err: err})
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}
