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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/models"
)

var (
	errUnparseableTimestamp = errors.New("unparseable timestamp")

	// ErrUnknownDateOrder is returned by LayoutsFor for orders other than
	// DateOrderDMY and DateOrderMDY.
	ErrUnknownDateOrder = errors.New("unknown date order")
)

// Date orders of spreadsheet exports.
const (
	DateOrderDMY = "dmy"
	DateOrderMDY = "mdy"
)

var isoLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// DefaultLayouts are tried in order. Spreadsheet exports in the deployed
// locale are day first. Single-digit days and months are accepted.
var DefaultLayouts = append([]string{
	models.ArtifactTimeLayout,
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
}, isoLayouts...)

// MonthFirstLayouts read US-locale exports such as "10/14/2026 9:05:00".
var MonthFirstLayouts = append([]string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
}, isoLayouts...)

// LayoutsFor returns the layouts for a date order. An empty order is day
// first.
func LayoutsFor(order string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", DateOrderDMY:
		return DefaultLayouts, nil
	case DateOrderMDY:
		return MonthFirstLayouts, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDateOrder, order)
	}
}

// ParseTimestamp parses value with the first matching layout in loc. An
// empty value or the N/A sentinel returns nil without an error.
func ParseTimestamp(value string, layouts []string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, models.ArtifactTimeMissing) {
		return nil, nil
	}

	if loc == nil {
		loc = time.Local
	}

	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return &t, nil
		}
	}

	return nil, errUnparseableTimestamp
}
