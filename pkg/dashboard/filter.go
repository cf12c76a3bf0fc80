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

package dashboard

import (
	"sort"
	"strings"

	"github.com/carverauto/backupradar/pkg/models"
)

// Filter keeps statuses whose display name or machine id contains query,
// ignoring case. An empty query keeps everything.
func Filter(statuses []models.ClientStatus, query string) []models.ClientStatus {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return statuses
	}

	out := make([]models.ClientStatus, 0, len(statuses))

	for i := range statuses {
		s := &statuses[i]
		if strings.Contains(strings.ToLower(s.DisplayName), query) ||
			strings.Contains(strings.ToLower(s.MachineID), query) {
			out = append(out, *s)
		}
	}

	return out
}

// Sort orders statuses most severe first, then by display name and id.
// It sorts a copy.
func Sort(statuses []models.ClientStatus) []models.ClientStatus {
	out := append([]models.ClientStatus(nil), statuses...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]

		if ra, rb := a.Level.Rank(), b.Level.Rank(); ra != rb {
			return ra < rb
		}

		if na, nb := strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName); na != nb {
			return na < nb
		}

		return a.MachineID < b.MachineID
	})

	return out
}

// Rows filters then sorts.
func Rows(statuses []models.ClientStatus, query string) []models.ClientStatus {
	return Sort(Filter(statuses, query))
}
