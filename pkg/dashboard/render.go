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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/carverauto/backupradar/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

const (
	shortIDLength   = 12
	submittedLayout = "02/01/2006 15:04"
	cellPadding     = 1
)

var tableHeaders = []string{"LEVEL", "CLIENT", "MACHINE ID", "STATUS", "ARTIFACT", "ARTIFACT TIME", "SUBMITTED"}

// levelColor maps an alert level to its row color.
func levelColor(level models.AlertLevel) lipgloss.Color {
	switch level {
	case models.AlertOK:
		return lipgloss.Color(draculaGreen)
	case models.AlertPending:
		return lipgloss.Color(draculaYellow)
	case models.AlertCritical:
		return lipgloss.Color(draculaRed)
	default:
		return lipgloss.Color(draculaRed)
	}
}

// ShortID abbreviates a machine hash for tables.
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}

	return id[:shortIDLength] + "…"
}

func submittedLabel(s *models.ClientStatus) string {
	if s.SubmittedAt == nil {
		return "-"
	}

	return s.SubmittedAt.Format(submittedLayout)
}

func tableRow(s *models.ClientStatus) []string {
	return []string{
		string(s.Level),
		s.DisplayName,
		ShortID(s.MachineID),
		s.Status,
		s.ArtifactName,
		s.ArtifactLabel(),
		submittedLabel(s),
	}
}

// BuildTable renders statuses, in the given order, as a table. With
// styled set, rows are colored by level.
func BuildTable(statuses []models.ClientStatus, styled bool) *table.Table {
	rows := make([][]string, 0, len(statuses))
	for i := range statuses {
		rows = append(rows, tableRow(&statuses[i]))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableHeaders...).
		Rows(rows...)

	if !styled {
		return t.StyleFunc(func(_, _ int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, cellPadding)
		})
	}

	header := lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPink)).Bold(true).Padding(0, cellPadding)
	cell := lipgloss.NewStyle().Padding(0, cellPadding)

	return t.
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPurple))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			if row < 0 || row >= len(statuses) {
				return cell
			}

			return cell.Foreground(levelColor(statuses[row].Level))
		})
}

// SummaryLine formats per-level counts.
func SummaryLine(s models.Summary) string {
	return fmt.Sprintf("Total: %d  OK: %d  PENDING: %d  CRITICAL: %d", s.Total, s.OK, s.Pending, s.Critical)
}

// StatusLine describes the freshness of v, or why there is nothing to
// show.
func StatusLine(v *View, now time.Time) string {
	switch {
	case v.Snapshot == nil && v.Err != nil:
		return fmt.Sprintf("No data: %v", v.Err)
	case v.Snapshot == nil:
		return "No data yet"
	case v.Err != nil:
		return fmt.Sprintf("Refresh failed, showing data from %s ago: %v", formatAge(v.Age(now)), v.Err)
	default:
		return fmt.Sprintf("Updated %s ago (%s policy)", formatAge(v.Age(now)), v.Snapshot.Policy)
	}
}

func formatAge(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}

	return d.Truncate(time.Second).String()
}

// RenderText writes a plain, uncolored report of v. Rows are filtered by
// query and sorted.
func RenderText(w io.Writer, v *View, query string, now time.Time) error {
	var b strings.Builder

	b.WriteString(StatusLine(v, now))
	b.WriteString("\n")

	if v.Snapshot != nil {
		b.WriteString(SummaryLine(v.Snapshot.Summary))

		if v.Snapshot.Skipped > 0 {
			fmt.Fprintf(&b, "  (skipped rows: %d)", v.Snapshot.Skipped)
		}

		b.WriteString("\n")
		b.WriteString(BuildTable(Rows(v.Snapshot.Statuses, query), false).Render())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}
