// Package report writes the end-of-session text report: the discovered
// channel map, the action history and the engine statistics. This file
// holds the reusable aligned-table infrastructure the report is built
// from.
package report

import (
	"fmt"
	"math"
	"strings"
)

// Row is a single table row: a left-aligned label plus one pre-formatted
// string per column.
type Row struct {
	Label  string
	Values []string
}

// Table formats aligned columns. Labels are left-aligned; values are
// right-aligned within their column, padded to the wider of header and
// contents.
type Table struct {
	Headers []string
	Rows    []Row
}

// AddRow appends a row with pre-formatted values.
func (t *Table) AddRow(label string, values ...string) {
	t.Rows = append(t.Rows, Row{Label: label, Values: values})
}

// String renders the table.
func (t *Table) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth := 0
	for _, row := range t.Rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
	}

	valueWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		valueWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, val := range row.Values {
			if i < len(valueWidths) && len(val) > valueWidths[i] {
				valueWidths[i] = len(val)
			}
		}
	}

	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, header := range t.Headers {
		sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], header))
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		sb.WriteString(fmt.Sprintf("%-*s  ", labelWidth, row.Label))
		for i := 0; i < len(t.Headers); i++ {
			val := missingValue
			if i < len(row.Values) && row.Values[i] != "" {
				val = row.Values[i]
			}
			sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], val))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// missingValue is the placeholder for unavailable measurements.
const missingValue = "-"

// silenceFloorDB is the dBFS level below which a meter reading is shown
// as silence rather than a number.
const silenceFloorDB = -90.0

// formatDB formats a dBFS value, collapsing silence to a floor marker.
func formatDB(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 1) {
		return missingValue
	}
	if math.IsInf(value, -1) || value <= silenceFloorDB {
		return "< -90"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetric formats a plain numeric value, with missing-value handling.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return missingValue
	}
	return fmt.Sprintf("%.*f", decimals, value)
}
