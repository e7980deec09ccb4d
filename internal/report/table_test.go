package report

import (
	"math"
	"strings"
	"testing"
)

func TestTableAlignment(t *testing.T) {
	tbl := &Table{Headers: []string{"Role", "RMS"}}
	tbl.AddRow("ch01 Kick", "Kick", "-18.0")
	tbl.AddRow("ch02 Snare Bottom", "Snare", "-20.5")

	out := tbl.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), out)
	}
	// All lines end at the same column width.
	if len(lines[1]) != len(lines[2]) {
		t.Errorf("row widths differ: %d vs %d\n%s", len(lines[1]), len(lines[2]), out)
	}
	if !strings.Contains(lines[0], "Role") || !strings.Contains(lines[0], "RMS") {
		t.Errorf("header row = %q", lines[0])
	}
}

func TestTableMissingValues(t *testing.T) {
	tbl := &Table{Headers: []string{"A", "B"}}
	tbl.AddRow("row", "x") // second column missing

	out := tbl.String()
	if !strings.Contains(out, missingValue) {
		t.Errorf("missing value not padded:\n%s", out)
	}
}

func TestEmptyTable(t *testing.T) {
	tbl := &Table{Headers: []string{"A"}}
	if got := tbl.String(); got != "" {
		t.Errorf("empty table rendered %q", got)
	}
}

func TestFormatDB(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     string
	}{
		{-18.04, 1, "-18.0"},
		{-96, 1, "< -90"},
		{math.Inf(-1), 1, "< -90"},
		{math.NaN(), 1, "-"},
		{0, 1, "0.0"},
	}
	for _, tt := range tests {
		if got := formatDB(tt.in, tt.decimals); got != tt.want {
			t.Errorf("formatDB(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMetric(t *testing.T) {
	if got := formatMetric(3.14159, 2); got != "3.14" {
		t.Errorf("formatMetric = %q", got)
	}
	if got := formatMetric(math.NaN(), 2); got != "-" {
		t.Errorf("formatMetric(NaN) = %q", got)
	}
}
