package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Success", StatusSuccess, true},
		{"success", StatusSuccess, true},
		{"  FAILED  ", StatusFailed, true},
		{"no data", StatusNoData, true},
		{"No Run", StatusNoRun, true},
		{"error", StatusError, true},
		{"Partial", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestParseExecutionTime(t *testing.T) {
	got := ParseExecutionTime("2025-03-01 06:30:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 3, 1, 6, 30, 0, 0, time.UTC), *got)

	got = ParseExecutionTime("01/03/2025 06:30")
	require.NotNil(t, got)
	assert.Equal(t, time.March, got.Month())

	assert.Nil(t, ParseExecutionTime(""))
	assert.Nil(t, ParseExecutionTime("yesterday"))
}

func TestSimplify(t *testing.T) {
	ts := time.Date(2025, 3, 1, 6, 30, 0, 0, time.UTC)
	row := TaskRow{Name: "Reload Sales", Status: "Success", LastExecution: &ts, Tags: []string{"FE_HITOS_DIARIO"}}

	got := Simplify(row)
	assert.Equal(t, "Reload Sales", got.Name)
	assert.Equal(t, "Success", got.Status)
	assert.Equal(t, "2025-03-01T06:30:00", got.LastExecution)

	bare := Simplify(TaskRow{Name: "n", Status: "Queued"})
	assert.Empty(t, bare.LastExecution)
}

func TestDisabled(t *testing.T) {
	assert.True(t, TaskRow{Enabled: EnabledNo}.Disabled())
	assert.False(t, TaskRow{Enabled: EnabledYes}.Disabled())
	assert.False(t, TaskRow{}.Disabled())
}
