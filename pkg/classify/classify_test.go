package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KevinLopezPastor/qmc-agent/pkg/classify"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

func row(name, status string) models.TaskRow {
	return models.TaskRow{Name: name, Status: status, Enabled: models.EnabledYes}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		rows           []models.TaskRow
		expectedStatus models.Status
		expectedFailed []string
	}{
		{
			name:           "empty input is No Data",
			rows:           nil,
			expectedStatus: models.StatusNoData,
		},
		{
			name: "all disabled is No Run",
			rows: []models.TaskRow{
				{Name: "t1", Status: "Success", Enabled: models.EnabledNo},
				{Name: "t2", Status: "Failed", Enabled: models.EnabledNo},
			},
			expectedStatus: models.StatusNoRun,
		},
		{
			name: "all success",
			rows: []models.TaskRow{
				row("t1", "Success"),
				row("t2", "success"),
			},
			expectedStatus: models.StatusSuccess,
		},
		{
			name: "failed dominates running",
			rows: []models.TaskRow{
				row("t1", "Failed"),
				row("t2", "Running"),
			},
			expectedStatus: models.StatusFailed,
			expectedFailed: []string{"t1"},
		},
		{
			name: "failed vocabulary is case-insensitive",
			rows: []models.TaskRow{
				row("t1", "aborted"),
				row("t2", "NEVER STARTED"),
				row("t3", "Success"),
			},
			expectedStatus: models.StatusFailed,
			expectedFailed: []string{"t1", "t2"},
		},
		{
			name: "running beats queued",
			rows: []models.TaskRow{
				row("t1", "Triggered"),
				row("t2", "Queued"),
			},
			expectedStatus: models.StatusRunning,
		},
		{
			name: "queued only is pending",
			rows: []models.TaskRow{
				row("t1", "Queued"),
				row("t2", "Waiting"),
			},
			expectedStatus: models.StatusPending,
		},
		{
			name: "unrecognized label blocks success",
			rows: []models.TaskRow{
				row("t1", "Success"),
				row("t2", "Postponed"),
			},
			expectedStatus: models.StatusPending,
		},
		{
			name: "disabled failure cannot affect the verdict",
			rows: []models.TaskRow{
				row("t1", "Success"),
				{Name: "t2", Status: "Failed", Enabled: models.EnabledNo},
			},
			expectedStatus: models.StatusSuccess,
		},
		{
			name: "unspecified enabled counts as enabled",
			rows: []models.TaskRow{
				{Name: "t1", Status: "Success"},
			},
			expectedStatus: models.StatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := classify.Classify(tt.rows)
			assert.Equal(t, tt.expectedStatus, report.Status)
			if tt.expectedFailed != nil {
				assert.Equal(t, tt.expectedFailed, report.FailedTasks)
			}
			assert.NotEmpty(t, report.Summary)
		})
	}
}

func TestClassifyTracksUnrecognizedLabels(t *testing.T) {
	report := classify.Classify([]models.TaskRow{
		row("t1", "Success"),
		row("t2", "Postponed"),
		row("t3", "Frozen"),
	})
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Equal(t, []string{"t2", "t3"}, report.OtherTasks)
	assert.Equal(t, 3, report.TaskCount)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, classify.CategoryFailed, classify.Category("  Reset "))
	assert.Equal(t, classify.CategoryRunning, classify.Category("EXECUTING"))
	assert.Equal(t, classify.CategoryPending, classify.Category("waiting"))
	assert.Equal(t, classify.CategorySuccess, classify.Category("Success"))
	assert.Equal(t, classify.CategoryOther, classify.Category("whatever"))
}
