package models

import "strings"

// Status is the verdict assigned to a process group or to a whole run.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusRunning Status = "Running"
	StatusFailed  Status = "Failed"
	StatusPending Status = "Pending"
	StatusNoData  Status = "No Data"
	StatusNoRun   Status = "No Run"
	StatusError   Status = "Error"
)

var allStatuses = []Status{
	StatusSuccess, StatusRunning, StatusFailed, StatusPending,
	StatusNoData, StatusNoRun, StatusError,
}

// ParseStatus matches a free-text label against the status vocabulary,
// case-insensitively. The second return is false for unrecognized labels.
func ParseStatus(s string) (Status, bool) {
	trimmed := strings.TrimSpace(s)
	for _, st := range allStatuses {
		if strings.EqualFold(trimmed, string(st)) {
			return st, true
		}
	}
	return "", false
}

// GroupReport is one process group's verdict, produced exactly once per group
// per run.
type GroupReport struct {
	Status       Status   `json:"status"`
	Summary      string   `json:"summary"`
	FailedTasks  []string `json:"failed_tasks,omitempty"`
	RunningTasks []string `json:"running_tasks,omitempty"`
	OtherTasks   []string `json:"other_tasks,omitempty"`
	TaskCount    int      `json:"task_count,omitempty"`
}

// SourceSummary aggregates one console's group reports for display.
type SourceSummary struct {
	TotalProcesses int                    `json:"total_processes"`
	StatusCounts   map[Status]int         `json:"status_counts"`
	Processes      map[string]GroupReport `json:"processes"`
}

// CombinedReport is the cross-source verdict plus both report maps verbatim.
type CombinedReport struct {
	OverallStatus Status        `json:"overall_status"`
	QMC           SourceSummary `json:"qmc"`
	NPrinting     SourceSummary `json:"nprinting"`
	Summary       string        `json:"summary"`
}
