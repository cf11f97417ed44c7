package models

import "time"

// Run is the persisted record of one monitoring run.
type Run struct {
	ID             string     `json:"id" db:"id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	OverallStatus  Status     `json:"overall_status" db:"overall_status"`
	ErrorMsg       string     `json:"error,omitempty" db:"error_msg"`
	ReportPath     string     `json:"report_path,omitempty" db:"report_path"`
	CombinedReport []byte     `json:"combined_report,omitempty" db:"combined_report"` // JSON
}

// RunGroupReport is one group's persisted verdict within a run.
type RunGroupReport struct {
	ID          int64    `json:"id" db:"id"`
	RunID       string   `json:"run_id" db:"run_id"`
	Source      Source   `json:"source" db:"source"`
	GroupName   string   `json:"group_name" db:"group_name"`
	Status      Status   `json:"status" db:"status"`
	Summary     string   `json:"summary" db:"summary"`
	FailedTasks []string `json:"failed_tasks,omitempty" db:"failed_tasks"`
	TaskCount   int      `json:"task_count" db:"task_count"`
}
