// Package classify implements the status policy for a group of task rows.
// It is the oracle the LLM collaborator is expected to replicate; the
// analyzer validates collaborator output against the same vocabulary.
package classify

import (
	"fmt"
	"strings"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// Category buckets for normalized console status labels.
const (
	CategoryFailed  = "failed"
	CategoryRunning = "running"
	CategoryPending = "pending"
	CategorySuccess = "success"
	CategoryOther   = "other"
)

var (
	failedLabels = map[string]struct{}{
		"failed": {}, "error": {}, "aborted": {}, "skipped": {},
		"never started": {}, "reset": {},
	}
	runningLabels = map[string]struct{}{
		"started": {}, "triggered": {}, "retrying": {}, "aborting": {},
		"running": {}, "executing": {},
	}
	pendingLabels = map[string]struct{}{
		"queued": {}, "waiting": {},
	}
)

// Category maps a raw console status label to its policy bucket.
// Matching is case-insensitive; unrecognized labels land in CategoryOther.
func Category(status string) string {
	label := strings.ToLower(strings.TrimSpace(status))
	switch {
	case has(failedLabels, label):
		return CategoryFailed
	case has(runningLabels, label):
		return CategoryRunning
	case has(pendingLabels, label):
		return CategoryPending
	case label == "success":
		return CategorySuccess
	default:
		return CategoryOther
	}
}

func has(set map[string]struct{}, label string) bool {
	_, ok := set[label]
	return ok
}

// Classify maps a set of task rows to a group verdict using the strict
// precedence Failed > Running > Pending > all-Success, with Pending as the
// fallback. Disabled rows are excluded before anything else: an empty input
// is No Data, an input emptied by the disabled filter is No Run.
// Unrecognized labels never contribute to a Success verdict; they are
// tallied in OtherTasks instead of being dropped.
func Classify(rows []models.TaskRow) models.GroupReport {
	if len(rows) == 0 {
		return models.GroupReport{
			Status:  models.StatusNoData,
			Summary: "No tasks found for this process today.",
		}
	}

	active := make([]models.TaskRow, 0, len(rows))
	for _, r := range rows {
		if !r.Disabled() {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return models.GroupReport{
			Status:  models.StatusNoRun,
			Summary: "No enabled tasks found for this process today.",
		}
	}

	var failed, running, other []string
	pending, success := 0, 0
	for _, r := range active {
		switch Category(r.Status) {
		case CategoryFailed:
			failed = append(failed, r.Name)
		case CategoryRunning:
			running = append(running, r.Name)
		case CategoryPending:
			pending++
		case CategorySuccess:
			success++
		default:
			other = append(other, r.Name)
		}
	}

	report := models.GroupReport{
		FailedTasks:  failed,
		RunningTasks: running,
		OtherTasks:   other,
		TaskCount:    len(active),
	}

	switch {
	case len(failed) > 0:
		report.Status = models.StatusFailed
		report.Summary = fmt.Sprintf("%d of %d tasks failed: %s.",
			len(failed), len(active), strings.Join(failed, ", "))
	case len(running) > 0:
		report.Status = models.StatusRunning
		report.Summary = fmt.Sprintf("%d of %d tasks are still executing.",
			len(running), len(active))
	case pending > 0:
		report.Status = models.StatusPending
		report.Summary = fmt.Sprintf("%d of %d tasks are queued or waiting.",
			pending, len(active))
	case len(other) == 0 && success == len(active):
		report.Status = models.StatusSuccess
		report.Summary = fmt.Sprintf("All %d tasks completed successfully.", len(active))
	default:
		// Unrecognized labels block Success but do not force another bucket.
		report.Status = models.StatusPending
		report.Summary = fmt.Sprintf("%d of %d tasks have an unrecognized status.",
			len(other), len(active))
	}
	return report
}
