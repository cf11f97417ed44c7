package models

import (
	"strings"
	"time"
)

// Source identifies one of the two monitored consoles.
type Source string

const (
	SourceQMC       Source = "qmc"
	SourceNPrinting Source = "nprinting"
)

// Enabled is the tri-state enabled flag a console reports for a task.
type Enabled string

const (
	EnabledYes     Enabled = "Yes"
	EnabledNo      Enabled = "No"
	EnabledUnknown Enabled = ""
)

// TaskRow is one execution record extracted from a console. Rows are created
// once per extraction and never mutated afterwards.
type TaskRow struct {
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	LastExecution *time.Time `json:"last_execution,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Enabled       Enabled    `json:"enabled,omitempty"`
}

// TagString flattens the tag list for substring matching. Consoles sometimes
// report tags as a single comma-joined string; the extractor normalizes both
// shapes into Tags, and matchers search the joined form.
func (r TaskRow) TagString() string {
	return strings.Join(r.Tags, ",")
}

// Disabled reports whether the row is explicitly disabled. Unspecified counts
// as enabled.
func (r TaskRow) Disabled() bool {
	return r.Enabled == EnabledNo
}

// SimplifiedRow is the trimmed-down row shape sent to the classification
// collaborator. The field names match the console column headers the prompt
// refers to.
type SimplifiedRow struct {
	Name          string `json:"Name"`
	Status        string `json:"Status"`
	LastExecution string `json:"Last execution,omitempty"`
}

// Simplify strips a row to the fields the classification collaborator needs.
func Simplify(r TaskRow) SimplifiedRow {
	s := SimplifiedRow{
		Name:   r.Name,
		Status: r.Status,
	}
	if r.LastExecution != nil {
		s.LastExecution = r.LastExecution.Format("2006-01-02T15:04:05")
	}
	return s
}

// executionTimeFormats covers the timestamp shapes observed across both
// consoles.
var executionTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
}

// ParseExecutionTime parses a console timestamp, trying each known format.
// Returns nil for empty or unrecognized values.
func ParseExecutionTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range executionTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
