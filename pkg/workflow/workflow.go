// Package workflow drives the monitoring run: two parallel login/extract/
// classify chains joined at a synchronization barrier, then combine, render
// and record.
package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/partition"
)

// ErrCollaboratorUnavailable marks a collaborator that cannot start at all
// (missing script, missing runtime). Stages fail immediately on it instead
// of retrying, since retrying cannot help a missing dependency.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// Logger defines the logging interface for the orchestrator.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LoginResult is what a login stage obtains from the page-extraction
// collaborator. Screenshots are failure artifacts and may be present even
// when the call errored.
type LoginResult struct {
	Session     *models.Session
	Screenshots []string
}

// ExtractResult carries the extracted rows plus pagination metadata.
type ExtractResult struct {
	Rows             []models.TaskRow
	PaginationClicks int
	Screenshots      []string
}

// PageExtractor is the page-extraction collaborator, one implementation
// serving both consoles. Calls must be idempotent-safe to retry.
type PageExtractor interface {
	Login(ctx context.Context, src models.Source) (LoginResult, error)
	Extract(ctx context.Context, src models.Source, session *models.Session) (ExtractResult, error)
}

// GroupAnalyzer produces a report for every configured group.
type GroupAnalyzer interface {
	AnalyzeGroups(ctx context.Context, groups map[string][]models.TaskRow, order []string) (map[string]models.GroupReport, []string)
}

// RenderRequest is the report-rendering collaborator's input.
type RenderRequest struct {
	QMCReports       map[string]models.GroupReport `json:"qmc_reports"`
	NPrintingReports map[string]models.GroupReport `json:"nprinting_reports"`
	Combined         models.CombinedReport         `json:"combined_report"`
	OutputPath       string                        `json:"output_path"`
}

// Renderer produces the visual report image and returns its path.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// Config carries the orchestrator's settings, built once at process start.
type Config struct {
	MaxRetries int
	Groups     map[models.Source][]partition.Group
	OutputDir  string
}

// StageResult is the partial update a stage hands back to the orchestrator.
// The reducer merges it into the run state: Logs and Screenshots append,
// everything else replaces when set.
type StageResult struct {
	Source models.Source

	Stage        models.Stage
	Session      *models.Session
	ClearSession bool
	Rows         []models.TaskRow
	Reports      map[string]models.GroupReport
	RetryCount   *int

	Combined        *models.CombinedReport
	ReportImagePath string

	SourceError string
	RunError    string

	Logs        []string
	Screenshots []string
}
