package storage

import (
	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the run-history storage operations. The in-run checkpoint
// itself lives in memory; the store only records run outcomes for auditing.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Run operations
	SaveRun(r models.Run) error
	FinishRun(id string, status models.Status, errMsg, reportPath string, combined []byte) error
	GetRun(id string) (models.Run, error)
	GetLatestRun() (models.Run, error)
	ListRuns(limit int) ([]models.Run, error)

	// Group report operations
	SaveGroupReport(r models.RunGroupReport) error
	ListGroupReports(runID string) ([]models.RunGroupReport, error)
}
