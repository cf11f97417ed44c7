package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// SaveRun inserts the run header at the start of a run.
func (s *PostgresStore) SaveRun(r models.Run) error {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, started_at, overall_status, error_msg, report_path) VALUES ($1, $2, $3, $4, $5)",
		r.ID, r.StartedAt, r.OverallStatus, r.ErrorMsg, r.ReportPath)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *PostgresStore) FinishRun(id string, status models.Status, errMsg, reportPath string, combined []byte) error {
	_, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP,
		overall_status = $1,
		error_msg = $2,
		report_path = $3,
		combined_report = $4
		WHERE id = $5`,
		status, errMsg, reportPath, combined, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) GetRun(id string) (models.Run, error) {
	var run models.Run
	err := s.db.Get(&run, "SELECT * FROM runs WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Run{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Run{}, err
	}
	return run, nil
}

func (s *PostgresStore) GetLatestRun() (models.Run, error) {
	var run models.Run
	err := s.db.Get(&run, "SELECT * FROM runs ORDER BY started_at DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return models.Run{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Run{}, err
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(limit int) ([]models.Run, error) {
	runs := []models.Run{}
	query := "SELECT * FROM runs ORDER BY started_at DESC"
	var err error
	if limit > 0 {
		err = s.db.Select(&runs, query+" LIMIT $1", limit)
	} else {
		err = s.db.Select(&runs, query)
	}
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// SaveGroupReport inserts one group verdict for a run.
func (s *PostgresStore) SaveGroupReport(r models.RunGroupReport) error {
	_, err := s.db.Exec(`
		INSERT INTO group_reports (run_id, source, group_name, status, summary, failed_tasks, task_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.RunID, r.Source, r.GroupName, r.Status, r.Summary, pq.Array(r.FailedTasks), r.TaskCount)
	if err != nil {
		return fmt.Errorf("save group report %s/%s: %w", r.Source, r.GroupName, err)
	}
	return nil
}

func (s *PostgresStore) ListGroupReports(runID string) ([]models.RunGroupReport, error) {
	rows := []groupReportRow{}
	err := s.db.Select(&rows, "SELECT * FROM group_reports WHERE run_id = $1 ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	reports := make([]models.RunGroupReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toModel())
	}
	return reports, nil
}

// groupReportRow carries the pq array type for scanning.
type groupReportRow struct {
	ID          int64          `db:"id"`
	RunID       string         `db:"run_id"`
	Source      models.Source  `db:"source"`
	GroupName   string         `db:"group_name"`
	Status      models.Status  `db:"status"`
	Summary     string         `db:"summary"`
	FailedTasks pq.StringArray `db:"failed_tasks"`
	TaskCount   int            `db:"task_count"`
}

func (r groupReportRow) toModel() models.RunGroupReport {
	return models.RunGroupReport{
		ID:          r.ID,
		RunID:       r.RunID,
		Source:      r.Source,
		GroupName:   r.GroupName,
		Status:      r.Status,
		Summary:     r.Summary,
		FailedTasks: []string(r.FailedTasks),
		TaskCount:   r.TaskCount,
	}
}
