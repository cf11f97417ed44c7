package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// mockStore implements Store with in-memory storage
type mockStore struct {
	mu           sync.RWMutex
	runs         []models.Run
	groupReports []models.RunGroupReport
	nextReportID int64
}

// NewMockStore creates an in-memory store for tests.
func NewMockStore() Store {
	return &mockStore{}
}

func (m *mockStore) Begin() (Store, error) {
	return m, nil
}

func (m *mockStore) Commit() error {
	return nil
}

func (m *mockStore) Rollback() error {
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func (m *mockStore) SaveRun(r models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.runs {
		if existing.ID == r.ID {
			return errors.Errorf("run %s already exists", r.ID)
		}
	}
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockStore) FinishRun(id string, status models.Status, errMsg, reportPath string, combined []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.ID == id {
			now := time.Now()
			m.runs[i].FinishedAt = &now
			m.runs[i].OverallStatus = status
			m.runs[i].ErrorMsg = errMsg
			m.runs[i].ReportPath = reportPath
			m.runs[i].CombinedReport = combined
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "run %s", id)
}

func (m *mockStore) GetRun(id string) (models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Run{}, errors.Wrapf(ErrNotFound, "run %s", id)
}

func (m *mockStore) GetLatestRun() (models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return models.Run{}, errors.Wrap(ErrNotFound, "no runs recorded")
	}
	latest := m.runs[0]
	for _, r := range m.runs[1:] {
		if r.StartedAt.After(latest.StartedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (m *mockStore) ListRuns(limit int) ([]models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Run, len(m.runs))
	copy(out, m.runs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) SaveGroupReport(r models.RunGroupReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReportID++
	r.ID = m.nextReportID
	m.groupReports = append(m.groupReports, r)
	return nil
}

func (m *mockStore) ListGroupReports(runID string) ([]models.RunGroupReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.RunGroupReport
	for _, r := range m.groupReports {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}
