package workflow

import "github.com/KevinLopezPastor/qmc-agent/pkg/models"

// apply merges a stage result into the run state. The orchestrator serializes
// calls, so the state is never mutated concurrently even when stages ran in
// parallel. Merge policy: Logs and Screenshots append, every other field
// replaces when set.
func (o *Orchestrator) apply(res StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	if res.Stage != "" {
		s.Stage = res.Stage
	}
	if res.Combined != nil {
		s.Combined = res.Combined
	}
	if res.ReportImagePath != "" {
		s.ReportImagePath = res.ReportImagePath
	}
	if res.RunError != "" {
		s.Error = res.RunError
	}
	s.Logs = append(s.Logs, res.Logs...)
	s.Screenshots = append(s.Screenshots, res.Screenshots...)

	if res.Source == "" {
		return
	}
	src := s.ForSource(res.Source)
	if res.Session != nil {
		src.Session = res.Session
	}
	if res.ClearSession {
		src.Session = nil
	}
	if res.Rows != nil {
		src.Rows = res.Rows
	}
	if res.Reports != nil {
		src.Reports = res.Reports
	}
	if res.RetryCount != nil {
		src.RetryCount = *res.RetryCount
	}
	if res.SourceError != "" {
		src.Error = res.SourceError
		if s.Error == "" {
			s.Error = res.SourceError
		}
	}
}

// snapshotSource returns a read copy of one chain's state under the lock.
func (o *Orchestrator) snapshotSource(src models.Source) models.SourceState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.state.ForSource(src)
}
