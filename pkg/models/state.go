package models

// Stage is one node in the orchestrator's state machine. Only the
// orchestrator mutates it.
type Stage string

const (
	StageInit           Stage = "init"
	StageAuthenticating Stage = "authenticating"
	StageExtracting     Stage = "extracting"
	StageClassifying    Stage = "classifying"
	StageSynchronizing  Stage = "synchronizing"
	StageCombining      Stage = "combining"
	StageReporting      Stage = "reporting"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// Session is the opaque credential bundle a login stage produces: cookies
// plus the path of the persisted browser-state snapshot. Source-scoped, never
// shared between consoles.
type Session struct {
	Cookies   map[string]string `json:"cookies,omitempty"`
	StatePath string            `json:"state_path,omitempty"`
}

// SourceState holds one chain's slice of the run state: retry counter,
// session, extracted rows, per-group reports and the chain's last error.
type SourceState struct {
	RetryCount int
	Session    *Session
	Rows       []TaskRow
	Reports    map[string]GroupReport
	Error      string
}

// RunState is the single record threaded through one run. It is owned by the
// orchestrator; stages receive a read view and return partial updates that
// the orchestrator merges (append for Logs/Screenshots, replace elsewhere).
type RunState struct {
	Stage      Stage
	MaxRetries int

	QMC       SourceState
	NPrinting SourceState

	Combined        *CombinedReport
	ReportImagePath string

	Error       string
	Logs        []string
	Screenshots []string
}

// NewRunState builds the initial state for a run.
func NewRunState(maxRetries int) *RunState {
	return &RunState{
		Stage:      StageInit,
		MaxRetries: maxRetries,
	}
}

// ForSource returns the mutable per-source slice of the state. Callers other
// than the orchestrator must treat it as read-only.
func (s *RunState) ForSource(src Source) *SourceState {
	if src == SourceNPrinting {
		return &s.NPrinting
	}
	return &s.QMC
}
