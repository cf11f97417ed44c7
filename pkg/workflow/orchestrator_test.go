package workflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/partition"
	"github.com/KevinLopezPastor/qmc-agent/pkg/storage"
	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

type testLogger struct{}

func (testLogger) Infof(format string, args ...interface{})  {}
func (testLogger) Errorf(format string, args ...interface{}) {}

// fakeExtractor scripts per-source login/extract behavior.
type fakeExtractor struct {
	mu            sync.Mutex
	loginFailures map[models.Source]int // fail this many logins before succeeding
	loginFatal    map[models.Source]bool
	extractErr    map[models.Source]error
	rows          map[models.Source][]models.TaskRow
	loginCalls    map[models.Source]int
	extractCalls  map[models.Source]int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		loginFailures: map[models.Source]int{},
		loginFatal:    map[models.Source]bool{},
		extractErr:    map[models.Source]error{},
		rows:          map[models.Source][]models.TaskRow{},
		loginCalls:    map[models.Source]int{},
		extractCalls:  map[models.Source]int{},
	}
}

func (f *fakeExtractor) Login(ctx context.Context, src models.Source) (workflow.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls[src]++
	if f.loginFatal[src] {
		return workflow.LoginResult{}, errors.Wrap(workflow.ErrCollaboratorUnavailable, "script not found")
	}
	if f.loginFailures[src] > 0 {
		f.loginFailures[src]--
		return workflow.LoginResult{Screenshots: []string{"login_failure.png"}}, errors.New("bad credentials")
	}
	return workflow.LoginResult{Session: &models.Session{StatePath: string(src) + "_state.json"}}, nil
}

func (f *fakeExtractor) Extract(ctx context.Context, src models.Source, session *models.Session) (workflow.ExtractResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls[src]++
	if err := f.extractErr[src]; err != nil {
		return workflow.ExtractResult{}, err
	}
	return workflow.ExtractResult{Rows: f.rows[src], PaginationClicks: 2}, nil
}

// policyAnalyzer classifies with the pure policy instead of a collaborator.
type policyAnalyzer struct{}

func (policyAnalyzer) AnalyzeGroups(ctx context.Context, groups map[string][]models.TaskRow, order []string) (map[string]models.GroupReport, []string) {
	out := make(map[string]models.GroupReport, len(order))
	for _, name := range order {
		rows := groups[name]
		if len(rows) == 0 {
			out[name] = models.GroupReport{Status: models.StatusPending, Summary: "Tasks have not been executed yet."}
			continue
		}
		status := models.StatusSuccess
		for _, r := range rows {
			if r.Status != "Success" {
				status = models.StatusFailed
			}
		}
		out[name] = models.GroupReport{Status: status, Summary: "analyzed", TaskCount: len(rows)}
	}
	return out, []string{"analyzed " + order[0]}
}

// fakeRenderer records whether rendering was attempted.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  int
	err    error
	lastIn workflow.RenderRequest
}

func (f *fakeRenderer) Render(ctx context.Context, req workflow.RenderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIn = req
	if f.err != nil {
		return "", f.err
	}
	return req.OutputPath, nil
}

func testConfig() workflow.Config {
	return workflow.Config{
		MaxRetries: 3,
		OutputDir:  "reportes",
		Groups: map[models.Source][]partition.Group{
			models.SourceQMC: {
				{Alias: "Hitos", Pattern: "FE_HITOS_DIARIO", Match: partition.MatchTag},
			},
			models.SourceNPrinting: {
				{Alias: "Hitos", Pattern: "h.", Match: partition.MatchPrefix},
			},
		},
	}
}

func successRow(name string) models.TaskRow {
	return models.TaskRow{Name: name, Status: "Success", Tags: []string{"FE_HITOS_DIARIO"}, Enabled: models.EnabledYes}
}

func TestRunHappyPath(t *testing.T) {
	ext := newFakeExtractor()
	ext.rows[models.SourceQMC] = []models.TaskRow{successRow("t1"), successRow("t2")}
	ext.rows[models.SourceNPrinting] = []models.TaskRow{{Name: "h. Tablero", Status: "Success"}}
	renderer := &fakeRenderer{}
	store := storage.NewMockStore()

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, store, testLogger{})
	state, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StageDone, state.Stage)
	assert.Equal(t, models.StatusSuccess, state.Combined.OverallStatus)
	assert.Equal(t, models.StatusSuccess, state.QMC.Reports["Hitos"].Status)
	assert.Equal(t, models.StatusSuccess, state.NPrinting.Reports["Hitos"].Status)
	assert.NotEmpty(t, state.ReportImagePath)
	assert.Equal(t, 1, renderer.calls)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusSuccess, runs[0].OverallStatus)
	groupReports, err := store.ListGroupReports(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, groupReports, 2)
}

// Three consecutive login failures for QMC must terminate that chain while
// the concurrently-succeeding NPrinting chain still reaches the barrier and
// produces reports.
func TestRunLoginRetryExhaustion(t *testing.T) {
	ext := newFakeExtractor()
	ext.loginFailures[models.SourceQMC] = 99
	ext.rows[models.SourceNPrinting] = []models.TaskRow{{Name: "h. Tablero", Status: "Success"}}
	renderer := &fakeRenderer{}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, models.StageFailed, state.Stage)
	assert.Equal(t, 3, ext.loginCalls[models.SourceQMC])
	assert.Equal(t, 3, state.QMC.RetryCount)
	assert.NotEmpty(t, state.QMC.Error)
	assert.Empty(t, state.QMC.Reports)
	assert.NotEmpty(t, state.NPrinting.Reports)
	assert.Equal(t, models.StatusSuccess, state.NPrinting.Reports["Hitos"].Status)
	// Partial data is still rendered before the run reports failure.
	assert.Equal(t, 1, renderer.calls)
	assert.NotEmpty(t, state.Screenshots)
}

func TestRunLoginRetriesThenSucceeds(t *testing.T) {
	ext := newFakeExtractor()
	ext.loginFailures[models.SourceQMC] = 2
	ext.rows[models.SourceQMC] = []models.TaskRow{successRow("t1")}
	renderer := &fakeRenderer{}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, ext.loginCalls[models.SourceQMC])
	assert.Equal(t, 2, state.QMC.RetryCount)
	assert.NotNil(t, state.QMC.Session)
}

// A collaborator that cannot start at all fails the stage with no retry.
func TestRunFatalCollaboratorFailureSkipsRetries(t *testing.T) {
	ext := newFakeExtractor()
	ext.loginFatal[models.SourceQMC] = true
	ext.rows[models.SourceNPrinting] = []models.TaskRow{{Name: "h. Tablero", Status: "Success"}}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, &fakeRenderer{}, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, ext.loginCalls[models.SourceQMC])
	assert.Contains(t, state.QMC.Error, "collaborator unavailable")
}

func TestRunExtractFailureTerminatesChainAndClearsSession(t *testing.T) {
	ext := newFakeExtractor()
	ext.extractErr[models.SourceQMC] = errors.New("table never rendered")
	ext.rows[models.SourceNPrinting] = []models.TaskRow{{Name: "h. Tablero", Status: "Success"}}
	renderer := &fakeRenderer{}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, state.QMC.Session, "failed extraction releases its session")
	assert.NotEmpty(t, state.NPrinting.Reports)
	assert.Equal(t, 1, renderer.calls)
}

func TestRunReportFailureRoutesToError(t *testing.T) {
	ext := newFakeExtractor()
	ext.rows[models.SourceQMC] = []models.TaskRow{successRow("t1")}
	renderer := &fakeRenderer{err: errors.New("headless browser crashed")}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, models.StageFailed, state.Stage)
	assert.Contains(t, state.Error, "report generation failed")
	// The combined report was still produced before rendering failed.
	assert.NotNil(t, state.Combined)
}

func TestRunLegacySingleSource(t *testing.T) {
	ext := newFakeExtractor()
	ext.rows[models.SourceQMC] = []models.TaskRow{successRow("t1")}
	renderer := &fakeRenderer{}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.RunLegacy(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StageDone, state.Stage)
	assert.Zero(t, ext.loginCalls[models.SourceNPrinting], "legacy variant never touches the second source")
	assert.Equal(t, 0, renderer.lastIn.Combined.NPrinting.TotalProcesses)
	assert.Equal(t, models.StatusSuccess, state.Combined.OverallStatus)
}

// The barrier treats a chain that never arrived as an empty contribution:
// with both sources dead the combined verdict is Pending, not a hang.
func TestRunBothChainsFailStillCombines(t *testing.T) {
	ext := newFakeExtractor()
	ext.loginFailures[models.SourceQMC] = 99
	ext.loginFailures[models.SourceNPrinting] = 99
	renderer := &fakeRenderer{}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, renderer, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.Error(t, err)
	require.NotNil(t, state.Combined)
	assert.Equal(t, models.StatusPending, state.Combined.OverallStatus)
}

func TestRunAppendsLogsAcrossStages(t *testing.T) {
	ext := newFakeExtractor()
	ext.rows[models.SourceQMC] = []models.TaskRow{successRow("t1")}

	o := workflow.New(testConfig(), ext, policyAnalyzer{}, nil, &fakeRenderer{}, nil, testLogger{})
	state, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Greater(t, len(state.Logs), 4, "every stage appends, none overwrites")
	assert.Equal(t, "run started", state.Logs[0])
	assert.Equal(t, "run finished", state.Logs[len(state.Logs)-1])
}
