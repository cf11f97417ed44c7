package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinLopezPastor/qmc-agent/internal/config"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// captureLogger records formatted log lines for assertions.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Infof(format string, args ...interface{})  { l.record(format, args...) }
func (l *captureLogger) Errorf(format string, args ...interface{}) { l.record(format, args...) }

func (l *captureLogger) record(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *captureLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestExtractorLogsScriptBoundaries(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "qmc_login.py", `echo '{"success": true, "cookies": {"sid": "abc"}}'`)
	writeScript(t, dir, "qmc_extract.py", `echo '{"success": true, "rows": [{"name": "t1", "status": "Success"}], "pagination_clicks": 2}'`)

	logger := &captureLogger{}
	runner := NewRunner(dir, "sh", time.Minute, logger)
	cfg := &config.Config{QMC: config.SourceConfig{URL: "https://qmc.test", StatePath: "state.json"}}
	ex := NewExtractor(runner, cfg, logger)

	login, err := ex.Login(context.Background(), models.SourceQMC)
	require.NoError(t, err)
	require.NotNil(t, login.Session)
	assert.Equal(t, "abc", login.Session.Cookies["sid"])

	res, err := ex.Extract(context.Background(), models.SourceQMC, login.Session)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 2, res.PaginationClicks)

	logText := logger.joined()
	assert.Contains(t, logText, "Logging in to qmc console")
	assert.Contains(t, logText, "Login to qmc console succeeded")
	assert.Contains(t, logText, "Extracted 1 rows from qmc console")
}

func TestExtractorLogsScriptFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "qmc_login.py", `echo '{"success": false, "error": "login rejected"}'`)

	logger := &captureLogger{}
	runner := NewRunner(dir, "sh", time.Minute, logger)
	cfg := &config.Config{QMC: config.SourceConfig{URL: "https://qmc.test"}}
	ex := NewExtractor(runner, cfg, logger)

	_, err := ex.Login(context.Background(), models.SourceQMC)
	require.Error(t, err)
	assert.Contains(t, logger.joined(), "Login to qmc console failed")
}

func TestRawRowConsoleColumnNames(t *testing.T) {
	var row rawRow
	err := json.Unmarshal([]byte(`{"Task name": " Reload Sales ", "Status": "Success", "Last execution": "2025-03-01 06:30:00", "Tags": "FE_HITOS_DIARIO, nightly", "Enabled": "Yes"}`), &row)
	require.NoError(t, err)

	got := row.toTaskRow()
	assert.Equal(t, "Reload Sales", got.Name)
	assert.Equal(t, "Success", got.Status)
	require.NotNil(t, got.LastExecution)
	assert.Equal(t, []string{"FE_HITOS_DIARIO", "nightly"}, got.Tags)
	assert.Equal(t, models.EnabledYes, got.Enabled)
}

func TestRawRowTagsAsList(t *testing.T) {
	var row rawRow
	err := json.Unmarshal([]byte(`{"name": "h. daily", "status": "Failed", "tags": ["a", "b"]}`), &row)
	require.NoError(t, err)

	got := row.toTaskRow()
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Nil(t, got.LastExecution)
	assert.Equal(t, models.EnabledUnknown, got.Enabled)
}

func TestRawRowCreatedColumn(t *testing.T) {
	var row rawRow
	err := json.Unmarshal([]byte(`{"name": "x. report", "status": "Running", "Created": "01/03/2025 06:30"}`), &row)
	require.NoError(t, err)
	require.NotNil(t, row.toTaskRow().LastExecution)
}
