package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

type testLogger struct{}

func (testLogger) Infof(format string, args ...interface{})  {}
func (testLogger) Errorf(format string, args ...interface{}) {}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func TestRunnerDecodesEnvelope(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ok.sh", `echo '{"success": true, "value": 42}'`)

	r := NewRunner(dir, "sh", time.Minute, testLogger{})
	var out struct {
		envelope
		Value int `json:"value"`
	}
	err := r.Run(context.Background(), "ok.sh", map[string]string{"k": "v"}, &out)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 42, out.Value)
}

func TestRunnerPassesPayloadAsArgument(t *testing.T) {
	dir := t.TempDir()
	// Echo argv[1] back inside the envelope so the test can inspect it.
	writeScript(t, dir, "echo.sh", `printf '{"success": true, "payload": %s}' "$1"`)

	r := NewRunner(dir, "sh", time.Minute, testLogger{})
	var out struct {
		envelope
		Payload map[string]string `json:"payload"`
	}
	err := r.Run(context.Background(), "echo.sh", map[string]string{"url": "https://example.test"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", out.Payload["url"])
}

func TestRunnerScriptFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fail.sh", `echo '{"success": false, "error": "login rejected"}'`)

	r := NewRunner(dir, "sh", time.Minute, testLogger{})
	err := r.Run(context.Background(), "fail.sh", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected")
	assert.False(t, errors.Is(err, workflow.ErrCollaboratorUnavailable))
}

func TestRunnerMissingScriptIsUnavailable(t *testing.T) {
	r := NewRunner(t.TempDir(), "sh", time.Minute, testLogger{})
	err := r.Run(context.Background(), "absent.sh", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrCollaboratorUnavailable))
}

func TestRunnerTimeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "slow.sh", `sleep 5`)

	r := NewRunner(dir, "sh", 100*time.Millisecond, testLogger{})
	err := r.Run(context.Background(), "slow.sh", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunnerGarbageOutput(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "junk.sh", `echo 'not json at all'`)

	r := NewRunner(dir, "sh", time.Minute, testLogger{})
	err := r.Run(context.Background(), "junk.sh", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding output")
}
