package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chaos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func executeCommand(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCorruptedState(t *testing.T) {
	cfg := writeConfig(t, "probability: 1.0\nseed: 7\nprobe_calls: 4\n")

	out, err := executeCommand("run", "corrupted_state", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario: corrupted_state")
	assert.Contains(t, out, "success: true")
	assert.Contains(t, out, "corruptions_injected")
}

func TestRunUnfulfillableTaskAgainstProbeTarget(t *testing.T) {
	cfg := writeConfig(t, "operations: [respond]\nseed: 3\n")

	out, err := executeCommand("run", "unfulfillable_task", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "guardrail effectiveness: excellent")
	assert.Contains(t, out, "success: true")
}

func TestRunJSONOutput(t *testing.T) {
	cfg := writeConfig(t, "probability: 1.0\nseed: 7\nprobe_calls: 2\n")

	out, err := executeCommand("run", "corrupted_state", "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "corrupted_state", data["scenario"])
	assert.NotEmpty(t, data["run_id"])
}

func TestRunUnknownScenario(t *testing.T) {
	_, err := executeCommand("run", "does_not_exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown scenario")
}

func TestRunBadConfigPath(t *testing.T) {
	_, err := executeCommand("run", "corrupted_state", "--config", "/nonexistent/chaos.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "probability: 1.5\n")

	_, err := executeCommand("run", "corrupted_state", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunFailureExitCode(t *testing.T) {
	// Probability 0 injects nothing, so the scenario reports failure.
	cfg := writeConfig(t, "probability: 0.0\nprobe_calls: 2\n")

	out, err := executeCommand("run", "corrupted_state", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "success: false")
}

func TestRunPersistsToDatabase(t *testing.T) {
	cfg := writeConfig(t, "probability: 1.0\nseed: 7\nprobe_calls: 2\n")
	db := filepath.Join(t.TempDir(), "havoc.db")

	_, err := executeCommand("run", "corrupted_state", "--config", cfg, "--db", db)
	require.NoError(t, err)

	info, statErr := os.Stat(db)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}

func TestListCommand(t *testing.T) {
	out, err := executeCommand("list")
	require.NoError(t, err)
	for _, name := range []string{
		"corrupted_state",
		"high_latency",
		"oscillating_conversation",
		"resource_exhaustion",
		"unfulfillable_task",
	} {
		assert.Contains(t, out, name)
	}
}

func TestListJSON(t *testing.T) {
	out, err := executeCommand("list", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	entries, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, entries, 5)
}
