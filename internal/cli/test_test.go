package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_AllPass(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(harnessTestdata, "scenarios"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ duel\n")
	assert.Contains(t, out, "✓ spikes\n")
	assert.Contains(t, out, "✓ walls\n")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), "--filter", "d*", filepath.Join(harnessTestdata, "scenarios"))
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "duel", result.Scenarios[0].Name)
	assert.Equal(t, 2, result.Scenarios[0].Turns)
	assert.Equal(t, 1, result.Passed)
}

func TestTestCommand_NoMatches(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "nothing*", filepath.Join(harnessTestdata, "scenarios"))
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommand_BadFilter(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "[", filepath.Join(harnessTestdata, "scenarios"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Failures(t *testing.T) {
	dir := copyTestdata(t)
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "broken.yaml"), []byte("name: broken\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transcripts", "duel.txt"), []byte("turn 1: nothing.\n"), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ broken.yaml\n  Load error:")
	assert.Contains(t, out, "✗ duel\n")
	assert.Contains(t, out, "transcript mismatch")
	assert.Contains(t, out, "Test Summary: 2 passed, 2 failed, 4 total")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenarios)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, result.Failed)
}

func TestTestCommand_Update(t *testing.T) {
	dir := copyTestdata(t)
	scenarios := filepath.Join(dir, "scenarios")
	transcript := filepath.Join(dir, "transcripts", "duel.txt")
	want, err := os.ReadFile(transcript)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(transcript, []byte("stale\n"), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", "--filter", "duel", scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ duel (golden updated)")

	got, err := os.ReadFile(transcript)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	assert.NoError(t, err)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.txt", "sub/d.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "sub", "d.yaml"),
	}, files)

	files, err = findScenarioFiles(dir, "?")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "d")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sub", "d.yaml")}, files)
}
