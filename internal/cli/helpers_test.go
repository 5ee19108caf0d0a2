package cli

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var harnessTestdata = filepath.Join("..", "harness", "testdata")

func scenarioPath(name string) string {
	return filepath.Join(harnessTestdata, "scenarios", name+".yaml")
}

func worldPath(name string) string {
	return filepath.Join(harnessTestdata, "worlds", name+".cue")
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON envelope, decoding its data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// copyTestdata copies the harness fixtures into a temp dir so tests may
// rewrite them.
func copyTestdata(t *testing.T) string {
	t.Helper()
	dst := t.TempDir()
	err := filepath.WalkDir(harnessTestdata, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(harnessTestdata, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

// archiveDuel plays the duel scenario into a fresh database.
func archiveDuel(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "cae.db")
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "--db", db, scenarioPath("duel"))
	require.NoError(t, err)
	return db
}
