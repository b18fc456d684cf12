package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resbot/internal/testutil"
)

// run executes cmd with args and returns its stdout and error.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// textOpts returns root options reading the sample resolutions from a
// fresh temp file, and that file's path.
func textOpts(t *testing.T) (*RootOptions, string) {
	t.Helper()
	isolateEnv(t)
	path := testutil.WriteResolutions(t, testutil.SampleResolutions)
	return &RootOptions{Format: "text", DataPath: path}, path
}

func jsonOpts(t *testing.T) (*RootOptions, string) {
	t.Helper()
	opts, path := textOpts(t)
	opts.Format = "json"
	return opts, path
}

// isolateEnv clears the environment variables config.Load reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("RESBOT_DATA", "")
}

// writeConfig writes a resbot.yaml into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// decodeData re-decodes the response payload into v.
func decodeData(t *testing.T, resp CLIResponse, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

// writeData writes content as a resolutions file and returns its path.
func writeData(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteResolutions(t, content)
}
