package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/stubserver"
	"github.com/berth-dev/docchat/internal/testutil"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	projectDir, apiURL = ".", ""
	selectionFlag, jsonFlag, forceFlag, retriesFlag = "", false, false, 1

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func sqliteProject(t *testing.T, baseURL string) string {
	t.Helper()
	return testutil.TempProject(t, map[string]string{
		".docchat/config.yaml": "version: 1\napi:\n  base_url: " + baseURL + "\n",
	})
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--dir", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.yaml")

	cfg, err := config.ReadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().API.BaseURL, cfg.API.BaseURL)

	out, err = execute(t, "--dir", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestAskPrintsAnswerAndSources(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	out, err := execute(t, "--dir", dir, "ask", "what", "is", "this?")
	require.NoError(t, err)

	assert.Contains(t, strings.Join(strings.Fields(out), " "), "From the documentation: what is this?")
	assert.Contains(t, out, "Introduction (/docs/intro)")
	assert.Equal(t, 1, srv.SessionCount())
}

func TestAskWithSelectionScopesQuestion(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	out, err := execute(t, "--dir", dir, "ask", "--selection", "Robots perceive the world", "explain")
	require.NoError(t, err)

	assert.Contains(t, out, "Focus Mode")
	last := srv.LastSend()
	require.NotNil(t, last)
	assert.Equal(t, "SELECTED_TEXT", last.Mode)
	require.NotNil(t, last.SelectedText)
	assert.Equal(t, "Robots perceive the world", *last.SelectedText)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	_, err := execute(t, "--dir", dir, "ask", "   ")
	require.Error(t, err)
	assert.Zero(t, srv.Calls("POST /v1/chat/message"))
}

func TestAskReportsBackendFailure(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	srv.SetFaults(stubserver.Faults{MessageStatus: 500})
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	out, err := execute(t, "--dir", dir, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_ERROR")
	assert.Contains(t, out, "(Failed to deliver)")
}

func TestAskReusesStoredSession(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	dir := sqliteProject(t, url)

	_, err := execute(t, "--dir", dir, "ask", "first")
	require.NoError(t, err)
	_, err = execute(t, "--dir", dir, "ask", "second")
	require.NoError(t, err)

	assert.Equal(t, 1, srv.Calls("POST /v1/chat/start"))
	assert.Equal(t, 2, srv.Calls("POST /v1/chat/message"))
}

func TestSessionShowAndClear(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	dir := sqliteProject(t, url)

	out, err := execute(t, "--dir", dir, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored session")

	_, err = execute(t, "--dir", dir, "ask", "hello there")
	require.NoError(t, err)

	out, err = execute(t, "--dir", dir, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")

	out, err = execute(t, "--dir", dir, "session", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"messages"`)

	out, err = execute(t, "--dir", dir, "session", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared session")
	assert.Zero(t, srv.SessionCount())

	out, err = execute(t, "--dir", dir, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored session")
}

func TestHealthReportsStatus(t *testing.T) {
	_, url := testutil.StubBackend(t)
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	out, err := execute(t, "--dir", dir, "health")
	require.NoError(t, err)
	assert.Contains(t, out, url)
}

func TestHealthFailsWhenBackendDown(t *testing.T) {
	srv, url := testutil.StubBackend(t)
	srv.SetFaults(stubserver.Faults{HealthStatus: 503})
	dir := testutil.TempProject(t, testutil.ConfigFile(url))

	_, err := execute(t, "--dir", dir, "health")
	require.Error(t, err)
}

func TestAPIURLFlagOverridesConfig(t *testing.T) {
	_, url := testutil.StubBackend(t)
	dir := testutil.TempProject(t, testutil.ConfigFile("http://127.0.0.1:1/api"))

	_, err := execute(t, "--dir", dir, "--api-url", url, "health")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".docchat", "log.jsonl"))
	assert.NoError(t, err)
}
