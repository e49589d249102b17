package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agenthands/geoenrich/internal/llm/llmtest"
	"github.com/agenthands/geoenrich/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	data := `
[llm]
provider = "ollama"
model = "llama3"
base_url = "` + baseURL + `"

[[collections]]
name = "works"
input = "` + filepath.ToSlash(filepath.Join(dir, "works.json")) + `"
output = "` + filepath.ToSlash(filepath.Join(dir, "works_out.json")) + `"
title_field = "name"

[[collections]]
name = "grants"
input = "` + filepath.ToSlash(filepath.Join(dir, "grants.json")) + `"
output = "` + filepath.ToSlash(filepath.Join(dir, "grants_out.json")) + `"
title_field = "title"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestRootCmd_Run(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	srv := llmtest.NewServer(t, llmtest.Fixed("DEU"))
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "works.json"),
		[]byte(`[{"name": "Solar Power Research in Germany"}]`), 0644))

	out, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env"))

	require.NoError(t, err, "a missing grants file does not fail the run")
	assert.Contains(t, out, "collection failed")
	assert.Contains(t, out, "all collections processed")

	works, err := record.Load(filepath.Join(dir, "works_out.json"))
	require.NoError(t, err)
	assert.Equal(t, "DEU", works[0].Field(record.LocationField))

	_, err = os.Stat(filepath.Join(dir, "grants_out.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRootCmd_VerboseLogsPrompt(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	srv := llmtest.NewServer(t, llmtest.Fixed("None"))
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "works.json"),
		[]byte(`[{"name": "Topology lecture notes"}]`), 0644))

	out, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env"), "-v")
	require.NoError(t, err)

	assert.Contains(t, out, "sending prompt")
	assert.Contains(t, out, "Topology lecture notes")
	assert.Contains(t, out, "received reply")
}

func TestRootCmd_DefaultLevelLogsReply(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	srv := llmtest.NewServer(t, llmtest.Fixed("CHL"))
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "works.json"),
		[]byte(`[{"name": "Atacama desert telescopes"}]`), 0644))

	out, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Contains(t, out, "received reply")
	assert.Contains(t, out, "CHL")
	assert.NotContains(t, out, "sending prompt")
}

func TestRootCmd_EnvFileOverridesBaseURL(t *testing.T) {
	// godotenv never replaces a variable that is already set, even to "".
	t.Setenv("LLM_BASE_URL", "")
	require.NoError(t, os.Unsetenv("LLM_BASE_URL"))

	srv := llmtest.NewServer(t, llmtest.Fixed("KEN"))
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1")
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("LLM_BASE_URL="+srv.URL+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "works.json"),
		[]byte(`[{"name": "Maize drought in Kenya"}]`), 0644))

	_, err := execute(t, "--config", cfgPath, "--env-file", envPath)
	require.NoError(t, err)

	works, err := record.Load(filepath.Join(dir, "works_out.json"))
	require.NoError(t, err)
	assert.Equal(t, "KEN", works[0].Field(record.LocationField))
}

func TestRootCmd_MissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[prompt]\niso_format = \"numeric\"\n"), 0644))

	_, err := execute(t, "--config", path, "--env-file", filepath.Join(dir, "missing.env"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "iso_format"))
}
