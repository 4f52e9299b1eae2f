package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// writeConfig writes a config file whose log directory lives in dir.
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "flowbase.yaml")
	content := "logging:\n  dir: " + filepath.Join(dir, "logs") + "\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "flowbase dev\n", out)
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		cfgPath := writeConfig(t, dir, `
ingestion:
  source: api
  enabled: true
  url: https://example.com/items
  authtoken: topsecret
`)
		out, err := execute(t, "validate", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration valid")
		assert.Contains(t, out, "api (enabled=true)")
	})

	t.Run("print redacts secrets", func(t *testing.T) {
		cfgPath := writeConfig(t, dir, `
ingestion:
  source: api
  enabled: true
  url: https://example.com/items
  authtoken: topsecret
`)
		out, err := execute(t, "validate", "--config", cfgPath, "--print")
		require.NoError(t, err)
		assert.Contains(t, out, "url: https://example.com/items")
		assert.Contains(t, out, "******")
		assert.NotContains(t, out, "topsecret")
	})

	t.Run("unknown source", func(t *testing.T) {
		cfgPath := writeConfig(t, dir, "ingestion:\n  source: ftp\n")
		_, err := execute(t, "validate", "--config", cfgPath)
		assert.ErrorIs(t, err, config.ErrUnknownSource)
	})

	t.Run("missing required field", func(t *testing.T) {
		cfgPath := writeConfig(t, dir, "ingestion:\n  source: s3\n  enabled: true\n")
		_, err := execute(t, "validate", "--config", cfgPath)
		assert.ErrorIs(t, err, config.ErrMissingField)
	})

	t.Run("bad format", func(t *testing.T) {
		cfgPath := writeConfig(t, dir, "ingestion:\n  source: local\n  filepath: x.csv\nemitters:\n  stdout:\n    format: xml\n")
		_, err := execute(t, "validate", "--config", cfgPath)
		assert.ErrorContains(t, err, "stdout emitter")
	})
}

func TestIngestCmd_LocalToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "out", "rows.csv")
	require.NoError(t, os.WriteFile(input, []byte("id,name\n1,a\n2,b\n"), 0o644))
	cfgPath := writeConfig(t, dir, "")

	_, err := execute(t, "ingest", "--config", cfgPath,
		"--source", "local", "--file", input, "--output", output, "--format", "csv")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n2,b\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "logs", "flowbase.log"))
	assert.NoError(t, err, "log file is written to the configured dir")
}

func TestIngestCmd_Modes(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")
	cfgPath := writeConfig(t, dir, "")
	output := filepath.Join(dir, "rows.ndjson")

	t.Run("compat contains missing file", func(t *testing.T) {
		_, err := execute(t, "ingest", "--config", cfgPath, "--source", "local", "--file", missing, "--output", output)
		assert.NoError(t, err)
	})

	t.Run("strict reports missing file", func(t *testing.T) {
		_, err := execute(t, "ingest", "--config", cfgPath, "--source", "local", "--file", missing,
			"--output", output, "--mode", "strict")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not_found")
	})
}

func TestApplyCLIOverrides(t *testing.T) {
	cmd := NewIngestCmd(&rootOptions{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--source", "s3", "--enable", "--bucket", "raw", "--prefix", "in/",
		"--mode", "strict", "--format", "text",
	}))

	cfg := config.Defaults()
	cfg.Ingestion.URL = "https://keep.me"
	applyCLIOverrides(cmd, cfg)

	assert.Equal(t, "s3", cfg.Ingestion.Source)
	assert.True(t, cfg.Ingestion.Enabled)
	assert.Equal(t, "raw", cfg.Ingestion.Bucket)
	assert.Equal(t, "in/", cfg.Ingestion.Prefix)
	assert.Equal(t, "strict", cfg.Ingestion.Mode)
	assert.Equal(t, "text", cfg.Emitters.Stdout.Format)
	assert.Equal(t, "https://keep.me", cfg.Ingestion.URL, "unset flags leave config alone")
	assert.True(t, cfg.Emitters.Stdout.Enabled)
	assert.False(t, cfg.Emitters.File.Enabled)
}
