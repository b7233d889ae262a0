package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxFileSize)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, "2006-01", cfg.Sheet.LabelLayout)
	assert.Equal(t, 2, cfg.Sheet.RosterColumn)
	assert.Equal(t, 3, cfg.Sheet.FixedOffset)
	assert.Equal(t, "UNIT_SUFFIXED", cfg.Extraction.Mode)
	assert.Equal(t, "PROMPT_USER", cfg.Extraction.Policy)
	assert.True(t, cfg.Extraction.SkipClockTokens)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
google:
  spreadsheet: https://docs.google.com/spreadsheets/d/abc123/edit
sheet:
  fixedoffset: 4
extraction:
  policy: AUTO_SINGLE
session:
  ttl: 5m
timezone: Europe/Helsinki
`), 0o600))
	t.Setenv("RUNLOG_SHEET_FIXEDOFFSET", "5")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TESSDATA_PREFIX", "/opt/tessdata")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc123/edit", cfg.Google.Spreadsheet)
	assert.Equal(t, 5, cfg.Sheet.FixedOffset)
	assert.Equal(t, "AUTO_SINGLE", cfg.Extraction.Policy)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/opt/tessdata", cfg.OCR.TesseractDataPath)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Helsinki", loc.String())
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RUNLOG_SERVER_PORT", "7000")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative offset", func(c *Config) { c.Sheet.FixedOffset = -1 }},
		{"roster column zero", func(c *Config) { c.Sheet.RosterColumn = 0 }},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "paddle" }},
		{"unknown mode", func(c *Config) { c.Extraction.Mode = "MILES" }},
		{"unknown policy", func(c *Config) { c.Extraction.Policy = "GUESS" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
