package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/gh-productivity/domain"
)

var fixedNow = func() time.Time { return time.Date(2024, 4, 15, 17, 30, 0, 0, time.UTC) }

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_API_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "")
}

func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadFlags(t *testing.T) {
	setEnv(t)

	cfg, err := load([]string{noEnvFile(t),
		"--repo", "acme/widget",
		"--repos", "acme/gadget, acme/gizmo",
		"--start-date", "2024-03-01",
		"--end-date", "2024-03-31",
		"--concurrency", "4",
		"--clear-cache", "--summary", "--timeline",
	}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.Token)
	assert.Equal(t, []domain.Repository{
		{Owner: "acme", Name: "widget"},
		{Owner: "acme", Name: "gadget"},
		{Owner: "acme", Name: "gizmo"},
	}, cfg.Repositories)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999e6, time.UTC), cfg.End)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.ClearCache)
	assert.True(t, cfg.Summary)
	assert.True(t, cfg.FetchTimeline)
	assert.True(t, cfg.Dora)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, ".cache", cfg.CacheDir)
}

func TestLoadDefaultWindowEndsToday(t *testing.T) {
	setEnv(t)

	cfg, err := load([]string{noEnvFile(t), "--repo", "acme/widget"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, time.Date(2024, 4, 15, 23, 59, 59, 999e6, time.UTC), cfg.End)
	assert.Equal(t, domain.Window{Start: cfg.Start, End: cfg.End}, cfg.Window())

	days := cfg.End.Sub(cfg.Start).Round(time.Hour) / (24 * time.Hour)
	assert.EqualValues(t, DefaultWindowDays, days)
}

func TestLoadDefaultStartFromEndDate(t *testing.T) {
	setEnv(t)

	cfg, err := load([]string{noEnvFile(t), "--repo", "acme/widget", "--end-date", "2024-03-30"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, time.Date(2024, 3, 30, 23, 59, 59, 999e6, time.UTC), cfg.End)
}

func TestLoadMissingToken(t *testing.T) {
	setEnv(t)
	t.Setenv("GITHUB_TOKEN", "")

	_, err := load([]string{noEnvFile(t), "--repo", "acme/widget"}, fixedNow)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadTokenFromEnvFile(t *testing.T) {
	setEnv(t)
	t.Setenv("GITHUB_TOKEN", "")
	os.Unsetenv("GITHUB_TOKEN")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GITHUB_TOKEN=from-dotenv\n"), 0o600))

	cfg, err := load([]string{"--env-file", envFile, "--repo", "acme/widget"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Token)
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	setEnv(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{name: "bad repository", args: []string{"--repo", "widget"}, is: domain.ErrInvalidRepository},
		{name: "no repositories", args: nil},
		{name: "bad date", args: []string{"--repo", "acme/widget", "--start-date", "03/01/2024"}},
		{name: "end before start", args: []string{"--repo", "acme/widget", "--start-date", "2024-03-10", "--end-date", "2024-03-01"}},
		{name: "concurrency", args: []string{"--repo", "acme/widget", "--concurrency", "-1"}},
		{name: "log level", args: []string{"--repo", "acme/widget", "--log-level", "loud"}},
		{name: "unknown flag", args: []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(append([]string{noEnvFile(t)}, tt.args...), fixedNow)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	setEnv(t)

	_, err := load([]string{"-h"}, fixedNow)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestLoadYAMLFileWithFlagOverrides(t *testing.T) {
	setEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")

	file := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
repositories:
  - acme/widget
organization: acme
start_date: "2024-01-01"
end_date: "2024-01-31"
output: report.json
cache_dir: /tmp/ghp-cache
concurrency: 3
incident_labels: [sev1, outage]
top_files: 0
dora: false
board:
  name: Sprint Board
  done_column: Done
project_v2:
  owner: acme
  number: 4
  done_status: Shipped
`), 0o600))

	cfg, err := load([]string{noEnvFile(t), "--config", file, "--output", "override.json"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, []domain.Repository{{Owner: "acme", Name: "widget"}}, cfg.Repositories)
	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, "override.json", cfg.Output)
	assert.Equal(t, "/tmp/ghp-cache", cfg.CacheDir)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, []string{"sev1", "outage"}, cfg.IncidentLabels)
	assert.Zero(t, cfg.TopFiles)
	assert.False(t, cfg.Dora)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NotNil(t, cfg.Board)
	assert.Equal(t, "Done", cfg.Board.DoneColumn)
	require.NotNil(t, cfg.ProjectV2)
	assert.Equal(t, 4, cfg.ProjectV2.Number)
}

func TestLoadYAMLBoardValidation(t *testing.T) {
	setEnv(t)

	file := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(file, []byte("repositories: [acme/widget]\nboard:\n  name: Sprint Board\n"), 0o600))

	_, err := load([]string{noEnvFile(t), "--config", file}, fixedNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DoneColumn")
}

func TestLoadOrganizationScanWithoutRepositories(t *testing.T) {
	setEnv(t)

	cfg, err := load([]string{noEnvFile(t), "--all-repos", "acme"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Org)
	assert.Empty(t, cfg.Repositories)
}
