package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artyomia/marketingganttai/internal/palette"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Store.Driver)
	assert.Equal(t, filepath.Join("~", ".marketingganttai", "tasks.yaml"), cfg.Store.Path)
	assert.Equal(t, "tasks", cfg.Store.Table)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.False(t, cfg.Tracker.SyncOnMutate)
	assert.True(t, cfg.Tracker.StrictValidation)
	assert.Equal(t, []string{"Tuan", "Tu"}, cfg.Tracker.Assignees)
	assert.Equal(t, 50.0, cfg.Layout.DayWidth)
	assert.Equal(t, 3, cfg.Layout.LeadDays)
	assert.Equal(t, 45, cfg.Layout.HorizonDays)
	assert.Equal(t, 15, cfg.Layout.TrailDays)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  path: /var/lib/mkt/tasks.db
tracker:
  sync_on_mutate: true
  assignees: [Linh, Minh, Tu]
layout:
  day_width: 30
palette:
  overrides:
    - keyword: promo
      bucket: 7
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/mkt/tasks.db", cfg.Store.Path)
	assert.True(t, cfg.Tracker.SyncOnMutate)
	assert.Equal(t, []string{"Linh", "Minh", "Tu"}, cfg.Tracker.Assignees)
	assert.Equal(t, 30.0, cfg.Layout.DayWidth)
	assert.Equal(t, 45, cfg.Layout.HorizonDays, "unset keys keep defaults")
	assert.Equal(t, "text", cfg.Log.Format)

	r := cfg.Resolver()
	assert.Equal(t, 7, r.Bucket("Spring Promo"))
	assert.Equal(t, len(palette.DefaultPalette), r.Size())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MKT_STORE_DRIVER", "rest")
	t.Setenv("MKT_STORE_URL", "https://example.supabase.co")
	t.Setenv("GEMINI_API_KEY", "from-google-env")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Store.Driver)
	assert.Equal(t, "https://example.supabase.co", cfg.Store.URL)
	assert.Equal(t, "from-google-env", cfg.Gemini.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadPrefixedKeyWins(t *testing.T) {
	t.Setenv("MKT_GEMINI_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "plain")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Gemini.APIKey)
}

func TestLoadZeroLayoutPadding(t *testing.T) {
	cfg, err := Load(writeConfig(t, "layout:\n  lead_days: 0\n  trail_days: 0\n"))

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Layout.LeadDays)
	assert.Equal(t, 0, cfg.Layout.TrailDays)
	assert.Equal(t, 45, cfg.Layout.HorizonDays)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	_, err = Load(writeConfig(t, "store:\n  driver: mongo\n"))
	assert.ErrorContains(t, err, "invalid store.driver")

	_, err = Load(writeConfig(t, "store:\n  driver: rest\n"))
	assert.ErrorContains(t, err, "store.url is required")

	_, err = Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid log level")

	_, err = Load(writeConfig(t, "layout:\n  trail_days: -2\n"))
	assert.ErrorContains(t, err, "invalid layout.trail_days -2")

	_, err = Load(writeConfig(t, "store: [\n"))
	assert.ErrorContains(t, err, "failed to read config")
}
