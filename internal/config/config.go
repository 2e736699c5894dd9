// Package config handles application configuration using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/artyomia/marketingganttai/internal/logging"
	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/palette"
	"github.com/artyomia/marketingganttai/internal/planner"
	"github.com/artyomia/marketingganttai/internal/store"
	"github.com/artyomia/marketingganttai/internal/timeline"
	"github.com/artyomia/marketingganttai/internal/tracker"
)

// EnvPrefix prefixes every environment override, e.g. MKT_STORE_DRIVER.
const EnvPrefix = "MKT"

// DefaultDir holds the config file and the default task file.
const DefaultDir = ".marketingganttai"

// Config holds the application configuration.
type Config struct {
	Store   store.Config         `mapstructure:"store"`
	Gemini  planner.GeminiConfig `mapstructure:"gemini"`
	Tracker tracker.Options      `mapstructure:"tracker"`
	Layout  timeline.Config      `mapstructure:"layout"`
	Palette PaletteConfig        `mapstructure:"palette"`
	Log     logging.Config       `mapstructure:"log"`
	Server  ServerConfig         `mapstructure:"server"`
}

// PaletteConfig replaces the default palette or overrides when non-empty.
type PaletteConfig struct {
	Styles    []palette.Style    `mapstructure:"styles"`
	Overrides []palette.Override `mapstructure:"overrides"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Resolver builds the category resolver described by the palette section.
func (c *Config) Resolver() *palette.Resolver {
	styles := c.Palette.Styles
	if len(styles) == 0 {
		styles = palette.DefaultPalette
	}
	overrides := c.Palette.Overrides
	if len(overrides) == 0 {
		overrides = palette.DefaultOverrides
	}
	return palette.New(styles, overrides)
}

// Load reads configuration from the file at configPath (or the default
// location when empty) and the environment. A missing default file is not an
// error; a missing explicit file is.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Join(home, DefaultDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The generator key is also read from the variable Google tooling uses.
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverYAML, store.DriverSQLite, store.DriverREST:
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of yaml, sqlite, rest", c.Store.Driver)
	}
	if c.Store.Driver == store.DriverREST && c.Store.URL == "" {
		return fmt.Errorf("store.url is required for the rest driver")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Layout.DayWidth < 0 {
		return fmt.Errorf("invalid layout.day_width %v: must be positive", c.Layout.DayWidth)
	}
	for key, days := range map[string]int{
		"lead_days":    c.Layout.LeadDays,
		"horizon_days": c.Layout.HorizonDays,
		"trail_days":   c.Layout.TrailDays,
	} {
		if days < 0 {
			return fmt.Errorf("invalid layout.%s %d: must not be negative", key, days)
		}
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", store.DriverYAML)
	v.SetDefault("store.path", filepath.Join("~", DefaultDir, "tasks.yaml"))
	v.SetDefault("store.url", "")
	v.SetDefault("store.api_key", "")
	v.SetDefault("store.table", store.DefaultTable)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", planner.DefaultModel)
	v.SetDefault("gemini.endpoint", "")

	v.SetDefault("tracker.sync_on_mutate", false)
	v.SetDefault("tracker.strict_validation", true)
	v.SetDefault("tracker.assignees", model.DefaultAssignees)

	v.SetDefault("layout.day_width", timeline.DefaultDayWidth)
	v.SetDefault("layout.lead_days", timeline.DefaultLeadDays)
	v.SetDefault("layout.horizon_days", timeline.DefaultHorizonDays)
	v.SetDefault("layout.trail_days", timeline.DefaultTrailDays)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatJSON)

	v.SetDefault("server.addr", ":8080")
}
