// Package config loads the server configuration from a YAML file with
// MEDCAL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/medical-calendar/backend/internal/schedule"
)

// EnvPrefix prefixes environment overrides, e.g. MEDCAL_SESSION_SECRET.
const EnvPrefix = "MEDCAL"

// Seed sources for an empty database.
const (
	SeedSample = "sample"
	SeedICS    = "ics"
	SeedNone   = "none"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CalendarConfig controls the scheduling view model.
type CalendarConfig struct {
	// DefaultView is the view new sessions open with.
	DefaultView string `yaml:"default_view" mapstructure:"default_view"`
	// GroupOrder is "inserted" or "start"; see schedule.GroupOrder.
	GroupOrder string `yaml:"group_order" mapstructure:"group_order"`
	// Seed picks the initial events when the database holds none:
	// "sample", "ics" or "none".
	Seed string `yaml:"seed" mapstructure:"seed"`
	// SeedICS is the iCalendar file read when Seed is "ics".
	SeedICS string `yaml:"seed_ics" mapstructure:"seed_ics"`
	// ICSHorizonDays bounds recurrence expansion of imported feeds.
	ICSHorizonDays int `yaml:"ics_horizon_days" mapstructure:"ics_horizon_days"`
}

// Account is a dashboard login. PasswordHash is a bcrypt hash.
type Account struct {
	Email        string `yaml:"email" mapstructure:"email"`
	Name         string `yaml:"name" mapstructure:"name"`
	Role         string `yaml:"role" mapstructure:"role"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
}

// SessionConfig controls login sessions. With no accounts configured any
// credentials are accepted.
type SessionConfig struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Accounts []Account     `yaml:"accounts" mapstructure:"accounts"`
}

// Config is the top-level server configuration.
type Config struct {
	Listen    string `yaml:"listen" mapstructure:"listen"`
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
	// Timezone is the IANA zone used to cut events into calendar days.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Calendar CalendarConfig `yaml:"calendar" mapstructure:"calendar"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8099",
		DataDir:   "/data",
		StaticDir: "./static",
		Timezone:  "Asia/Manila",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Calendar: CalendarConfig{
			DefaultView:    string(schedule.ViewMonth),
			GroupOrder:     schedule.OrderInserted.String(),
			Seed:           SeedSample,
			ICSHorizonDays: 90,
		},
		Session: SessionConfig{
			TTL:      72 * time.Hour,
			Accounts: []Account{},
		},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.StaticDir == "" {
		c.StaticDir = d.StaticDir
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Calendar.DefaultView == "" {
		c.Calendar.DefaultView = d.Calendar.DefaultView
	}
	if c.Calendar.GroupOrder == "" {
		c.Calendar.GroupOrder = d.Calendar.GroupOrder
	}
	if c.Calendar.Seed == "" {
		c.Calendar.Seed = d.Calendar.Seed
	}
	if c.Calendar.ICSHorizonDays <= 0 {
		c.Calendar.ICSHorizonDays = d.Calendar.ICSHorizonDays
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = d.Session.TTL
	}
	if c.Session.Accounts == nil {
		c.Session.Accounts = []Account{}
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := schedule.ParseViewMode(c.Calendar.DefaultView); err != nil {
		return fmt.Errorf("calendar.default_view: %w", err)
	}
	if _, err := schedule.ParseGroupOrder(c.Calendar.GroupOrder); err != nil {
		return fmt.Errorf("calendar.group_order: %w", err)
	}
	switch c.Calendar.Seed {
	case SeedSample, SeedNone:
	case SeedICS:
		if c.Calendar.SeedICS == "" {
			return errors.New("calendar.seed_ics is required when calendar.seed is \"ics\"")
		}
	default:
		return fmt.Errorf("calendar.seed: unknown source %q", c.Calendar.Seed)
	}
	for i, a := range c.Session.Accounts {
		if a.Email == "" || a.PasswordHash == "" {
			return fmt.Errorf("session.accounts[%d]: email and password_hash are required", i)
		}
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// View returns the configured default view.
func (c *Config) View() schedule.ViewMode {
	m, err := schedule.ParseViewMode(c.Calendar.DefaultView)
	if err != nil {
		return schedule.ViewMonth
	}
	return m
}

// Order returns the configured group order.
func (c *Config) Order() schedule.GroupOrder {
	o, _ := schedule.ParseGroupOrder(c.Calendar.GroupOrder)
	return o
}

// ICSHorizon returns how far ahead recurring events are expanded.
func (c *Config) ICSHorizon() time.Duration {
	return time.Duration(c.Calendar.ICSHorizonDays) * 24 * time.Hour
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file is created with the defaults first.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := Save(path, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML through a temp file and rename, with 0600
// permissions since the file may hold the session secret.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".medcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
