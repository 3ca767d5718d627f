package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and YAML-based load/save
// behavior (first-run config creation, 0600 permissions), plus environment
// overrides. Secrets only ever come from the environment and are never
// written back by Save.

// Config is the top-level application configuration.
type Config struct {
	// SSOEntryURL is the regional single-sign-on starting page.
	SSOEntryURL string `yaml:"sso_entry_url" json:"sso_entry_url"`

	// TimetableDirectURL, if set, bypasses the portal tile click and
	// navigates straight into the timetable application.
	TimetableDirectURL string `yaml:"timetable_direct_url,omitempty" json:"timetable_direct_url,omitempty"`

	// CalendarID is the destination family calendar.
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`

	// WeeksToFetch is the size of the sync window, starting at the week
	// currently shown by the portal.
	WeeksToFetch int `yaml:"weeks_to_fetch" json:"weeks_to_fetch"`

	// Headful shows the browser window for debugging.
	Headful bool `yaml:"headful" json:"headful"`

	// LocalTimezone is the IANA zone stamped on every event (e.g. "Europe/Paris").
	LocalTimezone string `yaml:"local_timezone" json:"local_timezone"`

	// Locale names the builtin vocabulary/selector table ("fr", "en").
	Locale string `yaml:"locale" json:"locale"`

	// SelectorOverrides replaces individual selector probe lists per
	// deployment; keys are the locale package's override keys.
	SelectorOverrides map[string][]string `yaml:"selector_overrides,omitempty" json:"selector_overrides,omitempty"`

	// Listen is the HTTP listen address for the status endpoints.
	// Empty disables the status server.
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`

	// SyncCron is a cron-style schedule for periodic sync runs
	// (e.g. "0 6 * * *"). Empty means single-shot operation.
	SyncCron string `yaml:"sync,omitempty" json:"sync,omitempty"`

	// DumpDir, if set, receives an ICS snapshot of each run's events.
	DumpDir string `yaml:"dump_dir,omitempty" json:"dump_dir,omitempty"`

	// CredentialsPath / TokenPath locate the calendar OAuth client secrets
	// and the persisted user token.
	CredentialsPath string `yaml:"credentials_path" json:"credentials_path"`
	TokenPath       string `yaml:"token_path" json:"token_path"`

	// SSO credentials. Environment only; never serialized.
	SSOUser     string `yaml:"-" json:"-"`
	SSOPassword string `yaml:"-" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		WeeksToFetch:    2,
		LocalTimezone:   "Europe/Paris",
		Locale:          "fr",
		CredentialsPath: "credentials.json",
		TokenPath:       "token.json",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.WeeksToFetch <= 0 {
		c.WeeksToFetch = 2
	}
	if c.LocalTimezone == "" {
		c.LocalTimezone = "Europe/Paris"
	}
	if c.Locale == "" {
		c.Locale = "fr"
	}
	if c.CredentialsPath == "" {
		c.CredentialsPath = "credentials.json"
	}
	if c.TokenPath == "" {
		c.TokenPath = "token.json"
	}
}

// Validate reports whether the configuration is complete enough to run a
// sync. Violations are configuration errors, not pipeline errors.
func (c *Config) Validate() error {
	if c.SSOEntryURL == "" {
		return errors.New("config: sso_entry_url is required")
	}
	if c.CalendarID == "" {
		return errors.New("config: calendar_id is required")
	}
	if c.SSOUser == "" || c.SSOPassword == "" {
		return errors.New("config: MOCAL_SSO_USER and MOCAL_SSO_PASSWORD must be set")
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.LocalTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid local_timezone %q: %w", c.LocalTimezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path and applies environment
// overrides on top.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - continue with the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - In both cases, a ".env" file in the working directory (if any) is
//     loaded first, then MOCAL_* environment variables override the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	// Optional .env bootstrap; absence is not an error.
	_ = godotenv.Load()

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.Normalize()

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file-provided values with MOCAL_* environment variables.
// Secrets have no file counterpart at all.
func (c *Config) applyEnv() {
	setString(&c.SSOEntryURL, "MOCAL_SSO_ENTRY_URL")
	setString(&c.TimetableDirectURL, "MOCAL_TIMETABLE_URL")
	setString(&c.CalendarID, "MOCAL_CALENDAR_ID")
	setInt(&c.WeeksToFetch, "MOCAL_WEEKS")
	setBool(&c.Headful, "MOCAL_HEADFUL")
	setString(&c.LocalTimezone, "MOCAL_TZ")
	setString(&c.Locale, "MOCAL_LOCALE")
	setString(&c.Listen, "MOCAL_LISTEN")
	setString(&c.SyncCron, "MOCAL_SYNC_CRON")
	setString(&c.DumpDir, "MOCAL_DUMP_DIR")
	setString(&c.CredentialsPath, "MOCAL_CREDENTIALS_PATH")
	setString(&c.TokenPath, "MOCAL_TOKEN_PATH")

	setString(&c.SSOUser, "MOCAL_SSO_USER")
	setString(&c.SSOPassword, "MOCAL_SSO_PASSWORD")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML (secrets excluded by struct tags).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".mocal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
