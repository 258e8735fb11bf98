// Package config holds the explicit run configuration. The value is
// constructed once at startup and passed by reference into the
// components that need it; there is no ambient global state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names, kept compatible with earlier
// script-based deployments of this tool.
const (
	EnvBaseURL   = "ILEARNING_BASE_URL"
	EnvUsername  = "ILEARNING_USERNAME"
	EnvPassword  = "ILEARNING_PASSWORD"
	EnvCourses   = "COURSE_IDS"
	EnvTimezone  = "TIMEZONE"
	EnvOutput    = "ICS_OUTPUT"
	EnvDeepFetch = "DEEP_FETCH"
	EnvVariant   = "ILEARNING_VARIANT"
)

const (
	defaultTimezone = "Asia/Taipei"
	defaultOutput   = "public/ilearning.ics"
	defaultVariant  = "moodle"
)

// Config is the full run configuration. Courses entries may be bare
// course IDs, listing paths, or absolute listing URLs.
type Config struct {
	BaseURL   string   `yaml:"base_url"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Courses   []string `yaml:"courses"`
	Timezone  string   `yaml:"timezone"`
	Output    string   `yaml:"output"`
	DeepFetch bool     `yaml:"deep_fetch"`
	Variant   string   `yaml:"variant"`
}

// Default returns a Config with only the optional fields filled in.
func Default() *Config {
	return &Config{
		Timezone: defaultTimezone,
		Output:   defaultOutput,
		Variant:  defaultVariant,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// FromEnv overlays environment values onto c. Unset variables leave the
// existing value in place.
func (c *Config) FromEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvCourses); v != "" {
		c.Courses = SplitList(v)
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if v := os.Getenv(EnvVariant); v != "" {
		c.Variant = v
	}
	if os.Getenv(EnvDeepFetch) == "1" {
		c.DeepFetch = true
	}
}

// SplitList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Normalize fills missing optional values and tidies the base URL so a
// partially-specified config still behaves.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	if c.Variant == "" {
		c.Variant = defaultVariant
	}
}

// Validate reports the first missing required input. Called before any
// network activity so configuration errors abort early.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("missing base URL (set --base-url or %s)", EnvBaseURL)
	}
	if c.Username == "" {
		return fmt.Errorf("missing username (set %s)", EnvUsername)
	}
	if c.Password == "" {
		return fmt.Errorf("missing password (set %s)", EnvPassword)
	}
	if len(c.Courses) == 0 {
		return fmt.Errorf("no courses configured (set --courses or %s)", EnvCourses)
	}
	return nil
}

// Location resolves the configured IANA time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// FallbackLocation is the zone used when the configured one is unknown.
func FallbackLocation() *time.Location {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
