package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:  "https://lms.example.edu",
			Username: "student",
			Password: "secret",
			Courses:  []string{"101"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base URL", func(c *Config) { c.BaseURL = "" }},
		{"missing username", func(c *Config) { c.Username = "" }},
		{"missing password", func(c *Config) { c.Password = "" }},
		{"no courses", func(c *Config) { c.Courses = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://lms.example.edu/")
	t.Setenv(EnvUsername, "student")
	t.Setenv(EnvPassword, "secret")
	t.Setenv(EnvCourses, "123, 456 ,789")
	t.Setenv(EnvDeepFetch, "1")

	cfg := Default()
	cfg.FromEnv()
	cfg.Normalize()

	if cfg.BaseURL != "https://lms.example.edu" {
		t.Errorf("base URL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	wantCourses := []string{"123", "456", "789"}
	if !reflect.DeepEqual(cfg.Courses, wantCourses) {
		t.Errorf("courses = %v, want %v", cfg.Courses, wantCourses)
	}
	if !cfg.DeepFetch {
		t.Error("DEEP_FETCH=1 should enable deep fetch")
	}
	if cfg.Timezone != "Asia/Taipei" {
		t.Errorf("timezone default = %q", cfg.Timezone)
	}
	if cfg.Output != "public/ilearning.ics" {
		t.Errorf("output default = %q", cfg.Output)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"123,456", []string{"123", "456"}},
		{" 123 , ,456, ", []string{"123", "456"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `base_url: https://lms2020.example.edu
username: student
password: secret
courses:
  - "58430"
variant: eeclass
deep_fetch: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Variant != "eeclass" || !cfg.DeepFetch {
		t.Errorf("loaded config = %+v", cfg)
	}
	// Unspecified optional fields keep their defaults.
	if cfg.Timezone != "Asia/Taipei" || cfg.Output != "public/ilearning.ics" {
		t.Errorf("defaults not preserved: tz=%q output=%q", cfg.Timezone, cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
