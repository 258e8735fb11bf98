package cli

import (
	"testing"

	"github.com/clwen/ilearning-ics/internal/config"
)

func resetFlags() {
	flagConfig = ""
	flagBaseURL = ""
	flagCourses = ""
	flagTimezone = ""
	flagOutput = ""
	flagVariant = ""
	flagDeepFetch = false
	flagVerbose = false
}

func TestLoadConfig_FlagsWinOverEnv(t *testing.T) {
	resetFlags()
	t.Setenv(config.EnvBaseURL, "https://env.example.edu")
	t.Setenv(config.EnvUsername, "student")
	t.Setenv(config.EnvPassword, "secret")
	t.Setenv(config.EnvCourses, "1,2")

	flagBaseURL = "https://flag.example.edu"
	flagCourses = "99"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.BaseURL != "https://flag.example.edu" {
		t.Errorf("base URL = %q, flag should win", cfg.BaseURL)
	}
	if len(cfg.Courses) != 1 || cfg.Courses[0] != "99" {
		t.Errorf("courses = %v, flag should win", cfg.Courses)
	}
	if cfg.Username != "student" {
		t.Errorf("username = %q, env should fill unflagged fields", cfg.Username)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	resetFlags()
	// No env, no flags: must fail before any network activity.
	for _, env := range []string{config.EnvBaseURL, config.EnvUsername, config.EnvPassword, config.EnvCourses} {
		t.Setenv(env, "")
	}
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"config", "base-url", "courses", "timezone", "output", "variant", "deep-fetch", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
}
