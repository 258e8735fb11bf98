// Package cli wires configuration, session, scraper, and calendar
// output into the ilearning-ics command.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clwen/ilearning-ics/internal/assignment"
	"github.com/clwen/ilearning-ics/internal/calendar"
	"github.com/clwen/ilearning-ics/internal/config"
	"github.com/clwen/ilearning-ics/internal/logger"
	"github.com/clwen/ilearning-ics/internal/scraper"
	"github.com/clwen/ilearning-ics/internal/session"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig    string
	flagBaseURL   string
	flagCourses   string
	flagTimezone  string
	flagOutput    string
	flagVariant   string
	flagDeepFetch bool
	flagVerbose   bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ilearning-ics",
		Short: "Generate a deadline calendar from an iLearning/ee-class site",
		Long: `Logs into an iLearning (Moodle-like) or ee-class site, collects
assignment titles and due dates from each configured course, and writes
a subscribable .ics file with reminders one day and three hours before
each deadline.

Configuration comes from flags, environment variables (ILEARNING_BASE_URL,
ILEARNING_USERNAME, ILEARNING_PASSWORD, COURSE_IDS, TIMEZONE, ICS_OUTPUT,
DEEP_FETCH), or an optional YAML file, in that order of precedence.`,
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to optional YAML config file")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Site base URL, e.g. https://ilearning.school.edu")
	cmd.Flags().StringVar(&flagCourses, "courses", "", "Comma-separated course IDs or listing URLs")
	cmd.Flags().StringVar(&flagTimezone, "timezone", "", "IANA time zone for due dates (default Asia/Taipei)")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output .ics path (default public/ilearning.ics)")
	cmd.Flags().StringVar(&flagVariant, "variant", "", "Site variant: moodle or eeclass (default moodle)")
	cmd.Flags().BoolVar(&flagDeepFetch, "deep-fetch", false, "Fetch assignment detail pages when the listing shows no due date")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	variant, err := scraper.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("unknown time zone, falling back", logger.Fields{
			"timezone": cfg.Timezone,
			"fallback": "Asia/Taipei",
		})
		loc = config.FallbackLocation()
	}

	sess, err := session.New(cfg.BaseURL, cfg.Username, cfg.Password)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	ctx := cmd.Context()
	logger.Info("logging in", logger.Fields{"base_url": cfg.BaseURL})
	if err := sess.Login(ctx); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	collector := &scraper.Collector{
		Variant:   variant,
		Zone:      loc,
		DeepFetch: cfg.DeepFetch,
		Fetcher:   sess,
	}

	var all []assignment.Assignment
	skipped := 0
	for _, entry := range cfg.Courses {
		ref, courseID := variant.ListingRef(entry)
		pageURL := sess.Resolve(ref)

		doc, err := sess.Fetch(ctx, pageURL)
		if err != nil {
			logger.Warn("skipping course", logger.Fields{
				"course": courseID,
				"url":    pageURL,
				"cause":  err.Error(),
			})
			skipped++
			continue
		}

		found := collector.Collect(ctx, doc, pageURL, courseID)
		logger.Info("collected assignments", logger.Fields{
			"course": courseID,
			"count":  len(found),
		})
		all = append(all, found...)
	}

	cal := calendar.Build(all, time.Now().In(loc))
	if err := calendar.Write(cfg.Output, cal); err != nil {
		return err
	}

	logger.Info("wrote calendar", logger.Fields{
		"path":            cfg.Output,
		"events":          len(all),
		"skipped_courses": skipped,
	})
	return nil
}

// loadConfig merges config file, environment, and flags, flags winning.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.FromEnv()

	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagCourses != "" {
		cfg.Courses = config.SplitList(flagCourses)
	}
	if flagTimezone != "" {
		cfg.Timezone = flagTimezone
	}
	if flagOutput != "" {
		cfg.Output = flagOutput
	}
	if flagVariant != "" {
		cfg.Variant = flagVariant
	}
	if flagDeepFetch {
		cfg.DeepFetch = true
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
