package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/logging"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
	"github.com/theirongolddev/aboradar/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDB       string
	flagAsOf     string
	flagCategory string
	flagQuiet    bool
)

// Shared state prepared before every command runs.
var (
	appCfg config.Config
	appLog = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "aboradar",
	Short: "Subscription costs and cancellation deadlines",
	Long:  "Track recurring subscriptions: monthly costs, budget, and when each contract must be cancelled.",
	RunE:  runSummary,

	PersistentPreRunE: prepare,
	SilenceUsage:      true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	os.Exit(run())
}

// run executes the root command and flushes the logger.
func run() int {
	err := rootCmd.Execute()
	_ = appLog.Sync()
	if err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Subscription database (default from config or data dir)")
	rootCmd.PersistentFlags().StringVar(&flagAsOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVarP(&flagCategory, "category", "c", "", "Filter to one category")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress log output")
}

// prepare loads the config and builds the logger. A broken config file is
// reported but falls back to defaults so read-only commands still work.
func prepare(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()

	var console io.Writer = os.Stderr
	if flagQuiet {
		console = nil
	}
	appCfg = cfg
	appLog = logging.New(cfg.Log, console)

	if err != nil {
		appLog.Warn("config unreadable, using defaults", zap.String("path", config.ConfigPath()), zap.Error(err))
		appCfg = config.DefaultConfig()
	}
	if flagAsOf != "" {
		if _, err := parseAsOf(flagAsOf); err != nil {
			return err
		}
	}
	return nil
}

// dbPath resolves the database: --db, then config data_dir, then the default.
func dbPath() string {
	if flagDB != "" {
		return flagDB
	}
	return appCfg.DBPath(pipeline.DBPath())
}

func parseAsOf(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// asOf returns the evaluation date, today unless --as-of is given.
func asOf() time.Time {
	if flagAsOf == "" {
		return time.Now()
	}
	t, _ := parseAsOf(flagAsOf)
	return t
}

// loadData is the shared data loading path used by all read commands.
// The --category filter is applied here.
func loadData() ([]model.Subscription, error) {
	path := dbPath()
	result, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}

	appLog.Debug("loaded subscriptions",
		zap.String("db", path),
		zap.Int("count", len(result.Subscriptions)),
		zap.Duration("took", result.LoadTime),
	)
	if result.Dropped > 0 {
		appLog.Warn("skipped invalid records", zap.Int("dropped", result.Dropped))
	}

	return pipeline.FilterByCategory(result.Subscriptions, flagCategory), nil
}

// withStore opens the database for a write and closes it afterwards.
func withStore(fn func(*store.Store) error) error {
	st, err := store.Open(dbPath())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(st)
}
