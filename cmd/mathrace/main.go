// Package main provides the CLI entrypoint for mathrace.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/mathrace/internal/config"
	"github.com/verte-zerg/mathrace/internal/identity"
	"github.com/verte-zerg/mathrace/internal/logger"
	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/race"
	"github.com/verte-zerg/mathrace/internal/stats"
	"github.com/verte-zerg/mathrace/internal/statsclient"
	"github.com/verte-zerg/mathrace/internal/store"
	"github.com/verte-zerg/mathrace/internal/tui"
)

const (
	defaultAPIBase     = "http://localhost:5000/api"
	defaultTimeout     = statsclient.DefaultTimeout
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
	defaultHistoryLast = 20
	defaultTrendWindow = 5
)

var (
	raceAPIBase string
	raceTimeout time.Duration
	raceOffline bool

	logLevel string

	historyLast        int
	historyTrendWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mathrace",
		Short:         "Race to the finish by solving addition problems",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRaceCmd,
	}

	rootCmd.Flags().StringVar(&raceAPIBase, "api-base", defaultAPIBase, "stats service base URL")
	rootCmd.Flags().DurationVar(&raceTimeout, "timeout", defaultTimeout, "timeout for each stats request")
	rootCmd.Flags().BoolVar(&raceOffline, "offline", false, "play without contacting the stats service")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newWhoamiCmd())

	return rootCmd
}

func runRaceCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "api-base", &raceAPIBase, config.Env(config.EnvAPIBase), fileCfg.Race.APIBase)
	applyDurationConfig(cmd, "timeout", &raceTimeout, fileCfg.Race.Timeout)
	applyBoolConfig(cmd, "offline", &raceOffline, fileCfg.Race.Offline)

	cfg := model.Config{
		APIBase: strings.TrimSpace(raceAPIBase),
		Timeout: raceTimeout,
		Offline: raceOffline,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	log, closeLog := openLogger(cmd, fileCfg)
	defer closeLog()

	// A missing store degrades to a session-only identity and no local history.
	var (
		kv       identity.KV
		recorder tui.RunRecorder
	)
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		log.Warn().Err(err).Msg("local store unavailable")
	} else {
		kv, recorder = st, st
		defer closeStore(st)
	}

	userID, _ := identity.NewProvider(kv, log).GetOrCreate(context.Background())
	log.Info().Str("user_id", userID).Bool("offline", cfg.Offline).Msg("starting race")

	session := race.New(race.Options{
		UserID: userID,
		Client: newStatsClient(cfg, log),
		Logger: log,
	})
	program := tea.NewProgram(tui.NewModel(session, recorder, log), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStatsClient(cfg model.Config, log zerolog.Logger) *statsclient.Client {
	if cfg.Offline {
		return statsclient.NewOffline(log)
	}
	return statsclient.New(cfg.APIBase, cfg.Timeout, log)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the config file at path unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show locally recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "limit to last N runs (0 for all)")
	cmd.Flags().IntVar(&historyTrendWindow, "trend-window", defaultTrendWindow, "moving average window for the time trend")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg := model.HistoryConfig{
		Last:        historyLast,
		TrendWindow: historyTrendWindow,
	}
	if cfg.Last < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if cfg.TrendWindow <= 0 {
		return fmt.Errorf("--trend-window must be > 0")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if err := report.Render(cmd.OutOrStdout(), stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print this device's player identifier",
		Args:  cobra.NoArgs,
		RunE:  runWhoamiCmd,
	}
}

func runWhoamiCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, closeLog := openLogger(cmd, fileCfg)
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	id, persisted := identity.NewProvider(st, log).GetOrCreate(cmd.Context())
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !persisted {
		logErrln("warning: identifier could not be saved and will change on the next run")
	}
	return nil
}

func loadFileConfig() (config.FileConfig, error) {
	config.LoadDotEnv()
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

// openLogger returns the file logger and a func closing its file. The TUI
// owns stdout, so when the log file cannot be opened logs are discarded.
func openLogger(cmd *cobra.Command, fileCfg config.FileConfig) (zerolog.Logger, func()) {
	level := logLevel
	applyStringConfig(cmd, "log-level", &level, config.Env(config.EnvLogLevel), fileCfg.Log.Level)
	format := firstString(defaultLogFormat, config.Env(config.EnvLogFormat), fileCfg.Log.Format)
	path := firstString(config.DefaultLogPath(), fileCfg.Log.Path)

	file, err := logger.OpenFile(path)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		return logger.Setup(io.Discard, level, format), func() {}
	}
	return logger.Setup(file, level, format), func() {
		_ = file.Close()
	}
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

// applyStringConfig sets target from the first non-nil value unless the flag
// was given explicitly. Values are passed in precedence order.
func applyStringConfig(cmd *cobra.Command, name string, target *string, values ...*string) {
	if cmd.Flags().Changed(name) {
		return
	}
	for _, v := range values {
		if v != nil {
			*target = *v
			return
		}
	}
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value.Duration
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func firstString(def string, values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return def
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# mathrace configuration
# Uncomment a value to enable it. CLI flags and environment variables override config values.

[race]
# api-base = %q   # Stats service base URL (env %s)
# timeout = %q                          # Timeout for each stats request
# offline = false                         # Play without contacting the stats service

[log]
# level = %q                          # trace, debug, info, warn, error (env %s)
# format = %q                         # json or pretty (env %s)
# path = %q
`,
		defaultAPIBase, config.EnvAPIBase,
		defaultTimeout.String(),
		defaultLogLevel, config.EnvLogLevel,
		defaultLogFormat, config.EnvLogFormat,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if cfg.Offline {
		return nil
	}
	if cfg.APIBase == "" {
		return fmt.Errorf("--api-base must not be empty (or use --offline)")
	}
	if !strings.HasPrefix(cfg.APIBase, "http://") && !strings.HasPrefix(cfg.APIBase, "https://") {
		return fmt.Errorf("--api-base must be an http(s) URL")
	}
	return nil
}

func logErrf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format, args...)
}

func logErrln(args ...any) {
	_, _ = fmt.Fprintln(os.Stderr, args...)
}
