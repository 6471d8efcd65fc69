package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tiliavir/trivial-focus-tracker/internal/config"
	"github.com/Tiliavir/trivial-focus-tracker/internal/logging"
)

var (
	configFile string

	v        *viper.Viper
	cfg      config.Config
	logger   zerolog.Logger
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "tft",
	Short: "Trivial Focus Tracker – todos, a focus timer and an event log",
	Long: `tft is a single-binary todo list with a countdown focus timer.
Finished focus sessions are recorded as events. All data is stored as
human-readable JSON files in ~/.tft/ and can be synced to a remote.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeLog() },
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	v = config.NewViper()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ~/.tft/config.yaml)")
	pf.String("data-dir", "", "Data directory (default ~/.tft)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	_ = v.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup resolves the configuration and opens the log before any command
// runs.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = c

	l, closer, err := logging.New(cfg.Log.Level, cfg.LogPath())
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	logger = l
	closeLog = closer
	logger.Debug().Str("cmd", cmd.CommandPath()).Str("data_dir", cfg.DataDir).Msg("starting")
	return nil
}
