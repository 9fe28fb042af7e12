package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holon-run/talkd/pkg/config"
	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/preflight"
	"github.com/holon-run/talkd/pkg/talk"
)

var (
	configPath    string
	logLevel      string
	talksDir      string
	skipPreflight bool

	// cfg is loaded before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "talkd",
	Short: "talkd turns issue comments into remote jobs and tracks them to completion.",
	Long: `talkd reads commands such as "release" from GitHub issue comments and
keeps one state document ("talk") per job. The pipeline command watches the
talks, checks on their remote daemons over SSH and records the outcome.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("talks") {
			loaded.Talks.Dir = talksDir
		}
		logCfg := loaded.Logger()
		logCfg.Output = os.Stderr
		if err := talklog.Init(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = talklog.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "progress", "Log level: debug, info, progress, minimal, warn, error")
	rootCmd.PersistentFlags().StringVar(&talksDir, "talks", "", "Directory holding the talk documents (overrides talks.dir)")
	rootCmd.PersistentFlags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks")
}

func runPreflight(cmd *cobra.Command, pc preflight.Config) error {
	pc.Skip = skipPreflight
	return preflight.NewChecker(pc).Run(cmd.Context())
}

func store() *talk.Store {
	return talk.NewStore(cfg.Talks.Dir)
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
