package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holon-run/talkd/pkg/agent"
	"github.com/holon-run/talkd/pkg/preflight"
	"github.com/holon-run/talkd/pkg/remote"
)

var (
	pipelineOnce     bool
	pipelineInterval time.Duration
	pipelineWorkers  int
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the agent pipeline over all talks",
	Long: `Run the agents over every talk in the talks directory: on each interval
tick and whenever a talk file changes. Daemons are checked over SSH; ended
merges are finalized.

With --once a single pass is made and the command exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("interval") {
			cfg.Pipeline.Interval = pipelineInterval
		}
		if cmd.Flags().Changed("workers") {
			cfg.Pipeline.Workers = pipelineWorkers
		}
		if err := runPreflight(cmd, preflight.Config{
			TalksDir:        cfg.Talks.Dir,
			KnownHosts:      cfg.Probe.KnownHosts,
			CheckKnownHosts: true,
		}); err != nil {
			return err
		}
		prober := &remote.SSHProber{
			Timeout:    cfg.Probe.Timeout,
			KnownHosts: cfg.Probe.KnownHosts,
			TailLines:  cfg.Probe.TailLines,
		}
		runner := &agent.Runner{
			Store:    store(),
			Agent:    agent.Default(prober, cfg.Probe.Freshness, cfg.Redactor()),
			Interval: cfg.Pipeline.Interval,
			Workers:  cfg.Pipeline.Workers,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if pipelineOnce {
			return runner.RunOnce(ctx)
		}
		return runner.Run(ctx)
	},
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineOnce, "once", false, "Make one pass and exit")
	pipelineCmd.Flags().DurationVar(&pipelineInterval, "interval", time.Minute, "Time between passes (overrides pipeline.interval)")
	pipelineCmd.Flags().IntVar(&pipelineWorkers, "workers", 4, "Talks processed concurrently (overrides pipeline.workers)")
	rootCmd.AddCommand(pipelineCmd)
}
