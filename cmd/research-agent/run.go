// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/config"
	"github.com/pdiddy/research-agent/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the digest agent once or on its schedule",
	Long: `Run starts the agent. With --once it runs a single cycle of the chosen
job (daily by default), prints the cycle result, and exits non-zero when the
cycle failed after all retries.

Without --once it registers the daily, weekly, and monitoring jobs from the
schedule section and runs until interrupted. SIGINT or SIGTERM stops new
cycles and waits for the one in flight. The config file is watched and
reloaded between cycles.`,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("once")
	jobName, _ := cmd.Flags().GetString("job")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src agent.ConfigSource = agent.StaticConfig(loaded.Config)
	var watcher *config.Watcher
	if !once && loaded.File != "" {
		w, err := config.Watch(cfgOpts, loaded)
		if err != nil {
			log.WithError(err).Warn("config reload disabled")
		} else {
			watcher = w
			defer w.Close()
			w.OnReload(func(cfg types.AgentConfig) {
				if cfg.Schedule != loaded.Config.Schedule {
					log.Warn("schedule changes take effect after restart")
				}
			})
			go w.Run(ctx)
			src = w
		}
	}

	p, err := buildPipeline(ctx, loaded, src)
	if err != nil {
		return err
	}
	defer p.Close()

	if once {
		job, ok := agent.LookupJob(jobName)
		if !ok {
			return fmt.Errorf("unknown job %q (want daily, weekly, or monitoring)", jobName)
		}
		res, err := p.orch.Run(ctx, job)
		if perr := printResult(cmd.OutOrStdout(), res, asJSON); perr != nil {
			return perr
		}
		return err
	}

	cfg := src.Current()
	if cfg.Health.Enabled {
		hs := agent.NewHealthServer(cfg.Health.Addr, p.orch, log)
		hs.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("health server shutdown")
			}
		}()
	}
	if watcher != nil {
		log.WithField("file", loaded.File).Info("watching config for changes")
	}
	return p.orch.Start(ctx)
}

func printResult(w io.Writer, res types.CycleResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Cycle %s (%s): %s\n", res.ID, res.Job, res.Status)
	if res.Message != "" {
		fmt.Fprintf(w, "  %s\n", res.Message)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", res.Error)
	}
	fmt.Fprintf(w, "  attempts: %d  duration: %s\n", res.Attempts, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  fetched %d, filtered %d, new %d, analyzed %d, cached %d, published %d\n",
		res.Fetched, res.Filtered, res.New, res.Analyzed, res.Cached, res.Published)

	keys := make([]string, 0, len(res.Artifacts))
	for k := range res.Artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %s\n", k, res.Artifacts[k])
	}
	for name, ok := range res.Notifications {
		state := "sent"
		if !ok {
			state = "failed"
		}
		fmt.Fprintf(w, "  notify %-9s %s\n", name, state)
	}
	return nil
}

func init() {
	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
	runCmd.Flags().String("job", "daily", "job for --once: daily, weekly, or monitoring")
	runCmd.Flags().Bool("json", false, "print the cycle result as JSON (with --once)")

	rootCmd.AddCommand(runCmd)
}
