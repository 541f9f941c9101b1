// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-agent CLI. It runs the
// arXiv digest pipeline once or on a schedule and manages its cache.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// runtime state shared by subcommands, set in PersistentPreRunE.
var (
	loaded    config.Loaded
	cfgOpts   config.Options
	log       *logrus.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "research-agent",
	Short: "Daily arXiv research digests analyzed by an LLM",
	Long: `research-agent fetches recent arXiv papers matching your research
interests, scores and filters them, asks a reasoning backend for a structured
analysis of each new paper, and publishes ranked digests as files and chat
notifications. Analyses are cached so a paper is only analyzed once.

Run a single cycle with "run --once" or start the scheduled agent with "run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		file, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")
		secretsDir, _ := cmd.Flags().GetString("secrets")

		bootstrap := logrus.New()
		bootstrap.SetOutput(os.Stderr)
		cfgOpts = config.Options{File: file, EnvFile: envFile, SecretsDir: secretsDir, Log: bootstrap}

		l, err := config.Load(cfgOpts)
		if err != nil {
			return err
		}
		loaded = l

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			loaded.Config.Logging.Level = lvl
		}
		log, logCloser, err = newLogger(loaded)
		if err != nil {
			return err
		}
		cfgOpts.Log = log
		if loaded.File != "" {
			log.WithField("file", loaded.File).Debug("using config file")
		}
		if len(loaded.Secrets) > 0 {
			log.WithField("keys", loaded.Secrets).Debug("loaded secrets")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./research-agent.yaml or ~/.config/research-agent/config.yaml)")
	pf.String("env-file", "", "dotenv file loaded before the config (default: .env)")
	pf.String("secrets", "", "directory of credential files (default: .secrets)")
	pf.String("log-level", "", "override logging.level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
