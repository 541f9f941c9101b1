// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/analyze"
	"github.com/pdiddy/research-agent/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and report credentials",
	Long: `Check loads and validates the configuration, reports which credentials
are present, confirms the reasoning backend can be constructed, and opens the
cache. It makes no network calls to the catalog or the reasoning service.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	cfg := loaded.Config

	file := loaded.File
	if file == "" {
		file = "(defaults only)"
	}
	fmt.Fprintf(w, "Config:        %s\n", file)
	fmt.Fprintf(w, "Secrets:       %s\n", strings.Join(loaded.Secrets, ", "))
	fmt.Fprintf(w, "Interests:     %s\n", strings.Join(cfg.Research.Interests, ", "))
	fmt.Fprintf(w, "Categories:    %s\n", strings.Join(cfg.Research.Categories, ", "))
	fmt.Fprintf(w, "Analyzer:      %s (%s)\n", cfg.Analyzer.Backend, cfg.Analyzer.Model)
	if cfg.Analyzer.Backend != types.BackendCLI {
		fmt.Fprintf(w, "  API key:     %s\n", present(cfg.Analyzer.APIKey))
	}
	fmt.Fprintf(w, "Cache:         %s, ttl %s\n", cfg.Cache.Backend, cfg.Cache.TTL)
	if cfg.Notifications.Discord.Enabled {
		fmt.Fprintf(w, "Discord:       webhook %s\n", present(cfg.Notifications.Discord.WebhookURL))
	}
	if cfg.Notifications.ObjectStore.Enabled {
		obj := cfg.Notifications.ObjectStore
		fmt.Fprintf(w, "Object store:  %s/%s, access key %s\n", obj.Endpoint, obj.Bucket, present(obj.AccessKey))
	}

	var problems []string
	r, err := analyze.NewReasoner(cfg.Analyzer, log)
	if err != nil {
		problems = append(problems, err.Error())
	} else if cli, ok := r.(*analyze.CLIBackend); ok && !cli.Available() {
		problems = append(problems, fmt.Sprintf("analyzer command %q not found in PATH", cfg.Analyzer.Command))
	}

	c, err := openCache(loaded)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		c.Close()
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(w, "FAIL  %s\n", p)
		}
		return fmt.Errorf("%d problem(s) found", len(problems))
	}
	fmt.Fprintln(w, "OK")
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long: `Config prints the configuration after defaults, the config file, the
environment, and secrets are applied. Credentials are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loaded.Config
		cfg.Analyzer.APIKey = mask(cfg.Analyzer.APIKey)
		cfg.Notifications.Discord.WebhookURL = mask(cfg.Notifications.Discord.WebhookURL)
		cfg.Notifications.ObjectStore.AccessKey = mask(cfg.Notifications.ObjectStore.AccessKey)
		cfg.Notifications.ObjectStore.SecretKey = mask(cfg.Notifications.ObjectStore.SecretKey)

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

func init() {
	configCmd.Flags().Bool("json", false, "print as JSON instead of YAML")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}
