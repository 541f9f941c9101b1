// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the analysis cache",
	Long: `Cache manages the analysis cache that keeps papers from being analyzed
twice. Use subcommands to show statistics, remove expired entries, or list
what is cached.`,
}

// --- stats subcommand ---

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(loaded)
		if err != nil {
			return err
		}
		defer c.Close()

		st, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Location:        %s\n", st.Location)
		fmt.Fprintf(w, "Cached papers:   %d\n", st.Count)
		fmt.Fprintf(w, "Analyzed (24h):  %d\n", st.Recent24h)
		fmt.Fprintf(w, "Size:            %.2f MB\n", float64(st.SizeBytes)/(1024*1024))
		fmt.Fprintf(w, "TTL:             %s\n", st.TTL)
		return nil
	},
}

// --- cleanup subcommand ---

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired entries (or everything with --force)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(loaded)
		if err != nil {
			return err
		}
		defer c.Close()

		force, _ := cmd.Flags().GetBool("force")
		report, err := c.EvictExpired(cmd.Context())
		if force {
			report, err = c.Clear(cmd.Context())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries, %d remaining\n", report.Removed, report.Remaining)
		return nil
	},
}

// --- list subcommand ---

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(loaded)
		if err != nil {
			return err
		}
		defer c.Close()

		entries, err := c.Entries(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].AnalyzedAt.After(entries[j].AnalyzedAt)
		})
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}

		ttl := c.TTL()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tANALYZED\tSIGNIFICANCE\tEXPIRED\tTITLE")
		for _, e := range entries {
			expired := time.Since(e.AnalyzedAt) > ttl
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%t\t%s\n",
				e.PaperID, e.AnalyzedAt.Format("2006-01-02 15:04"), e.SignificanceScore, expired, e.Title)
		}
		return tw.Flush()
	},
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output as JSON")
	cacheCleanupCmd.Flags().Bool("force", false, "remove every entry, not just expired ones")
	cacheListCmd.Flags().Int("limit", 50, "maximum entries to show (0 for all)")
	cacheListCmd.Flags().Bool("json", false, "output as JSON")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}
