// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/arxiv"
	"github.com/pdiddy/research-agent/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and pre-filter papers without analyzing them",
	Long: `Fetch queries arXiv with the configured categories and interests, applies
the exclusion list and the heuristic relevance threshold, and prints the
surviving candidates with their score and cache state. Nothing is analyzed,
cached, or published.

Use --ai to query the preset AI categories and keywords instead.`,
	RunE: runFetch,
}

type fetchRow struct {
	Paper  types.Paper `json:"paper"`
	Score  float64     `json:"relevance_score"`
	Cached bool        `json:"cached"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	rc := loaded.Config.Research
	days, _ := cmd.Flags().GetInt("days")
	if !cmd.Flags().Changed("days") {
		days = rc.DaysBack
	}
	limit, _ := cmd.Flags().GetInt("max")
	if !cmd.Flags().Changed("max") {
		limit = rc.MaxPapersPerDay
	}
	ai, _ := cmd.Flags().GetBool("ai")
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	client := arxiv.NewClient(loaded.Config.Fetch, log)
	var (
		papers []types.Paper
		err    error
	)
	if ai {
		papers, err = client.FetchAIPapers(cmd.Context(), days, limit)
	} else {
		papers, err = client.Fetch(cmd.Context(), arxiv.Query{
			Categories: rc.Categories,
			Keywords:   rc.Interests,
			MaxResults: limit,
			DaysBack:   days,
		})
	}
	if err != nil {
		return err
	}

	scorer := arxiv.NewScorer(rc.BoostKeywords, nil)
	shown := papers
	if !all {
		shown = scorer.Filter(papers, rc.ExcludeKeywords, rc.MinRelevanceScore)
	}

	c, err := openCache(loaded)
	if err != nil {
		return err
	}
	defer c.Close()

	rows := make([]fetchRow, 0, len(shown))
	for _, p := range shown {
		rows = append(rows, fetchRow{Paper: p, Score: scorer.Score(p), Cached: c.IsAnalyzed(cmd.Context(), p)})
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Fetched %d papers, %d shown\n\n", len(papers), len(rows))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tCACHED\tPUBLISHED\tCATEGORY\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f\t%t\t%s\t%s\t%s\n",
			r.Paper.ID, r.Score, r.Cached, r.Paper.Published.Format("2006-01-02"),
			r.Paper.PrimaryCategory, truncate(r.Paper.Title, 70))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	fetchCmd.Flags().Int("days", 1, "lookback window in days (default: research.days_back)")
	fetchCmd.Flags().Int("max", 50, "maximum results requested (default: research.max_papers_per_day)")
	fetchCmd.Flags().Bool("ai", false, "use the preset AI categories and keywords")
	fetchCmd.Flags().Bool("all", false, "show papers removed by the pre-filter too")
	fetchCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(fetchCmd)
}
