package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"talentgrid.fit/jobpipe/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	dayStart := defaultUTCDay()
	_, dayEnd := utcDayBounds(dayStart)

	stats, err := pool.QueryPipelineStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query pipeline stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	sourceRows := make([][]string, 0, len(stats.Sources)+1)
	for _, row := range stats.Sources {
		sourceRows = append(sourceRows, []string{
			row.Source,
			fmt.Sprintf("%d", row.RawPostings),
			fmt.Sprintf("%d", row.Processed),
			fmt.Sprintf("%d", row.Rejected),
			fmt.Sprintf("%d", row.CanonicalJobs),
			fmt.Sprintf("%.3f", row.CollapseRate),
		})
	}
	sourceRows = append(sourceRows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.Totals.RawPostings),
		fmt.Sprintf("%d", stats.Totals.Processed),
		fmt.Sprintf("%d", stats.Totals.Rejected),
		fmt.Sprintf("%d", stats.Totals.CanonicalJobs),
		"",
	})

	if err := writeTable([]string{"source", "raw_postings", "processed", "rejected", "canonical_jobs", "collapse_rate"}, sourceRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render source table: %v\n", err)
		return 1
	}

	fmt.Println()
	decisionRows := [][]string{
		{"new_jobs", fmt.Sprintf("%d", stats.Decisions.NewJobs)},
		{"merged", fmt.Sprintf("%d", stats.Decisions.Merged)},
		{"rejected", fmt.Sprintf("%d", stats.Decisions.Rejected)},
		{"merged_by_url", fmt.Sprintf("%d", stats.Decisions.MergedByURL)},
		{"merged_by_title", fmt.Sprintf("%d", stats.Decisions.MergedByTitle)},
		{"merged_by_content", fmt.Sprintf("%d", stats.Decisions.MergedByContent)},
		{"pending_backlog", fmt.Sprintf("%d", stats.Decisions.PendingBacklog)},
		{"reposts_recorded", fmt.Sprintf("%d", stats.Decisions.RepostsRecorded)},
		{"ingested_today", fmt.Sprintf("%d", stats.Decisions.IngestedToday)},
		{"jobs_created_today", fmt.Sprintf("%d", stats.Decisions.JobsCreatedToday)},
	}
	if err := writeTable([]string{"metric", "value"}, decisionRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render decision table: %v\n", err)
		return 1
	}

	return 0
}
