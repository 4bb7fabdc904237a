package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"talentgrid.fit/jobpipe/internal/cli"
	"talentgrid.fit/jobpipe/internal/db"
)

func runJobs(args []string) int {
	if len(args) > 0 && args[0] == "show" {
		return runJobsShow(args[1:])
	}
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}
	return runJobsList(args)
}

func runJobsList(args []string) int {
	fs := flag.NewFlagSet("jobs list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	family := fs.String("family", "", "Filter by title family")
	company := fs.String("company", "", "Filter by normalized company name")
	location := fs.String("location", "", "Filter by normalized location name")
	source := fs.String("source", "", "Filter by source that contributed a posting")
	limit := fs.Int("limit", 50, "Maximum rows to return")
	offset := fs.Int("offset", 0, "Rows to skip")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "jobs list does not accept positional arguments")
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

	jobs, err := pool.ListJobs(ctx, db.JobListOptions{
		TitleFamily: *family,
		Company:     *company,
		Location:    *location,
		Source:      *source,
		Limit:       *limit,
		Offset:      *offset,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list jobs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(jobs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.CanonicalUUID,
			truncateForTable(job.CanonicalTitle, 48),
			job.TitleFamily,
			truncateForTable(pointerStringOrEmpty(job.CompanyName), 32),
			truncateForTable(pointerStringOrEmpty(job.LocationName), 24),
			job.SeniorityLevel,
			fmt.Sprintf("%d", job.PostingCount),
			fmt.Sprintf("%d", job.RepostCount),
			formatUTCTimestamp(job.LastSeen),
		})
	}
	headers := []string{"uuid", "title", "family", "company", "location", "seniority", "postings", "reposts", "last_seen"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render job table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d job(s)\n", len(jobs))
	return 0
}

func runJobsShow(args []string) int {
	fs := flag.NewFlagSet("jobs show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatJSON, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: jobpipe jobs show <job-uuid>")
		return 2
	}
	jobUUID := fs.Arg(0)

	outputFormat, err := parseOutputFormat(*format, outputFormatJSON)
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

	detail, err := pool.GetJobDetail(ctx, jobUUID)
	if err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "No canonical job with uuid %s\n", jobUUID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to load job: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(detail); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	job := detail.Job
	headerRows := [][]string{
		{"canonical_title", job.CanonicalTitle},
		{"title_family", job.TitleFamily},
		{"company", pointerStringOrEmpty(job.CompanyName)},
		{"location", pointerStringOrEmpty(job.LocationName)},
		{"seniority", job.SeniorityLevel},
		{"education", job.EducationLevel},
		{"experience", job.ExperienceBand},
		{"repost_count", fmt.Sprintf("%d", job.RepostCount)},
		{"quality_score", fmt.Sprintf("%.3f", job.QualityScore)},
		{"first_seen", formatUTCTimestamp(job.FirstSeen)},
		{"last_seen", formatUTCTimestamp(job.LastSeen)},
		{"status", job.Status},
	}
	if err := writeTable([]string{"field", "value"}, headerRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render job table: %v\n", err)
		return 1
	}

	fmt.Println()
	postingRows := make([][]string, 0, len(detail.Postings))
	for _, posting := range detail.Postings {
		score := ""
		if posting.MatchScore != nil {
			score = fmt.Sprintf("%.3f", *posting.MatchScore)
		}
		postingRows = append(postingRows, []string{
			fmt.Sprintf("%d", posting.RawPostingID),
			posting.Source,
			truncateForTable(posting.TitleRaw, 48),
			posting.MatchType,
			score,
			formatUTCTimestamp(posting.ScrapedAt),
		})
	}
	if err := writeTable([]string{"raw_posting_id", "source", "title", "match_type", "score", "scraped_at"}, postingRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render posting table: %v\n", err)
		return 1
	}

	return 0
}
