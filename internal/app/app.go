package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "process", "run-once":
		return runProcess(args[1:])
	case "stats":
		return runStats(args[1:])
	case "jobs":
		return runJobs(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "jobpipe CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  jobpipe <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate  Validate job posting JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  ingest    Insert one posting payload into the arrivals ledger")
	fmt.Fprintln(os.Stderr, "  process   Run the dedup pipeline over pending postings")
	fmt.Fprintln(os.Stderr, "  run-once  Alias for process")
	fmt.Fprintln(os.Stderr, "  stats     Print pipeline counts and collapse rates")
	fmt.Fprintln(os.Stderr, "  jobs      List or show canonical jobs")
	fmt.Fprintln(os.Stderr, "  serve     Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"jobpipe <command> -h\" for command-specific flags.")
}
