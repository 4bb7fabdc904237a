package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"talentgrid.fit/jobpipe/internal/cli"
	"talentgrid.fit/jobpipe/internal/config"
	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/logging"
	"talentgrid.fit/jobpipe/internal/pipeline"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	drain := fs.Bool("drain", false, "Keep processing batches until the pending queue is empty")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := pipeline.NewService(pool, logger, cfg)

	var result pipeline.BatchResult
	if *drain {
		result, err = svc.ProcessAll(ctx)
	} else {
		result, err = svc.ProcessBatch(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"process claimed=%d new_jobs=%d merged=%d rejected=%d skipped=%d\n",
		result.Claimed,
		result.NewJobs,
		result.Merged,
		result.Rejected,
		result.Skipped,
	)
	return 0
}
