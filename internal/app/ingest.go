package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"talentgrid.fit/jobpipe/internal/cli"
	"talentgrid.fit/jobpipe/internal/config"
	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/ingest"
	"talentgrid.fit/jobpipe/internal/logging"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Job posting payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to payload JSON file (overrides --payload)")

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

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
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

	svc := ingest.NewService(pool, logger)
	result, err := svc.IngestOne(ctx, ingest.Request{
		RawPayload: payloadJSON,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("run_id=%d status=%s inserted=%t payload_hash=%s\n", result.RunID, result.Status, result.Inserted, result.PayloadHashHex)
	fmt.Printf("run_uuid=%s\n", result.RunUUID)
	if result.RawPostingID != nil {
		fmt.Printf("raw_posting_id=%d\n", *result.RawPostingID)
	}
	if result.RawPostingUUID != nil {
		fmt.Printf("raw_posting_uuid=%s\n", *result.RawPostingUUID)
	}
	return 0
}

func loadJSONInput(inline, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file %s: %w", label, path, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%s file %s is not valid JSON", label, path)
		}
		return json.RawMessage(raw), nil
	}

	trimmed := strings.TrimSpace(inline)
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required (use --%s or --%s-file)", label, label, label)
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%s is not valid JSON", label)
	}
	return json.RawMessage(trimmed), nil
}
