// Package ingest appends validated scraper payloads to the arrivals
// ledger. Every call is recorded in jobs.ingest_runs whether or not the
// posting turns out to be a duplicate arrival.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/globaltime"
	payloadschema "talentgrid.fit/jobpipe/schema"
)

const maxIngestErrorLength = 4000

type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
}

type Request struct {
	RawPayload json.RawMessage
}

type Result struct {
	RunID          int64
	RunUUID        string
	RawPostingID   *int64
	RawPostingUUID *string
	Inserted       bool
	PayloadHashHex string
	Status         string
}

func NewService(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
	}
}

// IngestOne validates one payload and appends it to jobs.raw_postings.
// Re-sending byte-identical content for the same (source, source_item_id)
// is a no-op insert; a re-scrape with changed bytes hashes differently
// and lands as a new pending row so the pipeline can count the repost.
// The run is recorded either way so the source's activity stays
// observable.
func (s *Service) IngestOne(ctx context.Context, req Request) (Result, error) {
	if s == nil || s.pool == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}

	posting, err := payloadschema.ValidateJobPostingPayload(req.RawPayload)
	if err != nil {
		return Result{}, fmt.Errorf("validate payload: %w", err)
	}

	scrapedAt, err := posting.ScrapedAtTime()
	if err != nil {
		return Result{}, fmt.Errorf("parse scraped_at: %w", err)
	}

	payloadCanonical, err := canonicalizeJSON(req.RawPayload)
	if err != nil {
		return Result{}, fmt.Errorf("canonicalize raw payload: %w", err)
	}
	payloadHash := sha256.Sum256(payloadCanonical)

	runStart := globaltime.UTC()
	runID, runUUID, err := s.insertRun(ctx, posting.Source, runStart)
	if err != nil {
		return Result{}, fmt.Errorf("insert ingest run: %w", err)
	}

	insertResult, ingestErr := s.insertRawPosting(ctx, runID, posting, scrapedAt.UTC(), string(payloadCanonical), payloadHash[:])
	if ingestErr != nil {
		failedAt := globaltime.UTC()
		if markErr := s.markRunFailed(ctx, runID, ingestErr, failedAt); markErr != nil {
			return Result{}, fmt.Errorf("ingest failed (%v); failed to mark run failed: %w", ingestErr, markErr)
		}
		return Result{}, ingestErr
	}

	itemsInserted := 0
	if insertResult.inserted {
		itemsInserted = 1
	}

	finishedAt := globaltime.UTC()
	if err := s.markRunCompleted(ctx, runID, itemsInserted, finishedAt); err != nil {
		return Result{}, fmt.Errorf("mark ingest run completed: %w", err)
	}

	s.logger.Info().
		Int64("run_id", runID).
		Str("source", posting.Source).
		Str("source_item_id", posting.SourceItemID).
		Bool("inserted", insertResult.inserted).
		Msg("ingest completed")

	return Result{
		RunID:          runID,
		RunUUID:        runUUID,
		RawPostingID:   insertResult.rawPostingID,
		RawPostingUUID: insertResult.rawPostingUUID,
		Inserted:       insertResult.inserted,
		PayloadHashHex: hex.EncodeToString(payloadHash[:]),
		Status:         "completed",
	}, nil
}

type insertResult struct {
	rawPostingID   *int64
	rawPostingUUID *string
	inserted       bool
}

func (s *Service) insertRun(ctx context.Context, source string, runStart time.Time) (int64, string, error) {
	const q = `
INSERT INTO jobs.ingest_runs (
	source,
	started_at,
	status,
	items_fetched,
	items_inserted,
	created_at,
	updated_at
)
VALUES ($1, $2, 'running', 0, 0, $2, $2)
RETURNING run_id, ingest_run_uuid
`

	var runID int64
	var runUUID string
	err := s.pool.QueryRow(ctx, q, source, runStart).Scan(&runID, &runUUID)
	if err != nil {
		return 0, "", err
	}
	return runID, runUUID, nil
}

func (s *Service) insertRawPosting(
	ctx context.Context,
	runID int64,
	posting *payloadschema.JobPosting,
	scrapedAt time.Time,
	rawPayload string,
	payloadHash []byte,
) (insertResult, error) {
	const insertRaw = `
INSERT INTO jobs.raw_postings (
	run_id,
	source,
	source_item_id,
	source_url,
	scraped_at,
	title_raw,
	description_raw,
	company_raw,
	location_raw,
	salary_raw,
	raw_payload,
	payload_hash,
	status,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, 'pending', $13)
ON CONFLICT (source, source_item_id, payload_hash) DO NOTHING
RETURNING raw_posting_id, raw_posting_uuid
`

	var rawPostingID int64
	var rawPostingUUID string
	inserted := true
	err := s.pool.QueryRow(
		ctx,
		insertRaw,
		runID,
		posting.Source,
		posting.SourceItemID,
		strings.TrimSpace(posting.URL),
		scrapedAt,
		strings.TrimSpace(posting.Title),
		normalizeNullable(posting.Description),
		normalizeNullable(posting.Company),
		normalizeNullable(posting.Location),
		normalizeNullable(posting.Salary),
		rawPayload,
		payloadHash,
		globaltime.UTC(),
	).Scan(&rawPostingID, &rawPostingUUID)
	if err != nil {
		if db.IsNoRows(err) {
			inserted = false
		} else {
			return insertResult{}, fmt.Errorf("insert raw_postings: %w", err)
		}
	}

	if !inserted {
		return insertResult{inserted: false}, nil
	}

	return insertResult{
		rawPostingID:   &rawPostingID,
		rawPostingUUID: &rawPostingUUID,
		inserted:       true,
	}, nil
}

func (s *Service) markRunCompleted(ctx context.Context, runID int64, itemsInserted int, finishedAt time.Time) error {
	const q = `
UPDATE jobs.ingest_runs
SET
	status = 'completed',
	items_fetched = 1,
	items_inserted = $2,
	finished_at = $3,
	updated_at = $3,
	error_message = NULL
WHERE run_id = $1
`
	_, err := s.pool.Exec(ctx, q, runID, itemsInserted, finishedAt)
	return err
}

func (s *Service) markRunFailed(ctx context.Context, runID int64, cause error, finishedAt time.Time) error {
	const q = `
UPDATE jobs.ingest_runs
SET
	status = 'failed',
	error_message = $2,
	finished_at = $3,
	updated_at = $3
WHERE run_id = $1
`

	msg := strings.TrimSpace(cause.Error())
	if len(msg) > maxIngestErrorLength {
		msg = msg[:maxIngestErrorLength]
	}

	_, err := s.pool.Exec(ctx, q, runID, msg, finishedAt)
	return err
}

func canonicalizeJSON(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("JSON payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("JSON contains trailing content")
	}

	canonical, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical JSON: %w", err)
	}
	return canonical, nil
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
