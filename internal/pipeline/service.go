// Package pipeline turns pending raw postings into canonical jobs: it
// claims a batch, normalizes every posting, matches it against the
// fingerprint index, and either merges it into an existing job or
// creates a new one. A batch commits atomically or not at all.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"talentgrid.fit/jobpipe/internal/config"
	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/globaltime"
	"talentgrid.fit/jobpipe/internal/match"
	"talentgrid.fit/jobpipe/internal/normalize"
)

type Service struct {
	pool           *db.Pool
	logger         zerolog.Logger
	cfg            *config.Config
	skillExtractor normalize.SkillExtractor
}

type BatchResult struct {
	Claimed  int
	NewJobs  int
	Merged   int
	Rejected int
	Skipped  int
}

func (r BatchResult) Processed() int {
	return r.NewJobs + r.Merged + r.Rejected + r.Skipped
}

func NewService(pool *db.Pool, logger zerolog.Logger, cfg *config.Config) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
		cfg:    cfg,
	}
}

// SetSkillExtractor plugs in an optional model-backed skill extractor.
// The rule-based matcher always runs regardless.
func (s *Service) SetSkillExtractor(extractor normalize.SkillExtractor) {
	s.skillExtractor = extractor
}

// ProcessBatch claims and processes one batch of pending postings.
// Contention failures are retried with backoff up to the configured
// attempt count; each retry starts a fresh transaction and re-reads all
// state, so a partially applied batch is never observable.
func (s *Service) ProcessBatch(ctx context.Context) (BatchResult, error) {
	if s == nil || s.pool == nil || s.cfg == nil {
		return BatchResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	backoff := time.Duration(s.cfg.LockRetryBackoffMS) * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= s.cfg.LockRetryAttempts; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Msg("retrying batch after contention")
			select {
			case <-ctx.Done():
				return BatchResult{}, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}

		result, err := s.processBatchOnce(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableError(err) {
			return BatchResult{}, err
		}
		lastErr = err
	}
	return BatchResult{}, fmt.Errorf("batch failed after %d retries: %w", s.cfg.LockRetryAttempts, lastErr)
}

// ProcessAll drains the pending queue batch by batch until a batch
// comes back empty.
func (s *Service) ProcessAll(ctx context.Context) (BatchResult, error) {
	var total BatchResult
	for {
		result, err := s.ProcessBatch(ctx)
		if err != nil {
			return total, err
		}
		total.Claimed += result.Claimed
		total.NewJobs += result.NewJobs
		total.Merged += result.Merged
		total.Rejected += result.Rejected
		total.Skipped += result.Skipped
		if result.Claimed == 0 {
			return total, nil
		}
	}
}

func (s *Service) processBatchOnce(ctx context.Context) (BatchResult, error) {
	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return BatchResult{}, fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	claimed, err := claimPendingBatchTx(ctx, tx, s.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, err
	}
	result := BatchResult{Claimed: len(claimed)}
	if len(claimed) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return BatchResult{}, fmt.Errorf("commit empty batch tx: %w", err)
		}
		return result, nil
	}

	companyRefs, err := loadCompanyRefsTx(ctx, tx)
	if err != nil {
		return BatchResult{}, err
	}
	locationRefs, err := loadLocationRefsTx(ctx, tx)
	if err != nil {
		return BatchResult{}, err
	}
	snap, err := loadFingerprintSnapshotTx(ctx, tx)
	if err != nil {
		return BatchResult{}, err
	}

	deps := normalizeDeps{
		Companies:         normalize.NewCompanyResolver(companyRefs, s.cfg.EntitySimilarityThreshold),
		Locations:         normalize.NewLocationResolver(locationRefs, s.cfg.EntitySimilarityThreshold),
		SkillExtractor:    s.skillExtractor,
		SalaryBounds:      normalize.SalaryBounds{Min: s.cfg.SalaryMinBound, Max: s.cfg.SalaryMaxBound},
		URLTrackingParams: s.cfg.URLTrackingParamsList(),
	}
	thresholds := match.Thresholds{
		FuzzyTitle:        s.cfg.FuzzyTitleThreshold,
		ContentSimilarity: s.cfg.ContentSimilarityThreshold,
	}

	for _, row := range claimed {
		outcome, err := s.processPostingTx(ctx, tx, row, deps, snap, thresholds)
		if err != nil {
			return BatchResult{}, err
		}
		switch outcome {
		case postingNewJob:
			result.NewJobs++
		case postingMerged:
			result.Merged++
		case postingRejected:
			result.Rejected++
		case postingSkipped:
			result.Skipped++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("commit batch tx: %w", err)
	}

	s.logger.Info().
		Int("claimed", result.Claimed).
		Int("new_jobs", result.NewJobs).
		Int("merged", result.Merged).
		Int("rejected", result.Rejected).
		Int("skipped", result.Skipped).
		Msg("batch processed")

	return result, nil
}

type postingOutcome int

const (
	postingNewJob postingOutcome = iota
	postingMerged
	postingRejected
	postingSkipped
)

func (s *Service) processPostingTx(
	ctx context.Context,
	tx db.Tx,
	row claimedPosting,
	deps normalizeDeps,
	snap *fingerprint.Snapshot,
	thresholds match.Thresholds,
) (postingOutcome, error) {
	now := globaltime.UTC()

	// A link row means a previous run already decided this posting and
	// crashed before flipping the status. Re-deciding would double-count
	// reposts, so only the status marker is replayed.
	linked, err := dedupeLinkExistsTx(ctx, tx, row.RawPostingID)
	if err != nil {
		return postingSkipped, err
	}
	if linked {
		if err := markProcessedTx(ctx, tx, row.RawPostingID, s.cfg.PipelineVersion, now); err != nil {
			return postingSkipped, err
		}
		return postingSkipped, nil
	}

	if reason := rejectReasonFor(row); reason != "" {
		if err := markRejectedTx(ctx, tx, row.RawPostingID, reason, s.cfg.PipelineVersion, now); err != nil {
			return postingRejected, err
		}
		if err := insertDedupEventTx(ctx, tx, dedupEventRecord{
			RawPostingID: row.RawPostingID,
			Decision:     "rejected",
			Reason:       &reason,
			CreatedAt:    now,
		}); err != nil {
			return postingRejected, err
		}
		s.logger.Debug().
			Int64("raw_posting_id", row.RawPostingID).
			Str("reason", reason).
			Msg("posting rejected")
		return postingRejected, nil
	}

	np := buildNormalizedPosting(row, deps)

	if np.NewCompany {
		companyID, err := upsertCompanyTx(ctx, tx, *row.CompanyRaw, np.CompanyName, now)
		if err != nil {
			return postingSkipped, err
		}
		np.CompanyID = &companyID
		deps.Companies.Add(normalize.EntityRef{ID: companyID, NormalizedName: np.CompanyName})
	}
	if np.NewLocation {
		locationID, err := upsertLocationTx(ctx, tx, *row.LocationRaw, np.LocationName, np.LocationCountryCode, now)
		if err != nil {
			return postingSkipped, err
		}
		np.LocationID = &locationID
		deps.Locations.Add(normalize.EntityRef{ID: locationID, NormalizedName: np.LocationName})
	}

	if key, ok := fingerprint.CompositeKey(np.CompanyID, np.TitleFamily, np.LocationID); ok {
		np.CompositeKey = &key
	}

	if err := upsertPostingAttributesTx(ctx, tx, np, now); err != nil {
		return postingSkipped, err
	}

	candidate := match.Candidate{
		URLHash:        np.URLHash,
		CanonicalTitle: np.CanonicalTitle,
		Signature:      np.Signature,
	}
	if np.CompositeKey != nil {
		candidate.CompositeKey = *np.CompositeKey
	}
	decision := match.Match(candidate, snap, thresholds)

	if decision.Matched {
		if err := s.applyMergeTx(ctx, tx, np, decision, snap, now); err != nil {
			return postingMerged, err
		}
		if err := markProcessedTx(ctx, tx, row.RawPostingID, s.cfg.PipelineVersion, now); err != nil {
			return postingMerged, err
		}
		return postingMerged, nil
	}

	if err := s.applyNewJobTx(ctx, tx, np, snap, now); err != nil {
		return postingNewJob, err
	}
	if err := markProcessedTx(ctx, tx, row.RawPostingID, s.cfg.PipelineVersion, now); err != nil {
		return postingNewJob, err
	}
	return postingNewJob, nil
}

func (s *Service) applyMergeTx(
	ctx context.Context,
	tx db.Tx,
	np normalizedPosting,
	decision match.Result,
	snap *fingerprint.Snapshot,
	now time.Time,
) error {
	job, err := lockCanonicalJobTx(ctx, tx, decision.CanonicalJobID)
	if err != nil {
		return err
	}

	merged, err := mergePostingIntoJob(job, np, s.cfg.DescriptionReplaceMargin)
	if err != nil {
		return err
	}
	if err := updateCanonicalJobTx(ctx, tx, merged, now); err != nil {
		return err
	}

	// The matched job already carries at least one of this posting's
	// fingerprints (that is how it matched), so only the columns the
	// index does not know yet are persisted.
	entry := fingerprintDelta(snap, merged.CanonicalJobID, np)
	if err := insertFingerprintEntryTx(ctx, tx, merged.CanonicalJobID, entry, now); err != nil {
		return err
	}
	if err := insertLSHBucketsTx(ctx, tx, merged.CanonicalJobID, np, now); err != nil {
		return err
	}

	matchScore := matchScoreFor(decision)
	details, err := matchDetailsJSON(decision)
	if err != nil {
		return err
	}
	if err := insertDedupeLinkTx(ctx, tx, np.RawPostingID, merged.CanonicalJobID, string(decision.Layer), matchScore, details, now); err != nil {
		return err
	}

	if err := insertDedupEventTx(ctx, tx, dedupEventRecord{
		RawPostingID:         np.RawPostingID,
		Decision:             "merged",
		MatchedLayer:         strPtr(string(decision.Layer)),
		ChosenCanonicalJobID: &merged.CanonicalJobID,
		BestCandidateJobID:   &merged.CanonicalJobID,
		BestSimilarity:       nilIfZero(decision.ContentScore),
		TitleSimilarity:      nilIfZero(decision.TitleScore),
		CompositeKey:         np.CompositeKey,
		CreatedAt:            now,
	}); err != nil {
		return err
	}

	registerInSnapshot(snap, merged.CanonicalJobID, merged.CanonicalTitle, merged.LastSeen, np)

	s.logger.Debug().
		Int64("raw_posting_id", np.RawPostingID).
		Int64("canonical_job_id", merged.CanonicalJobID).
		Str("layer", string(decision.Layer)).
		Msg("posting merged")
	return nil
}

func (s *Service) applyNewJobTx(
	ctx context.Context,
	tx db.Tx,
	np normalizedPosting,
	snap *fingerprint.Snapshot,
	now time.Time,
) error {
	canonicalJobID, err := createCanonicalJobTx(ctx, tx, np, now)
	if err != nil {
		return err
	}

	if err := insertFingerprintEntryTx(ctx, tx, canonicalJobID, np, now); err != nil {
		return err
	}
	if err := insertLSHBucketsTx(ctx, tx, canonicalJobID, np, now); err != nil {
		return err
	}
	if err := insertDedupeLinkTx(ctx, tx, np.RawPostingID, canonicalJobID, "seed", nil, `{"signal":"seed"}`, now); err != nil {
		return err
	}

	if err := insertDedupEventTx(ctx, tx, dedupEventRecord{
		RawPostingID:         np.RawPostingID,
		Decision:             "new_job",
		ChosenCanonicalJobID: &canonicalJobID,
		CompositeKey:         np.CompositeKey,
		CreatedAt:            now,
	}); err != nil {
		return err
	}

	registerInSnapshot(snap, canonicalJobID, np.CanonicalTitle, np.ScrapedAt, np)

	s.logger.Debug().
		Int64("raw_posting_id", np.RawPostingID).
		Int64("canonical_job_id", canonicalJobID).
		Msg("new canonical job created")
	return nil
}

// fingerprintDelta clears the fingerprint columns the snapshot already
// holds for this job. An exact-layer repost would otherwise re-insert
// the seed entry's (canonical_job_id, url_hash) pair and trip its
// unique index, failing the batch.
func fingerprintDelta(snap *fingerprint.Snapshot, canonicalJobID int64, np normalizedPosting) normalizedPosting {
	if id, ok := snap.LookupURLHash(np.URLHash); ok && id == canonicalJobID {
		np.URLHash = nil
	}
	if np.CompositeKey != nil {
		for _, ref := range snap.LookupComposite(*np.CompositeKey) {
			if ref.CanonicalJobID == canonicalJobID {
				np.CompositeKey = nil
				break
			}
		}
	}
	return np
}

// registerInSnapshot makes a merge or creation visible to the rest of
// the batch without re-reading the database.
func registerInSnapshot(snap *fingerprint.Snapshot, canonicalJobID int64, title string, lastSeen time.Time, np normalizedPosting) {
	snap.UpsertJob(fingerprint.JobRef{
		CanonicalJobID: canonicalJobID,
		CanonicalTitle: title,
		LastSeen:       lastSeen,
	})
	if len(np.URLHash) > 0 {
		snap.AddURLHash(np.URLHash, canonicalJobID)
	}
	if np.CompositeKey != nil {
		snap.AddComposite(*np.CompositeKey, canonicalJobID)
	}
	if np.Signature != nil {
		snap.AddSignature(*np.Signature, canonicalJobID)
	}
}

func claimPendingBatchTx(ctx context.Context, tx db.Tx, limit int) ([]claimedPosting, error) {
	const q = `
SELECT
	raw_posting_id,
	source,
	source_item_id,
	source_url,
	scraped_at,
	title_raw,
	description_raw,
	company_raw,
	location_raw,
	salary_raw
FROM jobs.raw_postings
WHERE status = 'pending'
ORDER BY raw_posting_id
LIMIT $1
FOR UPDATE SKIP LOCKED
`

	rows, err := tx.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending postings: %w", err)
	}
	defer rows.Close()

	var claimed []claimedPosting
	for rows.Next() {
		var row claimedPosting
		if err := rows.Scan(
			&row.RawPostingID,
			&row.Source,
			&row.SourceItemID,
			&row.SourceURL,
			&row.ScrapedAt,
			&row.TitleRaw,
			&row.DescriptionRaw,
			&row.CompanyRaw,
			&row.LocationRaw,
			&row.SalaryRaw,
		); err != nil {
			return nil, fmt.Errorf("scan claimed posting: %w", err)
		}
		row.ScrapedAt = row.ScrapedAt.UTC()
		claimed = append(claimed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed postings: %w", err)
	}
	return claimed, nil
}

func dedupeLinkExistsTx(ctx context.Context, tx db.Tx, rawPostingID int64) (bool, error) {
	const q = `
SELECT 1
FROM jobs.dedupe_links
WHERE raw_posting_id = $1
`
	var one int
	err := tx.QueryRow(ctx, q, rawPostingID).Scan(&one)
	if err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check dedupe link raw_posting_id=%d: %w", rawPostingID, err)
	}
	return true, nil
}

func upsertCompanyTx(ctx context.Context, tx db.Tx, rawName, normalizedName string, now time.Time) (int64, error) {
	const q = `
INSERT INTO jobs.companies (name, normalized_name, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (normalized_name) DO UPDATE SET name = jobs.companies.name
RETURNING company_id
`
	var companyID int64
	err := tx.QueryRow(ctx, q, strings.TrimSpace(rawName), normalizedName, now).Scan(&companyID)
	if err != nil {
		return 0, fmt.Errorf("upsert company %q: %w", normalizedName, err)
	}
	return companyID, nil
}

func upsertLocationTx(ctx context.Context, tx db.Tx, rawName, normalizedName string, countryCode *string, now time.Time) (int64, error) {
	const q = `
INSERT INTO jobs.locations (name, normalized_name, country_code, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (normalized_name) DO UPDATE SET country_code = COALESCE(jobs.locations.country_code, EXCLUDED.country_code)
RETURNING location_id
`
	var locationID int64
	err := tx.QueryRow(ctx, q, strings.TrimSpace(rawName), normalizedName, countryCode, now).Scan(&locationID)
	if err != nil {
		return 0, fmt.Errorf("upsert location %q: %w", normalizedName, err)
	}
	return locationID, nil
}

func upsertPostingAttributesTx(ctx context.Context, tx db.Tx, np normalizedPosting, now time.Time) error {
	skillsJSON, err := marshalSkills(np.Skills)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	evidenceJSON, err := marshalEvidence(np.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}

	var signatureRaw []byte
	if np.Signature != nil {
		signatureRaw = fingerprint.EncodeSignature(*np.Signature)
	}

	const q = `
INSERT INTO jobs.posting_attributes (
	raw_posting_id,
	title_family,
	canonical_title,
	title_confidence,
	seniority_level,
	education_level,
	experience_band,
	skills,
	salary_currency,
	salary_period,
	salary_min,
	salary_max,
	language,
	company_id,
	location_id,
	description_text,
	quality_score,
	url_hash,
	composite_key,
	minhash_signature,
	token_count,
	evidence,
	created_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12,
	$13, $14, $15, $16, $17, $18, $19, $20, $21, $22::jsonb, $23
)
ON CONFLICT (raw_posting_id) DO NOTHING
`
	_, err = tx.Exec(
		ctx,
		q,
		np.RawPostingID,
		np.TitleFamily,
		np.CanonicalTitle,
		np.TitleConfidence,
		np.SeniorityLevel,
		np.EducationLevel,
		np.ExperienceBand,
		skillsJSON,
		np.SalaryCurrency,
		np.SalaryPeriod,
		np.SalaryMin,
		np.SalaryMax,
		np.Language,
		np.CompanyID,
		np.LocationID,
		np.DescriptionText,
		np.QualityScore,
		nullableBytes(np.URLHash),
		np.CompositeKey,
		signatureRaw,
		np.TokenCount,
		evidenceJSON,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert posting_attributes raw_posting_id=%d: %w", np.RawPostingID, err)
	}
	return nil
}

func insertFingerprintEntryTx(ctx context.Context, tx db.Tx, canonicalJobID int64, np normalizedPosting, now time.Time) error {
	var signatureRaw []byte
	if np.Signature != nil {
		signatureRaw = fingerprint.EncodeSignature(*np.Signature)
	}
	if len(np.URLHash) == 0 && np.CompositeKey == nil && signatureRaw == nil {
		return nil
	}

	const q = `
INSERT INTO jobs.fingerprint_entries (
	canonical_job_id,
	url_hash,
	composite_key,
	minhash_signature,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (canonical_job_id, url_hash) WHERE url_hash IS NOT NULL DO NOTHING
`
	_, err := tx.Exec(ctx, q, canonicalJobID, nullableBytes(np.URLHash), np.CompositeKey, signatureRaw, now)
	if err != nil {
		return fmt.Errorf("insert fingerprint entry canonical_job_id=%d: %w", canonicalJobID, err)
	}
	return nil
}

func insertLSHBucketsTx(ctx context.Context, tx db.Tx, canonicalJobID int64, np normalizedPosting, now time.Time) error {
	if np.Signature == nil {
		return nil
	}

	const q = `
INSERT INTO jobs.lsh_bucket_entries (band, bucket_key, canonical_job_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (band, bucket_key, canonical_job_id) DO NOTHING
`
	for _, bucket := range fingerprint.Buckets(*np.Signature) {
		if _, err := tx.Exec(ctx, q, bucket.Band, int64(bucket.Key), canonicalJobID, now); err != nil {
			return fmt.Errorf("insert lsh bucket canonical_job_id=%d band=%d: %w", canonicalJobID, bucket.Band, err)
		}
	}
	return nil
}

func insertDedupeLinkTx(
	ctx context.Context,
	tx db.Tx,
	rawPostingID int64,
	canonicalJobID int64,
	matchType string,
	matchScore *float64,
	matchDetails string,
	now time.Time,
) error {
	const q = `
INSERT INTO jobs.dedupe_links (
	raw_posting_id,
	canonical_job_id,
	match_type,
	match_score,
	match_details,
	matched_at
)
VALUES ($1, $2, $3, $4, $5::jsonb, $6)
ON CONFLICT (raw_posting_id) DO NOTHING
`
	_, err := tx.Exec(ctx, q, rawPostingID, canonicalJobID, matchType, matchScore, matchDetails, now)
	if err != nil {
		return fmt.Errorf("insert dedupe link raw_posting_id=%d: %w", rawPostingID, err)
	}
	return nil
}

type dedupEventRecord struct {
	RawPostingID         int64
	Decision             string
	MatchedLayer         *string
	ChosenCanonicalJobID *int64
	BestCandidateJobID   *int64
	BestSimilarity       *float64
	TitleSimilarity      *float64
	CompositeKey         *string
	Reason               *string
	CreatedAt            time.Time
}

func insertDedupEventTx(ctx context.Context, tx db.Tx, record dedupEventRecord) error {
	const q = `
INSERT INTO jobs.dedup_events (
	raw_posting_id,
	decision,
	matched_layer,
	chosen_canonical_job_id,
	best_candidate_job_id,
	best_similarity,
	title_similarity,
	composite_key,
	reason,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (raw_posting_id) DO NOTHING
`
	_, err := tx.Exec(
		ctx,
		q,
		record.RawPostingID,
		record.Decision,
		record.MatchedLayer,
		record.ChosenCanonicalJobID,
		record.BestCandidateJobID,
		record.BestSimilarity,
		record.TitleSimilarity,
		record.CompositeKey,
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dedup_event raw_posting_id=%d: %w", record.RawPostingID, err)
	}
	return nil
}

func markProcessedTx(ctx context.Context, tx db.Tx, rawPostingID int64, pipelineVersion int, now time.Time) error {
	const q = `
UPDATE jobs.raw_postings
SET status = 'processed', reject_reason = NULL, pipeline_version = $2, processed_at = $3
WHERE raw_posting_id = $1
`
	_, err := tx.Exec(ctx, q, rawPostingID, pipelineVersion, now)
	if err != nil {
		return fmt.Errorf("mark processed raw_posting_id=%d: %w", rawPostingID, err)
	}
	return nil
}

func markRejectedTx(ctx context.Context, tx db.Tx, rawPostingID int64, reason string, pipelineVersion int, now time.Time) error {
	const q = `
UPDATE jobs.raw_postings
SET status = 'rejected', reject_reason = $2, pipeline_version = $3, processed_at = $4
WHERE raw_posting_id = $1
`
	_, err := tx.Exec(ctx, q, rawPostingID, reason, pipelineVersion, now)
	if err != nil {
		return fmt.Errorf("mark rejected raw_posting_id=%d: %w", rawPostingID, err)
	}
	return nil
}

func matchScoreFor(decision match.Result) *float64 {
	switch decision.Layer {
	case match.LayerExactURL:
		score := 1.0
		return &score
	case match.LayerComposite:
		score := decision.TitleScore
		return &score
	case match.LayerContent:
		score := decision.ContentScore
		return &score
	default:
		return nil
	}
}

func matchDetailsJSON(decision match.Result) (string, error) {
	details := map[string]any{
		"layer": string(decision.Layer),
	}
	if decision.TitleScore > 0 {
		details["title_score"] = decision.TitleScore
	}
	if decision.ContentScore > 0 {
		details["content_score"] = decision.ContentScore
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal match details: %w", err)
	}
	return string(data), nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "lock timeout")
}

func nullableBytes(value []byte) []byte {
	if len(value) == 0 {
		return nil
	}
	copyValue := make([]byte, len(value))
	copy(copyValue, value)
	return copyValue
}

func strPtr(v string) *string {
	return &v
}

func nilIfZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
