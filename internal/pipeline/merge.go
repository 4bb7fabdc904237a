package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/normalize"
)

// canonicalJobRow is the mutable slice of jobs.canonical_jobs the merge
// step works on, locked FOR UPDATE for the duration of the batch tx.
type canonicalJobRow struct {
	CanonicalJobID          int64
	TitleFamily             string
	CanonicalTitle          string
	CompanyID               *int64
	LocationID              *int64
	SeniorityLevel          string
	EducationLevel          string
	ExperienceBand          string
	SalaryCurrency          *string
	SalaryPeriod            *string
	SalaryMin               *float64
	SalaryMax               *float64
	FirstSeen               time.Time
	LastSeen                time.Time
	RepostCount             int
	BestDescription         string
	AggregatedSkills        []byte
	QualityScore            float64
	RepresentativePostingID *int64
}

// shouldReplaceDescription is the description upgrade rule: an existing
// description is only replaced when the incoming one is meaningfully
// longer, measured in tokens against the configured margin. A missing
// description is always filled.
func shouldReplaceDescription(existingTokens, newTokens int, margin float64) bool {
	if newTokens <= 0 {
		return false
	}
	if existingTokens <= 0 {
		return true
	}
	return float64(newTokens) > float64(existingTokens)*(1+margin)
}

// mergeAggregatedSkills unions a job's stored skill set with newly
// extracted skills, keeping the highest confidence per skill id.
func mergeAggregatedSkills(stored []byte, incoming []normalize.ExtractedSkill) ([]normalize.ExtractedSkill, error) {
	var existing []normalize.ExtractedSkill
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &existing); err != nil {
			return nil, fmt.Errorf("decode aggregated skills: %w", err)
		}
	}
	return normalize.MergeSkills(append(existing, incoming...)), nil
}

func lockCanonicalJobTx(ctx context.Context, tx db.Tx, canonicalJobID int64) (canonicalJobRow, error) {
	const q = `
SELECT
	canonical_job_id,
	title_family,
	canonical_title,
	company_id,
	location_id,
	seniority_level,
	education_level,
	experience_band,
	salary_currency,
	salary_period,
	salary_min,
	salary_max,
	first_seen,
	last_seen,
	repost_count,
	best_description,
	COALESCE(aggregated_skills, '[]'::jsonb)::text,
	quality_score,
	representative_posting_id
FROM jobs.canonical_jobs
WHERE canonical_job_id = $1
FOR UPDATE
`

	var row canonicalJobRow
	var skillsText string
	err := tx.QueryRow(ctx, q, canonicalJobID).Scan(
		&row.CanonicalJobID,
		&row.TitleFamily,
		&row.CanonicalTitle,
		&row.CompanyID,
		&row.LocationID,
		&row.SeniorityLevel,
		&row.EducationLevel,
		&row.ExperienceBand,
		&row.SalaryCurrency,
		&row.SalaryPeriod,
		&row.SalaryMin,
		&row.SalaryMax,
		&row.FirstSeen,
		&row.LastSeen,
		&row.RepostCount,
		&row.BestDescription,
		&skillsText,
		&row.QualityScore,
		&row.RepresentativePostingID,
	)
	if err != nil {
		return canonicalJobRow{}, fmt.Errorf("lock canonical_job_id=%d: %w", canonicalJobID, err)
	}
	row.AggregatedSkills = []byte(skillsText)
	row.FirstSeen = row.FirstSeen.UTC()
	row.LastSeen = row.LastSeen.UTC()
	return row, nil
}

// mergePostingIntoJob applies the fill-gaps policy to a locked job row
// and returns the updated row. Populated job fields are never
// overwritten by merge, with two exceptions: the description upgrade
// rule and the representative posting when the incoming quality wins.
func mergePostingIntoJob(job canonicalJobRow, np normalizedPosting, descriptionMargin float64) (canonicalJobRow, error) {
	if np.CompanyID != nil && job.CompanyID == nil {
		job.CompanyID = np.CompanyID
	}
	if np.LocationID != nil && job.LocationID == nil {
		job.LocationID = np.LocationID
	}
	if job.SeniorityLevel == normalize.LevelUnknown && np.SeniorityLevel != normalize.LevelUnknown {
		job.SeniorityLevel = np.SeniorityLevel
	}
	if job.EducationLevel == normalize.LevelUnknown && np.EducationLevel != normalize.LevelUnknown {
		job.EducationLevel = np.EducationLevel
	}
	if job.ExperienceBand == normalize.LevelUnknown && np.ExperienceBand != normalize.LevelUnknown {
		job.ExperienceBand = np.ExperienceBand
	}
	if job.SalaryMin == nil && np.SalaryMin != nil {
		job.SalaryCurrency = np.SalaryCurrency
		job.SalaryPeriod = np.SalaryPeriod
		job.SalaryMin = np.SalaryMin
		job.SalaryMax = np.SalaryMax
	}

	existingTokens := normalize.CountTokens(job.BestDescription)
	if shouldReplaceDescription(existingTokens, np.TokenCount, descriptionMargin) {
		job.BestDescription = np.DescriptionText
	}

	merged, err := mergeAggregatedSkills(job.AggregatedSkills, np.Skills)
	if err != nil {
		return canonicalJobRow{}, err
	}
	mergedJSON, err := marshalSkills(merged)
	if err != nil {
		return canonicalJobRow{}, fmt.Errorf("encode aggregated skills: %w", err)
	}
	job.AggregatedSkills = []byte(mergedJSON)

	// Every merged posting is one more sighting of the vacancy, so
	// repost_count stays equal to linked postings minus one. first_seen
	// is fixed at creation; only last_seen tracks new sightings.
	job.RepostCount++
	if np.ScrapedAt.After(job.LastSeen) {
		job.LastSeen = np.ScrapedAt
	}

	if np.QualityScore > job.QualityScore {
		job.QualityScore = np.QualityScore
		postingID := np.RawPostingID
		job.RepresentativePostingID = &postingID
	}

	return job, nil
}

func updateCanonicalJobTx(ctx context.Context, tx db.Tx, job canonicalJobRow, now time.Time) error {
	const q = `
UPDATE jobs.canonical_jobs
SET
	company_id = $2,
	location_id = $3,
	seniority_level = $4,
	education_level = $5,
	experience_band = $6,
	salary_currency = $7,
	salary_period = $8,
	salary_min = $9,
	salary_max = $10,
	last_seen = $11,
	repost_count = $12,
	best_description = $13,
	aggregated_skills = $14::jsonb,
	quality_score = $15,
	representative_posting_id = $16,
	updated_at = $17
WHERE canonical_job_id = $1
`
	_, err := tx.Exec(
		ctx,
		q,
		job.CanonicalJobID,
		job.CompanyID,
		job.LocationID,
		job.SeniorityLevel,
		job.EducationLevel,
		job.ExperienceBand,
		job.SalaryCurrency,
		job.SalaryPeriod,
		job.SalaryMin,
		job.SalaryMax,
		job.LastSeen,
		job.RepostCount,
		job.BestDescription,
		string(job.AggregatedSkills),
		job.QualityScore,
		job.RepresentativePostingID,
		now,
	)
	if err != nil {
		return fmt.Errorf("update canonical_job_id=%d: %w", job.CanonicalJobID, err)
	}
	return nil
}

func createCanonicalJobTx(ctx context.Context, tx db.Tx, np normalizedPosting, now time.Time) (int64, error) {
	skillsJSON, err := marshalSkills(np.Skills)
	if err != nil {
		return 0, fmt.Errorf("encode skills: %w", err)
	}

	const q = `
INSERT INTO jobs.canonical_jobs (
	title_family,
	canonical_title,
	company_id,
	location_id,
	seniority_level,
	education_level,
	experience_band,
	salary_currency,
	salary_period,
	salary_min,
	salary_max,
	first_seen,
	last_seen,
	repost_count,
	best_description,
	aggregated_skills,
	quality_score,
	content_signature,
	representative_posting_id,
	status,
	created_at,
	updated_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	$12, $12, 0, $13, $14::jsonb, $15, $16, $17, 'active', $18, $18
)
RETURNING canonical_job_id
`

	var signatureRaw []byte
	if np.Signature != nil {
		signatureRaw = fingerprint.EncodeSignature(*np.Signature)
	}

	var canonicalJobID int64
	err = tx.QueryRow(
		ctx,
		q,
		np.TitleFamily,
		np.CanonicalTitle,
		np.CompanyID,
		np.LocationID,
		np.SeniorityLevel,
		np.EducationLevel,
		np.ExperienceBand,
		np.SalaryCurrency,
		np.SalaryPeriod,
		np.SalaryMin,
		np.SalaryMax,
		np.ScrapedAt,
		np.DescriptionText,
		skillsJSON,
		np.QualityScore,
		signatureRaw,
		np.RawPostingID,
		now,
	).Scan(&canonicalJobID)
	if err != nil {
		return 0, fmt.Errorf("insert canonical job for raw_posting_id=%d: %w", np.RawPostingID, err)
	}
	return canonicalJobID, nil
}
