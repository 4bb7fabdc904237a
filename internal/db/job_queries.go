package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobSummary is a read model used by list/search commands and the HTTP
// listing endpoint.
type JobSummary struct {
	CanonicalJobID int64     `json:"canonical_job_id"`
	CanonicalUUID  string    `json:"canonical_job_uuid"`
	CanonicalTitle string    `json:"canonical_title"`
	TitleFamily    string    `json:"title_family"`
	CompanyName    *string   `json:"company_name,omitempty"`
	LocationName   *string   `json:"location_name,omitempty"`
	SeniorityLevel string    `json:"seniority_level"`
	SalaryCurrency *string   `json:"salary_currency,omitempty"`
	SalaryMin      *float64  `json:"salary_min,omitempty"`
	SalaryMax      *float64  `json:"salary_max,omitempty"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	RepostCount    int       `json:"repost_count"`
	PostingCount   int       `json:"posting_count"`
	Status         string    `json:"status"`
}

// JobListOptions controls the job listing query. Empty filters match
// everything.
type JobListOptions struct {
	TitleFamily string
	Company     string
	Location    string
	Source      string
	Limit       int
	Offset      int
}

// JobDetail contains one canonical job and its merged member postings.
type JobDetail struct {
	Job      JobDetailHeader    `json:"job"`
	Postings []JobDetailPosting `json:"postings"`
	Events   []JobDetailEvent   `json:"events"`
}

// JobDetailHeader is the job section for job detail output.
type JobDetailHeader struct {
	CanonicalJobID   int64           `json:"canonical_job_id"`
	CanonicalUUID    string          `json:"canonical_job_uuid"`
	CanonicalTitle   string          `json:"canonical_title"`
	TitleFamily      string          `json:"title_family"`
	CompanyName      *string         `json:"company_name,omitempty"`
	LocationName     *string         `json:"location_name,omitempty"`
	SeniorityLevel   string          `json:"seniority_level"`
	EducationLevel   string          `json:"education_level"`
	ExperienceBand   string          `json:"experience_band"`
	SalaryCurrency   *string         `json:"salary_currency,omitempty"`
	SalaryPeriod     *string         `json:"salary_period,omitempty"`
	SalaryMin        *float64        `json:"salary_min,omitempty"`
	SalaryMax        *float64        `json:"salary_max,omitempty"`
	FirstSeen        time.Time       `json:"first_seen"`
	LastSeen         time.Time       `json:"last_seen"`
	RepostCount      int             `json:"repost_count"`
	BestDescription  string          `json:"best_description"`
	AggregatedSkills json.RawMessage `json:"aggregated_skills,omitempty"`
	QualityScore     float64         `json:"quality_score"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// JobDetailPosting is one raw posting merged into a canonical job.
type JobDetailPosting struct {
	RawPostingID int64     `json:"raw_posting_id"`
	Source       string    `json:"source"`
	SourceItemID string    `json:"source_item_id"`
	SourceURL    *string   `json:"source_url,omitempty"`
	TitleRaw     string    `json:"title_raw"`
	ScrapedAt    time.Time `json:"scraped_at"`
	MatchType    string    `json:"match_type"`
	MatchScore   *float64  `json:"match_score,omitempty"`
	MatchedAt    time.Time `json:"matched_at"`
}

// JobDetailEvent is one audit-trail row for a member posting.
type JobDetailEvent struct {
	RawPostingID    int64     `json:"raw_posting_id"`
	Decision        string    `json:"decision"`
	MatchedLayer    *string   `json:"matched_layer,omitempty"`
	BestSimilarity  *float64  `json:"best_similarity,omitempty"`
	TitleSimilarity *float64  `json:"title_similarity,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListJobs lists active canonical jobs, most recently seen first.
func (p *Pool) ListJobs(ctx context.Context, opts JobListOptions) ([]JobSummary, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0")
	}

	const q = `
SELECT
	cj.canonical_job_id,
	cj.canonical_job_uuid::text,
	cj.canonical_title,
	cj.title_family,
	c.normalized_name,
	l.normalized_name,
	cj.seniority_level,
	cj.salary_currency,
	cj.salary_min,
	cj.salary_max,
	cj.first_seen,
	cj.last_seen,
	cj.repost_count,
	(SELECT COUNT(*) FROM jobs.dedupe_links dl WHERE dl.canonical_job_id = cj.canonical_job_id)::INT,
	cj.status
FROM jobs.canonical_jobs cj
LEFT JOIN jobs.companies c ON c.company_id = cj.company_id
LEFT JOIN jobs.locations l ON l.location_id = cj.location_id
WHERE cj.status = 'active'
  AND ($1 = '' OR cj.title_family = $1)
  AND ($2 = '' OR c.normalized_name = $2)
  AND ($3 = '' OR l.normalized_name = $3)
  AND ($4 = '' OR EXISTS (
		SELECT 1
		FROM jobs.dedupe_links dl
		JOIN jobs.raw_postings rp ON rp.raw_posting_id = dl.raw_posting_id
		WHERE dl.canonical_job_id = cj.canonical_job_id
		  AND rp.source = $4
	))
ORDER BY cj.last_seen DESC, cj.canonical_job_id DESC
LIMIT $5
OFFSET $6
`

	rows, err := p.Query(
		ctx,
		q,
		normalizeFilter(opts.TitleFamily),
		normalizeFilter(opts.Company),
		normalizeFilter(opts.Location),
		normalizeFilter(opts.Source),
		opts.Limit,
		opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query job list: %w", err)
	}
	defer rows.Close()

	jobs := make([]JobSummary, 0, opts.Limit)
	for rows.Next() {
		var row JobSummary
		if err := rows.Scan(
			&row.CanonicalJobID,
			&row.CanonicalUUID,
			&row.CanonicalTitle,
			&row.TitleFamily,
			&row.CompanyName,
			&row.LocationName,
			&row.SeniorityLevel,
			&row.SalaryCurrency,
			&row.SalaryMin,
			&row.SalaryMax,
			&row.FirstSeen,
			&row.LastSeen,
			&row.RepostCount,
			&row.PostingCount,
			&row.Status,
		); err != nil {
			return nil, fmt.Errorf("scan job summary: %w", err)
		}
		jobs = append(jobs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job summaries: %w", err)
	}
	return jobs, nil
}

// GetJobDetail loads one canonical job by uuid with its member postings
// and audit events. Returns ErrNoRows when the uuid is unknown.
func (p *Pool) GetJobDetail(ctx context.Context, jobUUID string) (*JobDetail, error) {
	trimmedUUID := strings.TrimSpace(jobUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("job uuid is required")
	}

	const headerQuery = `
SELECT
	cj.canonical_job_id,
	cj.canonical_job_uuid::text,
	cj.canonical_title,
	cj.title_family,
	c.normalized_name,
	l.normalized_name,
	cj.seniority_level,
	cj.education_level,
	cj.experience_band,
	cj.salary_currency,
	cj.salary_period,
	cj.salary_min,
	cj.salary_max,
	cj.first_seen,
	cj.last_seen,
	cj.repost_count,
	cj.best_description,
	COALESCE(cj.aggregated_skills, '[]'::jsonb)::text,
	cj.quality_score,
	cj.status,
	cj.created_at,
	cj.updated_at
FROM jobs.canonical_jobs cj
LEFT JOIN jobs.companies c ON c.company_id = cj.company_id
LEFT JOIN jobs.locations l ON l.location_id = cj.location_id
WHERE cj.canonical_job_uuid = $1::uuid
`

	detail := &JobDetail{}
	var skillsText string
	err := p.QueryRow(ctx, headerQuery, trimmedUUID).Scan(
		&detail.Job.CanonicalJobID,
		&detail.Job.CanonicalUUID,
		&detail.Job.CanonicalTitle,
		&detail.Job.TitleFamily,
		&detail.Job.CompanyName,
		&detail.Job.LocationName,
		&detail.Job.SeniorityLevel,
		&detail.Job.EducationLevel,
		&detail.Job.ExperienceBand,
		&detail.Job.SalaryCurrency,
		&detail.Job.SalaryPeriod,
		&detail.Job.SalaryMin,
		&detail.Job.SalaryMax,
		&detail.Job.FirstSeen,
		&detail.Job.LastSeen,
		&detail.Job.RepostCount,
		&detail.Job.BestDescription,
		&skillsText,
		&detail.Job.QualityScore,
		&detail.Job.Status,
		&detail.Job.CreatedAt,
		&detail.Job.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query job detail %s: %w", trimmedUUID, err)
	}
	detail.Job.AggregatedSkills = json.RawMessage(skillsText)

	const postingsQuery = `
SELECT
	rp.raw_posting_id,
	rp.source,
	rp.source_item_id,
	rp.source_url,
	rp.title_raw,
	rp.scraped_at,
	dl.match_type::text,
	dl.match_score,
	dl.matched_at
FROM jobs.dedupe_links dl
JOIN jobs.raw_postings rp ON rp.raw_posting_id = dl.raw_posting_id
WHERE dl.canonical_job_id = $1
ORDER BY rp.scraped_at, rp.raw_posting_id
`

	rows, err := p.Query(ctx, postingsQuery, detail.Job.CanonicalJobID)
	if err != nil {
		return nil, fmt.Errorf("query job postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row JobDetailPosting
		if err := rows.Scan(
			&row.RawPostingID,
			&row.Source,
			&row.SourceItemID,
			&row.SourceURL,
			&row.TitleRaw,
			&row.ScrapedAt,
			&row.MatchType,
			&row.MatchScore,
			&row.MatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job posting: %w", err)
		}
		detail.Postings = append(detail.Postings, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job postings: %w", err)
	}

	const eventsQuery = `
SELECT
	de.raw_posting_id,
	de.decision::text,
	de.matched_layer,
	de.best_similarity,
	de.title_similarity,
	de.created_at
FROM jobs.dedup_events de
WHERE de.chosen_canonical_job_id = $1
ORDER BY de.created_at, de.dedup_event_id
`

	eventRows, err := p.Query(ctx, eventsQuery, detail.Job.CanonicalJobID)
	if err != nil {
		return nil, fmt.Errorf("query job events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var row JobDetailEvent
		if err := eventRows.Scan(
			&row.RawPostingID,
			&row.Decision,
			&row.MatchedLayer,
			&row.BestSimilarity,
			&row.TitleSimilarity,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		detail.Events = append(detail.Events, row)
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job events: %w", err)
	}

	return detail, nil
}

// SearchJobsByTitle does a case-insensitive substring search over
// canonical titles.
func (p *Pool) SearchJobsByTitle(ctx context.Context, query string, limit int) ([]JobSummary, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	cj.canonical_job_id,
	cj.canonical_job_uuid::text,
	cj.canonical_title,
	cj.title_family,
	c.normalized_name,
	l.normalized_name,
	cj.seniority_level,
	cj.salary_currency,
	cj.salary_min,
	cj.salary_max,
	cj.first_seen,
	cj.last_seen,
	cj.repost_count,
	(SELECT COUNT(*) FROM jobs.dedupe_links dl WHERE dl.canonical_job_id = cj.canonical_job_id)::INT,
	cj.status
FROM jobs.canonical_jobs cj
LEFT JOIN jobs.companies c ON c.company_id = cj.company_id
LEFT JOIN jobs.locations l ON l.location_id = cj.location_id
WHERE cj.status = 'active'
  AND cj.canonical_title ILIKE '%' || $1 || '%'
ORDER BY cj.last_seen DESC, cj.canonical_job_id DESC
LIMIT $2
`

	rows, err := p.Query(ctx, q, trimmed, limit)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]JobSummary, 0, limit)
	for rows.Next() {
		var row JobSummary
		if err := rows.Scan(
			&row.CanonicalJobID,
			&row.CanonicalUUID,
			&row.CanonicalTitle,
			&row.TitleFamily,
			&row.CompanyName,
			&row.LocationName,
			&row.SeniorityLevel,
			&row.SalaryCurrency,
			&row.SalaryMin,
			&row.SalaryMax,
			&row.FirstSeen,
			&row.LastSeen,
			&row.RepostCount,
			&row.PostingCount,
			&row.Status,
		); err != nil {
			return nil, fmt.Errorf("scan job search row: %w", err)
		}
		jobs = append(jobs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job search rows: %w", err)
	}
	return jobs, nil
}

// SourceSummary is a per-source activity row for the sources endpoint.
type SourceSummary struct {
	Source      string     `json:"source"`
	RawPostings int64      `json:"raw_postings"`
	Pending     int64      `json:"pending"`
	LastIngest  *time.Time `json:"last_ingest,omitempty"`
}

// ListSources returns per-source arrival counts and the most recent
// completed ingest run per source.
func (p *Pool) ListSources(ctx context.Context) ([]SourceSummary, error) {
	const q = `
SELECT
	rp.source,
	COUNT(*)::BIGINT,
	COUNT(*) FILTER (WHERE rp.status = 'pending')::BIGINT,
	(SELECT MAX(ir.finished_at) FROM jobs.ingest_runs ir WHERE ir.source = rp.source AND ir.status = 'completed')
FROM jobs.raw_postings rp
GROUP BY rp.source
ORDER BY rp.source
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var row SourceSummary
		if err := rows.Scan(&row.Source, &row.RawPostings, &row.Pending, &row.LastIngest); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		sources = append(sources, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

func normalizeFilter(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
