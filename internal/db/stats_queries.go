package db

import (
	"context"
	"fmt"
	"time"
)

// StatsSourceCount stores per-source pipeline counts. CollapseRate is
// the share of processed postings that merged into an existing job
// instead of creating one.
type StatsSourceCount struct {
	Source        string  `json:"source"`
	RawPostings   int64   `json:"raw_postings"`
	Processed     int64   `json:"processed"`
	Rejected      int64   `json:"rejected"`
	CanonicalJobs int64   `json:"canonical_jobs"`
	CollapseRate  float64 `json:"collapse_rate"`
}

// StatsTotals stores totals across sources.
type StatsTotals struct {
	RawPostings   int64 `json:"raw_postings"`
	Processed     int64 `json:"processed"`
	Rejected      int64 `json:"rejected"`
	CanonicalJobs int64 `json:"canonical_jobs"`
	Companies     int64 `json:"companies"`
	Locations     int64 `json:"locations"`
}

// DecisionCounts breaks down the audit trail by decision and layer.
type DecisionCounts struct {
	NewJobs          int64 `json:"new_jobs"`
	Merged           int64 `json:"merged"`
	Rejected         int64 `json:"rejected"`
	MergedByURL      int64 `json:"merged_by_url"`
	MergedByTitle    int64 `json:"merged_by_title"`
	MergedByContent  int64 `json:"merged_by_content"`
	PendingBacklog   int64 `json:"pending_backlog"`
	RepostsRecorded  int64 `json:"reposts_recorded"`
	IngestedToday    int64 `json:"ingested_today"`
	JobsCreatedToday int64 `json:"jobs_created_today"`
}

// PipelineStats is the read model returned by the stats command and
// the stats endpoint.
type PipelineStats struct {
	Day       string             `json:"day"`
	Sources   []StatsSourceCount `json:"sources"`
	Totals    StatsTotals        `json:"totals"`
	Decisions DecisionCounts     `json:"decisions"`
}

// QueryPipelineStats returns per-source counts, totals, and decision
// breakdowns for the day window.
func (p *Pool) QueryPipelineStats(ctx context.Context, dayStart, dayEnd time.Time) (*PipelineStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &PipelineStats{
		Day:     startUTC.Format("2006-01-02"),
		Sources: make([]StatsSourceCount, 0, 16),
	}

	const sourceQuery = `
WITH posting_counts AS (
	SELECT
		rp.source,
		COUNT(*)::BIGINT AS raw_postings,
		COUNT(*) FILTER (WHERE rp.status = 'processed')::BIGINT AS processed,
		COUNT(*) FILTER (WHERE rp.status = 'rejected')::BIGINT AS rejected
	FROM jobs.raw_postings rp
	GROUP BY rp.source
),
job_counts AS (
	SELECT
		rp.source,
		COUNT(DISTINCT dl.canonical_job_id)::BIGINT AS canonical_jobs
	FROM jobs.dedupe_links dl
	JOIN jobs.raw_postings rp ON rp.raw_posting_id = dl.raw_posting_id
	GROUP BY rp.source
)
SELECT
	pc.source,
	pc.raw_postings,
	pc.processed,
	pc.rejected,
	COALESCE(jc.canonical_jobs, 0) AS canonical_jobs
FROM posting_counts pc
LEFT JOIN job_counts jc ON jc.source = pc.source
ORDER BY pc.source
`

	rows, err := p.Query(ctx, sourceQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row StatsSourceCount
		if err := rows.Scan(&row.Source, &row.RawPostings, &row.Processed, &row.Rejected, &row.CanonicalJobs); err != nil {
			return nil, fmt.Errorf("scan stats source row: %w", err)
		}
		linked := row.Processed
		if linked > 0 && row.CanonicalJobs > 0 {
			row.CollapseRate = 1 - float64(row.CanonicalJobs)/float64(linked)
			if row.CollapseRate < 0 {
				row.CollapseRate = 0
			}
		}
		stats.Sources = append(stats.Sources, row)
		stats.Totals.RawPostings += row.RawPostings
		stats.Totals.Processed += row.Processed
		stats.Totals.Rejected += row.Rejected
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats source rows: %w", err)
	}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM jobs.canonical_jobs cj WHERE cj.status = 'active') AS canonical_jobs,
	(SELECT COUNT(*) FROM jobs.companies) AS companies,
	(SELECT COUNT(*) FROM jobs.locations) AS locations
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.CanonicalJobs,
		&stats.Totals.Companies,
		&stats.Totals.Locations,
	); err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}

	const decisionsQuery = `
SELECT
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.decision = 'new_job') AS new_jobs,
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.decision = 'merged') AS merged,
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.decision = 'rejected') AS rejected,
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.matched_layer = 'exact_url') AS merged_by_url,
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.matched_layer = 'composite_title') AS merged_by_title,
	(SELECT COUNT(*) FROM jobs.dedup_events de WHERE de.matched_layer = 'content_signature') AS merged_by_content,
	(SELECT COUNT(*) FROM jobs.raw_postings rp WHERE rp.status = 'pending') AS pending_backlog,
	(SELECT COALESCE(SUM(cj.repost_count), 0) FROM jobs.canonical_jobs cj) AS reposts_recorded,
	(SELECT COUNT(*) FROM jobs.raw_postings rp WHERE rp.created_at >= $1 AND rp.created_at < $2) AS ingested_today,
	(SELECT COUNT(*) FROM jobs.canonical_jobs cj WHERE cj.created_at >= $1 AND cj.created_at < $2) AS jobs_created_today
`
	if err := p.QueryRow(ctx, decisionsQuery, startUTC, endUTC).Scan(
		&stats.Decisions.NewJobs,
		&stats.Decisions.Merged,
		&stats.Decisions.Rejected,
		&stats.Decisions.MergedByURL,
		&stats.Decisions.MergedByTitle,
		&stats.Decisions.MergedByContent,
		&stats.Decisions.PendingBacklog,
		&stats.Decisions.RepostsRecorded,
		&stats.Decisions.IngestedToday,
		&stats.Decisions.JobsCreatedToday,
	); err != nil {
		return nil, fmt.Errorf("query stats decisions: %w", err)
	}

	return stats, nil
}
