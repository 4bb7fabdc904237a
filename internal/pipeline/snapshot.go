package pipeline

import (
	"context"
	"fmt"
	"time"

	"talentgrid.fit/jobpipe/internal/db"
	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/normalize"
)

// loadCompanyRefsTx reads the known-company set the resolver matches
// against. Runs inside the batch transaction so in-batch inserts stay
// visible to later postings.
func loadCompanyRefsTx(ctx context.Context, tx db.Tx) ([]normalize.EntityRef, error) {
	const q = `
SELECT company_id, normalized_name
FROM jobs.companies
ORDER BY company_id
`
	return scanEntityRefs(ctx, tx, q, "companies")
}

func loadLocationRefsTx(ctx context.Context, tx db.Tx) ([]normalize.EntityRef, error) {
	const q = `
SELECT location_id, normalized_name
FROM jobs.locations
ORDER BY location_id
`
	return scanEntityRefs(ctx, tx, q, "locations")
}

func scanEntityRefs(ctx context.Context, tx db.Tx, query, label string) ([]normalize.EntityRef, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", label, err)
	}
	defer rows.Close()

	var refs []normalize.EntityRef
	for rows.Next() {
		var ref normalize.EntityRef
		if err := rows.Scan(&ref.ID, &ref.NormalizedName); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", label, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", label, err)
	}
	return refs, nil
}

// loadFingerprintSnapshotTx builds the in-memory index from active
// canonical jobs and their fingerprint entries. The snapshot is the
// matcher's whole world for the batch; only the merge step extends it.
func loadFingerprintSnapshotTx(ctx context.Context, tx db.Tx) (*fingerprint.Snapshot, error) {
	snap := fingerprint.NewSnapshot()

	const q = `
SELECT
	cj.canonical_job_id,
	cj.canonical_title,
	cj.last_seen,
	fe.url_hash,
	fe.composite_key,
	fe.minhash_signature
FROM jobs.canonical_jobs cj
JOIN jobs.fingerprint_entries fe ON fe.canonical_job_id = cj.canonical_job_id
WHERE cj.status = 'active'
ORDER BY cj.canonical_job_id
`

	rows, err := tx.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query fingerprint entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			canonicalJobID int64
			canonicalTitle string
			lastSeen       time.Time
			urlHash        []byte
			compositeKey   *string
			signatureRaw   []byte
		)
		if err := rows.Scan(&canonicalJobID, &canonicalTitle, &lastSeen, &urlHash, &compositeKey, &signatureRaw); err != nil {
			return nil, fmt.Errorf("scan fingerprint entry: %w", err)
		}

		snap.UpsertJob(fingerprint.JobRef{
			CanonicalJobID: canonicalJobID,
			CanonicalTitle: canonicalTitle,
			LastSeen:       lastSeen.UTC(),
		})
		if len(urlHash) > 0 {
			snap.AddURLHash(urlHash, canonicalJobID)
		}
		if compositeKey != nil && *compositeKey != "" {
			snap.AddComposite(*compositeKey, canonicalJobID)
		}
		if len(signatureRaw) > 0 {
			sig, err := fingerprint.DecodeSignature(signatureRaw)
			if err != nil {
				return nil, fmt.Errorf("decode signature canonical_job_id=%d: %w", canonicalJobID, err)
			}
			snap.AddSignature(sig, canonicalJobID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprint entries: %w", err)
	}
	return snap, nil
}
