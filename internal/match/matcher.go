// Package match decides whether an incoming posting collapses into an
// existing canonical job. It is pure: all candidate state comes from a
// fingerprint.Snapshot and the same inputs always yield the same result.
package match

import (
	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/normalize"
)

// Layer names the matcher stage that produced a decision. The values
// double as the jobs.match_type enum labels persisted with each link.
type Layer string

const (
	LayerNone      Layer = ""
	LayerExactURL  Layer = "exact_url"
	LayerComposite Layer = "composite_title"
	LayerContent   Layer = "content_signature"
)

// Candidate is the posting-side input to a match decision. Fields left
// zero simply disable the layers that need them.
type Candidate struct {
	URLHash        []byte
	CompositeKey   string
	CanonicalTitle string
	Signature      *fingerprint.Signature
}

// Result carries the winning canonical job plus the scores that drove
// the decision, for the audit trail.
type Result struct {
	Matched        bool
	CanonicalJobID int64
	Layer          Layer
	TitleScore     float64
	ContentScore   float64
}

type Thresholds struct {
	FuzzyTitle        float64
	ContentSimilarity float64
}

// Match runs the layers in fixed order: exact URL hash, then composite
// key with fuzzy title confirmation, then LSH content similarity. The
// first layer that produces a hit wins and later layers never run.
func Match(c Candidate, snap *fingerprint.Snapshot, th Thresholds) Result {
	if id, ok := snap.LookupURLHash(c.URLHash); ok {
		return Result{Matched: true, CanonicalJobID: id, Layer: LayerExactURL}
	}
	if r, ok := matchComposite(c, snap, th.FuzzyTitle); ok {
		return r
	}
	if r, ok := matchContent(c, snap, th.ContentSimilarity); ok {
		return r
	}
	return Result{}
}

func matchComposite(c Candidate, snap *fingerprint.Snapshot, threshold float64) (Result, bool) {
	if c.CompositeKey == "" || c.CanonicalTitle == "" {
		return Result{}, false
	}
	var (
		best      *fingerprint.JobRef
		bestScore float64
	)
	for _, ref := range snap.LookupComposite(c.CompositeKey) {
		score := normalize.TokenSetRatio(c.CanonicalTitle, ref.CanonicalTitle)
		if score < threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && moreRecent(ref, best)) {
			best = ref
			bestScore = score
		}
	}
	if best == nil {
		return Result{}, false
	}
	return Result{
		Matched:        true,
		CanonicalJobID: best.CanonicalJobID,
		Layer:          LayerComposite,
		TitleScore:     bestScore,
	}, true
}

func matchContent(c Candidate, snap *fingerprint.Snapshot, threshold float64) (Result, bool) {
	if c.Signature == nil {
		return Result{}, false
	}
	var (
		best      *fingerprint.JobRef
		bestScore float64
	)
	for _, ref := range snap.LookupSignature(*c.Signature) {
		if ref.Signature == nil {
			continue
		}
		score := fingerprint.EstimateJaccard(*c.Signature, *ref.Signature)
		if score < threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && moreRecent(ref, best)) {
			best = ref
			bestScore = score
		}
	}
	if best == nil {
		return Result{}, false
	}
	return Result{
		Matched:        true,
		CanonicalJobID: best.CanonicalJobID,
		Layer:          LayerContent,
		ContentScore:   bestScore,
	}, true
}

// moreRecent breaks score ties toward the job updated last, falling
// back to the higher id so the outcome stays deterministic even when
// timestamps collide.
func moreRecent(a, b *fingerprint.JobRef) bool {
	if !a.LastSeen.Equal(b.LastSeen) {
		return a.LastSeen.After(b.LastSeen)
	}
	return a.CanonicalJobID > b.CanonicalJobID
}
