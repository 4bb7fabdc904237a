package match

import (
	"strings"
	"testing"
	"time"

	"talentgrid.fit/jobpipe/internal/fingerprint"
)

var testThresholds = Thresholds{
	FuzzyTitle:        0.80,
	ContentSimilarity: 0.85,
}

func signatureFor(t *testing.T, text string) fingerprint.Signature {
	t.Helper()
	sig, ok := fingerprint.NewSignature(strings.Fields(strings.ToLower(text)))
	if !ok {
		t.Fatalf("text too short to sign: %q", text)
	}
	return sig
}

func TestMatch_ExactURLWinsFirst(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 1, CanonicalTitle: "accountant"})
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 2, CanonicalTitle: "accountant"})

	hash := fingerprint.URLHash("https://example.com/jobs/accountant-1", nil)
	snap.AddURLHash(hash, 1)
	// The composite layer would point elsewhere; the URL layer must win.
	snap.AddComposite("c1|f:finance|l1", 2)

	result := Match(Candidate{
		URLHash:        hash,
		CompositeKey:   "c1|f:finance|l1",
		CanonicalTitle: "accountant",
	}, snap, testThresholds)

	if !result.Matched || result.CanonicalJobID != 1 {
		t.Fatalf("expected exact URL match on job 1, got %+v", result)
	}
	if result.Layer != LayerExactURL {
		t.Fatalf("unexpected layer: %q", result.Layer)
	}
}

func TestMatch_SameURLDifferentTracking(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 4})
	snap.AddURLHash(fingerprint.URLHash("https://example.com/jobs/77?utm_source=feed", nil), 4)

	result := Match(Candidate{
		URLHash: fingerprint.URLHash("https://example.com/jobs/77?utm_campaign=rerun", nil),
	}, snap, testThresholds)

	if !result.Matched || result.CanonicalJobID != 4 || result.Layer != LayerExactURL {
		t.Fatalf("expected tracking-only URL variants to collapse, got %+v", result)
	}
}

func TestMatch_CompositeFuzzyTitle(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 7, CanonicalTitle: "software engineer"})
	snap.AddComposite("c3|f:software_engineering|l1", 7)

	result := Match(Candidate{
		CompositeKey:   "c3|f:software_engineering|l1",
		CanonicalTitle: "software engineer",
	}, snap, testThresholds)

	if !result.Matched || result.CanonicalJobID != 7 {
		t.Fatalf("expected composite match, got %+v", result)
	}
	if result.Layer != LayerComposite {
		t.Fatalf("unexpected layer: %q", result.Layer)
	}
	if result.TitleScore < testThresholds.FuzzyTitle {
		t.Fatalf("expected title score at or above threshold, got %f", result.TitleScore)
	}
}

func TestMatch_CompositeBelowThresholdFallsThrough(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 8, CanonicalTitle: "registered nurse"})
	snap.AddComposite("c5|f:healthcare|l2", 8)

	result := Match(Candidate{
		CompositeKey:   "c5|f:healthcare|l2",
		CanonicalTitle: "medical records clerk",
	}, snap, testThresholds)

	if result.Matched {
		t.Fatalf("did not expect a match below the fuzzy title threshold, got %+v", result)
	}
}

func TestMatch_DifferentCompanyNeverReachesComposite(t *testing.T) {
	t.Parallel()

	// Identical titles at different companies live under different
	// composite keys and must stay separate jobs.
	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 9, CanonicalTitle: "accountant"})
	snap.AddComposite("c1|f:finance|l1", 9)

	result := Match(Candidate{
		CompositeKey:   "c2|f:finance|l1",
		CanonicalTitle: "accountant",
	}, snap, testThresholds)

	if result.Matched {
		t.Fatalf("did not expect a cross-company match, got %+v", result)
	}
}

func TestMatch_CompositeTieBreaksOnRecencyThenID(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(72 * time.Hour)

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 20, CanonicalTitle: "sales representative", LastSeen: older})
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 21, CanonicalTitle: "sales representative", LastSeen: newer})
	snap.AddComposite("c4|f:sales|l1", 20)
	snap.AddComposite("c4|f:sales|l1", 21)

	result := Match(Candidate{
		CompositeKey:   "c4|f:sales|l1",
		CanonicalTitle: "sales representative",
	}, snap, testThresholds)
	if result.CanonicalJobID != 21 {
		t.Fatalf("expected the most recent candidate to win the tie, got %+v", result)
	}

	// Equal timestamps fall back to the higher id.
	snap2 := fingerprint.NewSnapshot()
	snap2.UpsertJob(fingerprint.JobRef{CanonicalJobID: 30, CanonicalTitle: "driver", LastSeen: older})
	snap2.UpsertJob(fingerprint.JobRef{CanonicalJobID: 31, CanonicalTitle: "driver", LastSeen: older})
	snap2.AddComposite("c6|f:operations|l0", 30)
	snap2.AddComposite("c6|f:operations|l0", 31)

	result = Match(Candidate{
		CompositeKey:   "c6|f:operations|l0",
		CanonicalTitle: "driver",
	}, snap2, testThresholds)
	if result.CanonicalJobID != 31 {
		t.Fatalf("expected the higher id to win an exact tie, got %+v", result)
	}
}

func TestMatch_ContentSignatureLayer(t *testing.T) {
	t.Parallel()

	description := "we are hiring a software engineer to design build and operate distributed payment systems serving customers across east africa apply with your cv before the deadline"
	sig := signatureFor(t, description)
	nearSig := signatureFor(t, description+" urgent")

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 40, CanonicalTitle: "software engineer"})
	snap.AddSignature(sig, 40)

	result := Match(Candidate{
		CanonicalTitle: "software engineer",
		Signature:      &nearSig,
	}, snap, testThresholds)

	if !result.Matched || result.CanonicalJobID != 40 {
		t.Fatalf("expected content signature match, got %+v", result)
	}
	if result.Layer != LayerContent {
		t.Fatalf("unexpected layer: %q", result.Layer)
	}
	if result.ContentScore < testThresholds.ContentSimilarity {
		t.Fatalf("expected content score at or above threshold, got %f", result.ContentScore)
	}
}

func TestMatch_NoLayersHit(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 50, CanonicalTitle: "teacher"})
	snap.AddComposite("c8|f:education|l1", 50)

	sig := signatureFor(t, "warehouse supervisor overseeing inbound logistics inventory counts and dispatch scheduling at the mombasa depot")

	result := Match(Candidate{
		URLHash:        fingerprint.URLHash("https://other.example.com/jobs/1", nil),
		CompositeKey:   "c9|f:operations|l0",
		CanonicalTitle: "warehouse supervisor",
		Signature:      &sig,
	}, snap, testThresholds)

	if result.Matched {
		t.Fatalf("expected no match, got %+v", result)
	}
	if result.Layer != LayerNone {
		t.Fatalf("unexpected layer: %q", result.Layer)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	t.Parallel()

	snap := fingerprint.NewSnapshot()
	snap.UpsertJob(fingerprint.JobRef{CanonicalJobID: 60, CanonicalTitle: "data analyst"})
	snap.AddComposite("c7|f:data_analytics|l1", 60)

	candidate := Candidate{
		CompositeKey:   "c7|f:data_analytics|l1",
		CanonicalTitle: "data analyst",
	}

	first := Match(candidate, snap, testThresholds)
	for i := 0; i < 5; i++ {
		if got := Match(candidate, snap, testThresholds); got != first {
			t.Fatalf("expected identical inputs to yield identical results, got %+v then %+v", first, got)
		}
	}
}
