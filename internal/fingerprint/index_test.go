package fingerprint

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	key, ok := CompositeKey(int64Ptr(12), "finance", int64Ptr(3))
	if !ok {
		t.Fatalf("expected composite key")
	}
	if key != "c12|f:finance|l3" {
		t.Fatalf("unexpected key: %q", key)
	}

	key, ok = CompositeKey(int64Ptr(12), "finance", nil)
	if !ok || key != "c12|f:finance|l0" {
		t.Fatalf("expected missing location to default to zero, got %q ok=%v", key, ok)
	}

	if _, ok := CompositeKey(nil, "finance", int64Ptr(3)); ok {
		t.Fatalf("expected no key without a resolved company")
	}
	if _, ok := CompositeKey(int64Ptr(12), "other", int64Ptr(3)); ok {
		t.Fatalf("expected no key for the catch-all family")
	}
	if _, ok := CompositeKey(int64Ptr(12), "", int64Ptr(3)); ok {
		t.Fatalf("expected no key without a family")
	}
}

func TestSnapshot_URLHashFirstWriterWins(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	snap.UpsertJob(JobRef{CanonicalJobID: 1})
	snap.UpsertJob(JobRef{CanonicalJobID: 2})

	hash := URLHash("https://example.com/jobs/1", nil)
	snap.AddURLHash(hash, 1)
	snap.AddURLHash(hash, 2)

	id, ok := snap.LookupURLHash(hash)
	if !ok || id != 1 {
		t.Fatalf("expected first writer to win, got id=%d ok=%v", id, ok)
	}

	if _, ok := snap.LookupURLHash(URLHash("https://example.com/jobs/999", nil)); ok {
		t.Fatalf("did not expect a hit for an unindexed hash")
	}
}

func TestSnapshot_CompositeLookup(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	snap.UpsertJob(JobRef{CanonicalJobID: 10, CanonicalTitle: "accountant"})
	snap.UpsertJob(JobRef{CanonicalJobID: 11, CanonicalTitle: "senior accountant"})

	snap.AddComposite("c1|f:finance|l2", 10)
	snap.AddComposite("c1|f:finance|l2", 11)
	snap.AddComposite("c1|f:finance|l2", 10)

	refs := snap.LookupComposite("c1|f:finance|l2")
	if len(refs) != 2 {
		t.Fatalf("expected two candidates, got %d", len(refs))
	}

	if refs := snap.LookupComposite("c9|f:sales|l0"); len(refs) != 0 {
		t.Fatalf("did not expect candidates for an unindexed key, got %d", len(refs))
	}
}

func TestSnapshot_SignatureLookup(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	snap.UpsertJob(JobRef{CanonicalJobID: 5, CanonicalTitle: "data analyst"})

	sig, ok := NewSignature([]string{"analyze", "monthly", "sales", "data", "using", "sql", "and", "excel"})
	if !ok {
		t.Fatalf("expected signature")
	}
	snap.AddSignature(sig, 5)

	refs := snap.LookupSignature(sig)
	if len(refs) != 1 {
		t.Fatalf("expected one de-duplicated candidate across buckets, got %d", len(refs))
	}
	if refs[0].CanonicalJobID != 5 {
		t.Fatalf("unexpected candidate: %d", refs[0].CanonicalJobID)
	}
	if refs[0].Signature == nil {
		t.Fatalf("expected signature to be attached to the job ref")
	}
}

func TestSnapshot_UpsertRefreshes(t *testing.T) {
	t.Parallel()

	earlier := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)

	snap := NewSnapshot()
	snap.UpsertJob(JobRef{CanonicalJobID: 3, CanonicalTitle: "driver", LastSeen: earlier})
	snap.UpsertJob(JobRef{CanonicalJobID: 3, CanonicalTitle: "delivery driver", LastSeen: later})

	ref, ok := snap.Job(3)
	if !ok {
		t.Fatalf("expected job ref")
	}
	if ref.CanonicalTitle != "delivery driver" {
		t.Fatalf("expected refreshed title, got %q", ref.CanonicalTitle)
	}
	if !ref.LastSeen.Equal(later) {
		t.Fatalf("expected last seen to advance, got %v", ref.LastSeen)
	}

	// A stale refresh never rolls last_seen back.
	snap.UpsertJob(JobRef{CanonicalJobID: 3, CanonicalTitle: "delivery driver", LastSeen: earlier})
	ref, _ = snap.Job(3)
	if !ref.LastSeen.Equal(later) {
		t.Fatalf("expected last seen to stay at %v, got %v", later, ref.LastSeen)
	}
}
