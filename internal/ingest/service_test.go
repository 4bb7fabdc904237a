package ingest

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestCanonicalizeJSON_KeyOrderIndependent(t *testing.T) {
	t.Parallel()

	left, err := canonicalizeJSON([]byte(`{"b":2,"a":1}`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	right, err := canonicalizeJSON([]byte(` {"a":1, "b":2} `))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if !bytes.Equal(left, right) {
		t.Fatalf("expected canonical forms to match: %s vs %s", left, right)
	}
}

func TestCanonicalizeJSON_RescrapeHashesDiffer(t *testing.T) {
	t.Parallel()

	// The ledger's uniqueness key is (source, source_item_id,
	// payload_hash): a re-scrape of the same item with changed content
	// must hash to a new pending row instead of being swallowed.
	first, err := canonicalizeJSON([]byte(`{"source":"bm","source_item_id":"1","title":"Data Analyst"}`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	second, err := canonicalizeJSON([]byte(`{"source":"bm","source_item_id":"1","title":"Data Analyst (Repost)"}`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}

	leftHash := sha256.Sum256(first)
	rightHash := sha256.Sum256(second)
	if bytes.Equal(leftHash[:], rightHash[:]) {
		t.Fatalf("expected changed payload bytes to produce a new payload hash")
	}
}

func TestCanonicalizeJSON_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := canonicalizeJSON(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := canonicalizeJSON([]byte(`{"a":1} garbage`)); err == nil {
		t.Fatalf("expected error for trailing content")
	}
	if _, err := canonicalizeJSON([]byte(`{broken`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestNormalizeNullable(t *testing.T) {
	t.Parallel()

	if got := normalizeNullable(nil); got != nil {
		t.Fatalf("expected nil passthrough")
	}

	blank := "   "
	if got := normalizeNullable(&blank); got != nil {
		t.Fatalf("expected blank string to normalize to nil, got %q", *got)
	}

	padded := "  Acme Ltd  "
	got := normalizeNullable(&padded)
	if got == nil || *got != "Acme Ltd" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}
