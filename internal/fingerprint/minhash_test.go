package fingerprint

import (
	"strings"
	"testing"
)

func tokensFor(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func TestNewSignature_TooShort(t *testing.T) {
	t.Parallel()

	if _, ok := NewSignature([]string{"two", "tokens"}); ok {
		t.Fatalf("expected texts shorter than the shingle size to be rejected")
	}
	if _, ok := NewSignature(nil); ok {
		t.Fatalf("expected nil tokens to be rejected")
	}
}

func TestEstimateJaccard_IdenticalAndDisjoint(t *testing.T) {
	t.Parallel()

	text := "we are hiring a software engineer to build payment systems in nairobi"
	a, ok := NewSignature(tokensFor(text))
	if !ok {
		t.Fatalf("expected signature")
	}
	b, _ := NewSignature(tokensFor(text))
	if EstimateJaccard(a, b) != 1 {
		t.Fatalf("expected identical texts to estimate 1.0")
	}

	c, _ := NewSignature(tokensFor("completely unrelated warehouse supervisor role based in mombasa port facility"))
	if score := EstimateJaccard(a, c); score > 0.2 {
		t.Fatalf("expected unrelated texts to score low, got %f", score)
	}
}

func TestEstimateJaccard_NearDuplicate(t *testing.T) {
	t.Parallel()

	base := "we are hiring a senior software engineer to design build and operate distributed payment systems serving customers across east africa apply with your cv and cover letter before the deadline"
	reposted := base + " this position is urgent"

	a, _ := NewSignature(tokensFor(base))
	b, _ := NewSignature(tokensFor(reposted))

	if score := EstimateJaccard(a, b); score < 0.7 {
		t.Fatalf("expected near-duplicate texts to score high, got %f", score)
	}
}

func TestBuckets_Deterministic(t *testing.T) {
	t.Parallel()

	sig, _ := NewSignature(tokensFor("an accountant position handling reconciliations budgets and statutory reporting"))

	first := Buckets(sig)
	second := Buckets(sig)
	if first != second {
		t.Fatalf("expected bucket derivation to be deterministic")
	}
	for band, key := range first {
		if key.Band != band {
			t.Fatalf("bucket %d carries band %d", band, key.Band)
		}
	}
}

func TestBuckets_SharedBandForNearDuplicates(t *testing.T) {
	t.Parallel()

	base := "we are hiring a senior software engineer to design build and operate distributed payment systems serving customers across east africa apply with your cv and cover letter before the deadline"
	a, _ := NewSignature(tokensFor(base))
	b, _ := NewSignature(tokensFor(base + " urgent"))

	bucketsA := Buckets(a)
	bucketsB := Buckets(b)

	shared := 0
	for i := range bucketsA {
		if bucketsA[i] == bucketsB[i] {
			shared++
		}
	}
	if shared == 0 {
		t.Fatalf("expected near-duplicates to share at least one band bucket")
	}
}

func TestEncodeDecodeSignature(t *testing.T) {
	t.Parallel()

	sig, _ := NewSignature(tokensFor("driver needed for delivery routes within nairobi and its environs"))

	decoded, err := DecodeSignature(EncodeSignature(sig))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != sig {
		t.Fatalf("roundtrip changed the signature")
	}

	if _, err := DecodeSignature([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected short input to fail decoding")
	}
}
