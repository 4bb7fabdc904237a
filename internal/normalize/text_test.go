package normalize

import "testing"

func TestCleanText(t *testing.T) {
	t.Parallel()

	if got := CleanText("  Senior   Software\tEngineer \n"); got != "senior software engineer" {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
	if got := CleanText("   "); got != "" {
		t.Fatalf("expected empty result for blank input, got %q", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("Accountant (Nairobi) - KES 80,000")
	want := []string{"accountant", "nairobi", "kes", "80", "000"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected token count: got %v want %v", tokens, want)
	}
	for i, token := range tokens {
		if token != want[i] {
			t.Fatalf("unexpected token at %d: got %q want %q", i, token, want[i])
		}
	}

	if tokens := Tokenize("  ...  "); tokens != nil {
		t.Fatalf("expected nil tokens for punctuation-only input, got %v", tokens)
	}
}

func TestTokenSetRatio(t *testing.T) {
	t.Parallel()

	if got := TokenSetRatio("software engineer", "Software Engineer"); got != 1 {
		t.Fatalf("expected identical token sets to score 1, got %f", got)
	}

	score := TokenSetRatio("senior software engineer", "software engineer backend")
	if score <= 0 || score >= 1 {
		t.Fatalf("expected partial overlap score in (0,1), got %f", score)
	}

	if got := TokenSetRatio("accountant", "driver"); got != 0 {
		t.Fatalf("expected disjoint sets to score 0, got %f", got)
	}
	if got := TokenSetRatio("", "driver"); got != 0 {
		t.Fatalf("expected empty input to score 0, got %f", got)
	}
}

func TestTrigramSimilarity(t *testing.T) {
	t.Parallel()

	if got := TrigramSimilarity("nairobi", "nairobi"); got != 1 {
		t.Fatalf("expected identical strings to score 1, got %f", got)
	}

	score := TrigramSimilarity("safaricom", "safaricom plc")
	if score <= 0 || score >= 1 {
		t.Fatalf("expected partial trigram overlap score in (0,1), got %f", score)
	}

	if got := TrigramSimilarity("abc", "xyz"); got != 0 {
		t.Fatalf("expected disjoint trigrams to score 0, got %f", got)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	if got := CountTokens("one two  three"); got != 3 {
		t.Fatalf("unexpected token count: got %d want 3", got)
	}
	if got := CountTokens("   "); got != 0 {
		t.Fatalf("expected 0 tokens for blank input, got %d", got)
	}
}
