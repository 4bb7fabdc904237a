package htmltext

import (
	"strings"
	"testing"
)

func TestExtractText_PlainTextPassthrough(t *testing.T) {
	t.Parallel()

	got := ExtractText("We are hiring an accountant.\r\n\r\nApply   today.", "")
	if got != "We are hiring an accountant.\n\nApply today." {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}

func TestExtractText_HTMLFragment(t *testing.T) {
	t.Parallel()

	raw := "<div><p>Prepare monthly reconciliations.</p><ul><li>Advanced Excel</li><li>QuickBooks</li></ul></div>"
	got := ExtractText(raw, "https://example.com/jobs/1")

	if strings.Contains(got, "<") {
		t.Fatalf("expected markup to be removed, got %q", got)
	}
	for _, want := range []string{"Prepare monthly reconciliations", "Advanced Excel", "QuickBooks"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in extracted text: %q", want, got)
		}
	}
}

func TestExtractText_Empty(t *testing.T) {
	t.Parallel()

	if got := ExtractText("   ", "https://example.com"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	got := stripTags("<p>Hello <strong>world</strong></p>")
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Fatalf("expected tags removed, got %q", got)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "world") {
		t.Fatalf("expected text content preserved, got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	got := CleanText("line one  \r\nline   two\r\rline three")
	if got != "line one\n\nline two\n\nline three" {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := CleanText("  \n \r\n "); got != "" {
		t.Fatalf("expected empty result for whitespace input, got %q", got)
	}
}
