package app

import (
	"testing"
	"time"
)

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	format, err := parseOutputFormat(" JSON ", outputFormatTable)
	if err != nil || format != outputFormatJSON {
		t.Fatalf("expected json, got %q err=%v", format, err)
	}

	format, err = parseOutputFormat("", outputFormatTable)
	if err != nil || format != outputFormatTable {
		t.Fatalf("expected default table, got %q err=%v", format, err)
	}

	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestUTCDayBounds(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 20, 15, 30, 0, 0, time.FixedZone("EAT", 3*3600))
	start, end := utcDayBounds(day)

	if start.Location() != time.UTC {
		t.Fatalf("expected UTC start, got %v", start.Location())
	}
	if start.Hour() != 0 || start.Minute() != 0 {
		t.Fatalf("expected midnight start, got %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", end.Sub(start))
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 20); got != "short" {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := truncateForTable("a very long canonical title here", 10); got != "a very ..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateForTable("anything", 0); got != "anything" {
		t.Fatalf("expected no truncation for zero max, got %q", got)
	}
}
