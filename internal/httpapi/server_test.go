package httpapi

import "testing"

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	value, err := parsePositiveInt("", 25, 1, 200)
	if err != nil || value != 25 {
		t.Fatalf("expected fallback 25, got %d err=%v", value, err)
	}

	value, err = parsePositiveInt(" 42 ", 25, 1, 200)
	if err != nil || value != 42 {
		t.Fatalf("expected 42, got %d err=%v", value, err)
	}

	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected error for non-integer input")
	}
	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatalf("expected error below the minimum")
	}
	if _, err := parsePositiveInt("500", 25, 1, 200); err == nil {
		t.Fatalf("expected error above the maximum")
	}
}
