package normalize

import "testing"

func TestNormalizeTitle_AliasHit(t *testing.T) {
	t.Parallel()

	result, outcome := NormalizeTitle("Backend Developer")
	if result.CanonicalTitle != "software engineer" {
		t.Fatalf("unexpected canonical title: %q", result.CanonicalTitle)
	}
	if result.Family != "software_engineering" {
		t.Fatalf("unexpected family: %q", result.Family)
	}
	if !outcome.Matched {
		t.Fatalf("expected alias hit to report a match")
	}
}

func TestNormalizeTitle_AbbreviationExpansion(t *testing.T) {
	t.Parallel()

	result, outcome := NormalizeTitle("Sr. SWE")
	if result.CanonicalTitle != "software engineer" {
		t.Fatalf("expected abbreviation to expand to software engineer, got %q", result.CanonicalTitle)
	}
	if !outcome.Matched {
		t.Fatalf("expected expanded abbreviation to match")
	}
}

func TestNormalizeTitle_StripsSeniorityQualifiers(t *testing.T) {
	t.Parallel()

	result, _ := NormalizeTitle("Senior Accountant")
	if result.CanonicalTitle != "accountant" {
		t.Fatalf("expected qualifier to be stripped before alias lookup, got %q", result.CanonicalTitle)
	}
	if result.Family != "finance" {
		t.Fatalf("unexpected family: %q", result.Family)
	}
}

func TestNormalizeTitle_UnknownLandsInOther(t *testing.T) {
	t.Parallel()

	result, outcome := NormalizeTitle("Chief Happiness Wizard")
	if result.Family != FamilyOther {
		t.Fatalf("expected unknown title to land in %q, got %q", FamilyOther, result.Family)
	}
	if outcome.Matched {
		t.Fatalf("did not expect a match outcome for unknown title")
	}
}

func TestNormalizeTitle_Empty(t *testing.T) {
	t.Parallel()

	result, outcome := NormalizeTitle("   ")
	if result.Family != FamilyOther {
		t.Fatalf("expected empty title to land in %q, got %q", FamilyOther, result.Family)
	}
	if outcome.Matched {
		t.Fatalf("did not expect a match for empty title")
	}
}
