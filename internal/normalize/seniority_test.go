package normalize

import "testing"

func TestExtractSeniority_TitleOutranksDescription(t *testing.T) {
	t.Parallel()

	level, outcome := ExtractSeniority("Senior Data Analyst", "entry level candidates welcome")
	if level != SenioritySenior {
		t.Fatalf("expected title keyword to win, got %q", level)
	}
	if !outcome.Matched {
		t.Fatalf("expected a match outcome")
	}
}

func TestExtractSeniority_ExecutiveKeywords(t *testing.T) {
	t.Parallel()

	level, _ := ExtractSeniority("Head of Finance", "")
	if level != SeniorityExecutive {
		t.Fatalf("expected executive level, got %q", level)
	}
}

func TestExtractSeniority_Unknown(t *testing.T) {
	t.Parallel()

	level, outcome := ExtractSeniority("Accountant", "prepare monthly reconciliations")
	if level != LevelUnknown {
		t.Fatalf("expected unknown level, got %q", level)
	}
	if outcome.Matched {
		t.Fatalf("did not expect a match outcome")
	}
}

func TestExtractEducation(t *testing.T) {
	t.Parallel()

	level, _ := ExtractEducation("Must hold a Bachelor's degree in Commerce")
	if level != EducationBachelors {
		t.Fatalf("expected bachelors, got %q", level)
	}

	level, _ = ExtractEducation("MBA or MSc preferred")
	if level != EducationMasters {
		t.Fatalf("expected masters, got %q", level)
	}

	level, outcome := ExtractEducation("no formal requirements")
	if level != LevelUnknown || outcome.Matched {
		t.Fatalf("expected unknown with no match, got %q matched=%v", level, outcome.Matched)
	}
}

func TestExtractExperienceBand(t *testing.T) {
	t.Parallel()

	band, _ := ExtractExperienceBand("at least 1 year of experience")
	if band != ExperienceBand0to2 {
		t.Fatalf("expected 0-2 band, got %q", band)
	}

	band, _ = ExtractExperienceBand("3-5 years in a similar role")
	if band != ExperienceBand3to5 {
		t.Fatalf("expected 3-5 band, got %q", band)
	}

	band, _ = ExtractExperienceBand("minimum 7 yrs experience")
	if band != ExperienceBand6to10 {
		t.Fatalf("expected 6-10 band, got %q", band)
	}

	band, _ = ExtractExperienceBand("10+ years leading teams")
	if band != ExperienceBand10up {
		t.Fatalf("expected 10+ band, got %q", band)
	}

	band, outcome := ExtractExperienceBand("proven experience required")
	if band != LevelUnknown || outcome.Matched {
		t.Fatalf("expected unknown band with no match, got %q matched=%v", band, outcome.Matched)
	}
}
