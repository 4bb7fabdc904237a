package pipeline

import (
	"math"
	"testing"
	"time"

	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/normalize"
)

func strPtrFor(s string) *string { return &s }

func testDeps() normalizeDeps {
	return normalizeDeps{
		Companies: normalize.NewCompanyResolver([]normalize.EntityRef{
			{ID: 1, NormalizedName: "safaricom"},
		}, 0.85),
		Locations: normalize.NewLocationResolver([]normalize.EntityRef{
			{ID: 2, NormalizedName: "nairobi"},
		}, 0.85),
		SalaryBounds: normalize.SalaryBounds{Min: 100, Max: 100000000},
	}
}

func TestBuildNormalizedPosting_FullRow(t *testing.T) {
	t.Parallel()

	row := claimedPosting{
		RawPostingID: 42,
		Source:       "brightermonday",
		SourceItemID: "bm-42",
		SourceURL:    strPtrFor("https://example.com/jobs/42?utm_source=feed"),
		ScrapedAt:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		TitleRaw:     "Senior Accountant",
		DescriptionRaw: strPtrFor("<p>Prepare monthly reconciliations and statutory reports. " +
			"Requires a bachelors degree, 3-5 years experience, advanced Excel and QuickBooks.</p>"),
		CompanyRaw:  strPtrFor("Safaricom PLC"),
		LocationRaw: strPtrFor("Westlands, Nairobi"),
		SalaryRaw:   strPtrFor("KES 120,000 - 150,000 per month"),
	}

	np := buildNormalizedPosting(row, testDeps())

	if np.CanonicalTitle != "accountant" {
		t.Fatalf("unexpected canonical title: %q", np.CanonicalTitle)
	}
	if np.TitleFamily != "finance" {
		t.Fatalf("unexpected family: %q", np.TitleFamily)
	}
	if np.SeniorityLevel != normalize.SenioritySenior {
		t.Fatalf("unexpected seniority: %q", np.SeniorityLevel)
	}
	if np.EducationLevel != normalize.EducationBachelors {
		t.Fatalf("unexpected education: %q", np.EducationLevel)
	}
	if np.ExperienceBand != normalize.ExperienceBand3to5 {
		t.Fatalf("unexpected experience band: %q", np.ExperienceBand)
	}
	if np.CompanyID == nil || *np.CompanyID != 1 {
		t.Fatalf("expected company to resolve to id 1")
	}
	if np.LocationID == nil || *np.LocationID != 2 {
		t.Fatalf("expected location to resolve to id 2")
	}
	if np.SalaryMin == nil || *np.SalaryMin != 120000 || *np.SalaryMax != 150000 {
		t.Fatalf("expected salary range to parse")
	}
	if np.SalaryCurrency == nil || *np.SalaryCurrency != "KES" {
		t.Fatalf("expected KES currency")
	}
	if len(np.Skills) == 0 {
		t.Fatalf("expected skills to be extracted")
	}
	if np.URLHash == nil {
		t.Fatalf("expected url hash")
	}
	if np.QualityScore <= 0.5 {
		t.Fatalf("expected a complete posting to score above 0.5, got %f", np.QualityScore)
	}
}

func TestBuildNormalizedPosting_UnresolvedEntitiesFlagged(t *testing.T) {
	t.Parallel()

	row := claimedPosting{
		RawPostingID: 43,
		ScrapedAt:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		TitleRaw:     "Driver",
		CompanyRaw:   strPtrFor("Totally New Logistics Ltd"),
		LocationRaw:  strPtrFor("Garissa Town"),
	}

	np := buildNormalizedPosting(row, testDeps())

	if !np.NewCompany || np.CompanyID != nil {
		t.Fatalf("expected unresolved company to be flagged for creation")
	}
	if np.CompanyName != "totally new logistics" {
		t.Fatalf("unexpected normalized company name: %q", np.CompanyName)
	}
	if !np.NewLocation || np.LocationID != nil {
		t.Fatalf("expected unresolved location to be flagged for creation")
	}
}

func TestBuildNormalizedPosting_MinimalRow(t *testing.T) {
	t.Parallel()

	row := claimedPosting{
		RawPostingID: 44,
		ScrapedAt:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		TitleRaw:     "Zorbulation Specialist",
	}

	np := buildNormalizedPosting(row, testDeps())

	if np.TitleFamily != normalize.FamilyOther {
		t.Fatalf("expected unknown title in catch-all family, got %q", np.TitleFamily)
	}
	if np.SeniorityLevel != normalize.LevelUnknown {
		t.Fatalf("expected unknown seniority, got %q", np.SeniorityLevel)
	}
	if np.Signature != nil {
		t.Fatalf("expected no signature for a description-free posting this short")
	}
	if np.URLHash != nil {
		t.Fatalf("expected no url hash without a source url")
	}
	if np.Language != "und" {
		t.Fatalf("expected undetermined language for an empty description, got %q", np.Language)
	}
}

func TestBuildNormalizedPosting_CompositeEligibility(t *testing.T) {
	t.Parallel()

	row := claimedPosting{
		RawPostingID: 45,
		ScrapedAt:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		TitleRaw:     "Accountant",
		CompanyRaw:   strPtrFor("Safaricom"),
		LocationRaw:  strPtrFor("Nairobi"),
	}

	np := buildNormalizedPosting(row, testDeps())
	key, ok := fingerprint.CompositeKey(np.CompanyID, np.TitleFamily, np.LocationID)
	if !ok {
		t.Fatalf("expected a composite key for resolved entities")
	}
	if key != "c1|f:finance|l2" {
		t.Fatalf("unexpected composite key: %q", key)
	}

	// No resolved company means no composite layer participation.
	if _, ok := fingerprint.CompositeKey(nil, np.TitleFamily, np.LocationID); ok {
		t.Fatalf("did not expect a composite key without a company")
	}
}

func TestRejectReasonFor(t *testing.T) {
	t.Parallel()

	if reason := rejectReasonFor(claimedPosting{TitleRaw: "Accountant"}); reason != "" {
		t.Fatalf("unexpected reject reason: %q", reason)
	}
	if reason := rejectReasonFor(claimedPosting{TitleRaw: "   \t "}); reason != rejectEmptyTitle {
		t.Fatalf("expected %q, got %q", rejectEmptyTitle, reason)
	}
}

func TestComputeQualityScore(t *testing.T) {
	t.Parallel()

	if score := computeQualityScore(normalizedPosting{TitleFamily: normalize.FamilyOther}); score != 0 {
		t.Fatalf("expected empty posting to score 0, got %f", score)
	}

	salaryMin := 50000.0
	full := normalizedPosting{
		TitleFamily:  "finance",
		TokenCount:   80,
		CompanyName:  "acme",
		LocationName: "nairobi",
		SalaryMin:    &salaryMin,
		Skills:       []normalize.ExtractedSkill{{SkillID: "sql"}},
	}
	if score := computeQualityScore(full); math.Abs(score-1.0) > 1e-9 {
		t.Fatalf("expected fully populated posting to score 1.0, got %f", score)
	}

	thin := normalizedPosting{TitleFamily: "finance", TokenCount: 10}
	if score := computeQualityScore(thin); math.Abs(score-0.35) > 1e-9 {
		t.Fatalf("expected 0.35 for family plus short description, got %f", score)
	}

	// Completeness orders postings.
	if computeQualityScore(full) <= computeQualityScore(thin) {
		t.Fatalf("expected completeness to raise the score")
	}
}
