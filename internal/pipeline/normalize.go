package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"talentgrid.fit/jobpipe/internal/fingerprint"
	"talentgrid.fit/jobpipe/internal/htmltext"
	"talentgrid.fit/jobpipe/internal/langdetect"
	"talentgrid.fit/jobpipe/internal/normalize"
)

// rejectReason values stored on jobs.raw_postings when normalization
// cannot produce a usable posting.
const rejectEmptyTitle = "empty_title_after_cleaning"

type claimedPosting struct {
	RawPostingID   int64
	Source         string
	SourceItemID   string
	SourceURL      *string
	ScrapedAt      time.Time
	TitleRaw       string
	DescriptionRaw *string
	CompanyRaw     *string
	LocationRaw    *string
	SalaryRaw      *string
}

// normalizedPosting is the fully derived view of one raw posting, ready
// for matching and persistence. All fields are deterministic functions
// of the claimed row plus the entity resolvers' state.
type normalizedPosting struct {
	RawPostingID int64
	Source       string
	ScrapedAt    time.Time

	CanonicalTitle  string
	TitleFamily     string
	TitleConfidence float64

	SeniorityLevel string
	EducationLevel string
	ExperienceBand string

	Skills []normalize.ExtractedSkill

	SalaryCurrency *string
	SalaryPeriod   *string
	SalaryMin      *float64
	SalaryMax      *float64
	SalaryDropped  string

	Language        string
	DescriptionText string
	TokenCount      int
	QualityScore    float64

	CompanyName         string
	CompanyID           *int64
	NewCompany          bool
	LocationName        string
	LocationCountryCode *string
	LocationID          *int64
	NewLocation         bool

	URLHash      []byte
	CompositeKey *string
	Signature    *fingerprint.Signature

	Evidence map[string]normalize.Outcome
}

type normalizeDeps struct {
	Companies         *normalize.EntityResolver
	Locations         *normalize.EntityResolver
	SkillExtractor    normalize.SkillExtractor
	SalaryBounds      normalize.SalaryBounds
	URLTrackingParams []string
}

// buildNormalizedPosting runs every extractor over one claimed row. It
// never fails outright: a posting is rejectable only via rejectReasonFor,
// everything else degrades to unknown defaults with a NoMatch outcome.
func buildNormalizedPosting(row claimedPosting, deps normalizeDeps) normalizedPosting {
	evidence := make(map[string]normalize.Outcome)

	titleResult, titleOutcome := normalize.NormalizeTitle(row.TitleRaw)
	evidence["title"] = titleOutcome

	description := ""
	if row.DescriptionRaw != nil {
		sourceURL := ""
		if row.SourceURL != nil {
			sourceURL = *row.SourceURL
		}
		description = htmltext.ExtractText(*row.DescriptionRaw, sourceURL)
	}

	seniority, seniorityOutcome := normalize.ExtractSeniority(row.TitleRaw, description)
	evidence["seniority"] = seniorityOutcome

	education, educationOutcome := normalize.ExtractEducation(description)
	evidence["education"] = educationOutcome

	experience, experienceOutcome := normalize.ExtractExperienceBand(description)
	evidence["experience"] = experienceOutcome

	skills := normalize.ExtractSkills(row.TitleRaw+" "+description, deps.SkillExtractor)

	np := normalizedPosting{
		RawPostingID:    row.RawPostingID,
		Source:          row.Source,
		ScrapedAt:       row.ScrapedAt.UTC(),
		CanonicalTitle:  titleResult.CanonicalTitle,
		TitleFamily:     titleResult.Family,
		TitleConfidence: titleOutcome.Confidence,
		SeniorityLevel:  seniority,
		EducationLevel:  education,
		ExperienceBand:  experience,
		Skills:          skills,
		Language:        languageFor(description),
		DescriptionText: description,
		TokenCount:      normalize.CountTokens(description),
		Evidence:        evidence,
	}

	if row.SalaryRaw != nil {
		salary, salaryOutcome, dropReason := normalize.ParseSalary(*row.SalaryRaw, deps.SalaryBounds)
		evidence["salary"] = salaryOutcome
		np.SalaryDropped = dropReason
		if salaryOutcome.Matched && dropReason == "" {
			currency := salary.Currency
			period := salary.Period
			minValue := salary.Min
			maxValue := salary.Max
			np.SalaryCurrency = &currency
			np.SalaryPeriod = &period
			np.SalaryMin = &minValue
			np.SalaryMax = &maxValue
		}
	}

	if row.CompanyRaw != nil {
		np.CompanyName = normalize.NormalizeCompanyName(*row.CompanyRaw)
		if np.CompanyName != "" {
			id, outcome := deps.Companies.Resolve(*row.CompanyRaw)
			evidence["company"] = outcome
			if outcome.Matched {
				np.CompanyID = &id
			} else {
				np.NewCompany = true
			}
		}
	}

	if row.LocationRaw != nil {
		locResult, locOutcome := normalize.NormalizeLocationName(*row.LocationRaw)
		np.LocationName = locResult.Canonical
		np.LocationCountryCode = locResult.CountryCode
		if np.LocationName != "" {
			id, outcome := deps.Locations.Resolve(*row.LocationRaw)
			if !outcome.Matched {
				outcome = locOutcome
				np.NewLocation = true
			} else {
				np.LocationID = &id
			}
			evidence["location"] = outcome
		}
	}

	if row.SourceURL != nil {
		np.URLHash = fingerprint.URLHash(*row.SourceURL, deps.URLTrackingParams)
	}

	if sig, ok := fingerprint.NewSignature(normalize.Tokenize(np.CanonicalTitle + " " + description)); ok {
		np.Signature = &sig
	}

	np.QualityScore = computeQualityScore(np)
	return np
}

// languageFor maps an undetectable sample to the ISO 639-2
// undetermined code so the stored column is never blank.
func languageFor(description string) string {
	if code := langdetect.DetectISO6391(description); code != "" {
		return code
	}
	return "und"
}

// rejectReasonFor decides whether a claimed row is processable at all.
// Empty reason means the posting continues through the pipeline.
func rejectReasonFor(row claimedPosting) string {
	if strings.TrimSpace(normalize.CleanText(row.TitleRaw)) == "" {
		return rejectEmptyTitle
	}
	return ""
}

// computeQualityScore weighs field completeness. Used only to pick the
// representative posting among duplicates, never to reject.
func computeQualityScore(np normalizedPosting) float64 {
	score := 0.0
	if np.TitleFamily != normalize.FamilyOther {
		score += 0.25
	}
	if np.TokenCount >= 50 {
		score += 0.25
	} else if np.TokenCount > 0 {
		score += 0.10
	}
	if np.CompanyName != "" {
		score += 0.15
	}
	if np.LocationName != "" {
		score += 0.10
	}
	if np.SalaryMin != nil {
		score += 0.15
	}
	if len(np.Skills) > 0 {
		score += 0.10
	}
	return score
}

func marshalEvidence(evidence map[string]normalize.Outcome) (string, error) {
	if len(evidence) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(evidence)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalSkills(skills []normalize.ExtractedSkill) (string, error) {
	if len(skills) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(skills)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
