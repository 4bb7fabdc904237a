package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Fixed enums for the rule-based extractors. "unknown" is the default
// whenever no rule fires; the extractors never guess.
const (
	SeniorityIntern    = "intern"
	SeniorityJunior    = "junior"
	SeniorityMid       = "mid"
	SenioritySenior    = "senior"
	SeniorityLead      = "lead"
	SeniorityExecutive = "executive"

	EducationCertificate = "certificate"
	EducationDiploma     = "diploma"
	EducationBachelors   = "bachelors"
	EducationMasters     = "masters"
	EducationDoctorate   = "doctorate"

	ExperienceBand0to2  = "0-2"
	ExperienceBand3to5  = "3-5"
	ExperienceBand6to10 = "6-10"
	ExperienceBand10up  = "10+"

	LevelUnknown = "unknown"
)

var seniorityRules = []struct {
	level    string
	keywords []string
}{
	{SeniorityExecutive, []string{"chief", "cto", "ceo", "cfo", "coo", "director", "vice president", "vp of", "head of"}},
	{SeniorityLead, []string{"lead", "principal", "staff"}},
	{SenioritySenior, []string{"senior", "sr"}},
	{SeniorityIntern, []string{"intern", "internship", "attachment", "trainee"}},
	{SeniorityJunior, []string{"junior", "jr", "graduate", "entry level", "entry-level"}},
}

var educationRules = []struct {
	level    string
	keywords []string
}{
	{EducationDoctorate, []string{"phd", "ph d", "doctorate", "doctoral"}},
	{EducationMasters, []string{"masters degree", "master s degree", "msc", "mba", "m sc", "postgraduate"}},
	{EducationBachelors, []string{"bachelors degree", "bachelor s degree", "bsc", "b sc", "undergraduate degree", "university degree", "degree in"}},
	{EducationDiploma, []string{"diploma"}},
	{EducationCertificate, []string{"certificate", "kcse", "certification in"}},
}

var yearsPattern = regexp.MustCompile(`(\d{1,2})\s*(?:\+|-\s*\d{1,2})?\s*(?:years?|yrs?)`)

// ExtractSeniority resolves the seniority level from title and
// description text. Title keywords outrank description keywords.
func ExtractSeniority(title, description string) (string, Outcome) {
	for _, text := range []string{title, description} {
		cleaned := " " + CleanText(text) + " "
		if strings.TrimSpace(cleaned) == "" {
			continue
		}
		for _, rule := range seniorityRules {
			for _, keyword := range rule.keywords {
				if strings.Contains(cleaned, " "+keyword+" ") {
					return rule.level, Match(0.85, keyword, "seniority_keyword")
				}
			}
		}
	}
	return LevelUnknown, NoMatch()
}

// ExtractEducation resolves the minimum education level mentioned.
func ExtractEducation(description string) (string, Outcome) {
	cleaned := " " + strings.Join(Tokenize(description), " ") + " "
	if strings.TrimSpace(cleaned) == "" {
		return LevelUnknown, NoMatch()
	}
	for _, rule := range educationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(cleaned, " "+keyword+" ") {
				return rule.level, Match(0.8, keyword, "education_keyword")
			}
		}
	}
	return LevelUnknown, NoMatch()
}

// ExtractExperienceBand detects numeric experience requirements such as
// "5+ years" or "3-5 yrs" and maps them onto a fixed band.
func ExtractExperienceBand(description string) (string, Outcome) {
	cleaned := CleanText(description)
	if cleaned == "" {
		return LevelUnknown, NoMatch()
	}

	match := yearsPattern.FindStringSubmatch(cleaned)
	if len(match) < 2 {
		return LevelUnknown, NoMatch()
	}

	years, err := strconv.Atoi(match[1])
	if err != nil {
		return LevelUnknown, NoMatch()
	}

	openEnded := strings.Contains(match[0], "+")
	band := ExperienceBand0to2
	switch {
	case years > 10 || (openEnded && years >= 10):
		band = ExperienceBand10up
	case years > 5:
		band = ExperienceBand6to10
	case years > 2:
		band = ExperienceBand3to5
	}
	return band, Match(0.9, match[0], "experience_years")
}
