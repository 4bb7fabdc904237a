package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	SalaryPeriodHourly  = "hourly"
	SalaryPeriodMonthly = "monthly"
	SalaryPeriodAnnual  = "annual"
)

// SalaryBounds rejects implausible parses. Values outside the range are
// dropped with a reason, never clamped.
type SalaryBounds struct {
	Min float64
	Max float64
}

// SalaryResult is a parsed salary range in the posting's own currency
// and period. Min == Max for single-figure salaries.
type SalaryResult struct {
	Currency string
	Period   string
	Min      float64
	Max      float64
}

var currencyMarkers = []struct {
	currency string
	markers  []string
}{
	{"KES", []string{"kes", "ksh", "kshs", "/="}},
	{"TZS", []string{"tzs", "tsh"}},
	{"UGX", []string{"ugx", "ush"}},
	{"NGN", []string{"ngn", "₦", "naira"}},
	{"ZAR", []string{"zar", "rand"}},
	{"USD", []string{"usd", "$", "us dollar"}},
	{"EUR", []string{"eur", "€"}},
	{"GBP", []string{"gbp", "£"}},
	{"INR", []string{"inr", "₹", "rupee"}},
}

var periodMarkers = []struct {
	period  string
	markers []string
}{
	{SalaryPeriodHourly, []string{"per hour", "hourly", "/hr", "/hour", "an hour"}},
	{SalaryPeriodAnnual, []string{"per annum", "per year", "annually", "yearly", "p.a", "pa."}},
	{SalaryPeriodMonthly, []string{"per month", "monthly", "/month", "pcm", "p.m", "a month"}},
}

var salaryNumberPattern = regexp.MustCompile(`\d{1,3}(?:[,.]\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?\s*k\b|\d+(?:\.\d+)?`)

// ParseSalary extracts currency, period and a numeric range from a raw
// salary string. Out-of-bounds values produce a NoMatch outcome and a
// non-empty drop reason the caller is expected to log.
func ParseSalary(raw string, bounds SalaryBounds) (SalaryResult, Outcome, string) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return SalaryResult{}, NoMatch(), ""
	}
	if strings.Contains(lowered, "negotiable") || strings.Contains(lowered, "competitive") || strings.Contains(lowered, "confidential") {
		return SalaryResult{}, NoMatch(), ""
	}

	numbers := parseSalaryNumbers(lowered)
	if len(numbers) == 0 {
		return SalaryResult{}, NoMatch(), ""
	}

	result := SalaryResult{
		Currency: detectCurrency(lowered),
		Period:   detectPeriod(lowered),
		Min:      numbers[0],
		Max:      numbers[0],
	}
	if len(numbers) > 1 && numbers[1] >= numbers[0] {
		result.Max = numbers[1]
	}

	if bounds.Max > 0 {
		if result.Min < bounds.Min {
			return SalaryResult{}, NoMatch(), fmt.Sprintf("salary %.0f below configured minimum %.0f", result.Min, bounds.Min)
		}
		if result.Max > bounds.Max {
			return SalaryResult{}, NoMatch(), fmt.Sprintf("salary %.0f above configured maximum %.0f", result.Max, bounds.Max)
		}
	}

	confidence := 0.7
	if result.Currency != "" {
		confidence += 0.15
	}
	if result.Period != "" {
		confidence += 0.15
	}
	return result, Match(confidence, strings.TrimSpace(raw), "salary_pattern"), ""
}

func detectCurrency(lowered string) string {
	for _, entry := range currencyMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lowered, marker) {
				return entry.currency
			}
		}
	}
	return ""
}

func detectPeriod(lowered string) string {
	for _, entry := range periodMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lowered, marker) {
				return entry.period
			}
		}
	}
	return ""
}

func parseSalaryNumbers(lowered string) []float64 {
	matches := salaryNumberPattern.FindAllString(lowered, 2)
	numbers := make([]float64, 0, len(matches))
	for _, match := range matches {
		match = strings.TrimSpace(match)
		multiplier := 1.0
		if strings.HasSuffix(match, "k") {
			multiplier = 1000
			match = strings.TrimSpace(strings.TrimSuffix(match, "k"))
		}

		// Thousands separators only; "80.000" and "80,000" both mean 80000.
		if strings.Count(match, ",")+strings.Count(match, ".") > 1 || strings.Contains(match, ",") {
			match = strings.ReplaceAll(match, ",", "")
			match = strings.ReplaceAll(match, ".", "")
		} else if dot := strings.Index(match, "."); dot >= 0 && len(match)-dot-1 == 3 {
			match = strings.ReplaceAll(match, ".", "")
		}

		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, value*multiplier)
	}
	return numbers
}
