package normalize

import "testing"

func TestParseSalary_Range(t *testing.T) {
	t.Parallel()

	result, outcome, dropReason := ParseSalary("KES 80,000 - 120,000 per month", SalaryBounds{})
	if dropReason != "" {
		t.Fatalf("unexpected drop reason: %q", dropReason)
	}
	if !outcome.Matched {
		t.Fatalf("expected salary to parse")
	}
	if result.Currency != "KES" {
		t.Fatalf("unexpected currency: %q", result.Currency)
	}
	if result.Period != SalaryPeriodMonthly {
		t.Fatalf("unexpected period: %q", result.Period)
	}
	if result.Min != 80000 || result.Max != 120000 {
		t.Fatalf("unexpected range: %f - %f", result.Min, result.Max)
	}
}

func TestParseSalary_SingleFigureWithKSuffix(t *testing.T) {
	t.Parallel()

	result, outcome, _ := ParseSalary("ksh 95k", SalaryBounds{})
	if !outcome.Matched {
		t.Fatalf("expected salary to parse")
	}
	if result.Min != 95000 || result.Max != 95000 {
		t.Fatalf("expected min == max == 95000, got %f - %f", result.Min, result.Max)
	}
	if result.Currency != "KES" {
		t.Fatalf("unexpected currency: %q", result.Currency)
	}
}

func TestParseSalary_DotThousandsSeparator(t *testing.T) {
	t.Parallel()

	result, outcome, _ := ParseSalary("80.000 monthly", SalaryBounds{})
	if !outcome.Matched {
		t.Fatalf("expected salary to parse")
	}
	if result.Min != 80000 {
		t.Fatalf("expected dot separator to mean thousands, got %f", result.Min)
	}
}

func TestParseSalary_NegotiableIsNotASalary(t *testing.T) {
	t.Parallel()

	_, outcome, dropReason := ParseSalary("Negotiable based on experience", SalaryBounds{})
	if outcome.Matched {
		t.Fatalf("did not expect negotiable text to parse as salary")
	}
	if dropReason != "" {
		t.Fatalf("negotiable text must not produce a drop reason, got %q", dropReason)
	}
}

func TestParseSalary_OutOfBoundsDropped(t *testing.T) {
	t.Parallel()

	bounds := SalaryBounds{Min: 1000, Max: 10000000}

	_, outcome, dropReason := ParseSalary("KES 50 per month", bounds)
	if outcome.Matched {
		t.Fatalf("did not expect below-minimum salary to parse")
	}
	if dropReason == "" {
		t.Fatalf("expected a drop reason for below-minimum salary")
	}

	_, outcome, dropReason = ParseSalary("KES 999,000,000 per month", bounds)
	if outcome.Matched {
		t.Fatalf("did not expect above-maximum salary to parse")
	}
	if dropReason == "" {
		t.Fatalf("expected a drop reason for above-maximum salary")
	}
}

func TestParseSalary_Empty(t *testing.T) {
	t.Parallel()

	_, outcome, dropReason := ParseSalary("   ", SalaryBounds{})
	if outcome.Matched || dropReason != "" {
		t.Fatalf("expected blank input to produce no match and no drop reason")
	}
}
