package config

import "testing"

func validConfig() Config {
	return Config{
		Environment:                "local",
		LogLevel:                   "info",
		DatabaseURL:                "postgres://localhost/jobpipe",
		DBMinConns:                 1,
		DBMaxConns:                 8,
		FuzzyTitleThreshold:        0.80,
		ContentSimilarityThreshold: 0.85,
		DescriptionReplaceMargin:   0.20,
		EntitySimilarityThreshold:  0.85,
		SalaryMinBound:             1000,
		SalaryMaxBound:             100000000,
		BatchSize:                  200,
		PipelineVersion:            1,
		LockRetryAttempts:          3,
		LockRetryBackoffMS:         250,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}

	cfg = validConfig()
	cfg.DatabaseURL = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for blank DATABASE_URL")
	}

	cfg = validConfig()
	cfg.FuzzyTitleThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range fuzzy title threshold")
	}

	cfg = validConfig()
	cfg.SalaryMaxBound = cfg.SalaryMinBound
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for inverted salary bounds")
	}

	cfg = validConfig()
	cfg.DBMinConns = 10
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for min conns above max conns")
	}

	cfg = validConfig()
	cfg.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestURLTrackingParamsList(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.URLTrackingParams = " Session , ref_id ,, session "

	params := cfg.URLTrackingParamsList()
	if len(params) != 2 {
		t.Fatalf("expected de-duplicated params, got %v", params)
	}
	if params[0] != "session" || params[1] != "ref_id" {
		t.Fatalf("unexpected params: %v", params)
	}

	cfg.URLTrackingParams = ""
	if params := cfg.URLTrackingParamsList(); len(params) != 0 {
		t.Fatalf("expected no params for empty config, got %v", params)
	}
}
