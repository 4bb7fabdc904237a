package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"JP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"JP_DB_MAX_CONNS" default:"8"`

	// Pipeline thresholds. Changing any of them requires re-validation
	// against the labeled regression set before deployment.
	FuzzyTitleThreshold        float64 `envconfig:"JP_FUZZY_TITLE_THRESHOLD" default:"0.80"`
	ContentSimilarityThreshold float64 `envconfig:"JP_CONTENT_SIMILARITY_THRESHOLD" default:"0.85"`
	DescriptionReplaceMargin   float64 `envconfig:"JP_DESCRIPTION_REPLACE_MARGIN" default:"0.20"`
	EntitySimilarityThreshold  float64 `envconfig:"JP_ENTITY_SIMILARITY_THRESHOLD" default:"0.85"`

	SalaryMinBound float64 `envconfig:"JP_SALARY_MIN_BOUND" default:"1000"`
	SalaryMaxBound float64 `envconfig:"JP_SALARY_MAX_BOUND" default:"100000000"`

	// Comma-separated query parameter names stripped during URL
	// canonicalization, merged with the built-in utm_*/clid set.
	URLTrackingParams string `envconfig:"JP_URL_TRACKING_PARAMS" default:""`

	BatchSize       int `envconfig:"JP_BATCH_SIZE" default:"200"`
	PipelineVersion int `envconfig:"JP_PIPELINE_VERSION" default:"1"`

	LockRetryAttempts  int `envconfig:"JP_LOCK_RETRY_ATTEMPTS" default:"3"`
	LockRetryBackoffMS int `envconfig:"JP_LOCK_RETRY_BACKOFF_MS" default:"250"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("JP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("JP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("JP_DB_MIN_CONNS (%d) cannot exceed JP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FuzzyTitleThreshold <= 0 || c.FuzzyTitleThreshold > 1 {
		return fmt.Errorf("JP_FUZZY_TITLE_THRESHOLD must be in (0, 1]")
	}
	if c.ContentSimilarityThreshold <= 0 || c.ContentSimilarityThreshold > 1 {
		return fmt.Errorf("JP_CONTENT_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.DescriptionReplaceMargin < 0 || c.DescriptionReplaceMargin > 1 {
		return fmt.Errorf("JP_DESCRIPTION_REPLACE_MARGIN must be in [0, 1]")
	}
	if c.EntitySimilarityThreshold <= 0 || c.EntitySimilarityThreshold > 1 {
		return fmt.Errorf("JP_ENTITY_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.SalaryMinBound < 0 {
		return fmt.Errorf("JP_SALARY_MIN_BOUND must be >= 0")
	}
	if c.SalaryMaxBound <= c.SalaryMinBound {
		return fmt.Errorf("JP_SALARY_MAX_BOUND (%f) must exceed JP_SALARY_MIN_BOUND (%f)", c.SalaryMaxBound, c.SalaryMinBound)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("JP_BATCH_SIZE must be >= 1")
	}
	if c.PipelineVersion < 1 {
		return fmt.Errorf("JP_PIPELINE_VERSION must be >= 1")
	}
	if c.LockRetryAttempts < 0 {
		return fmt.Errorf("JP_LOCK_RETRY_ATTEMPTS must be >= 0")
	}
	if c.LockRetryBackoffMS < 0 {
		return fmt.Errorf("JP_LOCK_RETRY_BACKOFF_MS must be >= 0")
	}
	return nil
}

// URLTrackingParamsList splits JP_URL_TRACKING_PARAMS into a de-duplicated,
// lower-cased list.
func (c *Config) URLTrackingParamsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.URLTrackingParams, ",")
	params := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		param := strings.ToLower(strings.TrimSpace(part))
		if param == "" {
			continue
		}
		if _, exists := seen[param]; exists {
			continue
		}
		seen[param] = struct{}{}
		params = append(params, param)
	}
	return params
}
