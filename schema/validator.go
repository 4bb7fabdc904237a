// Package payloadschema validates scraper payloads before anything is
// written to the arrivals ledger. Validation is strict: unknown fields,
// trailing JSON content, and version drift are all rejected.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed job_posting.schema.json
var jobPostingSchemaJSON string

type SourceMetadata struct {
	ScrapedAt      string  `json:"scraped_at"`
	ScraperVersion *string `json:"scraper_version,omitempty"`
	PageURL        *string `json:"page_url,omitempty"`
}

type JobPosting struct {
	PayloadVersion string         `json:"payload_version"`
	Source         string         `json:"source"`
	SourceItemID   string         `json:"source_item_id"`
	Title          string         `json:"title"`
	Description    *string        `json:"description,omitempty"`
	Company        *string        `json:"company,omitempty"`
	Location       *string        `json:"location,omitempty"`
	Salary         *string        `json:"salary,omitempty"`
	URL            string         `json:"url"`
	PostedAt       *string        `json:"posted_at,omitempty"`
	EmploymentType *string        `json:"employment_type,omitempty"`
	SourceMetadata SourceMetadata `json:"source_metadata"`
}

// ScrapedAtTime parses the required scrape timestamp. Validation has
// already confirmed the format, so an error here means the posting was
// built by hand instead of through ValidateJobPostingPayload.
func (p *JobPosting) ScrapedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(p.SourceMetadata.ScrapedAt))
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateJobPostingPayload(payload json.RawMessage) (*JobPosting, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var posting JobPosting
	if err := json.Unmarshal(normalized, &posting); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&posting); err != nil {
		return nil, err
	}

	return &posting, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("job_posting.schema.json", strings.NewReader(jobPostingSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("job_posting.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(posting *JobPosting) error {
	if posting == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(posting.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(posting.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(posting.SourceItemID) == "" {
		return fmt.Errorf("source_item_id must not be empty")
	}
	if strings.TrimSpace(posting.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}

	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(posting.SourceMetadata.ScrapedAt)); err != nil {
		return fmt.Errorf("source_metadata.scraped_at must be RFC3339: %w", err)
	}
	if posting.PostedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*posting.PostedAt)); err != nil {
			return fmt.Errorf("posted_at must be RFC3339: %w", err)
		}
	}
	if err := validateURI("url", posting.URL); err != nil {
		return err
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
