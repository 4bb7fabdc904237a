package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateJobPostingPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"brightermonday",
		"source_item_id":"bm-8841",
		"title":"Senior Accountant",
		"description":"<p>Prepare monthly reconciliations.</p>",
		"company":"Acme Ltd",
		"location":"Nairobi",
		"salary":"KES 120,000 - 150,000 per month",
		"url":"https://example.com/jobs/8841",
		"posted_at":"2026-08-19T08:00:00Z",
		"employment_type":"full_time",
		"source_metadata":{
			"scraped_at":"2026-08-20T06:15:00Z",
			"scraper_version":"1.4.2",
			"page_url":"https://example.com/jobs?page=3"
		}
	}`)

	posting, err := ValidateJobPostingPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if posting.Source != "brightermonday" {
		t.Fatalf("expected source=brightermonday, got %q", posting.Source)
	}
	if posting.PayloadVersion != "v1" {
		t.Fatalf("expected payload_version=v1, got %q", posting.PayloadVersion)
	}
	scrapedAt, err := posting.ScrapedAtTime()
	if err != nil {
		t.Fatalf("expected parseable scraped_at, got: %v", err)
	}
	if scrapedAt.IsZero() {
		t.Fatalf("expected non-zero scraped_at")
	}
}

func TestValidateJobPostingPayload_MinimalValid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"careers-page",
		"source_item_id":"cp-1",
		"title":"Driver",
		"url":"https://careers.example.com/jobs/1",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err != nil {
		t.Fatalf("expected minimal payload to be valid, got error: %v", err)
	}
}

func TestValidateJobPostingPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"title":"Missing source item id",
		"url":"https://example.com/jobs/1",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing source_item_id")
	}
}

func TestValidateJobPostingPayload_MissingURL(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"source_item_id":"li-9",
		"title":"Accountant",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing url")
	}
}

func TestValidateJobPostingPayload_WrongVersion(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v2",
		"source":"linkedin",
		"source_item_id":"li-1",
		"url":"https://example.com/jobs/li-1",
		"title":"Accountant",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for payload_version v2")
	}
}

func TestValidateJobPostingPayload_WhitespaceTitle(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"source_item_id":"li-2",
		"url":"https://example.com/jobs/li-2",
		"title":"   ",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	_, err := ValidateJobPostingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only title")
	}
	if !strings.Contains(err.Error(), "title must not be empty") {
		t.Fatalf("expected title semantic error, got: %v", err)
	}
}

func TestValidateJobPostingPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"source_item_id":"li-3",
		"url":"https://example.com/jobs/li-3",
		"title":"Accountant",
		"surprise":"field",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for unknown top-level field")
	}
}

func TestValidateJobPostingPayload_BadScrapedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"source_item_id":"li-4",
		"url":"https://example.com/jobs/li-4",
		"title":"Accountant",
		"source_metadata":{"scraped_at":"yesterday"}
	}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for non-RFC3339 scraped_at")
	}
}

func TestValidateJobPostingPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"linkedin",
		"source_item_id":"li-5",
		"url":"https://example.com/jobs/li-5",
		"title":"Accountant",
		"source_metadata":{"scraped_at":"2026-08-20T06:15:00Z"}
	} {"second":"document"}`)

	if _, err := ValidateJobPostingPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for trailing JSON content")
	}
}

func TestValidateJobPostingPayload_Empty(t *testing.T) {
	if _, err := ValidateJobPostingPayload(nil); err == nil {
		t.Fatalf("expected validation to fail for empty payload")
	}
}
