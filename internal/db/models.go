package db

import (
	"encoding/json"
	"time"
)

// IngestRun maps jobs.ingest_runs.
type IngestRun struct {
	RunID         int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	IngestRunUUID string     `gorm:"column:ingest_run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Source        string     `gorm:"column:source;type:text;not null"`
	StartedAt     time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt    *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status        string     `gorm:"column:status;type:jobs.ingest_run_status;not null;default:running"`
	ItemsFetched  int        `gorm:"column:items_fetched;type:integer;not null;default:0"`
	ItemsInserted int        `gorm:"column:items_inserted;type:integer;not null;default:0"`
	ErrorMessage  *string    `gorm:"column:error_message;type:text"`
	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (IngestRun) TableName() string { return "jobs.ingest_runs" }

// RawPosting maps jobs.raw_postings. Rows are immutable scrape events;
// only the processing status columns ever change after insert.
type RawPosting struct {
	RawPostingID    int64      `gorm:"column:raw_posting_id;primaryKey;autoIncrement"`
	RawPostingUUID  string     `gorm:"column:raw_posting_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RunID           int64      `gorm:"column:run_id;type:bigint;not null"`
	Source          string     `gorm:"column:source;type:text;not null"`
	SourceItemID    string     `gorm:"column:source_item_id;type:text;not null"`
	SourceURL       *string    `gorm:"column:source_url;type:text"`
	ScrapedAt       time.Time  `gorm:"column:scraped_at;type:timestamptz;not null"`
	TitleRaw        string     `gorm:"column:title_raw;type:text;not null"`
	DescriptionRaw  *string    `gorm:"column:description_raw;type:text"`
	CompanyRaw      *string    `gorm:"column:company_raw;type:text"`
	LocationRaw     *string    `gorm:"column:location_raw;type:text"`
	SalaryRaw       *string    `gorm:"column:salary_raw;type:text"`
	RawPayload      json.RawMessage `gorm:"column:raw_payload;type:jsonb;not null"`
	PayloadHash     []byte     `gorm:"column:payload_hash;type:bytea;not null"`
	Status          string     `gorm:"column:status;type:jobs.posting_status;not null;default:pending"`
	RejectReason    *string    `gorm:"column:reject_reason;type:text"`
	PipelineVersion *int       `gorm:"column:pipeline_version;type:integer"`
	ProcessedAt     *time.Time `gorm:"column:processed_at;type:timestamptz"`
	CreatedAt       time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawPosting) TableName() string { return "jobs.raw_postings" }

// PostingAttributes maps jobs.posting_attributes, the derived view of a
// raw posting. Recomputed deterministically, never hand-edited.
type PostingAttributes struct {
	PostingAttributesID int64           `gorm:"column:posting_attributes_id;primaryKey;autoIncrement"`
	RawPostingID        int64           `gorm:"column:raw_posting_id;type:bigint;not null;unique"`
	TitleFamily         string          `gorm:"column:title_family;type:text;not null"`
	CanonicalTitle      string          `gorm:"column:canonical_title;type:text;not null"`
	TitleConfidence     float64         `gorm:"column:title_confidence;type:double precision;not null;default:0"`
	SeniorityLevel      string          `gorm:"column:seniority_level;type:text;not null;default:unknown"`
	EducationLevel      string          `gorm:"column:education_level;type:text;not null;default:unknown"`
	ExperienceBand      string          `gorm:"column:experience_band;type:text;not null;default:unknown"`
	Skills              json.RawMessage `gorm:"column:skills;type:jsonb"`
	SalaryCurrency      *string         `gorm:"column:salary_currency;type:text"`
	SalaryPeriod        *string         `gorm:"column:salary_period;type:text"`
	SalaryMin           *float64        `gorm:"column:salary_min;type:double precision"`
	SalaryMax           *float64        `gorm:"column:salary_max;type:double precision"`
	Language            string          `gorm:"column:language;type:text;not null;default:und"`
	CompanyID           *int64          `gorm:"column:company_id;type:bigint"`
	LocationID          *int64          `gorm:"column:location_id;type:bigint"`
	DescriptionText     string          `gorm:"column:description_text;type:text;not null;default:''"`
	QualityScore        float64         `gorm:"column:quality_score;type:double precision;not null;default:0"`
	URLHash             []byte          `gorm:"column:url_hash;type:bytea"`
	CompositeKey        *string         `gorm:"column:composite_key;type:text"`
	MinhashSignature    []byte          `gorm:"column:minhash_signature;type:bytea"`
	TokenCount          int             `gorm:"column:token_count;type:integer;not null;default:0"`
	Evidence            json.RawMessage `gorm:"column:evidence;type:jsonb"`
	CreatedAt           time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PostingAttributes) TableName() string { return "jobs.posting_attributes" }

// Company maps jobs.companies.
type Company struct {
	CompanyID      int64     `gorm:"column:company_id;primaryKey;autoIncrement"`
	CompanyUUID    string    `gorm:"column:company_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null;unique"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Company) TableName() string { return "jobs.companies" }

// Location maps jobs.locations.
type Location struct {
	LocationID     int64     `gorm:"column:location_id;primaryKey;autoIncrement"`
	LocationUUID   string    `gorm:"column:location_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null;unique"`
	CountryCode    *string   `gorm:"column:country_code;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Location) TableName() string { return "jobs.locations" }

// CanonicalJob maps jobs.canonical_jobs, the merged vacancy record.
// Mutated only by the merger inside a pipeline transaction.
type CanonicalJob struct {
	CanonicalJobID          int64           `gorm:"column:canonical_job_id;primaryKey;autoIncrement"`
	CanonicalJobUUID        string          `gorm:"column:canonical_job_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TitleFamily             string          `gorm:"column:title_family;type:text;not null"`
	CanonicalTitle          string          `gorm:"column:canonical_title;type:text;not null"`
	CompanyID               *int64          `gorm:"column:company_id;type:bigint"`
	LocationID              *int64          `gorm:"column:location_id;type:bigint"`
	SeniorityLevel          string          `gorm:"column:seniority_level;type:text;not null;default:unknown"`
	EducationLevel          string          `gorm:"column:education_level;type:text;not null;default:unknown"`
	ExperienceBand          string          `gorm:"column:experience_band;type:text;not null;default:unknown"`
	SalaryCurrency          *string         `gorm:"column:salary_currency;type:text"`
	SalaryPeriod            *string         `gorm:"column:salary_period;type:text"`
	SalaryMin               *float64        `gorm:"column:salary_min;type:double precision"`
	SalaryMax               *float64        `gorm:"column:salary_max;type:double precision"`
	FirstSeen               time.Time       `gorm:"column:first_seen;type:timestamptz;not null"`
	LastSeen                time.Time       `gorm:"column:last_seen;type:timestamptz;not null"`
	RepostCount             int             `gorm:"column:repost_count;type:integer;not null;default:0"`
	BestDescription         string          `gorm:"column:best_description;type:text;not null;default:''"`
	AggregatedSkills        json.RawMessage `gorm:"column:aggregated_skills;type:jsonb"`
	QualityScore            float64         `gorm:"column:quality_score;type:double precision;not null;default:0"`
	ContentSignature        []byte          `gorm:"column:content_signature;type:bytea"`
	RepresentativePostingID *int64          `gorm:"column:representative_posting_id;type:bigint"`
	Status                  string          `gorm:"column:status;type:text;not null;default:active"`
	CreatedAt               time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CanonicalJob) TableName() string { return "jobs.canonical_jobs" }

// DedupeLink maps jobs.dedupe_links, the append-only raw posting to
// canonical job relation. The unique raw_posting_id column is the
// idempotence anchor for the whole pipeline.
type DedupeLink struct {
	RawPostingID   int64           `gorm:"column:raw_posting_id;type:bigint;primaryKey"`
	CanonicalJobID int64           `gorm:"column:canonical_job_id;type:bigint;not null"`
	DedupeLinkUUID string          `gorm:"column:dedupe_link_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	MatchType      string          `gorm:"column:match_type;type:jobs.match_type;not null"`
	MatchScore     *float64        `gorm:"column:match_score;type:double precision"`
	MatchDetails   json.RawMessage `gorm:"column:match_details;type:jsonb"`
	MatchedAt      time.Time       `gorm:"column:matched_at;type:timestamptz;not null;default:now()"`
}

func (DedupeLink) TableName() string { return "jobs.dedupe_links" }

// FingerprintEntry maps jobs.fingerprint_entries, the lookup record per
// canonical job. Rebuilt or extended on every merge.
type FingerprintEntry struct {
	FingerprintEntryID int64     `gorm:"column:fingerprint_entry_id;primaryKey;autoIncrement"`
	CanonicalJobID     int64     `gorm:"column:canonical_job_id;type:bigint;not null"`
	URLHash            []byte    `gorm:"column:url_hash;type:bytea"`
	CompositeKey       *string   `gorm:"column:composite_key;type:text"`
	MinhashSignature   []byte    `gorm:"column:minhash_signature;type:bytea"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (FingerprintEntry) TableName() string { return "jobs.fingerprint_entries" }

// LSHBucketEntry maps jobs.lsh_bucket_entries: one row per (band,
// bucket) a canonical job's minhash signature lands in.
type LSHBucketEntry struct {
	Band           int       `gorm:"column:band;type:integer;primaryKey"`
	BucketKey      int64     `gorm:"column:bucket_key;type:bigint;primaryKey"`
	CanonicalJobID int64     `gorm:"column:canonical_job_id;type:bigint;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (LSHBucketEntry) TableName() string { return "jobs.lsh_bucket_entries" }

// DedupEvent maps jobs.dedup_events, the mandatory audit trail: one row
// per processed posting recording why it did or did not merge.
type DedupEvent struct {
	DedupEventID         int64     `gorm:"column:dedup_event_id;primaryKey;autoIncrement"`
	DedupEventUUID       string    `gorm:"column:dedup_event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RawPostingID         int64     `gorm:"column:raw_posting_id;type:bigint;not null;unique"`
	Decision             string    `gorm:"column:decision;type:jobs.dedup_decision;not null"`
	MatchedLayer         *string   `gorm:"column:matched_layer;type:text"`
	ChosenCanonicalJobID *int64    `gorm:"column:chosen_canonical_job_id;type:bigint"`
	BestCandidateJobID   *int64    `gorm:"column:best_candidate_job_id;type:bigint"`
	BestSimilarity       *float64  `gorm:"column:best_similarity;type:double precision"`
	TitleSimilarity      *float64  `gorm:"column:title_similarity;type:double precision"`
	CompositeKey         *string   `gorm:"column:composite_key;type:text"`
	Reason               *string   `gorm:"column:reason;type:text"`
	CreatedAt            time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DedupEvent) TableName() string { return "jobs.dedup_events" }

func autoMigrateModels() []any {
	return []any{
		&IngestRun{},
		&RawPosting{},
		&PostingAttributes{},
		&Company{},
		&Location{},
		&CanonicalJob{},
		&DedupeLink{},
		&FingerprintEntry{},
		&LSHBucketEntry{},
		&DedupEvent{},
	}
}
