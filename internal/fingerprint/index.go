package fingerprint

import (
	"encoding/hex"
	"fmt"
	"time"
)

// JobRef is the slice of a canonical job the index needs for candidate
// scoring: identity, title, and recency for tie-breaking.
type JobRef struct {
	CanonicalJobID int64
	CanonicalTitle string
	LastSeen       time.Time
	Signature      *Signature
}

// CompositeKey builds the middle-layer lookup key from resolved entity
// ids and the title family. Postings without a resolved company, or in
// the catch-all title family, cannot participate in the composite layer
// (the key would collide across employers).
func CompositeKey(companyID *int64, titleFamily string, locationID *int64) (string, bool) {
	if companyID == nil || titleFamily == "" || titleFamily == "other" {
		return "", false
	}
	location := int64(0)
	if locationID != nil {
		location = *locationID
	}
	return fmt.Sprintf("c%d|f:%s|l%d", *companyID, titleFamily, location), true
}

// Snapshot is an in-memory view of the fingerprint index. The matcher
// treats it as frozen: matching never mutates it. The pipeline extends
// it via the Add* methods after each merge so later postings in the
// same batch observe earlier decisions.
type Snapshot struct {
	jobs        map[int64]*JobRef
	byURLHash   map[string]int64
	byComposite map[string][]int64
	byBucket    map[BucketKey][]int64
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		jobs:        make(map[int64]*JobRef),
		byURLHash:   make(map[string]int64),
		byComposite: make(map[string][]int64),
		byBucket:    make(map[BucketKey][]int64),
	}
}

// UpsertJob registers or refreshes a canonical job reference.
func (s *Snapshot) UpsertJob(ref JobRef) {
	if s == nil || ref.CanonicalJobID == 0 {
		return
	}
	existing, ok := s.jobs[ref.CanonicalJobID]
	if !ok {
		copyRef := ref
		s.jobs[ref.CanonicalJobID] = &copyRef
		return
	}
	existing.CanonicalTitle = ref.CanonicalTitle
	if ref.LastSeen.After(existing.LastSeen) {
		existing.LastSeen = ref.LastSeen
	}
	if ref.Signature != nil {
		existing.Signature = ref.Signature
	}
}

// Job returns the registered reference for a canonical job id.
func (s *Snapshot) Job(canonicalJobID int64) (*JobRef, bool) {
	if s == nil {
		return nil, false
	}
	ref, ok := s.jobs[canonicalJobID]
	return ref, ok
}

// AddURLHash indexes an exact-layer hash for a canonical job. First
// writer wins; URL hashes are zero-false-positive by construction so a
// collision means the jobs are the same posting URL.
func (s *Snapshot) AddURLHash(urlHash []byte, canonicalJobID int64) {
	if s == nil || len(urlHash) == 0 || canonicalJobID == 0 {
		return
	}
	key := hex.EncodeToString(urlHash)
	if _, exists := s.byURLHash[key]; !exists {
		s.byURLHash[key] = canonicalJobID
	}
}

// LookupURLHash answers the exact layer.
func (s *Snapshot) LookupURLHash(urlHash []byte) (int64, bool) {
	if s == nil || len(urlHash) == 0 {
		return 0, false
	}
	id, ok := s.byURLHash[hex.EncodeToString(urlHash)]
	return id, ok
}

// AddComposite indexes a composite key for a canonical job.
func (s *Snapshot) AddComposite(compositeKey string, canonicalJobID int64) {
	if s == nil || compositeKey == "" || canonicalJobID == 0 {
		return
	}
	for _, id := range s.byComposite[compositeKey] {
		if id == canonicalJobID {
			return
		}
	}
	s.byComposite[compositeKey] = append(s.byComposite[compositeKey], canonicalJobID)
}

// LookupComposite returns all canonical jobs sharing a composite key.
func (s *Snapshot) LookupComposite(compositeKey string) []*JobRef {
	if s == nil || compositeKey == "" {
		return nil
	}
	ids := s.byComposite[compositeKey]
	refs := make([]*JobRef, 0, len(ids))
	for _, id := range ids {
		if ref, ok := s.jobs[id]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// AddSignature indexes a content signature under all of its LSH
// buckets and attaches it to the job reference.
func (s *Snapshot) AddSignature(sig Signature, canonicalJobID int64) {
	if s == nil || canonicalJobID == 0 {
		return
	}
	if ref, ok := s.jobs[canonicalJobID]; ok {
		sigCopy := sig
		ref.Signature = &sigCopy
	}
	for _, bucket := range Buckets(sig) {
		ids := s.byBucket[bucket]
		seen := false
		for _, id := range ids {
			if id == canonicalJobID {
				seen = true
				break
			}
		}
		if !seen {
			s.byBucket[bucket] = append(s.byBucket[bucket], canonicalJobID)
		}
	}
}

// LookupSignature returns the de-duplicated candidates sharing at least
// one LSH band bucket with the given signature.
func (s *Snapshot) LookupSignature(sig Signature) []*JobRef {
	if s == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	var refs []*JobRef
	for _, bucket := range Buckets(sig) {
		for _, id := range s.byBucket[bucket] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if ref, ok := s.jobs[id]; ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
