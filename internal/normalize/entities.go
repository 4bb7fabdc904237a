package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed data/locations.json
var locationsJSON []byte

type locationTable struct {
	Locations []locationEntry `json:"locations"`
}

type locationEntry struct {
	Canonical string   `json:"canonical"`
	Country   *string  `json:"country"`
	Aliases   []string `json:"aliases"`
}

var (
	locationOnce     sync.Once
	locationAliases  map[string]locationEntry
	locationTableErr error
)

// companySuffixes are legal-form and locale suffixes stripped before
// company matching so "Acme Ltd" and "Acme Limited" resolve together.
var companySuffixes = map[string]struct{}{
	"ltd": {}, "limited": {}, "inc": {}, "incorporated": {}, "plc": {},
	"llc": {}, "llp": {}, "co": {}, "corp": {}, "corporation": {},
	"company": {}, "group": {}, "holdings": {}, "international": {},
	"kenya": {}, "uganda": {}, "tanzania": {}, "nigeria": {}, "ghana": {},
	"africa": {}, "ea": {},
}

// LocationResult is a resolved canonical location name plus country.
type LocationResult struct {
	Canonical   string
	CountryCode *string
}

// EntityRef is one known entity in a resolver snapshot, keyed by its
// store id.
type EntityRef struct {
	ID             int64
	NormalizedName string
}

// EntityResolver matches raw strings against a read-only set of known
// entities: exact normalized match first, then trigram similarity
// against the threshold. It never mutates its entity list; the caller
// creates new entities when resolution fails and rebuilds or extends
// the resolver for subsequent postings.
type EntityResolver struct {
	byName    map[string]int64
	entities  []EntityRef
	threshold float64
	normalize func(string) string
}

// NewCompanyResolver builds a resolver over known companies.
func NewCompanyResolver(entities []EntityRef, threshold float64) *EntityResolver {
	return newEntityResolver(entities, threshold, NormalizeCompanyName)
}

// NewLocationResolver builds a resolver over known locations. Raw input
// should already be alias-normalized via NormalizeLocationName.
func NewLocationResolver(entities []EntityRef, threshold float64) *EntityResolver {
	return newEntityResolver(entities, threshold, func(raw string) string {
		result, _ := NormalizeLocationName(raw)
		return result.Canonical
	})
}

func newEntityResolver(entities []EntityRef, threshold float64, normalizeFn func(string) string) *EntityResolver {
	byName := make(map[string]int64, len(entities))
	for _, e := range entities {
		byName[e.NormalizedName] = e.ID
	}
	return &EntityResolver{
		byName:    byName,
		entities:  entities,
		threshold: threshold,
		normalize: normalizeFn,
	}
}

// Resolve maps a raw string to a known entity id. A NoMatch outcome
// means no candidate cleared the similarity threshold and the caller
// should create a new entity rather than force a merge.
func (r *EntityResolver) Resolve(raw string) (int64, Outcome) {
	if r == nil {
		return 0, NoMatch()
	}
	normalized := r.normalize(raw)
	if normalized == "" {
		return 0, NoMatch()
	}

	if id, ok := r.byName[normalized]; ok {
		return id, Match(1.0, normalized, "entity_exact")
	}

	bestID := int64(0)
	bestScore := 0.0
	bestName := ""
	for _, entity := range r.entities {
		score := TrigramSimilarity(normalized, entity.NormalizedName)
		if score > bestScore {
			bestScore = score
			bestID = entity.ID
			bestName = entity.NormalizedName
		}
	}
	if bestScore >= r.threshold {
		return bestID, Match(bestScore, bestName, "entity_fuzzy")
	}
	return 0, NoMatch()
}

// Add registers a newly created entity so later postings in the same
// batch resolve against it.
func (r *EntityResolver) Add(entity EntityRef) {
	if r == nil || entity.NormalizedName == "" {
		return
	}
	if _, exists := r.byName[entity.NormalizedName]; exists {
		return
	}
	r.byName[entity.NormalizedName] = entity.ID
	r.entities = append(r.entities, entity)
}

// NormalizeCompanyName cleans a raw company string and strips trailing
// legal-form suffixes.
func NormalizeCompanyName(raw string) string {
	tokens := Tokenize(raw)
	for len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		if _, ok := companySuffixes[last]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// NormalizeLocationName maps a raw location string onto a canonical
// location via the embedded alias table; unknown locations pass through
// cleaned, with a NoMatch outcome.
func NormalizeLocationName(raw string) (LocationResult, Outcome) {
	cleaned := strings.Join(Tokenize(raw), " ")
	if cleaned == "" {
		return LocationResult{}, NoMatch()
	}

	if err := loadLocationTable(); err != nil {
		return LocationResult{Canonical: cleaned}, NoMatch()
	}

	if entry, ok := locationAliases[cleaned]; ok {
		return LocationResult{Canonical: entry.Canonical, CountryCode: entry.Country},
			Match(1.0, cleaned, "location_alias")
	}

	// Postings often append districts or qualifiers ("Nairobi CBD,
	// Kenya"); retry on the leading token sequence.
	tokens := strings.Fields(cleaned)
	for n := len(tokens) - 1; n >= 1; n-- {
		prefix := strings.Join(tokens[:n], " ")
		if entry, ok := locationAliases[prefix]; ok {
			return LocationResult{Canonical: entry.Canonical, CountryCode: entry.Country},
				Match(0.9, prefix, "location_alias_prefix")
		}
	}

	return LocationResult{Canonical: cleaned}, NoMatch()
}

func loadLocationTable() error {
	locationOnce.Do(func() {
		var table locationTable
		if err := json.Unmarshal(locationsJSON, &table); err != nil {
			locationTableErr = fmt.Errorf("decode locations table: %w", err)
			return
		}
		locationAliases = make(map[string]locationEntry, len(table.Locations)*4)
		for _, entry := range table.Locations {
			for _, alias := range entry.Aliases {
				locationAliases[strings.Join(Tokenize(alias), " ")] = entry
			}
			locationAliases[strings.Join(Tokenize(entry.Canonical), " ")] = entry
		}
	})
	return locationTableErr
}
