package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// FamilyOther is assigned to titles no alias or overlap rule resolves.
// Postings in this family are excluded from confidence-bearing
// aggregates downstream.
const FamilyOther = "other"

const (
	titleAliasConfidence   = 1.0
	titleOverlapFloor      = 0.5
	seniorityStripMaxWords = 2
)

//go:embed data/titles.json
var titlesJSON []byte

type titleTable struct {
	Abbreviations map[string]string `json:"abbreviations"`
	Titles        []titleEntry      `json:"titles"`
}

type titleEntry struct {
	Canonical string   `json:"canonical"`
	Family    string   `json:"family"`
	Aliases   []string `json:"aliases"`
}

type titleLookup struct {
	abbreviations map[string]string
	aliases       map[string]titleEntry
	entries       []titleEntry
}

var (
	titleOnce      sync.Once
	titleTableData *titleLookup
	titleTableErr  error
)

// TitleResult carries the resolved canonical title and its family.
type TitleResult struct {
	CanonicalTitle string
	Family         string
}

// seniority qualifiers stripped before alias lookup; the seniority
// extractor reads them separately from the raw string.
var titleQualifiers = map[string]struct{}{
	"senior": {}, "junior": {}, "lead": {}, "principal": {}, "head": {},
	"chief": {}, "graduate": {}, "entry": {}, "level": {}, "intern": {},
	"trainee": {}, "assistant": {}, "associate": {}, "staff": {},
	"i": {}, "ii": {}, "iii": {}, "iv": {},
}

// NormalizeTitle resolves a raw job title to a canonical title and
// title family. Alias hits are authoritative; otherwise the best token
// overlap against known titles above the floor wins; anything else
// lands in FamilyOther with a NoMatch outcome.
func NormalizeTitle(raw string) (TitleResult, Outcome) {
	table, err := loadTitleTable()
	if err != nil {
		return TitleResult{CanonicalTitle: CleanText(raw), Family: FamilyOther}, NoMatch()
	}

	expanded := expandTitleTokens(raw, table.abbreviations)
	if expanded == "" {
		return TitleResult{Family: FamilyOther}, NoMatch()
	}

	if entry, ok := table.aliases[expanded]; ok {
		return TitleResult{CanonicalTitle: entry.Canonical, Family: entry.Family},
			Match(titleAliasConfidence, expanded, "title_alias")
	}

	stripped := stripTitleQualifiers(expanded)
	if stripped != expanded {
		if entry, ok := table.aliases[stripped]; ok {
			return TitleResult{CanonicalTitle: entry.Canonical, Family: entry.Family},
				Match(titleAliasConfidence, stripped, "title_alias_stripped")
		}
	}

	var best titleEntry
	bestScore := 0.0
	for _, entry := range table.entries {
		score := TokenSetRatio(stripped, entry.Canonical)
		for _, alias := range entry.Aliases {
			if aliasScore := TokenSetRatio(stripped, alias); aliasScore > score {
				score = aliasScore
			}
		}
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}
	if bestScore >= titleOverlapFloor {
		return TitleResult{CanonicalTitle: best.Canonical, Family: best.Family},
			Match(bestScore, stripped, "title_token_overlap")
	}

	return TitleResult{CanonicalTitle: expanded, Family: FamilyOther}, NoMatch()
}

func expandTitleTokens(raw string, abbreviations map[string]string) string {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return ""
	}

	expanded := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if replacement, ok := abbreviations[token]; ok {
			expanded = append(expanded, strings.Fields(replacement)...)
			continue
		}
		expanded = append(expanded, token)
	}
	return strings.Join(expanded, " ")
}

func stripTitleQualifiers(title string) string {
	tokens := strings.Fields(title)
	stripped := 0
	for len(tokens) > 1 && stripped < seniorityStripMaxWords {
		if _, ok := titleQualifiers[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
		stripped++
	}
	return strings.Join(tokens, " ")
}

func loadTitleTable() (*titleLookup, error) {
	titleOnce.Do(func() {
		var table titleTable
		if err := json.Unmarshal(titlesJSON, &table); err != nil {
			titleTableErr = fmt.Errorf("decode titles table: %w", err)
			return
		}

		lookup := &titleLookup{
			abbreviations: make(map[string]string, len(table.Abbreviations)),
			aliases:       make(map[string]titleEntry, len(table.Titles)*4),
			entries:       table.Titles,
		}
		for k, v := range table.Abbreviations {
			lookup.abbreviations[CleanText(k)] = CleanText(v)
		}
		for _, entry := range table.Titles {
			for _, alias := range entry.Aliases {
				lookup.aliases[CleanText(alias)] = entry
			}
			lookup.aliases[CleanText(entry.Canonical)] = entry
		}
		titleTableData = lookup
	})

	if titleTableErr != nil {
		return nil, titleTableErr
	}
	if titleTableData == nil {
		return nil, fmt.Errorf("titles table not initialized")
	}
	return titleTableData, nil
}
