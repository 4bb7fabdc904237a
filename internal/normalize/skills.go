package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const ruleSkillConfidence = 0.9

//go:embed data/skills.json
var skillsJSON []byte

type skillTable struct {
	Skills []skillEntry `json:"skills"`
}

type skillEntry struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type skillLookup struct {
	// alias (cleaned, possibly multi-word) -> skill entry
	aliases map[string]skillEntry
	// longest alias length in tokens, bounds the n-gram scan window
	maxAliasTokens int
}

var (
	skillOnce      sync.Once
	skillTableData *skillLookup
	skillTableErr  error
)

// ExtractedSkill is one detected skill with its confidence and evidence.
type ExtractedSkill struct {
	SkillID    string   `json:"skill_id"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Evidence   Evidence `json:"evidence,omitzero"`
}

// SkillExtractor is the pluggable ML backend contract. The rule-based
// extractor always runs as a backstop; an optional implementation of
// this interface supplements it.
type SkillExtractor interface {
	Extract(text string) []ExtractedSkill
}

// ExtractSkills runs the deterministic alias matcher over title and
// description text, merges in results from the optional extra
// extractor, and de-duplicates by skill id keeping the highest
// confidence per skill. Output order is stable (by skill id).
func ExtractSkills(text string, extra SkillExtractor) []ExtractedSkill {
	found := extractRuleSkills(text)
	if extra != nil {
		found = append(found, extra.Extract(text)...)
	}
	return MergeSkills(found)
}

func extractRuleSkills(text string) []ExtractedSkill {
	table, err := loadSkillTable()
	if err != nil {
		return nil
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var found []ExtractedSkill
	for i := range tokens {
		limit := table.maxAliasTokens
		if remaining := len(tokens) - i; remaining < limit {
			limit = remaining
		}
		for n := limit; n >= 1; n-- {
			candidate := strings.Join(tokens[i:i+n], " ")
			entry, ok := table.aliases[candidate]
			if !ok {
				continue
			}
			found = append(found, ExtractedSkill{
				SkillID:    entry.ID,
				Name:       entry.Name,
				Confidence: ruleSkillConfidence,
				Evidence: Evidence{
					Span: candidate,
					Rule: "skill_alias",
				},
			})
			break
		}
	}
	return found
}

// MergeSkills de-duplicates by canonical skill id, keeping the highest
// confidence entry for each, and returns them sorted by skill id.
func MergeSkills(skills []ExtractedSkill) []ExtractedSkill {
	if len(skills) == 0 {
		return nil
	}

	best := make(map[string]ExtractedSkill, len(skills))
	for _, skill := range skills {
		if skill.SkillID == "" {
			continue
		}
		if current, ok := best[skill.SkillID]; !ok || skill.Confidence > current.Confidence {
			best[skill.SkillID] = skill
		}
	}

	merged := make([]ExtractedSkill, 0, len(best))
	for _, skill := range best {
		merged = append(merged, skill)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].SkillID < merged[j].SkillID
	})
	return merged
}

func loadSkillTable() (*skillLookup, error) {
	skillOnce.Do(func() {
		var table skillTable
		if err := json.Unmarshal(skillsJSON, &table); err != nil {
			skillTableErr = fmt.Errorf("decode skills table: %w", err)
			return
		}

		lookup := &skillLookup{
			aliases: make(map[string]skillEntry, len(table.Skills)*3),
		}
		for _, entry := range table.Skills {
			for _, alias := range entry.Aliases {
				cleaned := strings.Join(Tokenize(alias), " ")
				if cleaned == "" {
					continue
				}
				lookup.aliases[cleaned] = entry
				if n := len(strings.Fields(cleaned)); n > lookup.maxAliasTokens {
					lookup.maxAliasTokens = n
				}
			}
		}
		skillTableData = lookup
	})

	if skillTableErr != nil {
		return nil, skillTableErr
	}
	if skillTableData == nil {
		return nil, fmt.Errorf("skills table not initialized")
	}
	return skillTableData, nil
}
