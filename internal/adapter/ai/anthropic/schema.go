package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

// extractionSchema is the JSON schema sent as the structured output format of
// the extraction call. Keep it in sync with extractionPayload.
var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"position":                 map[string]any{"type": "string"},
		"company":                  map[string]any{"type": "string"},
		"hard_requirements_passed": map[string]any{"type": "boolean"},
		"failed_criteria": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"flags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"missing_skills": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"resume_gaps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill":        map[string]any{"type": "string"},
					"severity":     map[string]any{"type": "string", "enum": []string{"CRITICAL", "MINOR"}},
					"fix_strategy": map[string]any{"type": "string"},
				},
				"required": []string{"skill", "severity", "fix_strategy"},
			},
		},
		"verdict_reasoning": map[string]any{"type": "string"},
	},
	"required": []string{
		"position", "company", "hard_requirements_passed", "failed_criteria",
		"flags", "missing_skills", "resume_gaps", "verdict_reasoning",
	},
}

type extractionPayload struct {
	Position               string       `json:"position"`
	Company                string       `json:"company"`
	HardRequirementsPassed *bool        `json:"hard_requirements_passed"`
	FailedCriteria         []string     `json:"failed_criteria"`
	Flags                  []string     `json:"flags"`
	MissingSkills          []string     `json:"missing_skills"`
	ResumeGaps             []gapPayload `json:"resume_gaps"`
	VerdictReasoning       string       `json:"verdict_reasoning"`
}

type gapPayload struct {
	Skill       string `json:"skill"`
	Severity    string `json:"severity"`
	FixStrategy string `json:"fix_strategy"`
}

// stripFences removes a markdown code fence around s, if present. Structured
// outputs should make this unnecessary but models occasionally wrap anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeExtraction parses and validates the model's JSON output. Violations
// of the contract map to domain.ErrSchemaInvalid; flags outside the catalog
// are passed through for the engine to handle.
func decodeExtraction(raw string) (domain.ExtractionResult, error) {
	var p extractionPayload
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))
	if err := dec.Decode(&p); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: parse extraction output: %v", domain.ErrSchemaInvalid, err)
	}
	if p.HardRequirementsPassed == nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: hard_requirements_passed missing", domain.ErrSchemaInvalid)
	}
	if strings.TrimSpace(p.VerdictReasoning) == "" {
		return domain.ExtractionResult{}, fmt.Errorf("%w: verdict_reasoning missing", domain.ErrSchemaInvalid)
	}

	res := domain.ExtractionResult{
		Position:               orUnknown(p.Position),
		Company:                orUnknown(p.Company),
		HardRequirementsPassed: *p.HardRequirementsPassed,
		FailedCriteria:         p.FailedCriteria,
		MissingSkills:          p.MissingSkills,
		VerdictReasoning:       p.VerdictReasoning,
	}
	for _, f := range p.Flags {
		res.Flags = append(res.Flags, scoring.Flag(f))
	}
	for _, g := range p.ResumeGaps {
		if g.Severity != domain.SeverityCritical && g.Severity != domain.SeverityMinor {
			return domain.ExtractionResult{}, fmt.Errorf("%w: gap severity %q", domain.ErrSchemaInvalid, g.Severity)
		}
		if strings.TrimSpace(g.Skill) == "" {
			return domain.ExtractionResult{}, fmt.Errorf("%w: gap with empty skill", domain.ErrSchemaInvalid)
		}
		res.Gaps = append(res.Gaps, domain.ResumeGap{
			Skill:       g.Skill,
			Severity:    g.Severity,
			FixStrategy: g.FixStrategy,
		})
	}
	return res, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
