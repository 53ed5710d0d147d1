// Package scoring implements the deterministic fit-scoring engine: a fixed
// catalog of weighted flags and a pure function that turns an extraction
// verdict into a bounded score and categorical outcome.
package scoring

// Flag is a named condition about the resume-vs-job comparison, drawn from
// the closed catalog below.
type Flag string

// Catalog flags. Negative weights are penalties, positive weights bonuses.
const (
	FlagCriticalSkillMissing  Flag = "CRITICAL_SKILL_MISSING"
	FlagSecondarySkillMissing Flag = "SECONDARY_SKILL_MISSING"
	FlagExperienceTooLow      Flag = "EXPERIENCE_TOO_LOW"
	FlagDomainMismatch        Flag = "DOMAIN_MISMATCH"
	FlagGenericContent        Flag = "GENERIC_CONTENT"
	FlagJobHopper             Flag = "JOB_HOPPER"
	FlagSeniorityMismatch     Flag = "SENIORITY_MISMATCH"
	FlagPerfectStackMatch     Flag = "PERFECT_STACK_MATCH"
	FlagMetricsHeavy          Flag = "METRICS_HEAVY"
	FlagEliteCompanyMatch     Flag = "ELITE_COMPANY_MATCH"
	FlagTransitionEase        Flag = "TRANSITION_EASE"
	FlagExactRoleMatch        Flag = "EXACT_ROLE_MATCH"
)

// StartingScore is the score every candidate begins with before flag weights
// are applied.
const StartingScore = 100

// weights maps each catalog flag to its signed point weight. The table is
// process-wide constant data; nothing mutates it at runtime.
var weights = map[Flag]int{
	FlagCriticalSkillMissing:  -20,
	FlagSecondarySkillMissing: -10,
	FlagExperienceTooLow:      -15,
	FlagDomainMismatch:        -10,
	FlagGenericContent:        -10,
	FlagJobHopper:             -5,
	FlagSeniorityMismatch:     -15,
	FlagPerfectStackMatch:     5,
	FlagMetricsHeavy:          10,
	FlagEliteCompanyMatch:     5,
	FlagTransitionEase:        5,
	FlagExactRoleMatch:        5,
}

// Weight returns the signed weight for f and whether f is a catalog flag.
// Unknown flags carry weight 0.
func Weight(f Flag) (int, bool) {
	w, ok := weights[f]
	return w, ok
}

// Known reports whether f belongs to the catalog.
func Known(f Flag) bool {
	_, ok := weights[f]
	return ok
}

// CatalogFlags returns the catalog flags in a stable order, for prompt
// construction and documentation.
func CatalogFlags() []Flag {
	return []Flag{
		FlagCriticalSkillMissing,
		FlagSecondarySkillMissing,
		FlagExperienceTooLow,
		FlagDomainMismatch,
		FlagGenericContent,
		FlagJobHopper,
		FlagSeniorityMismatch,
		FlagPerfectStackMatch,
		FlagMetricsHeavy,
		FlagEliteCompanyMatch,
		FlagTransitionEase,
		FlagExactRoleMatch,
	}
}
