package scoring

import (
	"fmt"
	"log/slog"
)

// Outcome is the categorical verdict derived from the clamped score.
type Outcome string

// Outcome values, ordered from best to worst.
const (
	OutcomeMatch   Outcome = "MATCH"
	OutcomeStretch Outcome = "STRETCH"
	OutcomeReject  Outcome = "REJECT"
)

// Classification thresholds: score >= MatchThreshold is a MATCH,
// score >= StretchThreshold a STRETCH, anything below a REJECT.
const (
	MatchThreshold   = 70
	StretchThreshold = 50
)

// Result is the output of a single scoring run. Trace records every weight
// application in input order so a score can be audited after the fact.
type Result struct {
	Score   int
	Outcome Outcome
	Trace   []string
}

// Score computes the fit score for one analysis. It is total: any flag list
// and any kill-switch verdict produce a result, never an error.
//
// When hardRequirementsPassed is false the kill switch is absolute: the
// result is 0/REJECT and no flag weight is applied, bonuses included.
// Otherwise scoring starts at StartingScore and adds each flag's catalog
// weight in input order. Flags outside the catalog contribute 0 but are kept
// in the trace and logged, so silent rubric drift stays observable. The sum
// is clamped to [0,100] before classification.
func Score(hardRequirementsPassed bool, flags []Flag) Result {
	if !hardRequirementsPassed {
		return Result{
			Score:   0,
			Outcome: OutcomeReject,
			Trace:   []string{"rejected by kill switch"},
		}
	}

	score := StartingScore
	trace := make([]string, 0, len(flags)+2)
	trace = append(trace, fmt.Sprintf("start: %d", StartingScore))
	for _, f := range flags {
		w, ok := Weight(f)
		if !ok {
			slog.Warn("unrecognized flag in extraction output", slog.String("flag", string(f)))
		}
		score += w
		trace = append(trace, fmt.Sprintf("%s: %+d", f, w))
	}
	score = clamp(score)
	trace = append(trace, fmt.Sprintf("final: %d", score))

	return Result{Score: score, Outcome: Classify(score), Trace: trace}
}

// Classify maps a clamped score to its outcome.
func Classify(score int) Outcome {
	switch {
	case score >= MatchThreshold:
		return OutcomeMatch
	case score >= StretchThreshold:
		return OutcomeStretch
	default:
		return OutcomeReject
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
