// Package gate holds the deterministic promotion rules: one pure
// decision function per pipeline stage, mapping a structured judgment
// to Promote or Reject. A failed judgment never promotes.
package gate

import (
	"math"
	"strings"

	"github.com/deniom/triage/pkg/candidate"
)

// Decision is a stage gate's verdict. There is no third state.
type Decision int

const (
	Reject Decision = iota
	Promote
)

func (d Decision) String() string {
	if d == Promote {
		return "promote"
	}
	return "reject"
}

// CoreIdeaThreshold is the minimum number of the four intrinsic-quality
// criteria that must hold.
const CoreIdeaThreshold = 2

// MarketScoreThreshold is the inclusive minimum market score for
// promotion to synthesis, on the 0-10 scale.
const MarketScoreThreshold = 7.0

// evaluationAllowList holds the recommendation tiers that clear the
// evaluation gate. Matching is by substring, as the oracle sometimes
// decorates the label.
var evaluationAllowList = []string{"DIAMOND", "HIDDEN GEM", "SOLID BET"}

// Evaluation dimension weights: user need, differentiated advantage,
// viral potential.
const (
	weightUserNeed  = 0.3
	weightAdvantage = 0.4
	weightViral     = 0.3
)

// Screening promotes only when the judgment affirms both a real problem
// and commercial potential.
func Screening(r candidate.ScreeningResult) Decision {
	if r.SolvesRealProblem && r.HasCommercialPotential {
		return Promote
	}
	return Reject
}

// CoreIdea promotes when at least CoreIdeaThreshold of the four
// criteria hold.
func CoreIdea(r candidate.CoreIdeaResult) Decision {
	if r.CriteriaMet() >= CoreIdeaThreshold {
		return Promote
	}
	return Reject
}

// EvaluationScore computes the canonical weighted final score from the
// three dimension scores, rounded to one decimal.
func EvaluationScore(r candidate.EvaluationResult) float64 {
	s := r.UserNeedInsight.Score*weightUserNeed +
		r.DifferentiatedAdvantage.Score*weightAdvantage +
		r.ViralPotential.Score*weightViral
	return round1(s)
}

// Evaluation promotes when the recommendation label is in the allow
// list. The decision rides on the label, not the numeric score: the
// oracle's tiering already folds the score in.
func Evaluation(r candidate.EvaluationResult) Decision {
	rec := strings.ToUpper(r.Overall.Recommendation)
	for _, allowed := range evaluationAllowList {
		if strings.Contains(rec, allowed) {
			return Promote
		}
	}
	return Reject
}

// MarketScore computes the canonical market score: the unweighted mean
// of the five dimension scores, rounded to one decimal.
func MarketScore(r candidate.MarketResult) float64 {
	scores := r.SubScores()
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return round1(sum / float64(len(scores)))
}

// Market promotes when the combined score clears the threshold,
// inclusive.
func Market(r candidate.MarketResult) Decision {
	if MarketScore(r) >= MarketScoreThreshold {
		return Promote
	}
	return Reject
}

// SynthesisScore blends the evaluation and market scores for the final
// ranking of synthesized candidates.
func SynthesisScore(evaluationScore, marketScore float64) float64 {
	return round1((evaluationScore + marketScore) / 2)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
