package gate

import (
	"testing"

	"github.com/deniom/triage/pkg/candidate"
)

func TestScreening_BothRequired(t *testing.T) {
	cases := []struct {
		name string
		r    candidate.ScreeningResult
		want Decision
	}{
		{"both true", candidate.ScreeningResult{SolvesRealProblem: true, HasCommercialPotential: true}, Promote},
		{"no commercial potential", candidate.ScreeningResult{SolvesRealProblem: true, HasCommercialPotential: false}, Reject},
		{"no real problem", candidate.ScreeningResult{SolvesRealProblem: false, HasCommercialPotential: true}, Reject},
		{"neither", candidate.ScreeningResult{}, Reject},
	}
	for _, c := range cases {
		if got := Screening(c.r); got != c.want {
			t.Errorf("%s: Screening() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCoreIdea_ThresholdBoundary(t *testing.T) {
	two := candidate.CoreIdeaResult{IsPainkiller: true, IsNovel: true}
	if got := CoreIdea(two); got != Promote {
		t.Errorf("2/4 criteria should promote, got %v", got)
	}

	one := candidate.CoreIdeaResult{HasViralPotential: true}
	if got := CoreIdea(one); got != Reject {
		t.Errorf("1/4 criteria should reject, got %v", got)
	}

	if got := CoreIdea(candidate.CoreIdeaResult{}); got != Reject {
		t.Errorf("0/4 criteria should reject, got %v", got)
	}
}

func TestEvaluationScore_Weights(t *testing.T) {
	r := candidate.EvaluationResult{
		UserNeedInsight:         candidate.DimensionScore{Score: 8},
		DifferentiatedAdvantage: candidate.DimensionScore{Score: 6},
		ViralPotential:          candidate.DimensionScore{Score: 9},
	}
	// 8*0.3 + 6*0.4 + 9*0.3 = 7.5
	if got := EvaluationScore(r); got != 7.5 {
		t.Errorf("EvaluationScore() = %v, want 7.5", got)
	}
}

func TestEvaluation_LabelAllowList(t *testing.T) {
	promote := []string{"DIAMOND", "HIDDEN GEM", "SOLID BET", "diamond", "A true HIDDEN GEM"}
	for _, label := range promote {
		r := candidate.EvaluationResult{Overall: candidate.Assessment{Recommendation: label}}
		if got := Evaluation(r); got != Promote {
			t.Errorf("label %q should promote, got %v", label, got)
		}
	}

	reject := []string{"LOTTERY TICKET", "REJECT", "", "GEMSTONE"}
	for _, label := range reject {
		r := candidate.EvaluationResult{Overall: candidate.Assessment{Recommendation: label}}
		if got := Evaluation(r); got != Reject {
			t.Errorf("label %q should reject, got %v", label, got)
		}
	}
}

func TestEvaluation_IgnoresNumericScore(t *testing.T) {
	// A disallowed label rejects even with a perfect score.
	r := candidate.EvaluationResult{
		UserNeedInsight:         candidate.DimensionScore{Score: 10},
		DifferentiatedAdvantage: candidate.DimensionScore{Score: 10},
		ViralPotential:          candidate.DimensionScore{Score: 10},
		Overall:                 candidate.Assessment{FinalScore: 10, Recommendation: "LOTTERY TICKET"},
	}
	if got := Evaluation(r); got != Reject {
		t.Errorf("disallowed label must reject regardless of score, got %v", got)
	}
}

func marketWithScores(scores [5]float64) candidate.MarketResult {
	return candidate.MarketResult{
		MarketTiming:         candidate.DimensionScore{Score: scores[0]},
		CompetitiveLandscape: candidate.DimensionScore{Score: scores[1]},
		MarketSize:           candidate.DimensionScore{Score: scores[2]},
		BusinessModel:        candidate.DimensionScore{Score: scores[3]},
		IndustryTrends:       candidate.DimensionScore{Score: scores[4]},
	}
}

func TestMarket_ThresholdInclusive(t *testing.T) {
	exactly := marketWithScores([5]float64{7, 7, 7, 7, 7})
	if got := Market(exactly); got != Promote {
		t.Errorf("average of exactly 7.0 should promote, got %v", got)
	}

	below := marketWithScores([5]float64{7, 7, 7, 7, 6.5})
	if got := Market(below); got != Reject {
		t.Errorf("average of 6.9 should reject, got %v", got)
	}
}

func TestMarketScore_UnweightedMean(t *testing.T) {
	r := marketWithScores([5]float64{6, 7, 8, 9, 10})
	if got := MarketScore(r); got != 8.0 {
		t.Errorf("MarketScore() = %v, want 8.0", got)
	}
}

func TestSynthesisScore(t *testing.T) {
	if got := SynthesisScore(8, 7); got != 7.5 {
		t.Errorf("SynthesisScore(8, 7) = %v, want 7.5", got)
	}
	if got := SynthesisScore(9, 8); got != 8.5 {
		t.Errorf("SynthesisScore(9, 8) = %v, want 8.5", got)
	}
}
