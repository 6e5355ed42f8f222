package candidate

// Per-stage judgment payloads. Each keeps the oracle's original text in
// Raw so unknown or drifted fields survive for later inspection.

// ScreeningResult is the first-gate judgment.
type ScreeningResult struct {
	SolvesRealProblem      bool   `json:"solves_real_problem"`
	HasCommercialPotential bool   `json:"has_commercial_potential"`
	IsPromising            bool   `json:"is_promising"`
	Reason                 string `json:"reason,omitempty"`
	Raw                    string `json:"raw,omitempty"`
}

// CoreIdeaResult scores the four intrinsic-quality criteria.
type CoreIdeaResult struct {
	IsPainkiller       bool   `json:"is_painkiller"`
	IsNovel            bool   `json:"is_novel"`
	HasViralPotential  bool   `json:"has_viral_potential"`
	IsSimpleAndElegant bool   `json:"is_simple_and_elegant"`
	SummaryReason      string `json:"summary_reason,omitempty"`
	Raw                string `json:"raw,omitempty"`
}

// CriteriaMet counts how many of the four booleans are true.
func (r CoreIdeaResult) CriteriaMet() int {
	n := 0
	for _, b := range []bool{r.IsPainkiller, r.IsNovel, r.HasViralPotential, r.IsSimpleAndElegant} {
		if b {
			n++
		}
	}
	return n
}

// DimensionScore is one scored analysis dimension.
type DimensionScore struct {
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis,omitempty"`
}

// Assessment is the evaluation stage's combined verdict.
type Assessment struct {
	FinalScore     float64 `json:"final_score"`
	Recommendation string  `json:"recommendation"`
	Summary        string  `json:"summary,omitempty"`
}

// EvaluationResult is the deep product evaluation of a README.
type EvaluationResult struct {
	UserNeedInsight         DimensionScore `json:"user_need_insight"`
	DifferentiatedAdvantage DimensionScore `json:"differentiated_advantage"`
	ViralPotential          DimensionScore `json:"viral_potential"`
	Overall                 Assessment     `json:"overall_assessment"`
	FailReason              string         `json:"fail_reason,omitempty"`
	Raw                     string         `json:"raw,omitempty"`
}

// MarketAssessment is the market stage's combined verdict.
type MarketAssessment struct {
	FinalScore       float64  `json:"final_score"`
	Recommendation   string   `json:"market_recommendation,omitempty"`
	KeyRisks         []string `json:"key_risks,omitempty"`
	KeyOpportunities []string `json:"key_opportunities,omitempty"`
	Summary          string   `json:"summary,omitempty"`
}

// MarketResult is the market-insight analysis across five dimensions.
type MarketResult struct {
	MarketTiming         DimensionScore   `json:"market_timing"`
	CompetitiveLandscape DimensionScore   `json:"competitive_landscape"`
	MarketSize           DimensionScore   `json:"market_size"`
	BusinessModel        DimensionScore   `json:"business_model"`
	IndustryTrends       DimensionScore   `json:"industry_trends"`
	Overall              MarketAssessment `json:"overall_market_assessment"`

	// TotalScore duplicates Overall.FinalScore for older readers of
	// the persisted payload.
	TotalScore float64 `json:"total_score"`

	FailReason string `json:"fail_reason,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// SubScores returns the five dimension scores in declaration order.
func (r MarketResult) SubScores() []float64 {
	return []float64{
		r.MarketTiming.Score,
		r.CompetitiveLandscape.Score,
		r.MarketSize.Score,
		r.BusinessModel.Score,
		r.IndustryTrends.Score,
	}
}
