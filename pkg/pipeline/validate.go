package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/gate"
	"github.com/deniom/triage/pkg/prompt"
)

// Idea validation verdicts, strongest first.
const (
	VerdictHighlyRecommended = "HIGHLY_RECOMMENDED"
	VerdictRecommended       = "RECOMMENDED"
	VerdictWorthConsidering  = "WORTH_CONSIDERING"
	VerdictNotRecommended    = "NOT_RECOMMENDED"
	VerdictRejected          = "REJECTED"
)

// IdeaReport is the outcome of validating a free-form idea against the
// same gates a repository candidate passes through. Nothing is
// persisted.
type IdeaReport struct {
	Verdict string

	// FailedStage names the gate a REJECTED idea fell at.
	FailedStage candidate.Stage
	Reason      string

	Screening  *candidate.ScreeningResult
	CoreIdea   *candidate.CoreIdeaResult
	Evaluation *candidate.EvaluationResult
	Market     *candidate.MarketResult

	// FinalScore is the blend of the evaluation and market scores,
	// set only when the idea survives the first three gates.
	FinalScore float64
}

// ValidateIdea runs a submitted idea through the full gate sequence
// synchronously. The first three gates can reject outright; the market
// analysis only shapes the final verdict tier.
func (p *Pipeline) ValidateIdea(ctx context.Context, description, userContext string) (*IdeaReport, error) {
	report := &IdeaReport{}
	info := prompt.RepoInfo{
		FullName:    "user/idea",
		Description: description,
		Language:    "Unknown",
	}

	out := p.screenJudge.Invoke(ctx, prompt.Screening(info))
	if out.Failed() {
		return nil, fmt.Errorf("screening judgment: %s", out.FailReason)
	}
	screening := &candidate.ScreeningResult{Raw: out.Raw}
	if err := out.Decode(screening); err != nil {
		return nil, fmt.Errorf("decoding screening judgment: %w", err)
	}
	report.Screening = screening
	if gate.Screening(*screening) == gate.Reject {
		report.Verdict = VerdictRejected
		report.FailedStage = candidate.StageScreening
		report.Reason = screening.Reason
		return report, nil
	}

	out = p.coreJudge.Invoke(ctx, prompt.CoreIdea(info))
	if out.Failed() {
		return nil, fmt.Errorf("core idea judgment: %s", out.FailReason)
	}
	coreIdea := &candidate.CoreIdeaResult{Raw: out.Raw}
	if err := out.Decode(coreIdea); err != nil {
		return nil, fmt.Errorf("decoding core idea judgment: %w", err)
	}
	report.CoreIdea = coreIdea
	if gate.CoreIdea(*coreIdea) == gate.Reject {
		report.Verdict = VerdictRejected
		report.FailedStage = candidate.StageCoreIdeaFiltering
		report.Reason = fmt.Sprintf("met %d of 4 core idea criteria", coreIdea.CriteriaMet())
		return report, nil
	}

	out = p.deepJudge.Invoke(ctx, prompt.Evaluation("user/idea", virtualReadme(description, userContext)))
	if out.Failed() {
		return nil, fmt.Errorf("evaluation judgment: %s", out.FailReason)
	}
	evaluation := &candidate.EvaluationResult{Raw: out.Raw}
	if err := out.Decode(evaluation); err != nil {
		return nil, fmt.Errorf("decoding evaluation judgment: %w", err)
	}
	evaluation.Overall.FinalScore = gate.EvaluationScore(*evaluation)
	report.Evaluation = evaluation
	if gate.Evaluation(*evaluation) == gate.Reject {
		report.Verdict = VerdictRejected
		report.FailedStage = candidate.StageEvaluation
		report.Reason = fmt.Sprintf("evaluation recommendation %q", evaluation.Overall.Recommendation)
		return report, nil
	}

	marketInfo := info
	marketInfo.Summary = evaluation.Overall.Summary
	if marketInfo.Summary == "" {
		marketInfo.Summary = userContext
	}
	out = p.marketJudge.Invoke(ctx, prompt.Market(marketInfo, true))
	if out.Failed() {
		return nil, fmt.Errorf("market judgment: %s", out.FailReason)
	}
	market := &candidate.MarketResult{Raw: out.Raw}
	if err := out.Decode(market); err != nil {
		return nil, fmt.Errorf("decoding market judgment: %w", err)
	}
	score := gate.MarketScore(*market)
	market.TotalScore = score
	market.Overall.FinalScore = score
	report.Market = market

	report.FinalScore = gate.SynthesisScore(evaluation.Overall.FinalScore, score)
	report.Verdict = verdictForScore(report.FinalScore)
	return report, nil
}

func verdictForScore(score float64) string {
	switch {
	case score >= 8.5:
		return VerdictHighlyRecommended
	case score >= 7.0:
		return VerdictRecommended
	case score >= 5.5:
		return VerdictWorthConsidering
	default:
		return VerdictNotRecommended
	}
}

// virtualReadme shapes a free-form idea into the document form the
// evaluation prompt expects.
func virtualReadme(description, userContext string) string {
	var b strings.Builder
	b.WriteString("# Submitted Idea\n\n## Overview\n\n")
	b.WriteString(description)
	if userContext != "" {
		b.WriteString("\n\n## Background\n\n")
		b.WriteString(userContext)
	}
	return b.String()
}
