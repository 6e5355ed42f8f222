// Package report renders run summaries and idea validation reports for
// terminal display.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/pipeline"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// PrintRunSummary writes a formatted per-stage table for one run.
func PrintRunSummary(w io.Writer, sum *pipeline.Summary, color bool) {
	sep := strings.Repeat("-", 78)
	fmt.Fprintf(w, "%s\n", sep)
	fmt.Fprintf(w, "  Triage run for %s\n", sum.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "%s\n", sep)
	fmt.Fprintf(w, "  %-22s  %9s  %8s  %9s  %8s\n", "STAGE", "PROCESSED", "PASSED", "REJECTED", "NOTES")
	fmt.Fprintf(w, "%s\n", sep)

	fmt.Fprintf(w, "  %-22s  %9d  %8s  %9s  %8s\n", "ingestion",
		sum.Screening.Fetched,
		fmt.Sprintf("%d new", sum.Screening.NewlyAdded),
		fmt.Sprintf("%d purged", sum.Screening.Purged), "")
	stageRow(w, "screening", sum.Screening.Screened, sum.Screening.Passed, sum.Screening.Rejected, "", color)
	stageRow(w, "core_idea_filtering", sum.CoreIdea.Processed, sum.CoreIdea.Passed, sum.CoreIdea.Rejected, "", color)
	stageRow(w, "evaluation", sum.Evaluation.Processed, sum.Evaluation.Passed, sum.Evaluation.Rejected,
		fmt.Sprintf("%d no-readme", sum.Evaluation.NoReadme), color)
	stageRow(w, "market_insight", sum.Market.Processed, sum.Market.Passed, sum.Market.Rejected, "", color)

	fmt.Fprintf(w, "%s\n", sep)
	if sum.FailedStage != "" {
		if color {
			fmt.Fprintf(w, "  %sFAILED%s at stage %s\n", colorRed, colorReset, sum.FailedStage)
		} else {
			fmt.Fprintf(w, "  FAILED at stage %s\n", sum.FailedStage)
		}
		fmt.Fprintf(w, "%s\n", sep)
	}
}

func stageRow(w io.Writer, name string, processed, passed, rejected int, notes string, color bool) {
	passedCol := fmt.Sprintf("%8d", passed)
	rejectedCol := fmt.Sprintf("%9d", rejected)
	if color {
		if passed > 0 {
			passedCol = colorGreen + passedCol + colorReset
		}
		if rejected > 0 {
			rejectedCol = colorYellow + rejectedCol + colorReset
		}
	}
	fmt.Fprintf(w, "  %-22s  %9d  %s  %s  %8s\n", name, processed, passedCol, rejectedCol, notes)
}

// PrintIdeaReport writes a formatted idea validation report.
func PrintIdeaReport(w io.Writer, r *pipeline.IdeaReport, color bool) {
	sep := strings.Repeat("-", 78)
	fmt.Fprintf(w, "%s\n", sep)
	fmt.Fprintf(w, "  Verdict: %s\n", verdictLabel(r.Verdict, color))
	if r.Verdict == pipeline.VerdictRejected {
		fmt.Fprintf(w, "  Rejected at: %s\n", r.FailedStage)
		if r.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", r.Reason)
		}
	} else {
		fmt.Fprintf(w, "  Final score: %.1f\n", r.FinalScore)
	}
	fmt.Fprintf(w, "%s\n", sep)

	if r.Screening != nil {
		fmt.Fprintf(w, "  %-22s  solves problem: %-5v  commercial: %v\n",
			string(candidate.StageScreening),
			r.Screening.SolvesRealProblem, r.Screening.HasCommercialPotential)
	}
	if r.CoreIdea != nil {
		fmt.Fprintf(w, "  %-22s  %d of 4 criteria met\n",
			string(candidate.StageCoreIdeaFiltering), r.CoreIdea.CriteriaMet())
	}
	if r.Evaluation != nil {
		fmt.Fprintf(w, "  %-22s  score %.1f  %s\n",
			string(candidate.StageEvaluation),
			r.Evaluation.Overall.FinalScore, r.Evaluation.Overall.Recommendation)
	}
	if r.Market != nil {
		fmt.Fprintf(w, "  %-22s  score %.1f\n",
			string(candidate.StageMarketInsight), r.Market.TotalScore)
	}
	fmt.Fprintf(w, "%s\n", sep)
}

func verdictLabel(verdict string, color bool) string {
	if !color {
		return verdict
	}
	switch verdict {
	case pipeline.VerdictHighlyRecommended, pipeline.VerdictRecommended:
		return colorBold + colorGreen + verdict + colorReset
	case pipeline.VerdictWorthConsidering:
		return colorYellow + verdict + colorReset
	default:
		return colorRed + verdict + colorReset
	}
}
