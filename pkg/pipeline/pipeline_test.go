package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/config"
	"github.com/deniom/triage/pkg/github"
	"github.com/deniom/triage/pkg/invoker"
	"github.com/deniom/triage/pkg/logging"
	"github.com/deniom/triage/pkg/store"
)

var day = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

// routingJudge answers by recognizing which stage prompt it was handed.
// The keys are strings that appear in exactly one prompt template.
type routingJudge struct {
	byMarker map[string]invoker.Outcome
}

func (j *routingJudge) Invoke(_ context.Context, prompt string) invoker.Outcome {
	for marker, out := range j.byMarker {
		if strings.Contains(prompt, marker) {
			return out
		}
	}
	return invoker.Outcome{FailReason: "unrecognized prompt"}
}

func judgment(body string) invoker.Outcome {
	if !json.Valid([]byte(body)) {
		panic("invalid scripted judgment: " + body)
	}
	return invoker.Outcome{Object: json.RawMessage(body), Raw: body}
}

type fakeSearcher struct {
	repos []github.Repo
}

func (s *fakeSearcher) SearchNewRepos(context.Context, time.Time, int) ([]github.Repo, error) {
	return s.repos, nil
}

type fakeReadmes struct {
	docs map[string]github.Document
}

func (r *fakeReadmes) FetchReadme(_ context.Context, owner, name string) (github.Document, error) {
	return r.docs[owner+"/"+name], nil
}

const (
	screeningPass = `{"solves_real_problem": true, "has_commercial_potential": true, "is_promising": true, "reason": "real"}`
	coreIdeaPass  = `{"is_painkiller": true, "is_novel": true, "has_viral_potential": true, "is_simple_and_elegant": false}`
	// Weighted: 0.3*8 + 0.4*8 + 0.3*8 = 8.0
	evaluationPass = `{
		"user_need_insight": {"score": 8},
		"differentiated_advantage": {"score": 8},
		"viral_potential": {"score": 8},
		"overall_assessment": {"final_score": 8, "recommendation": "HIDDEN GEM", "summary": "strong"}
	}`
	// Mean: (8+7+8+7+8)/5 = 7.6
	marketPass = `{
		"market_timing": {"score": 8},
		"competitive_landscape": {"score": 7},
		"market_size": {"score": 8},
		"business_model": {"score": 7},
		"industry_trends": {"score": 8},
		"overall_market_assessment": {"final_score": 7.6, "summary": "open window"}
	}`
)

func passingJudge() *routingJudge {
	return &routingJudge{byMarker: map[string]invoker.Outcome{
		"solves_real_problem": judgment(screeningPass),
		"is_painkiller":       judgment(coreIdeaPass),
		"user_need_insight":   judgment(evaluationPass),
		"market_timing":       judgment(marketPass),
	}}
}

func newPipeline(st store.Store, searcher *fakeSearcher, readmes *fakeReadmes, judge *routingJudge) *Pipeline {
	return New(st, searcher, readmes, judge, judge, judge, judge, config.Default(), logging.Discard())
}

func TestRunAllCarriesCandidateToSynthesis(t *testing.T) {
	s := store.NewMemory()
	searcher := &fakeSearcher{repos: []github.Repo{
		{FullName: "acme/widget", Description: "fixes a real pain", Stars: 40},
	}}
	readmes := &fakeReadmes{docs: map[string]github.Document{
		"acme/widget": {Found: true, Text: "# Widget"},
	}}

	p := newPipeline(s, searcher, readmes, passingJudge())
	sum, err := p.RunAll(context.Background(), day)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if sum.Screening.Passed != 1 || sum.CoreIdea.Passed != 1 ||
		sum.Evaluation.Passed != 1 || sum.Market.Passed != 1 {
		t.Errorf("summary = %+v, want one pass at every stage", sum)
	}
	if sum.FailedStage != "" {
		t.Errorf("FailedStage = %q, want empty", sum.FailedStage)
	}

	c, ok := s.Get(day, "acme/widget")
	if !ok {
		t.Fatal("candidate not persisted")
	}
	if c.Stage != candidate.StageSynthesis {
		t.Errorf("stage = %q, want %q", c.Stage, candidate.StageSynthesis)
	}
	// (8.0 + 7.6) / 2 = 7.8
	if c.SynthesisScore == nil || *c.SynthesisScore != 7.8 {
		t.Errorf("SynthesisScore = %v, want 7.8", c.SynthesisScore)
	}
	if c.Screening == nil || c.CoreIdea == nil || c.Evaluation == nil || c.Market == nil {
		t.Error("a stage payload is missing after the full run")
	}
}

// failingStore wraps a Store and fails SelectByStage for one stage.
type failingStore struct {
	store.Store
	failOn candidate.Stage
}

func (f *failingStore) SelectByStage(ctx context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error) {
	if stage == f.failOn {
		return nil, errors.New("connection reset")
	}
	return f.Store.SelectByStage(ctx, stage, limit)
}

func TestRunAllAttributesStageFailure(t *testing.T) {
	mem := store.NewMemory()
	s := &failingStore{Store: mem, failOn: candidate.StageCoreIdeaFiltering}
	searcher := &fakeSearcher{repos: []github.Repo{
		{FullName: "acme/widget", Description: "fixes a real pain", Stars: 40},
	}}

	p := newPipeline(s, searcher, &fakeReadmes{}, passingJudge())
	sum, err := p.RunAll(context.Background(), day)
	if err == nil {
		t.Fatal("RunAll() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), string(candidate.StageCoreIdeaFiltering)) {
		t.Errorf("error %q does not name the failing stage", err)
	}
	if sum.FailedStage != candidate.StageCoreIdeaFiltering {
		t.Errorf("FailedStage = %q, want %q", sum.FailedStage, candidate.StageCoreIdeaFiltering)
	}
	// Screening ran and its results are retained.
	if sum.Screening.Passed != 1 {
		t.Errorf("Screening.Passed = %d, want 1", sum.Screening.Passed)
	}
}

func TestValidateIdeaRecommended(t *testing.T) {
	p := newPipeline(store.NewMemory(), &fakeSearcher{}, &fakeReadmes{}, passingJudge())

	report, err := p.ValidateIdea(context.Background(), "a tool that fixes builds", "solo founder")
	if err != nil {
		t.Fatalf("ValidateIdea() error = %v", err)
	}
	// (8.0 + 7.6) / 2 = 7.8
	if report.FinalScore != 7.8 {
		t.Errorf("FinalScore = %v, want 7.8", report.FinalScore)
	}
	if report.Verdict != VerdictRecommended {
		t.Errorf("Verdict = %q, want %q", report.Verdict, VerdictRecommended)
	}
	if report.Screening == nil || report.CoreIdea == nil || report.Evaluation == nil || report.Market == nil {
		t.Error("a stage payload is missing from the report")
	}
}

func TestValidateIdeaRejectedAtScreening(t *testing.T) {
	judge := passingJudge()
	judge.byMarker["solves_real_problem"] = judgment(`{"solves_real_problem": false, "has_commercial_potential": false, "is_promising": false, "reason": "no real need"}`)
	p := newPipeline(store.NewMemory(), &fakeSearcher{}, &fakeReadmes{}, judge)

	report, err := p.ValidateIdea(context.Background(), "yet another todo app", "")
	if err != nil {
		t.Fatalf("ValidateIdea() error = %v", err)
	}
	if report.Verdict != VerdictRejected {
		t.Errorf("Verdict = %q, want %q", report.Verdict, VerdictRejected)
	}
	if report.FailedStage != candidate.StageScreening {
		t.Errorf("FailedStage = %q, want %q", report.FailedStage, candidate.StageScreening)
	}
	if report.Reason != "no real need" {
		t.Errorf("Reason = %q, want oracle's reason", report.Reason)
	}
	if report.CoreIdea != nil {
		t.Error("later stages ran after a screening rejection")
	}
}

func TestValidateIdeaJudgmentFailureIsAnError(t *testing.T) {
	judge := passingJudge()
	judge.byMarker["solves_real_problem"] = invoker.Outcome{FailReason: "judgment failed after 2 attempts"}
	p := newPipeline(store.NewMemory(), &fakeSearcher{}, &fakeReadmes{}, judge)

	if _, err := p.ValidateIdea(context.Background(), "anything", ""); err == nil {
		t.Fatal("ValidateIdea() error = nil, want failure")
	}
}

func TestVerdictTiers(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{9.0, VerdictHighlyRecommended},
		{8.5, VerdictHighlyRecommended},
		{8.4, VerdictRecommended},
		{7.0, VerdictRecommended},
		{6.9, VerdictWorthConsidering},
		{5.5, VerdictWorthConsidering},
		{5.4, VerdictNotRecommended},
		{1.0, VerdictNotRecommended},
	}
	for _, tt := range tests {
		if got := verdictForScore(tt.score); got != tt.want {
			t.Errorf("verdictForScore(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
