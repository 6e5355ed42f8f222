// Package candidate defines the unit of work flowing through the triage
// pipeline: an externally discovered repository and its per-stage
// judgment results.
package candidate

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a position in the fixed pipeline order.
type Stage string

const (
	StageScreening         Stage = "screening"
	StageCoreIdeaFiltering Stage = "core_idea_filtering"
	StageEvaluation        Stage = "evaluation"
	StageMarketInsight     Stage = "market_insight"
	StageSynthesis         Stage = "synthesis"

	// StageRejected is terminal and reachable from any non-terminal stage.
	StageRejected Stage = "rejected"
)

// stageOrder lists the non-terminal stages in pipeline order.
var stageOrder = []Stage{
	StageScreening,
	StageCoreIdeaFiltering,
	StageEvaluation,
	StageMarketInsight,
	StageSynthesis,
}

// Stages returns the non-terminal stages in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Ordinal returns the position of the stage in the pipeline order,
// or -1 for rejected and unknown stages.
func (s Stage) Ordinal() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage a candidate is promoted to. The final stage
// has no successor and returns itself.
func (s Stage) Next() Stage {
	i := s.Ordinal()
	if i < 0 || i == len(stageOrder)-1 {
		return s
	}
	return stageOrder[i+1]
}

// Terminal reports whether no processor may select candidates in this stage.
func (s Stage) Terminal() bool {
	return s == StageRejected || s == StageSynthesis
}

// CanTransition reports whether moving from s to next is a legal
// transition: one step forward, or a direct jump to rejected.
func (s Stage) CanTransition(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageRejected {
		return true
	}
	return next == s.Next() && next != s
}

// ParseStage converts a stored stage string back into a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.TrimSpace(strings.ToLower(raw)))
	if s == StageRejected {
		return s, nil
	}
	if s.Ordinal() >= 0 {
		return s, nil
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// Candidate is one repository moving through the pipeline.
type Candidate struct {
	ID        int64     `json:"id"`
	BatchDate time.Time `json:"batch_date"`

	// FullName is the stable external key, "owner/name", unique
	// within a batch date.
	FullName    string `json:"full_name"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Language    string `json:"language"`

	RepoCreatedAt time.Time `json:"repo_created_at"`
	RepoUpdatedAt time.Time `json:"repo_updated_at"`

	Stage       Stage `json:"stage"`
	IsActive    bool  `json:"is_active"`
	IsPromising *bool `json:"is_promising,omitempty"`

	Screening  *ScreeningResult  `json:"screening_result,omitempty"`
	CoreIdea   *CoreIdeaResult   `json:"core_idea_result,omitempty"`
	Evaluation *EvaluationResult `json:"evaluation_result,omitempty"`
	Market     *MarketResult     `json:"market_insight_result,omitempty"`

	// EvaluationScore mirrors Evaluation.Overall.FinalScore so the
	// market stage can rank without unpacking the payload.
	EvaluationScore float64 `json:"evaluation_score"`

	// SynthesisScore is set only once the candidate reaches synthesis.
	SynthesisScore *float64 `json:"synthesis_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Advance moves the candidate one stage forward.
// It returns an error on an illegal transition.
func (c *Candidate) Advance() error {
	next := c.Stage.Next()
	if !c.Stage.CanTransition(next) {
		return fmt.Errorf("candidate %s: cannot advance from stage %q", c.FullName, c.Stage)
	}
	c.Stage = next
	return nil
}

// Reject moves the candidate to the terminal rejected stage.
func (c *Candidate) Reject() error {
	if !c.Stage.CanTransition(StageRejected) {
		return fmt.Errorf("candidate %s: cannot reject from stage %q", c.FullName, c.Stage)
	}
	c.Stage = StageRejected
	return nil
}

// SplitFullName splits an "owner/name" external key into its parts.
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed repository name %q", fullName)
	}
	return parts[0], parts[1], nil
}
