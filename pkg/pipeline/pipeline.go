// Package pipeline orchestrates the stage processors over a shared
// store and set of judgment invokers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/config"
	"github.com/deniom/triage/pkg/stage"
	"github.com/deniom/triage/pkg/store"
)

// Pipeline wires together everything a triage run needs. All
// collaborators are constructed by the caller and injected; the
// pipeline holds no global state.
type Pipeline struct {
	store    store.Store
	searcher stage.RepoSearcher
	readmes  stage.ReadmeFetcher

	// One judge per stage: the first two run the cheap model, the
	// last two the expensive one, and marketJudge is additionally
	// search-augmented.
	screenJudge stage.Judge
	coreJudge   stage.Judge
	deepJudge   stage.Judge
	marketJudge stage.Judge

	cfg *config.Config
	log *slog.Logger
}

// New creates a Pipeline from already-constructed collaborators.
func New(
	st store.Store,
	searcher stage.RepoSearcher,
	readmes stage.ReadmeFetcher,
	screenJudge, coreJudge, deepJudge, marketJudge stage.Judge,
	cfg *config.Config,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:       st,
		searcher:    searcher,
		readmes:     readmes,
		screenJudge: screenJudge,
		coreJudge:   coreJudge,
		deepJudge:   deepJudge,
		marketJudge: marketJudge,
		cfg:         cfg,
		log:         log,
	}
}

// Summary aggregates the stats of every stage executed in one run.
// FailedStage names the stage whose error stopped the run, if any.
type Summary struct {
	Date        time.Time
	Screening   stage.ScreeningStats
	CoreIdea    stage.FilterStats
	Evaluation  stage.EvaluationStats
	Market      stage.MarketStats
	FailedStage candidate.Stage
}

// RunIngestionAndScreening ingests repositories created on the given
// date and screens them.
func (p *Pipeline) RunIngestionAndScreening(ctx context.Context, day time.Time) (stage.ScreeningStats, error) {
	proc := &stage.Screening{
		Store:    p.store,
		Searcher: p.searcher,
		Judge:    p.screenJudge,
		Log:      p.log,
		MaxBatch: p.cfg.Stages.Screening.MaxBatch,
	}
	return proc.Run(ctx, day)
}

// RunCoreIdeaFilter filters candidates waiting in core idea filtering.
func (p *Pipeline) RunCoreIdeaFilter(ctx context.Context) (stage.FilterStats, error) {
	proc := &stage.CoreIdea{
		Store:    p.store,
		Judge:    p.coreJudge,
		Log:      p.log,
		MaxBatch: p.cfg.Stages.CoreIdea.MaxBatch,
	}
	return proc.Run(ctx)
}

// RunEvaluation evaluates candidates waiting in evaluation.
func (p *Pipeline) RunEvaluation(ctx context.Context) (stage.EvaluationStats, error) {
	proc := &stage.Evaluation{
		Store:    p.store,
		Readmes:  p.readmes,
		Judge:    p.deepJudge,
		Log:      p.log,
		MaxBatch: p.cfg.Stages.Evaluation.MaxBatch,
	}
	return proc.Run(ctx)
}

// RunMarketInsight analyzes the top candidates waiting in market
// insight.
func (p *Pipeline) RunMarketInsight(ctx context.Context) (stage.MarketStats, error) {
	proc := &stage.Market{
		Store:    p.store,
		Judge:    p.marketJudge,
		Log:      p.log,
		MaxBatch: p.cfg.Stages.MarketInsight.MaxBatch,
	}
	return proc.Run(ctx)
}

// RunAll chains every stage in pipeline order for the given batch date.
// A stage failure stops the run there; stats from the stages already
// completed are kept in the returned Summary.
func (p *Pipeline) RunAll(ctx context.Context, day time.Time) (Summary, error) {
	sum := Summary{Date: day}

	var err error
	if sum.Screening, err = p.RunIngestionAndScreening(ctx, day); err != nil {
		sum.FailedStage = candidate.StageScreening
		return sum, fmt.Errorf("stage %s: %w", candidate.StageScreening, err)
	}
	if sum.CoreIdea, err = p.RunCoreIdeaFilter(ctx); err != nil {
		sum.FailedStage = candidate.StageCoreIdeaFiltering
		return sum, fmt.Errorf("stage %s: %w", candidate.StageCoreIdeaFiltering, err)
	}
	if sum.Evaluation, err = p.RunEvaluation(ctx); err != nil {
		sum.FailedStage = candidate.StageEvaluation
		return sum, fmt.Errorf("stage %s: %w", candidate.StageEvaluation, err)
	}
	if sum.Market, err = p.RunMarketInsight(ctx); err != nil {
		sum.FailedStage = candidate.StageMarketInsight
		return sum, fmt.Errorf("stage %s: %w", candidate.StageMarketInsight, err)
	}
	return sum, nil
}
