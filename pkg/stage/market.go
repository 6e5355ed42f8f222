package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/gate"
	"github.com/deniom/triage/pkg/prompt"
	"github.com/deniom/triage/pkg/store"
)

// Market runs the search-augmented market analysis over the handful of
// best evaluated candidates. Selection ranks by evaluation score so a
// small MaxBatch acts as a scarcity gate, not a queue window.
type Market struct {
	Store    store.Store
	Judge    Judge
	Log      *slog.Logger
	MaxBatch int
}

// Run processes up to MaxBatch of the top candidates waiting in market
// insight. A promoted candidate receives its synthesis score, the mean
// of the evaluation and market scores.
func (p *Market) Run(ctx context.Context) (MarketStats, error) {
	var stats MarketStats

	batch, err := p.Store.SelectTopByStage(ctx, candidate.StageMarketInsight, p.MaxBatch)
	if err != nil {
		return stats, fmt.Errorf("market insight: selecting batch: %w", err)
	}
	if len(batch) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range batch {
		c := c
		eg.Go(func() error {
			passed := p.analyzeOne(egCtx, c)
			mu.Lock()
			stats.Processed++
			if passed {
				stats.Passed++
			} else {
				stats.Rejected++
			}
			mu.Unlock()
			p.Store.Upsert(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, fmt.Errorf("market insight: %w", err)
	}

	if err := p.Store.Commit(ctx); err != nil {
		return stats, fmt.Errorf("market insight: committing batch: %w", err)
	}
	p.Log.Info("market insight complete",
		"processed", stats.Processed,
		"passed", stats.Passed,
		"rejected", stats.Rejected)
	return stats, nil
}

func (p *Market) analyzeOne(ctx context.Context, c *candidate.Candidate) bool {
	info := prompt.RepoInfo{
		FullName:    c.FullName,
		Description: c.Description,
		Language:    c.Language,
		Stars:       c.Stars,
	}
	if c.Evaluation != nil {
		info.Summary = c.Evaluation.Overall.Summary
	}
	out := p.Judge.Invoke(ctx, prompt.Market(info, true))

	res := &candidate.MarketResult{Raw: out.Raw}
	c.Market = res
	if out.Failed() {
		res.FailReason = out.FailReason
		return reject(p.Log, c, res.FailReason)
	}
	if err := out.Decode(res); err != nil {
		res.FailReason = fmt.Sprintf("decoding judgment: %v", err)
		return reject(p.Log, c, res.FailReason)
	}

	// The market score is the computed mean of the five dimensions,
	// not whatever total the oracle reported.
	score := gate.MarketScore(*res)
	res.TotalScore = score
	res.Overall.FinalScore = score

	if gate.Market(*res) == gate.Promote {
		synthesis := gate.SynthesisScore(c.EvaluationScore, score)
		c.SynthesisScore = &synthesis
		if err := c.Advance(); err != nil {
			p.Log.Error("advance failed", "candidate", c.FullName, "err", err)
			return false
		}
		return true
	}
	if err := c.Reject(); err != nil {
		p.Log.Error("reject failed", "candidate", c.FullName, "err", err)
	}
	return false
}
