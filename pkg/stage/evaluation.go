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

// Evaluation runs the expensive README-based product evaluation. A
// candidate without a README is rejected outright; there is nothing to
// evaluate and nothing a retry would change.
type Evaluation struct {
	Store    store.Store
	Readmes  ReadmeFetcher
	Judge    Judge
	Log      *slog.Logger
	MaxBatch int
}

// Run processes up to MaxBatch candidates waiting in evaluation.
func (p *Evaluation) Run(ctx context.Context) (EvaluationStats, error) {
	var stats EvaluationStats

	batch, err := p.Store.SelectByStage(ctx, candidate.StageEvaluation, p.MaxBatch)
	if err != nil {
		return stats, fmt.Errorf("evaluation: selecting batch: %w", err)
	}
	if len(batch) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range batch {
		c := c
		eg.Go(func() error {
			verdict := p.evaluateOne(egCtx, c)
			mu.Lock()
			stats.Processed++
			switch verdict {
			case evalPassed:
				stats.Passed++
			case evalNoReadme:
				stats.NoReadme++
				stats.Rejected++
			default:
				stats.Rejected++
			}
			mu.Unlock()
			p.Store.Upsert(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, fmt.Errorf("evaluation: %w", err)
	}

	if err := p.Store.Commit(ctx); err != nil {
		return stats, fmt.Errorf("evaluation: committing batch: %w", err)
	}
	p.Log.Info("evaluation complete",
		"processed", stats.Processed,
		"passed", stats.Passed,
		"no_readme", stats.NoReadme,
		"rejected", stats.Rejected)
	return stats, nil
}

type evalVerdict int

const (
	evalRejected evalVerdict = iota
	evalPassed
	evalNoReadme
)

func (p *Evaluation) evaluateOne(ctx context.Context, c *candidate.Candidate) evalVerdict {
	doc, err := p.Readmes.FetchReadme(ctx, c.Owner, c.Name)
	if err != nil {
		c.Evaluation = &candidate.EvaluationResult{
			FailReason: fmt.Sprintf("fetching readme: %v", err),
		}
		reject(p.Log, c, c.Evaluation.FailReason)
		return evalRejected
	}
	if !doc.Found {
		c.Evaluation = &candidate.EvaluationResult{FailReason: "readme not found"}
		reject(p.Log, c, c.Evaluation.FailReason)
		return evalNoReadme
	}

	out := p.Judge.Invoke(ctx, prompt.Evaluation(c.FullName, doc.Text))

	res := &candidate.EvaluationResult{Raw: out.Raw}
	c.Evaluation = res
	if out.Failed() {
		res.FailReason = out.FailReason
		reject(p.Log, c, res.FailReason)
		return evalRejected
	}
	if err := out.Decode(res); err != nil {
		res.FailReason = fmt.Sprintf("decoding judgment: %v", err)
		reject(p.Log, c, res.FailReason)
		return evalRejected
	}

	// The weighted score is computed here, not taken from the oracle.
	res.Overall.FinalScore = gate.EvaluationScore(*res)
	c.EvaluationScore = res.Overall.FinalScore

	if gate.Evaluation(*res) == gate.Promote {
		if err := c.Advance(); err != nil {
			p.Log.Error("advance failed", "candidate", c.FullName, "err", err)
			return evalRejected
		}
		return evalPassed
	}
	if err := c.Reject(); err != nil {
		p.Log.Error("reject failed", "candidate", c.FullName, "err", err)
	}
	return evalRejected
}
