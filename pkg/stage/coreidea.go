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

// CoreIdea filters screened candidates on the intrinsic quality of the
// idea itself, independent of execution.
type CoreIdea struct {
	Store    store.Store
	Judge    Judge
	Log      *slog.Logger
	MaxBatch int
}

// Run processes up to MaxBatch candidates waiting in core idea
// filtering.
func (p *CoreIdea) Run(ctx context.Context) (FilterStats, error) {
	var stats FilterStats

	batch, err := p.Store.SelectByStage(ctx, candidate.StageCoreIdeaFiltering, p.MaxBatch)
	if err != nil {
		return stats, fmt.Errorf("core idea filter: selecting batch: %w", err)
	}
	if len(batch) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range batch {
		c := c
		eg.Go(func() error {
			passed := p.filterOne(egCtx, c)
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
		return stats, fmt.Errorf("core idea filter: %w", err)
	}

	if err := p.Store.Commit(ctx); err != nil {
		return stats, fmt.Errorf("core idea filter: committing batch: %w", err)
	}
	p.Log.Info("core idea filtering complete",
		"processed", stats.Processed,
		"passed", stats.Passed,
		"rejected", stats.Rejected)
	return stats, nil
}

func (p *CoreIdea) filterOne(ctx context.Context, c *candidate.Candidate) bool {
	out := p.Judge.Invoke(ctx, prompt.CoreIdea(prompt.RepoInfo{
		FullName:    c.FullName,
		Description: c.Description,
		Language:    c.Language,
		Stars:       c.Stars,
	}))

	res := &candidate.CoreIdeaResult{Raw: out.Raw}
	c.CoreIdea = res
	if out.Failed() {
		res.SummaryReason = out.FailReason
		return reject(p.Log, c, res.SummaryReason)
	}
	if err := out.Decode(res); err != nil {
		res.SummaryReason = fmt.Sprintf("decoding judgment: %v", err)
		return reject(p.Log, c, res.SummaryReason)
	}

	if gate.CoreIdea(*res) == gate.Promote {
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
