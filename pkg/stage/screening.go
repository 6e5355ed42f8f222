package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deniom/triage/pkg/candidate"
	"github.com/deniom/triage/pkg/gate"
	"github.com/deniom/triage/pkg/prompt"
	"github.com/deniom/triage/pkg/store"
)

// Screening ingests newly created repositories for a batch date and
// runs the cheap first-pass judgment over them.
type Screening struct {
	Store    store.Store
	Searcher RepoSearcher
	Judge    Judge
	Log      *slog.Logger
	MaxBatch int
}

// Run purges abandoned screening leftovers for the date, ingests fresh
// repositories, then screens up to MaxBatch of them. Leftovers are
// purged rather than resumed because a prior partial ingestion for the
// same date cannot be told apart from a stale one.
func (s *Screening) Run(ctx context.Context, day time.Time) (ScreeningStats, error) {
	var stats ScreeningStats

	purged, err := s.Store.Purge(ctx, day, candidate.StageScreening)
	if err != nil {
		return stats, fmt.Errorf("screening: purging leftovers: %w", err)
	}
	stats.Purged = purged

	repos, err := s.Searcher.SearchNewRepos(ctx, day, s.MaxBatch)
	if err != nil {
		return stats, fmt.Errorf("screening: searching repositories: %w", err)
	}
	stats.Fetched = len(repos)

	for _, r := range repos {
		exists, err := s.Store.ExistsByKey(ctx, day, r.FullName)
		if err != nil {
			return stats, fmt.Errorf("screening: checking %s: %w", r.FullName, err)
		}
		if exists {
			continue
		}
		owner, name, err := candidate.SplitFullName(r.FullName)
		if err != nil {
			s.Log.Warn("skipping repository with malformed name", "full_name", r.FullName)
			continue
		}
		s.Store.Upsert(&candidate.Candidate{
			BatchDate:     day,
			FullName:      r.FullName,
			Owner:         owner,
			Name:          name,
			Description:   r.Description,
			Stars:         r.Stars,
			Language:      r.Language,
			RepoCreatedAt: r.CreatedAt,
			RepoUpdatedAt: r.UpdatedAt,
			Stage:         candidate.StageScreening,
			IsActive:      true,
		})
		stats.NewlyAdded++
	}
	if err := s.Store.Commit(ctx); err != nil {
		return stats, fmt.Errorf("screening: committing ingestion: %w", err)
	}
	s.Log.Info("ingestion complete",
		"date", day.Format("2006-01-02"),
		"fetched", stats.Fetched,
		"new", stats.NewlyAdded,
		"purged", stats.Purged)

	batch, err := s.Store.SelectByStage(ctx, candidate.StageScreening, s.MaxBatch)
	if err != nil {
		return stats, fmt.Errorf("screening: selecting batch: %w", err)
	}
	if len(batch) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range batch {
		c := c
		eg.Go(func() error {
			passed := s.screenOne(egCtx, c)
			mu.Lock()
			stats.Screened++
			if passed {
				stats.Passed++
			} else {
				stats.Rejected++
			}
			mu.Unlock()
			s.Store.Upsert(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, fmt.Errorf("screening: %w", err)
	}

	if err := s.Store.Commit(ctx); err != nil {
		return stats, fmt.Errorf("screening: committing batch: %w", err)
	}
	s.Log.Info("screening complete",
		"screened", stats.Screened,
		"passed", stats.Passed,
		"rejected", stats.Rejected)
	return stats, nil
}

func (s *Screening) screenOne(ctx context.Context, c *candidate.Candidate) bool {
	out := s.Judge.Invoke(ctx, prompt.Screening(prompt.RepoInfo{
		FullName:    c.FullName,
		Description: c.Description,
		Language:    c.Language,
		Stars:       c.Stars,
	}))

	res := &candidate.ScreeningResult{Raw: out.Raw}
	c.Screening = res
	if out.Failed() {
		res.Reason = out.FailReason
		return reject(s.Log, c, res.Reason)
	}
	if err := out.Decode(res); err != nil {
		res.Reason = fmt.Sprintf("decoding judgment: %v", err)
		return reject(s.Log, c, res.Reason)
	}
	if gate.Screening(*res) == gate.Promote {
		promising := true
		c.IsPromising = &promising
		if err := c.Advance(); err != nil {
			s.Log.Error("advance failed", "candidate", c.FullName, "err", err)
			return false
		}
		return true
	}

	promising := false
	c.IsPromising = &promising
	if err := c.Reject(); err != nil {
		s.Log.Error("reject failed", "candidate", c.FullName, "err", err)
	}
	return false
}

// reject applies the fail-closed policy: log the reason and move the
// candidate to rejected. The caller has already attached the payload.
func reject(log *slog.Logger, c *candidate.Candidate, reason string) bool {
	log.Warn("rejecting candidate", "candidate", c.FullName, "stage", c.Stage, "reason", reason)
	if err := c.Reject(); err != nil {
		log.Error("reject failed", "candidate", c.FullName, "err", err)
	}
	return false
}
