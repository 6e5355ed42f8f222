// Package stage implements the pipeline's four stage processors. Each
// processor selects a bounded batch of candidates in its stage, fans
// out one judgment per candidate, applies the gating rules, and flushes
// every mutation with a single store commit. A failed judgment rejects
// the candidate; it never aborts the batch.
package stage

import (
	"context"
	"time"

	"github.com/deniom/triage/pkg/github"
	"github.com/deniom/triage/pkg/invoker"
)

// Judge issues one judgment call. *invoker.Invoker satisfies it.
type Judge interface {
	Invoke(ctx context.Context, prompt string) invoker.Outcome
}

// RepoSearcher finds newly created repositories for a batch date.
type RepoSearcher interface {
	SearchNewRepos(ctx context.Context, day time.Time, limit int) ([]github.Repo, error)
}

// ReadmeFetcher retrieves a repository's README document.
type ReadmeFetcher interface {
	FetchReadme(ctx context.Context, owner, name string) (github.Document, error)
}

// ScreeningStats summarizes one ingestion-and-screening run.
type ScreeningStats struct {
	Fetched    int
	NewlyAdded int
	Purged     int
	Screened   int
	Passed     int
	Rejected   int
}

// FilterStats summarizes one core-idea filtering run.
type FilterStats struct {
	Processed int
	Passed    int
	Rejected  int
}

// EvaluationStats summarizes one evaluation run. NoReadme counts
// candidates rejected for a missing README, separately from oracle
// rejections.
type EvaluationStats struct {
	Processed int
	Passed    int
	NoReadme  int
	Rejected  int
}

// MarketStats summarizes one market-insight run.
type MarketStats struct {
	Processed int
	Passed    int
	Rejected  int
}
