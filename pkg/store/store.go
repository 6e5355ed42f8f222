// Package store persists candidates between stage runs. Mutations are
// buffered in memory and flushed by Commit in one unit, matching the
// pipeline's batch-level commit discipline: a crash mid-batch discards
// that batch's mutations entirely, never partially.
package store

import (
	"context"
	"time"

	"github.com/deniom/triage/pkg/candidate"
)

// Store is the candidate persistence contract consumed by the stage
// processors. Any backing store satisfying these operations works; the
// pipeline assumes a single writer per batch and does no row locking.
type Store interface {
	// SelectByStage returns up to limit candidates currently in the
	// stage. Order is unspecified beyond being stable within a run.
	SelectByStage(ctx context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error)

	// SelectTopByStage returns up to limit candidates in the stage,
	// ranked by evaluation score descending.
	SelectTopByStage(ctx context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error)

	// ExistsByKey reports whether the external key already exists in
	// the batch.
	ExistsByKey(ctx context.Context, batchDate time.Time, fullName string) (bool, error)

	// Purge immediately deletes all candidates in the stage for the
	// batch date and returns how many were removed. Used to clear
	// abandoned leftovers before re-ingestion.
	Purge(ctx context.Context, batchDate time.Time, stage candidate.Stage) (int, error)

	// Upsert buffers a candidate insert-or-update. Nothing is
	// persisted until Commit.
	Upsert(c *candidate.Candidate)

	// Commit flushes all buffered mutations in one unit.
	Commit(ctx context.Context) error
}
