package store

import (
	"context"
	"testing"
	"time"

	"github.com/deniom/triage/pkg/candidate"
)

var day = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

func newCandidate(fullName string, stage candidate.Stage) *candidate.Candidate {
	owner, name, _ := candidate.SplitFullName(fullName)
	return &candidate.Candidate{
		BatchDate: day,
		FullName:  fullName,
		Owner:     owner,
		Name:      name,
		Stage:     stage,
		IsActive:  true,
	}
}

func TestUpsertBuffersUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	s.Upsert(newCandidate("acme/widget", candidate.StageScreening))
	s.Upsert(newCandidate("acme/gadget", candidate.StageScreening))

	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}
	got, err := s.SelectByStage(ctx, candidate.StageScreening, 0)
	if err != nil {
		t.Fatalf("SelectByStage() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("visible before commit: got %d candidates, want 0", len(got))
	}

	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() after commit = %d, want 0", got)
	}
	got, err = s.SelectByStage(ctx, candidate.StageScreening, 0)
	if err != nil {
		t.Fatalf("SelectByStage() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("after commit: got %d candidates, want 2", len(got))
	}
}

func TestCommitPreservesIdentityOnUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	s.Upsert(newCandidate("acme/widget", candidate.StageScreening))
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	first, ok := s.Get(day, "acme/widget")
	if !ok {
		t.Fatal("candidate not stored after first commit")
	}

	updated := newCandidate("acme/widget", candidate.StageCoreIdeaFiltering)
	updated.EvaluationScore = 7.5
	s.Upsert(updated)
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	second, ok := s.Get(day, "acme/widget")
	if !ok {
		t.Fatal("candidate missing after update")
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on update: got %d, want %d", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on update: got %v, want %v", second.CreatedAt, first.CreatedAt)
	}
	if second.Stage != candidate.StageCoreIdeaFiltering {
		t.Errorf("Stage = %q, want %q", second.Stage, candidate.StageCoreIdeaFiltering)
	}
}

func TestExistsByKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	s.Upsert(newCandidate("acme/widget", candidate.StageScreening))
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	tests := []struct {
		name     string
		date     time.Time
		fullName string
		want     bool
	}{
		{"stored key", day, "acme/widget", true},
		{"other repo same day", day, "acme/gadget", false},
		{"same repo other day", day.AddDate(0, 0, 1), "acme/widget", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ExistsByKey(ctx, tt.date, tt.fullName)
			if err != nil {
				t.Fatalf("ExistsByKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsByKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPurgeRemovesOnlyMatchingStageAndDate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	otherDay := day.AddDate(0, 0, -1)
	s.Upsert(newCandidate("acme/widget", candidate.StageScreening))
	s.Upsert(newCandidate("acme/gadget", candidate.StageScreening))
	s.Upsert(newCandidate("acme/sprocket", candidate.StageEvaluation))
	stale := newCandidate("acme/legacy", candidate.StageScreening)
	stale.BatchDate = otherDay
	s.Upsert(stale)
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	n, err := s.Purge(ctx, day, candidate.StageScreening)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Purge() = %d, want 2", n)
	}

	if _, ok := s.Get(day, "acme/sprocket"); !ok {
		t.Error("purge removed a candidate in another stage")
	}
	if _, ok := s.Get(otherDay, "acme/legacy"); !ok {
		t.Error("purge removed a candidate from another batch date")
	}
	if _, ok := s.Get(day, "acme/widget"); ok {
		t.Error("purge left a matching candidate behind")
	}
}

func TestSelectTopByStageRanksByScore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	scores := map[string]float64{
		"acme/low":  6.1,
		"acme/high": 9.2,
		"acme/mid":  7.8,
	}
	for name, score := range scores {
		c := newCandidate(name, candidate.StageEvaluation)
		c.EvaluationScore = score
		s.Upsert(c)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got, err := s.SelectTopByStage(ctx, candidate.StageEvaluation, 2)
	if err != nil {
		t.Fatalf("SelectTopByStage() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].FullName != "acme/high" || got[1].FullName != "acme/mid" {
		t.Errorf("ranking = [%s, %s], want [acme/high, acme/mid]",
			got[0].FullName, got[1].FullName)
	}
}

func TestSelectByStageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	s.Upsert(newCandidate("acme/widget", candidate.StageScreening))
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got, err := s.SelectByStage(ctx, candidate.StageScreening, 0)
	if err != nil {
		t.Fatalf("SelectByStage() error = %v", err)
	}
	got[0].Stage = candidate.StageRejected

	stored, _ := s.Get(day, "acme/widget")
	if stored.Stage != candidate.StageScreening {
		t.Error("mutating a selected candidate changed the stored row")
	}
}
