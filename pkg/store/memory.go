package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deniom/triage/pkg/candidate"
)

// Memory is an in-memory Store used by tests and dry runs. It honors
// the same buffer-then-commit discipline as the durable store.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*candidate.Candidate
	buffer []*candidate.Candidate
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, rows: make(map[string]*candidate.Candidate)}
}

func key(batchDate time.Time, fullName string) string {
	return batchDate.UTC().Format("2006-01-02") + "|" + fullName
}

// SelectByStage returns up to limit candidates in the stage, ordered by
// internal ID for stability within a run.
func (m *Memory) SelectByStage(_ context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*candidate.Candidate
	for _, c := range m.rows {
		if c.Stage == stage {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SelectTopByStage returns up to limit candidates in the stage, ranked
// by evaluation score descending.
func (m *Memory) SelectTopByStage(_ context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*candidate.Candidate
	for _, c := range m.rows {
		if c.Stage == stage {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EvaluationScore != out[j].EvaluationScore {
			return out[i].EvaluationScore > out[j].EvaluationScore
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExistsByKey reports whether the external key exists in the batch.
func (m *Memory) ExistsByKey(_ context.Context, batchDate time.Time, fullName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key(batchDate, fullName)]
	return ok, nil
}

// Purge deletes all candidates in the stage for the batch date.
func (m *Memory) Purge(_ context.Context, batchDate time.Time, stage candidate.Stage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := batchDate.UTC().Format("2006-01-02")
	n := 0
	for k, c := range m.rows {
		if c.Stage == stage && c.BatchDate.UTC().Format("2006-01-02") == day {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// Upsert buffers a candidate mutation until Commit.
func (m *Memory) Upsert(c *candidate.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.buffer = append(m.buffer, &cp)
}

// Commit applies all buffered mutations.
func (m *Memory) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, c := range m.buffer {
		k := key(c.BatchDate, c.FullName)
		if existing, ok := m.rows[k]; ok {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
		} else {
			c.ID = m.nextID
			m.nextID++
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		m.rows[k] = c
	}
	m.buffer = nil
	return nil
}

// Pending returns how many mutations are buffered but not committed.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Get returns a copy of the stored candidate for the key, if present.
func (m *Memory) Get(batchDate time.Time, fullName string) (*candidate.Candidate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[key(batchDate, fullName)]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}
