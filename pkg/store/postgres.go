package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/deniom/triage/pkg/candidate"
)

// candidateColumns lists the non-identity columns in write order.
var candidateColumns = []string{
	"batch_date", "full_name", "owner", "name", "description", "stars",
	"language", "repo_created_at", "repo_updated_at", "stage", "is_active",
	"is_promising", "screening_result", "core_idea_result",
	"evaluation_result", "market_insight_result", "evaluation_score",
	"synthesis_score", "updated_at",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS candidates (
    id                    BIGSERIAL PRIMARY KEY,
    batch_date            DATE NOT NULL,
    full_name             TEXT NOT NULL,
    owner                 TEXT NOT NULL,
    name                  TEXT NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    stars                 INTEGER NOT NULL DEFAULT 0,
    language              TEXT NOT NULL DEFAULT '',
    repo_created_at       TIMESTAMPTZ,
    repo_updated_at       TIMESTAMPTZ,
    stage                 TEXT NOT NULL,
    is_active             BOOLEAN NOT NULL DEFAULT TRUE,
    is_promising          BOOLEAN,
    screening_result      JSONB,
    core_idea_result      JSONB,
    evaluation_result     JSONB,
    market_insight_result JSONB,
    evaluation_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    synthesis_score       DOUBLE PRECISION,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT unique_batch_repo UNIQUE (batch_date, full_name)
);
CREATE INDEX IF NOT EXISTS idx_candidates_stage ON candidates (stage);
CREATE INDEX IF NOT EXISTS idx_candidates_batch ON candidates (batch_date);
`

// Postgres is the durable Store backed by a relational database.
type Postgres struct {
	db      *sql.DB
	builder sq.StatementBuilderType

	mu     sync.Mutex
	buffer []*candidate.Candidate
}

var _ Store = (*Postgres)(nil)

// NewPostgres wires a sql.DB into a candidate store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to the database and verifies the connection. A failure
// here is a fatal configuration error for the whole run.
func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return NewPostgres(db), nil
}

// EnsureSchema creates the candidates table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// SelectByStage returns up to limit candidates in the stage, ordered by
// internal ID.
func (p *Postgres) SelectByStage(ctx context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error) {
	q := p.selectBuilder().
		Where(sq.Eq{"stage": string(stage)}).
		OrderBy("id").
		Limit(uint64(limit))
	return p.queryCandidates(ctx, q)
}

// SelectTopByStage returns up to limit candidates in the stage, ranked
// by evaluation score descending.
func (p *Postgres) SelectTopByStage(ctx context.Context, stage candidate.Stage, limit int) ([]*candidate.Candidate, error) {
	q := p.selectBuilder().
		Where(sq.Eq{"stage": string(stage)}).
		OrderBy("evaluation_score DESC", "id").
		Limit(uint64(limit))
	return p.queryCandidates(ctx, q)
}

// ExistsByKey reports whether the external key exists in the batch.
func (p *Postgres) ExistsByKey(ctx context.Context, batchDate time.Time, fullName string) (bool, error) {
	query, args, err := p.builder.
		Select("1").
		From("candidates").
		Where(sq.Eq{"batch_date": batchDate.UTC().Truncate(24 * time.Hour), "full_name": fullName}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}

	var one int
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking candidate existence: %w", err)
	}
	return true, nil
}

// Purge immediately deletes all candidates in the stage for the batch
// date. Buffered mutations are unaffected.
func (p *Postgres) Purge(ctx context.Context, batchDate time.Time, stage candidate.Stage) (int, error) {
	query, args, err := p.builder.
		Delete("candidates").
		Where(sq.Eq{"batch_date": batchDate.UTC().Truncate(24 * time.Hour), "stage": string(stage)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building purge query: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging candidates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged candidates: %w", err)
	}
	return int(n), nil
}

// Upsert buffers a candidate mutation until Commit.
func (p *Postgres) Upsert(c *candidate.Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *c
	p.buffer = append(p.buffer, &cp)
}

// Commit flushes every buffered mutation in one transaction. On error
// the transaction rolls back and the buffer is retained so the caller
// may retry.
func (p *Postgres) Commit(ctx context.Context) error {
	p.mu.Lock()
	batch := p.buffer
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}

	for _, c := range batch {
		query, args, err := p.upsertQuery(c)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("building upsert for %s: %w", c.FullName, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting %s: %w", c.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	p.mu.Lock()
	// Drop exactly what was flushed; Upserts buffered during the
	// commit stay queued.
	p.buffer = p.buffer[len(batch):]
	p.mu.Unlock()
	return nil
}

func (p *Postgres) selectBuilder() sq.SelectBuilder {
	cols := append([]string{"id"}, candidateColumns...)
	cols = append(cols, "created_at")
	return p.builder.Select(cols...).From("candidates")
}

func (p *Postgres) upsertQuery(c *candidate.Candidate) (string, []interface{}, error) {
	screening, err := marshalResult(c.Screening)
	if err != nil {
		return "", nil, err
	}
	coreIdea, err := marshalResult(c.CoreIdea)
	if err != nil {
		return "", nil, err
	}
	evaluation, err := marshalResult(c.Evaluation)
	if err != nil {
		return "", nil, err
	}
	market, err := marshalResult(c.Market)
	if err != nil {
		return "", nil, err
	}

	return p.builder.
		Insert("candidates").
		Columns(candidateColumns...).
		Values(
			c.BatchDate.UTC().Truncate(24*time.Hour),
			c.FullName,
			c.Owner,
			c.Name,
			c.Description,
			c.Stars,
			c.Language,
			nullTime(c.RepoCreatedAt),
			nullTime(c.RepoUpdatedAt),
			string(c.Stage),
			c.IsActive,
			c.IsPromising,
			screening,
			coreIdea,
			evaluation,
			market,
			c.EvaluationScore,
			c.SynthesisScore,
			sq.Expr("NOW()"),
		).
		Suffix(`ON CONFLICT (batch_date, full_name) DO UPDATE SET
			description = EXCLUDED.description,
			stars = EXCLUDED.stars,
			language = EXCLUDED.language,
			stage = EXCLUDED.stage,
			is_active = EXCLUDED.is_active,
			is_promising = EXCLUDED.is_promising,
			screening_result = EXCLUDED.screening_result,
			core_idea_result = EXCLUDED.core_idea_result,
			evaluation_result = EXCLUDED.evaluation_result,
			market_insight_result = EXCLUDED.market_insight_result,
			evaluation_score = EXCLUDED.evaluation_score,
			synthesis_score = EXCLUDED.synthesis_score,
			updated_at = NOW()`).
		ToSql()
}

func (p *Postgres) queryCandidates(ctx context.Context, q sq.SelectBuilder) ([]*candidate.Candidate, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting candidates: %w", err)
	}
	defer rows.Close()

	var out []*candidate.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return out, nil
}

func scanCandidate(rows *sql.Rows) (*candidate.Candidate, error) {
	var (
		c              candidate.Candidate
		stage          string
		repoCreated    sql.NullTime
		repoUpdated    sql.NullTime
		isPromising    sql.NullBool
		screeningJSON  []byte
		coreIdeaJSON   []byte
		evaluationJSON []byte
		marketJSON     []byte
		synthesis      sql.NullFloat64
	)

	err := rows.Scan(
		&c.ID, &c.BatchDate, &c.FullName, &c.Owner, &c.Name, &c.Description,
		&c.Stars, &c.Language, &repoCreated, &repoUpdated, &stage,
		&c.IsActive, &isPromising, &screeningJSON, &coreIdeaJSON,
		&evaluationJSON, &marketJSON, &c.EvaluationScore, &synthesis,
		&c.UpdatedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning candidate: %w", err)
	}

	parsed, err := candidate.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	c.Stage = parsed

	if repoCreated.Valid {
		c.RepoCreatedAt = repoCreated.Time
	}
	if repoUpdated.Valid {
		c.RepoUpdatedAt = repoUpdated.Time
	}
	if isPromising.Valid {
		v := isPromising.Bool
		c.IsPromising = &v
	}
	if synthesis.Valid {
		v := synthesis.Float64
		c.SynthesisScore = &v
	}

	if err := unmarshalResult(screeningJSON, &c.Screening); err != nil {
		return nil, err
	}
	if err := unmarshalResult(coreIdeaJSON, &c.CoreIdea); err != nil {
		return nil, err
	}
	if err := unmarshalResult(evaluationJSON, &c.Evaluation); err != nil {
		return nil, err
	}
	if err := unmarshalResult(marketJSON, &c.Market); err != nil {
		return nil, err
	}

	return &c, nil
}

// marshalResult serializes a stage payload, mapping nil to SQL NULL.
func marshalResult(v any) (any, error) {
	switch r := v.(type) {
	case *candidate.ScreeningResult:
		if r == nil {
			return nil, nil
		}
	case *candidate.CoreIdeaResult:
		if r == nil {
			return nil, nil
		}
	case *candidate.EvaluationResult:
		if r == nil {
			return nil, nil
		}
	case *candidate.MarketResult:
		if r == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling stage result: %w", err)
	}
	// lib/pq sends []byte as bytea; jsonb wants a text parameter.
	return string(data), nil
}

// unmarshalResult fills target (a **T) from a JSONB column, leaving it
// nil for SQL NULL.
func unmarshalResult[T any](data []byte, target **T) error {
	if len(data) == 0 {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling stage result: %w", err)
	}
	*target = v
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
