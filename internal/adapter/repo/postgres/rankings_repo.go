package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

// RankingRepo persists per-listing fit verdicts.
type RankingRepo struct{ Pool PgxPool }

// NewRankingRepo constructs a RankingRepo with the given pool.
func NewRankingRepo(p PgxPool) *RankingRepo { return &RankingRepo{Pool: p} }

// Upsert inserts or replaces the ranking for (user, job) and returns its id.
func (r *RankingRepo) Upsert(ctx domain.Context, rk domain.Ranking) (string, error) {
	tracer := otel.Tracer("repo.rankings")
	ctx, span := tracer.Start(ctx, "rankings.Upsert")
	defer span.End()
	q := `INSERT INTO job_rankings (id, user_id, job_id, score, outcome, reasoning, ranked_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (user_id, job_id)
	DO UPDATE SET score=EXCLUDED.score, outcome=EXCLUDED.outcome, reasoning=EXCLUDED.reasoning, ranked_at=EXCLUDED.ranked_at
	RETURNING id`
	rankedAt := rk.RankedAt
	if rankedAt.IsZero() {
		rankedAt = time.Now().UTC()
	}
	var id string
	if err := r.Pool.QueryRow(ctx, q, uuid.New().String(), rk.UserID, rk.JobID, rk.Score, string(rk.Outcome), rk.Reasoning, rankedAt).Scan(&id); err != nil {
		return "", fmt.Errorf("op=ranking.upsert: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's rankings sorted by outcome priority then
// score descending, matching the analyses ordering.
func (r *RankingRepo) ListByUser(ctx domain.Context, userID string) ([]domain.Ranking, error) {
	tracer := otel.Tracer("repo.rankings")
	ctx, span := tracer.Start(ctx, "rankings.ListByUser")
	defer span.End()
	q := `SELECT id, user_id, job_id, score, outcome, reasoning, ranked_at FROM job_rankings WHERE user_id=$1
	ORDER BY CASE outcome WHEN 'MATCH' THEN 0 WHEN 'STRETCH' THEN 1 WHEN 'REJECT' THEN 2 ELSE 3 END,
		score DESC, ranked_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=ranking.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Ranking
	for rows.Next() {
		var rk domain.Ranking
		var outcome string
		if err := rows.Scan(&rk.ID, &rk.UserID, &rk.JobID, &rk.Score, &outcome, &rk.Reasoning, &rk.RankedAt); err != nil {
			return nil, fmt.Errorf("op=ranking.list: %w", err)
		}
		rk.Outcome = scoring.Outcome(outcome)
		out = append(out, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=ranking.list: %w", err)
	}
	return out, nil
}

// Delete removes a ranking owned by the user.
func (r *RankingRepo) Delete(ctx domain.Context, userID, id string) error {
	tracer := otel.Tracer("repo.rankings")
	ctx, span := tracer.Start(ctx, "rankings.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM job_rankings WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("op=ranking.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=ranking.delete: %w", domain.ErrNotFound)
	}
	return nil
}
