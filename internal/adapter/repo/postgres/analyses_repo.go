package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

// AnalysisRepo persists and loads fit analyses from PostgreSQL. An analysis
// row carries both the queue status and, once completed, the immutable
// result fields.
type AnalysisRepo struct{ Pool PgxPool }

// NewAnalysisRepo constructs an AnalysisRepo with the given pool.
func NewAnalysisRepo(p PgxPool) *AnalysisRepo { return &AnalysisRepo{Pool: p} }

// Create inserts a new queued analysis and returns its id.
func (r *AnalysisRepo) Create(ctx domain.Context, a domain.Analysis) (string, error) {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Create")
	defer span.End()
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO analyses (id, user_id, raw_input, status, error, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	now := time.Now().UTC()
	_, err := r.Pool.Exec(ctx, q, id, a.UserID, a.RawInput, a.Status, a.Error, now, now)
	if err != nil {
		return "", fmt.Errorf("op=analysis.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates an analysis's status and optional error message.
// Completed analyses are immutable and never transition again.
func (r *AnalysisRepo) UpdateStatus(ctx domain.Context, id string, status domain.AnalysisStatus, errMsg *string) error {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.UpdateStatus")
	defer span.End()
	errVal := ""
	if errMsg != nil {
		errVal = *errMsg
	}
	q := `UPDATE analyses SET status=$2, error=$3, updated_at=$4 WHERE id=$1 AND status <> 'completed'`
	_, err := r.Pool.Exec(ctx, q, id, status, errVal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=analysis.update_status: %w", err)
	}
	return nil
}

// Complete writes the result fields and marks the analysis completed. The
// guard on status makes the write exactly-once: a second completion attempt
// is a conflict.
func (r *AnalysisRepo) Complete(ctx domain.Context, id string, rec domain.AnalysisRecord) error {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Complete")
	defer span.End()

	failedCriteria, err := json.Marshal(emptyIfNil(rec.FailedCriteria))
	if err != nil {
		return fmt.Errorf("op=analysis.complete: marshal failed_criteria: %w", err)
	}
	scoreTrace, err := json.Marshal(emptyIfNil(rec.ScoreTrace))
	if err != nil {
		return fmt.Errorf("op=analysis.complete: marshal score_trace: %w", err)
	}
	missingSkills, err := json.Marshal(emptyIfNil(rec.MissingSkills))
	if err != nil {
		return fmt.Errorf("op=analysis.complete: marshal missing_skills: %w", err)
	}
	gaps, err := json.Marshal(rec.ResumeGaps)
	if err != nil {
		return fmt.Errorf("op=analysis.complete: marshal resume_gaps: %w", err)
	}

	q := `UPDATE analyses SET
		status='completed', error='', updated_at=$2,
		position=$3, company=$4, score=$5, outcome=$6,
		hard_requirements_passed=$7, failed_criteria=$8, score_trace=$9,
		resume_gaps=$10, missing_skills=$11, verdict_reasoning=$12
	WHERE id=$1 AND status <> 'completed'`
	tag, err := r.Pool.Exec(ctx, q, id, time.Now().UTC(),
		rec.Position, rec.Company, rec.Score, string(rec.Outcome),
		rec.HardRequirementsPassed, failedCriteria, scoreTrace,
		gaps, missingSkills, rec.VerdictReasoning)
	if err != nil {
		return fmt.Errorf("op=analysis.complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=analysis.complete: %w", domain.ErrConflict)
	}
	return nil
}

const analysisColumns = `id, user_id, raw_input, status, COALESCE(error,''), created_at, updated_at,
	COALESCE(position,''), COALESCE(company,''), score, outcome,
	COALESCE(hard_requirements_passed,false), failed_criteria, score_trace,
	resume_gaps, missing_skills, COALESCE(verdict_reasoning,'')`

// Get loads an analysis by id.
func (r *AnalysisRepo) Get(ctx domain.Context, id string) (domain.Analysis, error) {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Get")
	defer span.End()
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id=$1`
	a, err := scanAnalysis(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Analysis{}, fmt.Errorf("op=analysis.get: %w", domain.ErrNotFound)
		}
		return domain.Analysis{}, fmt.Errorf("op=analysis.get: %w", err)
	}
	return a, nil
}

// ListByUser returns the user's analyses sorted by outcome priority (MATCH,
// STRETCH, REJECT, rows without an outcome last) and score descending within
// each outcome.
func (r *AnalysisRepo) ListByUser(ctx domain.Context, userID string) ([]domain.Analysis, error) {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.ListByUser")
	defer span.End()
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=$1
	ORDER BY CASE outcome WHEN 'MATCH' THEN 0 WHEN 'STRETCH' THEN 1 WHEN 'REJECT' THEN 2 ELSE 3 END,
		score DESC NULLS LAST, created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=analysis.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("op=analysis.list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=analysis.list: %w", err)
	}
	return out, nil
}

// MarkStale fails queued and processing analyses whose last update is older
// than cutoff, so no analysis sits in a non-terminal status forever. Returns
// the number of rows marked.
func (r *AnalysisRepo) MarkStale(ctx domain.Context, cutoff time.Time, msg string) (int64, error) {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.MarkStale")
	defer span.End()
	q := `UPDATE analyses SET status='failed', error=$2, updated_at=$3
		WHERE status IN ('queued','processing') AND updated_at < $1`
	tag, err := r.Pool.Exec(ctx, q, cutoff, msg, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("op=analysis.mark_stale: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes an analysis owned by the user.
func (r *AnalysisRepo) Delete(ctx domain.Context, userID, id string) error {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM analyses WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("op=analysis.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=analysis.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAnalysis(row pgx.Row) (domain.Analysis, error) {
	var a domain.Analysis
	var score *int
	var outcome *string
	var failedCriteria, scoreTrace, gaps, missingSkills []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.RawInput, &a.Status, &a.Error, &a.CreatedAt, &a.UpdatedAt,
		&a.Position, &a.Company, &score, &outcome,
		&a.HardRequirementsPassed, &failedCriteria, &scoreTrace,
		&gaps, &missingSkills, &a.VerdictReasoning); err != nil {
		return domain.Analysis{}, err
	}
	if score != nil {
		a.Score = *score
	}
	if outcome != nil {
		a.Outcome = scoring.Outcome(*outcome)
	}
	if len(failedCriteria) > 0 {
		_ = json.Unmarshal(failedCriteria, &a.FailedCriteria)
	}
	if len(scoreTrace) > 0 {
		_ = json.Unmarshal(scoreTrace, &a.ScoreTrace)
	}
	if len(gaps) > 0 {
		_ = json.Unmarshal(gaps, &a.ResumeGaps)
	}
	if len(missingSkills) > 0 {
		_ = json.Unmarshal(missingSkills, &a.MissingSkills)
	}
	return a, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
