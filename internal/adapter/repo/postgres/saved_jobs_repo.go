package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// SavedJobRepo persists job bookmarks.
type SavedJobRepo struct{ Pool PgxPool }

// NewSavedJobRepo constructs a SavedJobRepo with the given pool.
func NewSavedJobRepo(p PgxPool) *SavedJobRepo { return &SavedJobRepo{Pool: p} }

// Toggle saves the job if unsaved, or unsaves it if saved. Returns the new
// saved state.
func (r *SavedJobRepo) Toggle(ctx domain.Context, userID, jobID string) (bool, error) {
	tracer := otel.Tracer("repo.saved_jobs")
	ctx, span := tracer.Start(ctx, "saved_jobs.Toggle")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM saved_jobs WHERE user_id=$1 AND job_id=$2`, userID, jobID)
	if err != nil {
		return false, fmt.Errorf("op=saved_job.toggle: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	q := `INSERT INTO saved_jobs (id, user_id, job_id, notes, saved_at) VALUES ($1,$2,$3,'',$4)`
	if _, err := r.Pool.Exec(ctx, q, uuid.New().String(), userID, jobID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("op=saved_job.toggle: %w", err)
	}
	return true, nil
}

// ListByUser returns the user's saved jobs, newest first.
func (r *SavedJobRepo) ListByUser(ctx domain.Context, userID string) ([]domain.SavedJob, error) {
	tracer := otel.Tracer("repo.saved_jobs")
	ctx, span := tracer.Start(ctx, "saved_jobs.ListByUser")
	defer span.End()
	q := `SELECT id, user_id, job_id, COALESCE(notes,''), saved_at FROM saved_jobs WHERE user_id=$1 ORDER BY saved_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=saved_job.list: %w", err)
	}
	defer rows.Close()
	var out []domain.SavedJob
	for rows.Next() {
		var s domain.SavedJob
		if err := rows.Scan(&s.ID, &s.UserID, &s.JobID, &s.Notes, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("op=saved_job.list: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=saved_job.list: %w", err)
	}
	return out, nil
}

// UpdateNotes replaces the notes on a saved job.
func (r *SavedJobRepo) UpdateNotes(ctx domain.Context, userID, jobID, notes string) error {
	tracer := otel.Tracer("repo.saved_jobs")
	ctx, span := tracer.Start(ctx, "saved_jobs.UpdateNotes")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE saved_jobs SET notes=$3 WHERE user_id=$1 AND job_id=$2`, userID, jobID, notes)
	if err != nil {
		return fmt.Errorf("op=saved_job.update_notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=saved_job.update_notes: %w", domain.ErrNotFound)
	}
	return nil
}
