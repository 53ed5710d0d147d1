package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// ResumeRepo persists the per-user master resume.
type ResumeRepo struct{ Pool PgxPool }

// NewResumeRepo constructs a ResumeRepo with the given pool.
func NewResumeRepo(p PgxPool) *ResumeRepo { return &ResumeRepo{Pool: p} }

// Upsert creates or replaces the user's resume and returns its id.
func (r *ResumeRepo) Upsert(ctx domain.Context, userID, content string) (string, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Upsert")
	defer span.End()
	q := `INSERT INTO resumes (id, user_id, content, updated_at) VALUES ($1,$2,$3,$4)
	ON CONFLICT (user_id) DO UPDATE SET content=EXCLUDED.content, updated_at=EXCLUDED.updated_at
	RETURNING id`
	var id string
	if err := r.Pool.QueryRow(ctx, q, uuid.New().String(), userID, content, time.Now().UTC()).Scan(&id); err != nil {
		return "", fmt.Errorf("op=resume.upsert: %w", err)
	}
	return id, nil
}

// GetByUser loads the user's resume.
func (r *ResumeRepo) GetByUser(ctx domain.Context, userID string) (domain.Resume, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.GetByUser")
	defer span.End()
	q := `SELECT id, user_id, content, updated_at FROM resumes WHERE user_id=$1`
	var res domain.Resume
	if err := r.Pool.QueryRow(ctx, q, userID).Scan(&res.ID, &res.UserID, &res.Content, &res.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Resume{}, fmt.Errorf("op=resume.get: %w", domain.ErrNotFound)
		}
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", err)
	}
	return res, nil
}

// DeleteByUser removes the user's resume.
func (r *ResumeRepo) DeleteByUser(ctx domain.Context, userID string) error {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.DeleteByUser")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM resumes WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("op=resume.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resume.delete: %w", domain.ErrNotFound)
	}
	return nil
}
