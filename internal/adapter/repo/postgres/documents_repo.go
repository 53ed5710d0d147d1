package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// DocumentRepo persists generated resumes and cover letters.
type DocumentRepo struct{ Pool PgxPool }

// NewDocumentRepo constructs a DocumentRepo with the given pool.
func NewDocumentRepo(p PgxPool) *DocumentRepo { return &DocumentRepo{Pool: p} }

// Upsert inserts or replaces the document for (user, job, type) and returns
// its id.
func (r *DocumentRepo) Upsert(ctx domain.Context, d domain.Document) (string, error) {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.Upsert")
	defer span.End()
	q := `INSERT INTO generated_documents (id, user_id, job_id, type, content, generated_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (user_id, job_id, type)
	DO UPDATE SET content=EXCLUDED.content, generated_at=EXCLUDED.generated_at
	RETURNING id`
	generatedAt := d.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	var id string
	if err := r.Pool.QueryRow(ctx, q, uuid.New().String(), d.UserID, d.JobID, d.Type, d.Content, generatedAt).Scan(&id); err != nil {
		return "", fmt.Errorf("op=document.upsert: %w", err)
	}
	return id, nil
}

const documentColumns = `id, user_id, job_id, type, content, generated_at`

// GetForJob loads the document of one type for (user, job).
func (r *DocumentRepo) GetForJob(ctx domain.Context, userID, jobID, docType string) (domain.Document, error) {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.GetForJob")
	defer span.End()
	q := `SELECT ` + documentColumns + ` FROM generated_documents WHERE user_id=$1 AND job_id=$2 AND type=$3`
	var d domain.Document
	if err := r.Pool.QueryRow(ctx, q, userID, jobID, docType).Scan(&d.ID, &d.UserID, &d.JobID, &d.Type, &d.Content, &d.GeneratedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Document{}, fmt.Errorf("op=document.get: %w", domain.ErrNotFound)
		}
		return domain.Document{}, fmt.Errorf("op=document.get: %w", err)
	}
	return d, nil
}

// ListByUser returns all of the user's generated documents, newest first.
func (r *DocumentRepo) ListByUser(ctx domain.Context, userID string) ([]domain.Document, error) {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.ListByUser")
	defer span.End()
	q := `SELECT ` + documentColumns + ` FROM generated_documents WHERE user_id=$1 ORDER BY generated_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=document.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.JobID, &d.Type, &d.Content, &d.GeneratedAt); err != nil {
			return nil, fmt.Errorf("op=document.list: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=document.list: %w", err)
	}
	return out, nil
}

// Delete removes a document owned by the user.
func (r *DocumentRepo) Delete(ctx domain.Context, userID, id string) error {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM generated_documents WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("op=document.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=document.delete: %w", domain.ErrNotFound)
	}
	return nil
}
