package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// ListingRepo persists scraped job listings.
type ListingRepo struct{ Pool PgxPool }

// NewListingRepo constructs a ListingRepo with the given pool.
func NewListingRepo(p PgxPool) *ListingRepo { return &ListingRepo{Pool: p} }

// CreateBatch inserts all listings in one transaction and returns their ids.
func (r *ListingRepo) CreateBatch(ctx domain.Context, listings []domain.JobListing) ([]string, error) {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.CreateBatch")
	defer span.End()
	if len(listings) == 0 {
		return nil, nil
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("op=listing.create_batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO job_listings (id, user_id, position, company, location, description, salary, url, search_term, scraped_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		scrapedAt := l.ScrapedAt
		if scrapedAt.IsZero() {
			scrapedAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx, q, id, l.UserID, l.Position, l.Company, l.Location, l.Description, l.Salary, l.URL, l.SearchTerm, scrapedAt); err != nil {
			return nil, fmt.Errorf("op=listing.create_batch: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("op=listing.create_batch: %w", err)
	}
	return ids, nil
}

const listingColumns = `id, user_id, position, company, COALESCE(location,''), description, COALESCE(salary,''), COALESCE(url,''), search_term, scraped_at`

// Get loads a listing by id.
func (r *ListingRepo) Get(ctx domain.Context, id string) (domain.JobListing, error) {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.Get")
	defer span.End()
	q := `SELECT ` + listingColumns + ` FROM job_listings WHERE id=$1`
	l, err := scanListing(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.JobListing{}, fmt.Errorf("op=listing.get: %w", domain.ErrNotFound)
		}
		return domain.JobListing{}, fmt.Errorf("op=listing.get: %w", err)
	}
	return l, nil
}

// ListByUser returns all listings for the user, newest first.
func (r *ListingRepo) ListByUser(ctx domain.Context, userID string) ([]domain.JobListing, error) {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.ListByUser")
	defer span.End()
	q := `SELECT ` + listingColumns + ` FROM job_listings WHERE user_id=$1 ORDER BY scraped_at DESC`
	return r.queryListings(ctx, q, userID)
}

// ListBySearch returns the user's listings for one search term, newest first.
func (r *ListingRepo) ListBySearch(ctx domain.Context, userID, searchTerm string) ([]domain.JobListing, error) {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.ListBySearch")
	defer span.End()
	q := `SELECT ` + listingColumns + ` FROM job_listings WHERE user_id=$1 AND search_term=$2 ORDER BY scraped_at DESC`
	return r.queryListings(ctx, q, userID, searchTerm)
}

// Delete removes a listing owned by the user.
func (r *ListingRepo) Delete(ctx domain.Context, userID, id string) error {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM job_listings WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("op=listing.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=listing.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all of the user's listings.
func (r *ListingRepo) DeleteByUser(ctx domain.Context, userID string) error {
	tracer := otel.Tracer("repo.listings")
	ctx, span := tracer.Start(ctx, "listings.DeleteByUser")
	defer span.End()
	if _, err := r.Pool.Exec(ctx, `DELETE FROM job_listings WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("op=listing.delete_by_user: %w", err)
	}
	return nil
}

func (r *ListingRepo) queryListings(ctx domain.Context, q string, args ...any) ([]domain.JobListing, error) {
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=listing.query: %w", err)
	}
	defer rows.Close()
	var out []domain.JobListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("op=listing.query: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=listing.query: %w", err)
	}
	return out, nil
}

func scanListing(row pgx.Row) (domain.JobListing, error) {
	var l domain.JobListing
	err := row.Scan(&l.ID, &l.UserID, &l.Position, &l.Company, &l.Location, &l.Description, &l.Salary, &l.URL, &l.SearchTerm, &l.ScrapedAt)
	return l, err
}
