package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// DocumentService generates tailored resumes and cover letters for listings.
type DocumentService struct {
	Documents domain.DocumentRepository
	Listings  domain.ListingRepository
	Resumes   domain.ResumeRepository
	AI        domain.AIClient
}

// NewDocumentService constructs a DocumentService with its dependencies.
func NewDocumentService(docs domain.DocumentRepository, listings domain.ListingRepository, resumes domain.ResumeRepository, ai domain.AIClient) DocumentService {
	return DocumentService{Documents: docs, Listings: listings, Resumes: resumes, AI: ai}
}

// Generate produces a document for a listing and stores it, replacing any
// earlier document of the same type for that listing.
func (s DocumentService) Generate(ctx domain.Context, userID, jobID, docType string) (domain.Document, error) {
	if userID == "" || jobID == "" {
		return domain.Document{}, fmt.Errorf("%w: user id and job id required", domain.ErrInvalidArgument)
	}
	if docType != domain.DocumentTypeResume && docType != domain.DocumentTypeCoverLetter {
		return domain.Document{}, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidArgument, docType)
	}

	listing, err := s.Listings.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Document{}, fmt.Errorf("%w: job not found", domain.ErrNotFound)
		}
		return domain.Document{}, fmt.Errorf("op=document.generate: %w", err)
	}
	if listing.UserID != userID {
		return domain.Document{}, fmt.Errorf("%w: job not found", domain.ErrNotFound)
	}

	resume, err := s.Resumes.GetByUser(ctx, userID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("op=document.generate: %w", err)
	}

	content, err := s.AI.GenerateDocument(ctx, docType, resume.Content, listing)
	if err != nil {
		return domain.Document{}, fmt.Errorf("op=document.generate: %w", err)
	}

	d := domain.Document{
		UserID:      userID,
		JobID:       jobID,
		Type:        docType,
		Content:     content,
		GeneratedAt: time.Now().UTC(),
	}
	id, err := s.Documents.Upsert(ctx, d)
	if err != nil {
		return domain.Document{}, fmt.Errorf("op=document.generate: %w", err)
	}
	d.ID = id

	slog.Info("document generated",
		slog.String("job_id", jobID),
		slog.String("type", docType))
	return d, nil
}

// List returns the user's generated documents.
func (s DocumentService) List(ctx domain.Context, userID string) ([]domain.Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Documents.ListByUser(ctx, userID)
}

// Delete removes one document owned by the user.
func (s DocumentService) Delete(ctx domain.Context, userID, id string) error {
	return s.Documents.Delete(ctx, userID, id)
}
