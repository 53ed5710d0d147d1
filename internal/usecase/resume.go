package usecase

import (
	"fmt"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/pkg/textx"
)

// ResumeService manages the user's single master resume.
type ResumeService struct {
	Resumes  domain.ResumeRepository
	MaxBytes int
}

// NewResumeService constructs a ResumeService with its dependencies.
func NewResumeService(resumes domain.ResumeRepository, maxBytes int) ResumeService {
	return ResumeService{Resumes: resumes, MaxBytes: maxBytes}
}

// Save stores or replaces the user's resume text.
func (s ResumeService) Save(ctx domain.Context, userID, content string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	content = textx.SanitizeText(content)
	if content == "" {
		return "", fmt.Errorf("%w: resume content required", domain.ErrInvalidArgument)
	}
	if s.MaxBytes > 0 && len(content) > s.MaxBytes {
		return "", fmt.Errorf("%w: resume exceeds %d bytes", domain.ErrInvalidArgument, s.MaxBytes)
	}
	return s.Resumes.Upsert(ctx, userID, content)
}

// Get returns the user's resume.
func (s ResumeService) Get(ctx domain.Context, userID string) (domain.Resume, error) {
	if userID == "" {
		return domain.Resume{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Resumes.GetByUser(ctx, userID)
}

// Delete removes the user's resume.
func (s ResumeService) Delete(ctx domain.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Resumes.DeleteByUser(ctx, userID)
}
