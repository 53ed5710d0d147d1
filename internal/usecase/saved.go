package usecase

import (
	"errors"
	"fmt"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// SavedJobService manages bookmarked listings and their notes.
type SavedJobService struct {
	Saved    domain.SavedJobRepository
	Listings domain.ListingRepository
}

// NewSavedJobService constructs a SavedJobService with its dependencies.
func NewSavedJobService(saved domain.SavedJobRepository, listings domain.ListingRepository) SavedJobService {
	return SavedJobService{Saved: saved, Listings: listings}
}

// Toggle bookmarks a listing, or removes an existing bookmark. Returns
// whether the job is saved after the call.
func (s SavedJobService) Toggle(ctx domain.Context, userID, jobID string) (bool, error) {
	if userID == "" || jobID == "" {
		return false, fmt.Errorf("%w: user id and job id required", domain.ErrInvalidArgument)
	}

	// The listing must exist and belong to the user before a bookmark can
	// reference it.
	listing, err := s.Listings.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("%w: job not found", domain.ErrNotFound)
		}
		return false, fmt.Errorf("op=saved.toggle: %w", err)
	}
	if listing.UserID != userID {
		return false, fmt.Errorf("%w: job not found", domain.ErrNotFound)
	}

	return s.Saved.Toggle(ctx, userID, jobID)
}

// List returns the user's saved jobs.
func (s SavedJobService) List(ctx domain.Context, userID string) ([]domain.SavedJob, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Saved.ListByUser(ctx, userID)
}

// UpdateNotes replaces the notes on a saved job.
func (s SavedJobService) UpdateNotes(ctx domain.Context, userID, jobID, notes string) error {
	if userID == "" || jobID == "" {
		return fmt.Errorf("%w: user id and job id required", domain.ErrInvalidArgument)
	}
	return s.Saved.UpdateNotes(ctx, userID, jobID, notes)
}
