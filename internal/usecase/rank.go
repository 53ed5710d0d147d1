package usecase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

// RankService scores a batch of scraped listings against the user's resume
// using the cheaper ranking model, bounded fan-out per batch.
type RankService struct {
	Rankings    domain.RankingRepository
	Listings    domain.ListingRepository
	Resumes     domain.ResumeRepository
	AI          domain.AIClient
	Concurrency int
}

// NewRankService constructs a RankService with its dependencies.
func NewRankService(rankings domain.RankingRepository, listings domain.ListingRepository, resumes domain.ResumeRepository, ai domain.AIClient, concurrency int) RankService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return RankService{Rankings: rankings, Listings: listings, Resumes: resumes, AI: ai, Concurrency: concurrency}
}

// RankSearch ranks every listing the user scraped under a search term. Each
// listing gets one extraction call; a failed call degrades that listing to a
// zero-score reject and a failed write skips it, neither touches siblings.
func (s RankService) RankSearch(ctx domain.Context, userID, searchTerm string) ([]domain.Ranking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if searchTerm == "" {
		return nil, fmt.Errorf("%w: search term required", domain.ErrInvalidArgument)
	}

	resume, err := s.Resumes.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=rank: %w", err)
	}

	listings, err := s.Listings.ListBySearch(ctx, userID, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("op=rank: %w", err)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w: no listings for search term", domain.ErrNotFound)
	}

	var (
		mu      sync.Mutex
		stored  int
		skipped int
	)

	// A plain group, not WithContext: one bad item must never cancel the
	// in-flight extractions of its siblings.
	var g errgroup.Group
	g.SetLimit(s.Concurrency)
	for _, listing := range listings {
		listing := listing
		g.Go(func() error {
			r := s.rankOne(ctx, userID, resume.Content, listing)
			if _, err := s.Rankings.Upsert(ctx, r); err != nil {
				slog.Error("ranking upsert failed",
					slog.String("job_id", listing.ID),
					slog.Any("error", err))
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			stored++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("batch ranking completed",
		slog.String("search_term", searchTerm),
		slog.Int("listings", stored),
		slog.Int("skipped", skipped))
	return s.Rankings.ListByUser(ctx, userID)
}

// rankOne scores one listing. Extraction failures degrade to a zero-score
// reject carrying the failure reason so the batch never partially vanishes.
func (s RankService) rankOne(ctx domain.Context, userID, resumeText string, listing domain.JobListing) domain.Ranking {
	r := domain.Ranking{
		UserID:   userID,
		JobID:    listing.ID,
		RankedAt: time.Now().UTC(),
	}

	extraction, err := s.AI.ExtractFit(ctx, resumeText, listing.Description)
	if err != nil {
		slog.Warn("ranking extraction failed",
			slog.String("job_id", listing.ID),
			slog.Any("error", err))
		r.Score = 0
		r.Outcome = scoring.OutcomeReject
		r.Reasoning = fmt.Sprintf("scoring unavailable: %v", err)
		return r
	}

	res := scoring.Score(extraction.HardRequirementsPassed, extraction.Flags)
	r.Score = res.Score
	r.Outcome = res.Outcome
	r.Reasoning = extraction.VerdictReasoning
	return r
}

// List returns the user's rankings in verdict order.
func (s RankService) List(ctx domain.Context, userID string) ([]domain.Ranking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Rankings.ListByUser(ctx, userID)
}

// Delete removes one ranking owned by the user.
func (s RankService) Delete(ctx domain.Context, userID, id string) error {
	return s.Rankings.Delete(ctx, userID, id)
}
