package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// SearchService scrapes job boards for listings, with a per-user cache in
// front of the scraper and persistence behind it.
type SearchService struct {
	Scraper  domain.Scraper
	Cache    domain.SearchCache
	Listings domain.ListingRepository
	MaxItems int
}

// NewSearchService constructs a SearchService with its dependencies.
func NewSearchService(sc domain.Scraper, cache domain.SearchCache, listings domain.ListingRepository, maxItems int) SearchService {
	if maxItems <= 0 {
		maxItems = 25
	}
	return SearchService{Scraper: sc, Cache: cache, Listings: listings, MaxItems: maxItems}
}

// Search returns listings for a search term. Cache hits skip the scraper
// entirely; misses scrape, persist and cache the result. A persistence
// failure degrades to a log line so the user still sees their results.
func (s SearchService) Search(ctx domain.Context, userID, searchTerm string) ([]domain.JobListing, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	searchTerm = strings.TrimSpace(searchTerm)
	if searchTerm == "" {
		return nil, fmt.Errorf("%w: search term required", domain.ErrInvalidArgument)
	}

	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, userID, searchTerm); ok {
			slog.Info("search cache hit",
				slog.String("search_term", searchTerm),
				slog.Int("listings", len(cached)))
			return cached, nil
		}
	}

	listings, err := s.Scraper.Search(ctx, searchTerm, s.MaxItems)
	if err != nil {
		return nil, fmt.Errorf("op=search: %w", err)
	}
	for i := range listings {
		listings[i].UserID = userID
		listings[i].SearchTerm = searchTerm
	}

	if len(listings) > 0 {
		ids, err := s.Listings.CreateBatch(ctx, listings)
		if err != nil {
			slog.Error("failed to persist scraped listings",
				slog.String("search_term", searchTerm),
				slog.Any("error", err))
		} else {
			for i := range ids {
				listings[i].ID = ids[i]
			}
		}
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, userID, searchTerm, listings); err != nil {
			slog.Warn("failed to cache search results",
				slog.String("search_term", searchTerm),
				slog.Any("error", err))
		}
	}

	slog.Info("search completed",
		slog.String("search_term", searchTerm),
		slog.Int("listings", len(listings)))
	return listings, nil
}

// ListJobs returns the user's scraped listings.
func (s SearchService) ListJobs(ctx domain.Context, userID string) ([]domain.JobListing, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Listings.ListByUser(ctx, userID)
}

// DeleteJob removes one listing owned by the user.
func (s SearchService) DeleteJob(ctx domain.Context, userID, id string) error {
	return s.Listings.Delete(ctx, userID, id)
}
