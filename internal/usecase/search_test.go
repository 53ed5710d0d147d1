package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjaflow/fitscore/internal/domain"
)

func newSearchFixture() (SearchService, *fakeScraper, *fakeCache, *fakeListings) {
	scraper := &fakeScraper{
		listings: []domain.JobListing{
			{Position: "Go Engineer", Company: "Acme", Description: "build services"},
			{Position: "Platform Engineer", Company: "Globex", Description: "run clusters"},
		},
	}
	cache := newFakeCache()
	listings := newFakeListings()
	return NewSearchService(scraper, cache, listings, 25), scraper, cache, listings
}

func TestSearch_ScrapesPersistsAndCaches(t *testing.T) {
	t.Parallel()
	svc, scraper, cache, listings := newSearchFixture()
	ctx := context.Background()

	out, err := svc.Search(ctx, "u1", "golang jakarta")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, scraper.calls)
	assert.Equal(t, "u1", out[0].UserID)
	assert.Equal(t, "golang jakarta", out[0].SearchTerm)
	assert.NotEmpty(t, out[0].ID)

	stored, err := listings.ListBySearch(ctx, "u1", "golang jakarta")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	cached, ok := cache.Get(ctx, "u1", "golang jakarta")
	require.True(t, ok)
	assert.Len(t, cached, 2)
}

func TestSearch_CacheHitSkipsScraper(t *testing.T) {
	t.Parallel()
	svc, scraper, _, _ := newSearchFixture()
	ctx := context.Background()

	_, err := svc.Search(ctx, "u1", "golang jakarta")
	require.NoError(t, err)
	_, err = svc.Search(ctx, "u1", "golang jakarta")
	require.NoError(t, err)
	assert.Equal(t, 1, scraper.calls)

	// A different user misses the cache.
	_, err = svc.Search(ctx, "u2", "golang jakarta")
	require.NoError(t, err)
	assert.Equal(t, 2, scraper.calls)
}

func TestSearch_PersistFailureDoesNotFailSearch(t *testing.T) {
	t.Parallel()
	svc, _, _, listings := newSearchFixture()
	ctx := context.Background()
	listings.createErr = errors.New("db down")

	out, err := svc.Search(ctx, "u1", "golang jakarta")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Empty(t, out[0].ID)
}

func TestSearch_ScraperError(t *testing.T) {
	t.Parallel()
	svc, scraper, _, _ := newSearchFixture()
	scraper.err = domain.ErrUpstreamTimeout

	_, err := svc.Search(context.Background(), "u1", "golang jakarta")
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newSearchFixture()
	ctx := context.Background()

	_, err := svc.Search(ctx, "", "golang")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Search(ctx, "u1", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDeleteJob_OwnershipEnforced(t *testing.T) {
	t.Parallel()
	svc, _, _, listings := newSearchFixture()
	ctx := context.Background()

	ids, err := listings.CreateBatch(ctx, []domain.JobListing{{UserID: "u1", Position: "Go Engineer"}})
	require.NoError(t, err)

	err = svc.DeleteJob(ctx, "intruder", ids[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.DeleteJob(ctx, "u1", ids[0]))
}
