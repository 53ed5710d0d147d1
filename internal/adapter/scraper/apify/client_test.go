package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		ApifyToken:     "tok",
		ApifyBaseURL:   baseURL,
		ApifyActorID:   "actor-1",
		SearchMaxItems: 25,
	}
}

func TestSearch_MapsDatasetItems(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/acts/actor-1/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))

		var input map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "golang engineer", input["title"])
		assert.Equal(t, float64(10), input["rows"])

		_, _ = w.Write([]byte(`[
			{"title":"Go Developer","companyName":"Acme","location":"Remote","descriptionText":"Build services","salary":"$150k","url":"https://jobs/1"},
			{"title":"","companyName":"","descriptionText":""},
			{"title":"Platform Engineer","companyName":"Globex","descriptionText":"Run the platform"}
		]`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	listings, err := c.Search(context.Background(), "golang engineer", 10)
	require.NoError(t, err)
	require.Len(t, listings, 2, "empty items are dropped")
	assert.Equal(t, "Go Developer", listings[0].Position)
	assert.Equal(t, "Acme", listings[0].Company)
	assert.Equal(t, "golang engineer", listings[0].SearchTerm)
	assert.False(t, listings[0].ScrapedAt.IsZero())
}

func TestSearch_ActorFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Search(context.Background(), "golang", 5)
	require.Error(t, err)
}

func TestSearch_MissingToken(t *testing.T) {
	t.Parallel()
	cfg := testConfig("http://127.0.0.1:0")
	cfg.ApifyToken = ""
	c := New(cfg)
	_, err := c.Search(context.Background(), "golang", 5)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
