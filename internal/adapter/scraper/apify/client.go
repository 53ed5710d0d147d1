// Package apify implements the job scraper port against the Apify actor API.
package apify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/pkg/textx"
)

// Client runs an Apify scraping actor synchronously and maps its dataset
// items to job listings.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a scraper client. Actor runs are slow; the timeout covers a
// full synchronous run.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: 120 * time.Second},
	}
}

type actorInput struct {
	Title    string `json:"title"`
	Rows     int    `json:"rows"`
	Location string `json:"location,omitempty"`
}

type datasetItem struct {
	Title           string `json:"title"`
	CompanyName     string `json:"companyName"`
	Location        string `json:"location"`
	DescriptionText string `json:"descriptionText"`
	Salary          string `json:"salary"`
	URL             string `json:"url"`
}

// Search runs the actor for one search term and returns the scraped listings.
// UserID and IDs are left for the caller to assign.
func (c *Client) Search(ctx domain.Context, searchTerm string, maxItems int) ([]domain.JobListing, error) {
	if c.cfg.ApifyToken == "" {
		return nil, fmt.Errorf("%w: APIFY_TOKEN missing", domain.ErrInvalidArgument)
	}
	if maxItems <= 0 {
		maxItems = c.cfg.SearchMaxItems
	}

	input, err := json.Marshal(actorInput{Title: searchTerm, Rows: maxItems})
	if err != nil {
		return nil, fmt.Errorf("op=apify.Search: marshal input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		c.cfg.ApifyBaseURL, url.PathEscape(c.cfg.ApifyActorID), url.QueryEscape(c.cfg.ApifyToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("op=apify.Search: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		slog.Error("apify actor run failed", slog.String("search_term", searchTerm), slog.Any("error", err))
		return nil, fmt.Errorf("%w: op=apify.Search: %v", domain.ErrUpstreamTimeout, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("apify actor non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("search_term", searchTerm),
			slog.String("body", string(snippet)))
		return nil, fmt.Errorf("%w: op=apify.Search: actor status %d", domain.ErrExtractionFailed, resp.StatusCode)
	}

	var items []datasetItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("op=apify.Search: decode dataset: %w", err)
	}

	listings := make([]domain.JobListing, 0, len(items))
	now := time.Now().UTC()
	for _, it := range items {
		if it.Title == "" && it.DescriptionText == "" {
			continue
		}
		listings = append(listings, domain.JobListing{
			Position:    it.Title,
			Company:     it.CompanyName,
			Location:    it.Location,
			Description: textx.SanitizeText(it.DescriptionText),
			Salary:      it.Salary,
			URL:         it.URL,
			SearchTerm:  searchTerm,
			ScrapedAt:   now,
		})
	}
	observability.ScrapedListingsTotal.Add(float64(len(listings)))
	slog.Info("apify actor run complete",
		slog.String("search_term", searchTerm),
		slog.Int("items", len(listings)),
		slog.Duration("took", time.Since(start)))
	return listings, nil
}
