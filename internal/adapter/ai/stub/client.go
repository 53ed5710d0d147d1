// Package stub provides a fast, deterministic AI client for local development.
package stub

import (
	"fmt"
	"time"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

// Client implements domain.AIClient without any network calls.
type Client struct{}

func New() *Client { return &Client{} }

// ExtractFit returns a fixed mid-strength extraction.
func (c *Client) ExtractFit(_ domain.Context, _ string, _ string) (domain.ExtractionResult, error) {
	// Simulate a tiny bit of processing latency to resemble real work
	time.Sleep(50 * time.Millisecond)
	return domain.ExtractionResult{
		Position:               "Backend Engineer",
		Company:                "Acme",
		HardRequirementsPassed: true,
		Flags: []scoring.Flag{
			scoring.FlagMetricsHeavy,
			scoring.FlagSecondarySkillMissing,
		},
		MissingSkills:    []string{"Terraform"},
		VerdictReasoning: "Solid overlap on the core stack with one minor infrastructure gap.",
		Gaps: []domain.ResumeGap{
			{Skill: "Terraform", Severity: domain.SeverityMinor, FixStrategy: "Surface any IaC exposure from past roles."},
		},
	}, nil
}

// GenerateDocument returns a short placeholder document.
func (c *Client) GenerateDocument(_ domain.Context, docType, _ string, listing domain.JobListing) (string, error) {
	time.Sleep(50 * time.Millisecond)
	return fmt.Sprintf("[stub %s for %s at %s]", docType, listing.Position, listing.Company), nil
}
