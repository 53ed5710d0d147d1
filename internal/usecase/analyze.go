// Package usecase contains application business logic services.
package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
	"github.com/kerjaflow/fitscore/pkg/textx"
)

// staleAfter is how long a queued/processing analysis may sit before a read
// marks it failed.
const staleAfter = 2 * time.Minute

// AnalyzeService orchestrates the fit-analysis flow: submission and fan-out
// on the API side, extraction and scoring on the worker side.
type AnalyzeService struct {
	Analyses domain.AnalysisRepository
	Resumes  domain.ResumeRepository
	Queue    domain.Queue
	AI       domain.AIClient
}

// NewAnalyzeService constructs an AnalyzeService with its dependencies.
func NewAnalyzeService(a domain.AnalysisRepository, r domain.ResumeRepository, q domain.Queue, ai domain.AIClient) AnalyzeService {
	return AnalyzeService{Analyses: a, Resumes: r, Queue: q, AI: ai}
}

// Submit validates the pasted job description, creates a queued analysis and
// enqueues the task. It returns the analysis id immediately; the verdict
// arrives asynchronously.
func (s AnalyzeService) Submit(ctx domain.Context, userID, rawInput string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	rawInput = textx.SanitizeText(rawInput)
	if rawInput == "" {
		return "", fmt.Errorf("%w: job description required", domain.ErrInvalidArgument)
	}

	resume, err := s.Resumes.GetByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("op=analyze.submit: %w", err)
	}
	if strings.TrimSpace(resume.Content) == "" {
		return "", fmt.Errorf("%w: resume is empty", domain.ErrInvalidArgument)
	}

	a := domain.Analysis{
		UserID:   userID,
		RawInput: rawInput,
		Status:   domain.AnalysisQueued,
	}
	id, err := s.Analyses.Create(ctx, a)
	if err != nil {
		return "", err
	}

	payload := domain.AnalyzeTaskPayload{
		AnalysisID: id,
		UserID:     userID,
		RawInput:   rawInput,
		ResumeText: resume.Content,
	}
	if _, err := s.Queue.EnqueueAnalyze(ctx, payload); err != nil {
		_ = s.Analyses.UpdateStatus(ctx, id, domain.AnalysisFailed, ptr("enqueue failed"))
		return "", err
	}
	return id, nil
}

// Process runs one dequeued analysis: extraction call, scoring engine, then
// the exactly-once completion write. Extraction failures mark the analysis
// failed rather than propagating a retry.
func (s AnalyzeService) Process(ctx domain.Context, payload domain.AnalyzeTaskPayload) error {
	if err := s.Analyses.UpdateStatus(ctx, payload.AnalysisID, domain.AnalysisProcessing, nil); err != nil {
		return fmt.Errorf("op=analyze.process: %w", err)
	}
	observability.StartProcessingJob("analyze")

	extraction, err := s.AI.ExtractFit(ctx, payload.ResumeText, payload.RawInput)
	if err != nil {
		slog.Error("extraction failed",
			slog.String("analysis_id", payload.AnalysisID),
			slog.Any("error", err))
		observability.FailJob("analyze")
		msg := err.Error()
		_ = s.Analyses.UpdateStatus(ctx, payload.AnalysisID, domain.AnalysisFailed, &msg)
		return err
	}

	res := scoring.Score(extraction.HardRequirementsPassed, extraction.Flags)
	rec := domain.AnalysisRecord{
		Position:               extraction.Position,
		Company:                extraction.Company,
		Score:                  res.Score,
		Outcome:                res.Outcome,
		HardRequirementsPassed: extraction.HardRequirementsPassed,
		FailedCriteria:         extraction.FailedCriteria,
		ScoreTrace:             res.Trace,
		ResumeGaps:             extraction.Gaps,
		MissingSkills:          extraction.MissingSkills,
		VerdictReasoning:       extraction.VerdictReasoning,
	}
	if err := s.Analyses.Complete(ctx, payload.AnalysisID, rec); err != nil {
		observability.FailJob("analyze")
		return fmt.Errorf("op=analyze.process: %w", err)
	}

	observability.CompleteJob("analyze")
	observability.ObserveAnalysis(res.Score, string(res.Outcome))
	slog.Info("analysis completed",
		slog.String("analysis_id", payload.AnalysisID),
		slog.Int("score", res.Score),
		slog.String("outcome", string(res.Outcome)))
	return nil
}

// Fetch returns the HTTP status code, response body, and ETag for one
// analysis, with conditional 304 handling and the stale-status sweep.
func (s AnalyzeService) Fetch(ctx domain.Context, userID, id, ifNoneMatch string) (int, map[string]any, string, error) {
	a, err := s.Analyses.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return http.StatusNotFound, nil, "", fmt.Errorf("%w: analysis not found", domain.ErrNotFound)
		}
		return http.StatusInternalServerError, nil, "", err
	}
	if a.UserID != userID {
		return http.StatusNotFound, nil, "", fmt.Errorf("%w: analysis not found", domain.ErrNotFound)
	}

	if a.Status != domain.AnalysisCompleted {
		// Stale timeout policy: queued/processing older than the window is
		// marked failed so clients are not left polling forever.
		now := time.Now().UTC()
		stale := (a.Status == domain.AnalysisQueued && now.Sub(a.CreatedAt) > staleAfter) ||
			(a.Status == domain.AnalysisProcessing && now.Sub(a.UpdatedAt) > staleAfter)
		if stale {
			slog.Warn("analysis marked as stale",
				slog.String("analysis_id", id),
				slog.String("status", string(a.Status)))
			msg := "timeout: analysis exceeded 2 minutes"
			_ = s.Analyses.UpdateStatus(ctx, id, domain.AnalysisFailed, &msg)
			a.Status = domain.AnalysisFailed
			a.Error = msg
		}
		m := map[string]any{"id": id, "status": string(a.Status)}
		if a.Status == domain.AnalysisFailed {
			m["error"] = map[string]any{
				"code":    errorCodeFromMessage(a.Error),
				"message": a.Error,
			}
		}
		etag := makeETag(m)
		if etag == ifNoneMatch {
			return http.StatusNotModified, nil, etag, nil
		}
		return http.StatusOK, m, etag, nil
	}

	m := map[string]any{
		"id":     id,
		"status": string(domain.AnalysisCompleted),
		"result": analysisResultBody(a),
	}
	etag := makeETag(m)
	if etag == ifNoneMatch {
		return http.StatusNotModified, nil, etag, nil
	}
	return http.StatusOK, m, etag, nil
}

// List returns the user's analyses in verdict order.
func (s AnalyzeService) List(ctx domain.Context, userID string) ([]domain.Analysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	return s.Analyses.ListByUser(ctx, userID)
}

// Delete removes one analysis owned by the user.
func (s AnalyzeService) Delete(ctx domain.Context, userID, id string) error {
	return s.Analyses.Delete(ctx, userID, id)
}

func analysisResultBody(a domain.Analysis) map[string]any {
	gaps := make([]map[string]any, 0, len(a.ResumeGaps))
	for _, g := range a.ResumeGaps {
		gaps = append(gaps, map[string]any{
			"skill":        g.Skill,
			"severity":     g.Severity,
			"fix_strategy": g.FixStrategy,
		})
	}
	return map[string]any{
		"position":                 a.Position,
		"company":                  a.Company,
		"score":                    a.Score,
		"outcome":                  string(a.Outcome),
		"hard_requirements_passed": a.HardRequirementsPassed,
		"failed_criteria":          emptyIfNil(a.FailedCriteria),
		"score_trace":              emptyIfNil(a.ScoreTrace),
		"resume_gaps":              gaps,
		"missing_skills":           emptyIfNil(a.MissingSkills),
		"verdict_reasoning":        a.VerdictReasoning,
	}
}

func makeETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// errorCodeFromMessage maps a stored failure message to a stable error code.
func errorCodeFromMessage(msg string) string {
	s := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case strings.Contains(s, "schema invalid"), strings.Contains(s, "invalid json"), strings.Contains(s, "empty content"):
		return "SCHEMA_INVALID"
	case strings.Contains(s, "rate limit"):
		return "UPSTREAM_RATE_LIMIT"
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return "UPSTREAM_TIMEOUT"
	case strings.Contains(s, "not found"):
		return "NOT_FOUND"
	case strings.Contains(s, "invalid argument"):
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func ptr(s string) *string { return &s }
