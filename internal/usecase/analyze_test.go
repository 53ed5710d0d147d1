package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

func newAnalyzeFixture() (AnalyzeService, *fakeAnalyses, *fakeResumes, *fakeQueue, *fakeAI) {
	analyses := newFakeAnalyses()
	resumes := newFakeResumes()
	queue := &fakeQueue{}
	ai := &fakeAI{
		extraction: domain.ExtractionResult{
			Position:               "Backend Engineer",
			Company:                "Acme",
			HardRequirementsPassed: true,
			Flags:                  []scoring.Flag{scoring.FlagMetricsHeavy},
			VerdictReasoning:       "solid match",
		},
	}
	return NewAnalyzeService(analyses, resumes, queue, ai), analyses, resumes, queue, ai
}

func TestAnalyzeSubmit_EnqueuesTask(t *testing.T) {
	t.Parallel()
	svc, analyses, resumes, queue, _ := newAnalyzeFixture()
	ctx := context.Background()
	_, err := resumes.Upsert(ctx, "u1", "Go engineer, 8 years")
	require.NoError(t, err)

	id, err := svc.Submit(ctx, "u1", "Senior Go Engineer at Acme")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	a, err := analyses.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisQueued, a.Status)

	require.Len(t, queue.payloads, 1)
	assert.Equal(t, id, queue.payloads[0].AnalysisID)
	assert.Equal(t, "Go engineer, 8 years", queue.payloads[0].ResumeText)
}

func TestAnalyzeSubmit_Validation(t *testing.T) {
	t.Parallel()
	svc, _, resumes, _, _ := newAnalyzeFixture()
	ctx := context.Background()

	_, err := svc.Submit(ctx, "", "some job")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Submit(ctx, "u1", "   \n\t ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// No resume stored for the user.
	_, err = svc.Submit(ctx, "u1", "a job description")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = resumes.Upsert(ctx, "u2", "resume")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u2", "another job")
	assert.NoError(t, err)
}

func TestAnalyzeSubmit_EnqueueFailureMarksFailed(t *testing.T) {
	t.Parallel()
	svc, analyses, resumes, queue, _ := newAnalyzeFixture()
	ctx := context.Background()
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	queue.err = errors.New("broker down")

	_, err = svc.Submit(ctx, "u1", "a job description")
	require.Error(t, err)

	// The row was created and then marked failed.
	list, err := analyses.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.AnalysisFailed, list[0].Status)
}

func TestAnalyzeProcess_CompletesWithScore(t *testing.T) {
	t.Parallel()
	svc, analyses, resumes, queue, _ := newAnalyzeFixture()
	ctx := context.Background()
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	id, err := svc.Submit(ctx, "u1", "a job description")
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, queue.payloads[0]))

	a, err := analyses.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisCompleted, a.Status)
	assert.Equal(t, 100, a.Score)
	assert.Equal(t, scoring.OutcomeMatch, a.Outcome)
	assert.Equal(t, "Backend Engineer", a.Position)
	require.NotEmpty(t, a.ScoreTrace)
	assert.Equal(t, "start: 100", a.ScoreTrace[0])
}

func TestAnalyzeProcess_KillSwitch(t *testing.T) {
	t.Parallel()
	svc, analyses, resumes, queue, ai := newAnalyzeFixture()
	ctx := context.Background()
	ai.extraction = domain.ExtractionResult{
		Position:               "Staff Engineer",
		Company:                "Acme",
		HardRequirementsPassed: false,
		FailedCriteria:         []string{"10 years Rust"},
		Flags:                  []scoring.Flag{scoring.FlagMetricsHeavy},
		VerdictReasoning:       "missing mandatory experience",
	}
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	id, err := svc.Submit(ctx, "u1", "a job description")
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, queue.payloads[0]))

	a, err := analyses.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, scoring.OutcomeReject, a.Outcome)
	assert.Equal(t, []string{"rejected by kill switch"}, a.ScoreTrace)
}

func TestAnalyzeProcess_ExtractionFailureMarksFailed(t *testing.T) {
	t.Parallel()
	svc, analyses, resumes, queue, ai := newAnalyzeFixture()
	ctx := context.Background()
	ai.extractErr = domain.ErrUpstreamRateLimit
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	id, err := svc.Submit(ctx, "u1", "a job description")
	require.NoError(t, err)

	err = svc.Process(ctx, queue.payloads[0])
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)

	a, err := analyses.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisFailed, a.Status)
	assert.Contains(t, a.Error, "rate limit")
}

func TestAnalyzeFetch_QueuedThenCompleted(t *testing.T) {
	t.Parallel()
	svc, _, resumes, queue, _ := newAnalyzeFixture()
	ctx := context.Background()
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	id, err := svc.Submit(ctx, "u1", "a job description")
	require.NoError(t, err)

	code, body, etag, err := svc.Fetch(ctx, "u1", id, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "queued", body["status"])
	require.NotEmpty(t, etag)

	// Conditional fetch with a matching ETag short-circuits.
	code, body, _, err = svc.Fetch(ctx, "u1", id, etag)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, code)
	assert.Nil(t, body)

	require.NoError(t, svc.Process(ctx, queue.payloads[0]))

	code, body, etag2, err := svc.Fetch(ctx, "u1", id, etag)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])
	assert.NotEqual(t, etag, etag2)

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 100, result["score"])
	assert.Equal(t, "MATCH", result["outcome"])
}

func TestAnalyzeFetch_OwnershipAndMissing(t *testing.T) {
	t.Parallel()
	svc, _, resumes, _, _ := newAnalyzeFixture()
	ctx := context.Background()
	_, err := resumes.Upsert(ctx, "u1", "resume text")
	require.NoError(t, err)
	id, err := svc.Submit(ctx, "u1", "a job description")
	require.NoError(t, err)

	code, _, _, err := svc.Fetch(ctx, "intruder", id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	code, _, _, err = svc.Fetch(ctx, "u1", "no-such-id", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyzeFetch_StaleQueuedMarkedFailed(t *testing.T) {
	t.Parallel()
	svc, analyses, _, _, _ := newAnalyzeFixture()
	ctx := context.Background()

	id, err := analyses.Create(ctx, domain.Analysis{UserID: "u1", Status: domain.AnalysisQueued})
	require.NoError(t, err)
	a := analyses.byID[id]
	a.CreatedAt = time.Now().UTC().Add(-3 * time.Minute)
	analyses.byID[id] = a

	code, body, _, err := svc.Fetch(ctx, "u1", id, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "failed", body["status"])

	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errBody["code"])
}

func TestErrorCodeFromMessage(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"schema invalid: missing field":        "SCHEMA_INVALID",
		"upstream rate limit":                  "UPSTREAM_RATE_LIMIT",
		"timeout: analysis exceeded 2 minutes": "UPSTREAM_TIMEOUT",
		"context deadline exceeded":            "UPSTREAM_TIMEOUT",
		"not found: analysis":                  "NOT_FOUND",
		"invalid argument: bad input":          "INVALID_ARGUMENT",
		"something unexpected":                 "INTERNAL",
	}
	for msg, want := range cases {
		assert.Equal(t, want, errorCodeFromMessage(msg), msg)
	}
}
