package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:           "test",
		AnthropicAPIKey:  "sk-test",
		AnthropicBaseURL: baseURL,
		MaxPromptTokens:  12000,
	}
}

func messagesResponse(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	inner, err := json.Marshal(payload)
	require.NoError(t, err)
	outer, err := json.Marshal(map[string]any{
		"content":     []map[string]string{{"type": "text", "text": string(inner)}},
		"stop_reason": "end_turn",
	})
	require.NoError(t, err)
	return outer
}

func validExtraction() map[string]any {
	return map[string]any{
		"position":                 "Backend Engineer",
		"company":                  "Acme",
		"hard_requirements_passed": true,
		"failed_criteria":          []string{},
		"flags":                    []string{"METRICS_HEAVY", "SECONDARY_SKILL_MISSING"},
		"missing_skills":           []string{"Terraform"},
		"resume_gaps": []map[string]string{
			{"skill": "Terraform", "severity": "MINOR", "fix_strategy": "Add the infra module you maintained at your last role."},
		},
		"verdict_reasoning": "Strong overlap on the core stack with one minor gap.",
	}
}

func TestExtractFit_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body["model"])
		assert.NotNil(t, body["output_format"])

		_, _ = w.Write(messagesResponse(t, validExtraction()))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	res, err := c.ExtractFit(context.Background(), "resume text", "job description")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", res.Position)
	assert.Equal(t, "Acme", res.Company)
	assert.True(t, res.HardRequirementsPassed)
	assert.Equal(t, []scoring.Flag{scoring.FlagMetricsHeavy, scoring.FlagSecondarySkillMissing}, res.Flags)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, "MINOR", res.Gaps[0].Severity)
}

func TestExtractFit_DefaultsUnknown(t *testing.T) {
	t.Parallel()
	payload := validExtraction()
	payload["position"] = ""
	payload["company"] = "  "
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(messagesResponse(t, payload))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	res, err := c.ExtractFit(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", res.Position)
	assert.Equal(t, "Unknown", res.Company)
}

func TestExtractFit_SchemaInvalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing kill switch field", func(m map[string]any) { delete(m, "hard_requirements_passed") }},
		{"bad severity", func(m map[string]any) {
			m["resume_gaps"] = []map[string]string{{"skill": "Go", "severity": "FATAL", "fix_strategy": "x"}}
		}},
		{"empty reasoning", func(m map[string]any) { m["verdict_reasoning"] = " " }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			payload := validExtraction()
			tc.mutate(payload)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(messagesResponse(t, payload))
			}))
			defer srv.Close()

			c := New(testConfig(srv.URL), "claude-sonnet-4-5")
			_, err := c.ExtractFit(context.Background(), "resume", "job")
			require.ErrorIs(t, err, domain.ErrSchemaInvalid)
		})
	}
}

func TestExtractFit_TolerantOfFences(t *testing.T) {
	t.Parallel()
	inner, err := json.Marshal(validExtraction())
	require.NoError(t, err)
	fenced := "```json\n" + string(inner) + "\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp, merr := json.Marshal(map[string]any{
			"content": []map[string]string{{"type": "text", "text": fenced}},
		})
		require.NoError(t, merr)
		_, _ = w.Write(resp)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	res, err := c.ExtractFit(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.Company)
}

func TestExtractFit_4xxPermanent(t *testing.T) {
	t.Parallel()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	_, err := c.ExtractFit(context.Background(), "resume", "job")
	require.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Equal(t, 1, calls, "4xx must not be retried")
}

func TestExtractFit_429Retries(t *testing.T) {
	t.Parallel()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(messagesResponse(t, validExtraction()))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	res, err := c.ExtractFit(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 3)
	assert.True(t, res.HardRequirementsPassed)
}

func TestExtractFit_MissingAPIKey(t *testing.T) {
	t.Parallel()
	cfg := testConfig("http://127.0.0.1:0")
	cfg.AnthropicAPIKey = ""
	c := New(cfg, "claude-sonnet-4-5")
	_, err := c.ExtractFit(context.Background(), "resume", "job")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTruncate_CutsOnRuneBoundary(t *testing.T) {
	t.Parallel()
	c := New(testConfig("http://127.0.0.1:0"), "claude-sonnet-4-5")

	// Mixed 1/2/3-byte runes so a byte-proportional cut rarely lands on a
	// rune boundary by accident.
	text := strings.Repeat("a宇é", 1500)
	for _, budget := range []int{7, 13, 29, 61, 127} {
		got := c.truncate(text, budget)
		require.Less(t, len(got), len(text), "budget %d should truncate", budget)
		assert.True(t, utf8.ValidString(got), "budget %d split a rune", budget)
		assert.True(t, strings.HasPrefix(text, got))
	}
}

func TestTruncate_UnderBudgetUntouched(t *testing.T) {
	t.Parallel()
	c := New(testConfig("http://127.0.0.1:0"), "claude-sonnet-4-5")
	assert.Equal(t, "short input", c.truncate("short input", 1000))
	assert.Equal(t, "unlimited", c.truncate("unlimited", 0))
}

func TestGenerateDocument_PlainText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Nil(t, body["output_format"], "document generation is unstructured")
		resp, merr := json.Marshal(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "Dear hiring manager,"}},
		})
		require.NoError(t, merr)
		_, _ = w.Write(resp)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), "claude-sonnet-4-5")
	out, err := c.GenerateDocument(context.Background(), domain.DocumentTypeCoverLetter, "resume", domain.JobListing{
		Position: "SRE", Company: "Acme", Description: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager,", out)
}
