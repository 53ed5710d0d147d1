package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/usecase"
)

// userIDHeader carries the opaque caller-supplied user identity. Ownership of
// every record is scoped to this value; there is no account system behind it.
const userIDHeader = "X-User-Id"

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Resumes    usecase.ResumeService
	Search     usecase.SearchService
	Rank       usecase.RankService
	Saved      usecase.SavedJobService
	Documents  usecase.DocumentService
	Analyses   usecase.AnalyzeService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

// decodeBody decodes a JSON request body into dst and runs struct validation.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.Cfg.MaxInputBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return fmt.Errorf("%w: validation failed (%v)", domain.ErrInvalidArgument, verrs)
	}
	return nil
}

// requireUser extracts the caller identity or writes a 400.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		writeError(w, r, fmt.Errorf("%w: %s header required", domain.ErrInvalidArgument, userIDHeader), nil)
		return "", false
	}
	if res := ValidateUserID(uid); !res.Valid {
		writeError(w, r, fmt.Errorf("%w: invalid user id", domain.ErrInvalidArgument), res.Errors)
		return "", false
	}
	return uid, true
}

// ResumeSaveHandler stores or replaces the user's master resume.
func (s *Server) ResumeSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Content string `json:"content" validate:"required"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		id, err := s.Resumes.Save(r.Context(), uid, req.Content)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

// ResumeGetHandler returns the user's resume.
func (s *Server) ResumeGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		resume, err := s.Resumes.Get(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         resume.ID,
			"content":    resume.Content,
			"updated_at": resume.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
}

// ResumeDeleteHandler removes the user's resume.
func (s *Server) ResumeDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := s.Resumes.Delete(r.Context(), uid); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SearchHandler scrapes listings for a search term.
func (s *Server) SearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			SearchTerm string `json:"search_term" validate:"required,max=200"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if res := ValidateSearchTerm(req.SearchTerm); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid search term", domain.ErrInvalidArgument), res.Errors)
			return
		}
		listings, err := s.Search.Search(r.Context(), uid, req.SearchTerm)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": listingBodies(listings)})
	}
}

// ListJobsHandler returns the user's scraped listings.
func (s *Server) ListJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		listings, err := s.Search.ListJobs(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": listingBodies(listings)})
	}
}

// DeleteJobHandler removes one listing.
func (s *Server) DeleteJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := s.Search.DeleteJob(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RankSearchHandler scores every listing under a search term.
func (s *Server) RankSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			SearchTerm string `json:"search_term" validate:"required,max=200"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		rankings, err := s.Rank.RankSearch(r.Context(), uid, req.SearchTerm)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rankings": rankingBodies(rankings)})
	}
}

// ListRankingsHandler returns the user's rankings in verdict order.
func (s *Server) ListRankingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		rankings, err := s.Rank.List(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rankings": rankingBodies(rankings)})
	}
}

// DeleteRankingHandler removes one ranking.
func (s *Server) DeleteRankingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := s.Rank.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleSavedHandler bookmarks or un-bookmarks a listing.
func (s *Server) ToggleSavedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			JobID string `json:"job_id" validate:"required"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		saved, err := s.Saved.Toggle(r.Context(), uid, req.JobID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job_id": req.JobID, "saved": saved})
	}
}

// ListSavedHandler returns the user's saved jobs.
func (s *Server) ListSavedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		saved, err := s.Saved.List(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(saved))
		for _, sj := range saved {
			out = append(out, map[string]any{
				"id":       sj.ID,
				"job_id":   sj.JobID,
				"notes":    sj.Notes,
				"saved_at": sj.SavedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"saved_jobs": out})
	}
}

// UpdateNotesHandler replaces the notes on a saved job.
func (s *Server) UpdateNotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			JobID string `json:"job_id" validate:"required"`
			Notes string `json:"notes" validate:"max=5000"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := s.Saved.UpdateNotes(r.Context(), uid, req.JobID, req.Notes); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GenerateDocumentHandler generates a tailored resume or cover letter.
func (s *Server) GenerateDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			JobID string `json:"job_id" validate:"required"`
			Type  string `json:"type" validate:"required,oneof=resume cover_letter"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		d, err := s.Documents.Generate(r.Context(), uid, req.JobID, req.Type)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, documentBody(d))
	}
}

// ListDocumentsHandler returns the user's generated documents.
func (s *Server) ListDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		docs, err := s.Documents.List(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			out = append(out, documentBody(d))
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": out})
	}
}

// DeleteDocumentHandler removes one document.
func (s *Server) DeleteDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := s.Documents.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AnalyzeHandler accepts a pasted job description and enqueues an analysis.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			JobDescription string `json:"job_description" validate:"required"`
		}
		if err := s.decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		id, err := s.Analyses.Submit(r.Context(), uid, req.JobDescription)
		if err != nil {
			writeError(w, r, fmt.Errorf("submit: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.AnalysisQueued)})
	}
}

// ListAnalysesHandler returns the user's analyses in verdict order.
func (s *Server) ListAnalysesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		analyses, err := s.Analyses.List(r.Context(), uid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(analyses))
		for _, a := range analyses {
			item := map[string]any{
				"id":         a.ID,
				"status":     string(a.Status),
				"created_at": a.CreatedAt.UTC().Format(time.RFC3339),
			}
			if a.Status == domain.AnalysisCompleted {
				item["position"] = a.Position
				item["company"] = a.Company
				item["score"] = a.Score
				item["outcome"] = string(a.Outcome)
			}
			out = append(out, item)
		}
		writeJSON(w, http.StatusOK, map[string]any{"analyses": out})
	}
}

// AnalysisResultHandler returns one analysis with conditional ETag handling.
func (s *Server) AnalysisResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		status, body, etag, err := s.Analyses.Fetch(r.Context(), uid, id, r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, body)
	}
}

// DeleteAnalysisHandler removes one analysis.
func (s *Server) DeleteAnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := s.Analyses.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReadyzHandler probes the database and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func listingBodies(listings []domain.JobListing) []map[string]any {
	out := make([]map[string]any, 0, len(listings))
	for _, l := range listings {
		out = append(out, map[string]any{
			"id":          l.ID,
			"position":    l.Position,
			"company":     l.Company,
			"location":    l.Location,
			"description": l.Description,
			"salary":      l.Salary,
			"url":         l.URL,
			"search_term": l.SearchTerm,
			"scraped_at":  l.ScrapedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func rankingBodies(rankings []domain.Ranking) []map[string]any {
	out := make([]map[string]any, 0, len(rankings))
	for _, rk := range rankings {
		out = append(out, map[string]any{
			"id":        rk.ID,
			"job_id":    rk.JobID,
			"score":     rk.Score,
			"outcome":   string(rk.Outcome),
			"reasoning": rk.Reasoning,
			"ranked_at": rk.RankedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func documentBody(d domain.Document) map[string]any {
	return map[string]any{
		"id":           d.ID,
		"job_id":       d.JobID,
		"type":         d.Type,
		"content":      d.Content,
		"generated_at": d.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
