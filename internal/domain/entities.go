// Package domain holds the entities, ports and error taxonomy shared by the
// usecases and adapters.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/kerjaflow/fitscore/internal/scoring"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrExtractionFailed  = errors.New("extraction unavailable")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Resume is the user's master resume text. One per user, upserted in place.
type Resume struct {
	ID        string
	UserID    string
	Content   string
	UpdatedAt time.Time
}

// JobListing is one scraped job posting, owned by the user whose search
// produced it.
type JobListing struct {
	ID          string
	UserID      string
	Position    string
	Company     string
	Location    string
	Description string
	Salary      string
	URL         string
	SearchTerm  string
	ScrapedAt   time.Time
}

// SavedJob bookmarks a listing, optionally with user notes.
type SavedJob struct {
	ID      string
	UserID  string
	JobID   string
	Notes   string
	SavedAt time.Time
}

// Ranking is the stored fit verdict of one listing against the user's
// resume, upserted per (user, job) so re-ranking replaces the old verdict.
type Ranking struct {
	ID        string
	UserID    string
	JobID     string
	Score     int
	Outcome   scoring.Outcome
	Reasoning string
	RankedAt  time.Time
}

// Document types for generated artifacts.
const (
	DocumentTypeResume      = "resume"
	DocumentTypeCoverLetter = "cover_letter"
)

// Document is a generated tailored resume or cover letter for one listing,
// upserted per (user, job, type).
type Document struct {
	ID          string
	UserID      string
	JobID       string
	Type        string
	Content     string
	GeneratedAt time.Time
}

// Gap severities.
const (
	SeverityCritical = "CRITICAL"
	SeverityMinor    = "MINOR"
)

// ResumeGap is one skill gap with an actionable fix. Duplicates are allowed.
type ResumeGap struct {
	Skill       string `json:"skill"`
	Severity    string `json:"severity"`
	FixStrategy string `json:"fix_strategy"`
}

// ExtractionResult is what the extraction call returns for one resume/job
// pair, before the scoring engine runs.
type ExtractionResult struct {
	Position               string
	Company                string
	HardRequirementsPassed bool
	FailedCriteria         []string
	Flags                  []scoring.Flag
	VerdictReasoning       string
	MissingSkills          []string
	Gaps                   []ResumeGap
}

type AnalysisStatus string

const (
	AnalysisQueued     AnalysisStatus = "queued"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// Analysis is one fit analysis of a pasted job description against the
// user's resume. Result fields are written exactly once, when the worker
// completes the analysis; after that the record is immutable and can only
// be deleted.
type Analysis struct {
	ID        string
	UserID    string
	RawInput  string
	Status    AnalysisStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Result fields, populated on completion.
	Position               string
	Company                string
	Score                  int
	Outcome                scoring.Outcome
	HardRequirementsPassed bool
	FailedCriteria         []string
	ScoreTrace             []string
	ResumeGaps             []ResumeGap
	MissingSkills          []string
	VerdictReasoning       string
}

// AnalysisRecord carries the immutable result fields written when an
// analysis completes.
type AnalysisRecord struct {
	Position               string
	Company                string
	Score                  int
	Outcome                scoring.Outcome
	HardRequirementsPassed bool
	FailedCriteria         []string
	ScoreTrace             []string
	ResumeGaps             []ResumeGap
	MissingSkills          []string
	VerdictReasoning       string
}

// Repositories (ports)

//go:generate mockery --name=AnalysisRepository --with-expecter --filename=analysis_repository_mock.go
//go:generate mockery --name=ResumeRepository --with-expecter --filename=resume_repository_mock.go
//go:generate mockery --name=Queue --with-expecter --filename=queue_mock.go
//go:generate mockery --name=AIClient --with-expecter --filename=aiclient_mock.go

type ResumeRepository interface {
	Upsert(ctx Context, userID, content string) (string, error)
	GetByUser(ctx Context, userID string) (Resume, error)
	DeleteByUser(ctx Context, userID string) error
}

type ListingRepository interface {
	CreateBatch(ctx Context, listings []JobListing) ([]string, error)
	Get(ctx Context, id string) (JobListing, error)
	ListByUser(ctx Context, userID string) ([]JobListing, error)
	ListBySearch(ctx Context, userID, searchTerm string) ([]JobListing, error)
	Delete(ctx Context, userID, id string) error
	DeleteByUser(ctx Context, userID string) error
}

type SavedJobRepository interface {
	Toggle(ctx Context, userID, jobID string) (saved bool, err error)
	ListByUser(ctx Context, userID string) ([]SavedJob, error)
	UpdateNotes(ctx Context, userID, jobID, notes string) error
}

type RankingRepository interface {
	Upsert(ctx Context, r Ranking) (string, error)
	ListByUser(ctx Context, userID string) ([]Ranking, error)
	Delete(ctx Context, userID, id string) error
}

type DocumentRepository interface {
	Upsert(ctx Context, d Document) (string, error)
	GetForJob(ctx Context, userID, jobID, docType string) (Document, error)
	ListByUser(ctx Context, userID string) ([]Document, error)
	Delete(ctx Context, userID, id string) error
}

type AnalysisRepository interface {
	Create(ctx Context, a Analysis) (string, error)
	UpdateStatus(ctx Context, id string, status AnalysisStatus, errMsg *string) error
	Complete(ctx Context, id string, rec AnalysisRecord) error
	Get(ctx Context, id string) (Analysis, error)
	// ListByUser returns the user's analyses sorted by outcome priority
	// (MATCH, STRETCH, REJECT, then rows without an outcome) and score
	// descending within each outcome.
	ListByUser(ctx Context, userID string) ([]Analysis, error)
	Delete(ctx Context, userID, id string) error
}

// Queue (port)

type Queue interface {
	EnqueueAnalyze(ctx Context, payload AnalyzeTaskPayload) (string, error)
}

// AIClient (port)
//
// The extraction call is a non-deterministic oracle; the network and schema
// handling live behind this interface so the scoring engine and usecases can
// be tested against synthetic fixtures.
type AIClient interface {
	// ExtractFit runs the rubric prompt over a resume and job description
	// and returns the validated extraction, or a typed failure.
	ExtractFit(ctx Context, resumeText, jobDescription string) (ExtractionResult, error)
	// GenerateDocument produces a tailored resume or cover letter for a
	// listing. docType is one of the Document type constants.
	GenerateDocument(ctx Context, docType, resumeText string, listing JobListing) (string, error)
}

// Scraper (port)

type Scraper interface {
	Search(ctx Context, searchTerm string, maxItems int) ([]JobListing, error)
}

// SearchCache (port) caches scraped listings per user and search term.
type SearchCache interface {
	Get(ctx Context, userID, searchTerm string) ([]JobListing, bool)
	Set(ctx Context, userID, searchTerm string, listings []JobListing) error
}

// AnalyzeTaskPayload is the queue message for one analysis.
type AnalyzeTaskPayload struct {
	AnalysisID string `json:"analysis_id"`
	UserID     string `json:"user_id"`
	RawInput   string `json:"raw_input"`
	ResumeText string `json:"resume_text"`
}

// Context is an alias to context.Context so domain signatures read uniformly.
type Context = context.Context
