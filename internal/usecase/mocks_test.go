package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/kerjaflow/fitscore/internal/domain"
)

// In-memory fakes for the repository and client ports.

type fakeResumes struct {
	mu      sync.Mutex
	byUser  map[string]domain.Resume
	upserts int
}

func newFakeResumes() *fakeResumes {
	return &fakeResumes{byUser: map[string]domain.Resume{}}
}

func (f *fakeResumes) Upsert(_ domain.Context, userID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	id := fmt.Sprintf("resume-%s", userID)
	f.byUser[userID] = domain.Resume{ID: id, UserID: userID, Content: content}
	return id, nil
}

func (f *fakeResumes) GetByUser(_ domain.Context, userID string) (domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byUser[userID]
	if !ok {
		return domain.Resume{}, fmt.Errorf("%w: resume", domain.ErrNotFound)
	}
	return r, nil
}

func (f *fakeResumes) DeleteByUser(_ domain.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[userID]; !ok {
		return fmt.Errorf("%w: resume", domain.ErrNotFound)
	}
	delete(f.byUser, userID)
	return nil
}

type fakeListings struct {
	mu     sync.Mutex
	byID   map[string]domain.JobListing
	nextID int

	createErr error
}

func newFakeListings() *fakeListings {
	return &fakeListings{byID: map[string]domain.JobListing{}}
}

func (f *fakeListings) CreateBatch(_ domain.Context, listings []domain.JobListing) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		f.nextID++
		l.ID = fmt.Sprintf("job-%d", f.nextID)
		f.byID[l.ID] = l
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (f *fakeListings) Get(_ domain.Context, id string) (domain.JobListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return domain.JobListing{}, fmt.Errorf("%w: listing", domain.ErrNotFound)
	}
	return l, nil
}

func (f *fakeListings) ListByUser(_ domain.Context, userID string) ([]domain.JobListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.JobListing
	for _, l := range f.byID {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeListings) ListBySearch(_ domain.Context, userID, searchTerm string) ([]domain.JobListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.JobListing
	for _, l := range f.byID {
		if l.UserID == userID && l.SearchTerm == searchTerm {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeListings) Delete(_ domain.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.UserID != userID {
		return fmt.Errorf("%w: listing", domain.ErrNotFound)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeListings) DeleteByUser(_ domain.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, l := range f.byID {
		if l.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeSaved struct {
	mu    sync.Mutex
	byKey map[string]domain.SavedJob
}

func newFakeSaved() *fakeSaved {
	return &fakeSaved{byKey: map[string]domain.SavedJob{}}
}

func savedKey(userID, jobID string) string { return userID + "/" + jobID }

func (f *fakeSaved) Toggle(_ domain.Context, userID, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := savedKey(userID, jobID)
	if _, ok := f.byKey[key]; ok {
		delete(f.byKey, key)
		return false, nil
	}
	f.byKey[key] = domain.SavedJob{ID: key, UserID: userID, JobID: jobID}
	return true, nil
}

func (f *fakeSaved) ListByUser(_ domain.Context, userID string) ([]domain.SavedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SavedJob
	for _, s := range f.byKey {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSaved) UpdateNotes(_ domain.Context, userID, jobID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := savedKey(userID, jobID)
	s, ok := f.byKey[key]
	if !ok {
		return fmt.Errorf("%w: saved job", domain.ErrNotFound)
	}
	s.Notes = notes
	f.byKey[key] = s
	return nil
}

type fakeRankings struct {
	mu    sync.Mutex
	byKey map[string]domain.Ranking
	// upsertErr fails writes for specific job ids.
	upsertErr map[string]error
}

func newFakeRankings() *fakeRankings {
	return &fakeRankings{byKey: map[string]domain.Ranking{}}
}

func (f *fakeRankings) Upsert(_ domain.Context, r domain.Ranking) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.upsertErr[r.JobID]; ok {
		return "", err
	}
	key := r.UserID + "/" + r.JobID
	r.ID = key
	f.byKey[key] = r
	return key, nil
}

func (f *fakeRankings) ListByUser(_ domain.Context, userID string) ([]domain.Ranking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ranking
	for _, r := range f.byKey {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRankings) Delete(_ domain.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byKey[id]
	if !ok || r.UserID != userID {
		return fmt.Errorf("%w: ranking", domain.ErrNotFound)
	}
	delete(f.byKey, id)
	return nil
}

type fakeDocuments struct {
	mu    sync.Mutex
	byKey map[string]domain.Document
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{byKey: map[string]domain.Document{}}
}

func (f *fakeDocuments) Upsert(_ domain.Context, d domain.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := d.UserID + "/" + d.JobID + "/" + d.Type
	d.ID = key
	f.byKey[key] = d
	return key, nil
}

func (f *fakeDocuments) GetForJob(_ domain.Context, userID, jobID, docType string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byKey[userID+"/"+jobID+"/"+docType]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document", domain.ErrNotFound)
	}
	return d, nil
}

func (f *fakeDocuments) ListByUser(_ domain.Context, userID string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, d := range f.byKey {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) Delete(_ domain.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byKey[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("%w: document", domain.ErrNotFound)
	}
	delete(f.byKey, id)
	return nil
}

type fakeAnalyses struct {
	mu     sync.Mutex
	byID   map[string]domain.Analysis
	nextID int

	createErr   error
	completeErr error
}

func newFakeAnalyses() *fakeAnalyses {
	return &fakeAnalyses{byID: map[string]domain.Analysis{}}
}

func (f *fakeAnalyses) Create(_ domain.Context, a domain.Analysis) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	a.ID = fmt.Sprintf("analysis-%d", f.nextID)
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	f.byID[a.ID] = a
	return a.ID, nil
}

func (f *fakeAnalyses) UpdateStatus(_ domain.Context, id string, status domain.AnalysisStatus, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("%w: analysis", domain.ErrNotFound)
	}
	if a.Status == domain.AnalysisCompleted {
		return nil
	}
	a.Status = status
	if errMsg != nil {
		a.Error = *errMsg
	}
	f.byID[id] = a
	return nil
}

func (f *fakeAnalyses) Complete(_ domain.Context, id string, rec domain.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("%w: analysis", domain.ErrNotFound)
	}
	if a.Status == domain.AnalysisCompleted {
		return fmt.Errorf("%w: analysis already completed", domain.ErrConflict)
	}
	a.Status = domain.AnalysisCompleted
	a.Position = rec.Position
	a.Company = rec.Company
	a.Score = rec.Score
	a.Outcome = rec.Outcome
	a.HardRequirementsPassed = rec.HardRequirementsPassed
	a.FailedCriteria = rec.FailedCriteria
	a.ScoreTrace = rec.ScoreTrace
	a.ResumeGaps = rec.ResumeGaps
	a.MissingSkills = rec.MissingSkills
	a.VerdictReasoning = rec.VerdictReasoning
	f.byID[id] = a
	return nil
}

func (f *fakeAnalyses) Get(_ domain.Context, id string) (domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return domain.Analysis{}, fmt.Errorf("%w: analysis", domain.ErrNotFound)
	}
	return a, nil
}

func (f *fakeAnalyses) ListByUser(_ domain.Context, userID string) ([]domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Analysis
	for _, a := range f.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnalyses) Delete(_ domain.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("%w: analysis", domain.ErrNotFound)
	}
	delete(f.byID, id)
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	payloads []domain.AnalyzeTaskPayload
	err      error
}

func (f *fakeQueue) EnqueueAnalyze(_ domain.Context, payload domain.AnalyzeTaskPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, payload)
	return payload.AnalysisID, nil
}

type fakeAI struct {
	mu         sync.Mutex
	extraction domain.ExtractionResult
	extractErr error
	docContent string
	docErr     error
	calls      int
	// perJob lets tests vary behavior by job description content.
	perJobErr map[string]error
}

func (f *fakeAI) ExtractFit(_ domain.Context, _, jobDescription string) (domain.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.perJobErr[jobDescription]; ok {
		return domain.ExtractionResult{}, err
	}
	if f.extractErr != nil {
		return domain.ExtractionResult{}, f.extractErr
	}
	return f.extraction, nil
}

func (f *fakeAI) GenerateDocument(_ domain.Context, _, _ string, _ domain.JobListing) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.docErr != nil {
		return "", f.docErr
	}
	return f.docContent, nil
}

type fakeScraper struct {
	listings []domain.JobListing
	err      error
	calls    int
}

func (f *fakeScraper) Search(_ domain.Context, searchTerm string, _ int) ([]domain.JobListing, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.JobListing, len(f.listings))
	copy(out, f.listings)
	for i := range out {
		out[i].SearchTerm = searchTerm
	}
	return out, nil
}

type fakeCache struct {
	mu     sync.Mutex
	byKey  map[string][]domain.JobListing
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{byKey: map[string][]domain.JobListing{}}
}

func (f *fakeCache) Get(_ domain.Context, userID, searchTerm string) ([]domain.JobListing, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byKey[userID+"/"+searchTerm]
	return l, ok
}

func (f *fakeCache) Set(_ domain.Context, userID, searchTerm string, listings []domain.JobListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.byKey[userID+"/"+searchTerm] = listings
	return nil
}
