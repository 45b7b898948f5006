package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/embedding"
	"clinical-scribe-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

func newTestMessage(payload []byte) *message.Message {
	return message.NewMessage(uuid.NewString(), payload)
}

// fakeStore is a shared in-memory backing for all fake repositories.
// Specifications are interpreted by type-switching on the concrete spec
// types the services actually use.
type fakeStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*entity.User
	sessions   map[uuid.UUID]*entity.PatientSession
	documents  map[uuid.UUID]*entity.Document
	notes      map[uuid.UUID]*entity.SoapNote
	embeddings map[uuid.UUID]*entity.NoteEmbedding

	// Canned result for SearchSimilarWithScore.
	searchResults []*contract.ScoredChunk
	lastSearch    struct {
		limit     int
		threshold float64
		filter    contract.SimilarityFilter
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[uuid.UUID]*entity.User),
		sessions:   make(map[uuid.UUID]*entity.PatientSession),
		documents:  make(map[uuid.UUID]*entity.Document),
		notes:      make(map[uuid.UUID]*entity.SoapNote),
		embeddings: make(map[uuid.UUID]*entity.NoteEmbedding),
	}
}

func (s *fakeStore) hasFresh(noteId uuid.UUID, fp string) (bool, error) {
	r := &fakeEmbeddingRepo{store: s}
	return r.HasFreshEmbedding(context.Background(), noteId, fp)
}

type fakeUowFactory struct {
	store *fakeStore
}

func newFakeUowFactory(store *fakeStore) unitofwork.RepositoryFactory {
	return &fakeUowFactory{store: store}
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}
func (u *fakeUow) PatientSessionRepository() contract.PatientSessionRepository {
	return &fakeSessionRepo{store: u.store}
}
func (u *fakeUow) DocumentRepository() contract.DocumentRepository {
	return &fakeDocumentRepo{store: u.store}
}
func (u *fakeUow) SoapNoteRepository() contract.SoapNoteRepository {
	return &fakeNoteRepo{store: u.store}
}
func (u *fakeUow) NoteEmbeddingRepository() contract.NoteEmbeddingRepository {
	return &fakeEmbeddingRepo{store: u.store}
}

// --- soap note repo ---

type fakeNoteRepo struct {
	store *fakeStore
}

func (r *fakeNoteRepo) Create(ctx context.Context, note *entity.SoapNote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *note
	r.store.notes[note.Id] = &copied
	return nil
}

func (r *fakeNoteRepo) Update(ctx context.Context, note *entity.SoapNote) error {
	return r.Create(ctx, note)
}

func (r *fakeNoteRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SoapNote, error) {
	notes, err := r.FindAll(ctx, specs...)
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	return notes[0], nil
}

func (r *fakeNoteRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SoapNote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*entity.SoapNote
	for _, note := range r.store.notes {
		if note.DeletedAt != nil {
			continue
		}
		if r.matches(note, specs) {
			copied := *note
			result = append(result, &copied)
		}
	}

	orderDesc := false
	limit := 0
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			orderDesc = s.Desc
		case specification.Pagination:
			limit = s.Limit
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if orderDesc {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeNoteRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	notes, err := r.FindAll(ctx, specs...)
	return int64(len(notes)), err
}

func (r *fakeNoteRepo) matches(note *entity.SoapNote, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if note.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if note.Id == id {
					found = true
				}
			}
			if !found {
				return false
			}
		case specification.BySessionID:
			if note.SessionId != s.SessionID {
				return false
			}
		case specification.NoteOwnedByProfessional:
			if note.ProfessionalId != s.ProfessionalID {
				return false
			}
		case specification.UserApprovedOnly:
			if !note.UserApproved {
				return false
			}
		case specification.NeedsEmbedding:
			if r.hasFreshLocked(note.Id, note.ContentFingerprint) {
				return false
			}
		case specification.ByPatientID:
			session := r.store.sessions[note.SessionId]
			if session == nil || session.PatientId != s.PatientID {
				return false
			}
		case specification.FilterBy:
			switch s.Field {
			case "document_id":
				if note.DocumentId == nil || *note.DocumentId != s.Value.(uuid.UUID) {
					return false
				}
			case "session_id":
				if note.SessionId != s.Value.(uuid.UUID) {
					return false
				}
			case "professional_id":
				if note.ProfessionalId != s.Value.(uuid.UUID) {
					return false
				}
			}
		}
	}
	return true
}

func (r *fakeNoteRepo) hasFreshLocked(noteId uuid.UUID, fp string) bool {
	for _, e := range r.store.embeddings {
		if e.NoteId == noteId && e.Fingerprint == fp && e.DeletedAt == nil {
			return true
		}
	}
	return false
}

// --- note embedding repo ---

type fakeEmbeddingRepo struct {
	store *fakeStore
}

func (r *fakeEmbeddingRepo) Create(ctx context.Context, e *entity.NoteEmbedding) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *e
	r.store.embeddings[e.Id] = &copied
	return nil
}

func (r *fakeEmbeddingRepo) CreateBulk(ctx context.Context, embeddings []*entity.NoteEmbedding) error {
	for _, e := range embeddings {
		if err := r.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeEmbeddingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.embeddings, id)
	return nil
}

func (r *fakeEmbeddingRepo) DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, e := range r.store.embeddings {
		if e.NoteId == noteId {
			delete(r.store.embeddings, id)
		}
	}
	return nil
}

func (r *fakeEmbeddingRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeEmbeddingRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*entity.NoteEmbedding
	for _, e := range r.store.embeddings {
		if e.DeletedAt != nil {
			continue
		}
		if matchesEmbedding(e, specs) {
			copied := *e
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChunkIndex < result[j].ChunkIndex })
	return result, nil
}

func matchesEmbedding(e *entity.NoteEmbedding, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if e.Id != s.ID {
				return false
			}
		case specification.FilterBy:
			if s.Field == "note_id" && e.NoteId != s.Value.(uuid.UUID) {
				return false
			}
		}
	}
	return true
}

func (r *fakeEmbeddingRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeEmbeddingRepo) HasFreshEmbedding(ctx context.Context, noteId uuid.UUID, fingerprint string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.embeddings {
		if e.NoteId == noteId && e.Fingerprint == fingerprint && e.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, vec []float32, limit int, threshold float64, filter contract.SimilarityFilter) ([]*contract.ScoredChunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lastSearch.limit = limit
	r.store.lastSearch.threshold = threshold
	r.store.lastSearch.filter = filter
	return r.store.searchResults, nil
}

// --- patient session repo ---

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.PatientSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *s
	r.store.sessions[s.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.PatientSession) error {
	return r.Create(ctx, s)
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PatientSession, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PatientSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*entity.PatientSession
	for _, s := range r.store.sessions {
		if s.DeletedAt != nil {
			continue
		}
		if matchesSession(s, specs) {
			copied := *s
			result = append(result, &copied)
		}
	}
	return result, nil
}

func matchesSession(s *entity.PatientSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if s.Id != sp.ID {
				return false
			}
		case specification.FilterBy:
			switch sp.Field {
			case "professional_id":
				if s.ProfessionalId != sp.Value.(uuid.UUID) {
					return false
				}
			case "patient_id":
				if s.PatientId != sp.Value.(uuid.UUID) {
					return false
				}
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeSessionRepo) IncrementDocumentCount(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.sessions[id]; ok {
		s.DocumentCount++
	}
	return nil
}

func (r *fakeSessionRepo) IncrementNoteCount(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.sessions[id]; ok {
		s.NoteCount++
	}
	return nil
}

// --- document repo ---

type fakeDocumentRepo struct {
	store *fakeStore
}

func (r *fakeDocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *d
	r.store.documents[d.Id] = &copied
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	return r.Create(ctx, d)
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*entity.Document
	for _, d := range r.store.documents {
		if d.DeletedAt != nil {
			continue
		}
		if matchesDocument(d, specs) {
			copied := *d
			result = append(result, &copied)
		}
	}
	return result, nil
}

func matchesDocument(d *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if d.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if d.UserId != s.UserID {
				return false
			}
		case specification.BySessionID:
			if d.SessionId != s.SessionID {
				return false
			}
		case specification.FilterBy:
			if s.Field == "session_id" && d.SessionId != s.Value.(uuid.UUID) {
				return false
			}
		}
	}
	return true
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

// --- user repo ---

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *u
	r.store.users[u.Id] = &copied
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *entity.User) error {
	return r.Create(ctx, u)
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if matchesUser(u, specs) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func matchesUser(u *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != s.Email {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, u := range r.store.users {
		if matchesUser(u, specs) {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) ActivateUser(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		u.Status = entity.UserStatusActive
		u.EmailVerified = true
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		u.PasswordHash = &hash
	}
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, t *entity.UserRefreshToken) error {
	return nil
}
func (r *fakeUserRepo) FindRefreshTokenByHash(ctx context.Context, hash string) (*entity.UserRefreshToken, error) {
	return nil, nil
}
func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, hash string) error { return nil }
func (r *fakeUserRepo) RevokeAllRefreshTokens(ctx context.Context, userId uuid.UUID) error {
	return nil
}
func (r *fakeUserRepo) CreateEmailVerificationToken(ctx context.Context, t *entity.EmailVerificationToken) error {
	return nil
}
func (r *fakeUserRepo) FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error) {
	return nil, nil
}
func (r *fakeUserRepo) DeleteEmailVerificationToken(ctx context.Context, id uuid.UUID) error {
	return nil
}
func (r *fakeUserRepo) CreatePasswordResetToken(ctx context.Context, t *entity.PasswordResetToken) error {
	return nil
}
func (r *fakeUserRepo) FindPasswordResetToken(ctx context.Context, specs ...specification.Specification) (*entity.PasswordResetToken, error) {
	return nil, nil
}
func (r *fakeUserRepo) MarkTokenUsed(ctx context.Context, id uuid.UUID) error { return nil }

// --- providers ---

// fakeEmbeddingProvider returns a fixed vector and tracks concurrency so
// tests can assert the batch semaphore bound.
type fakeEmbeddingProvider struct {
	mu            sync.Mutex
	calls         int
	inFlight      int
	maxInFlight   int
	delay         time.Duration
	failContains  string
	failAllCalls  error
	vector        []float32
}

func (p *fakeEmbeddingProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	p.mu.Lock()
	p.calls++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	fail := p.failAllCalls
	failContains := p.failContains
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	if failContains != "" && strings.Contains(text, failContains) {
		return nil, errEmbedFailed
	}

	vec := p.vector
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

var errEmbedFailed = &embedError{}

type embedError struct{}

func (e *embedError) Error() string { return "embedding backend unavailable" }

// fakeLLM replies with a fixed string or error.
type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, nil)
}

// fakePublisher records queued payloads.
type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

// noopLogger satisfies logger.ILogger for tests.
type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }
