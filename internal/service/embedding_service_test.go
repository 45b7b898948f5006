package service

import (
	"context"
	"testing"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func seedNote(store *fakeStore, professionalId uuid.UUID, approved bool, createdAt time.Time) *entity.SoapNote {
	session := &entity.PatientSession{
		Id:             uuid.New(),
		PatientId:      uuid.New(),
		ProfessionalId: professionalId,
		VisitDate:      createdAt,
		CreatedAt:      createdAt,
	}
	store.sessions[session.Id] = session

	note := &entity.SoapNote{
		Id:             uuid.New(),
		SessionId:      session.Id,
		ProfessionalId: professionalId,
		Subjective:     entity.NoteSection{Content: "Patient reports mild headache.", WordCount: 4},
		Objective:      entity.NoteSection{Content: "BP 120/80, afebrile.", WordCount: 3},
		Assessment:     entity.NoteSection{Content: "Tension headache.", WordCount: 2},
		Plan:           entity.NoteSection{Content: "Hydration and rest.", WordCount: 3},
		AiApproved:     true,
		UserApproved:   approved,
		CreatedAt:      createdAt,
	}
	note.ContentFingerprint = note.Fingerprint()
	store.notes[note.Id] = note
	return note
}

func TestEmbedOneIsIdempotent(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())

	provider := &fakeEmbeddingProvider{}
	svc := NewEmbeddingService(newFakeUowFactory(store), provider, nil, noopLogger{})

	req := &dto.EmbedOneRequest{NoteId: note.Id}

	first, err := svc.EmbedOne(context.Background(), professionalId, req)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.EmbeddedCount)
	assert.Equal(t, 0, first.SkippedCount)

	// Second run with unchanged content must not touch the provider again.
	callsAfterFirst := provider.calls
	second, err := svc.EmbedOne(context.Background(), professionalId, req)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.EmbeddedCount)
	assert.Equal(t, 1, second.SkippedCount)
	assert.Equal(t, callsAfterFirst, provider.calls)
}

func TestEmbedOneForceReembeds(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())

	provider := &fakeEmbeddingProvider{}
	svc := NewEmbeddingService(newFakeUowFactory(store), provider, nil, noopLogger{})

	_, err := svc.EmbedOne(context.Background(), professionalId, &dto.EmbedOneRequest{NoteId: note.Id})
	assert.NoError(t, err)

	res, err := svc.EmbedOne(context.Background(), professionalId, &dto.EmbedOneRequest{NoteId: note.Id, ForceReembed: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.EmbeddedCount)
}

func TestEmbedOneRejectsUnownedNote(t *testing.T) {
	store := newFakeStore()
	note := seedNote(store, uuid.New(), true, time.Now())

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	_, err := svc.EmbedOne(context.Background(), uuid.New(), &dto.EmbedOneRequest{NoteId: note.Id})
	assert.Error(t, err)
}

func TestEmbedBatchRequiresExactlyOneFilter(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	sessionId := uuid.New()
	patientId := uuid.New()

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	tests := []struct {
		name    string
		req     *dto.EmbedBatchRequest
		wantErr bool
	}{
		{
			name:    "no filter",
			req:     &dto.EmbedBatchRequest{},
			wantErr: true,
		},
		{
			name:    "two filters",
			req:     &dto.EmbedBatchRequest{SessionId: &sessionId, PatientId: &patientId},
			wantErr: true,
		},
		{
			name:    "session only",
			req:     &dto.EmbedBatchRequest{SessionId: &sessionId},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.EmbedBatch(context.Background(), professionalId, tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmbedBatchPartialFailure(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()

	good := seedNote(store, professionalId, true, time.Now().Add(-2*time.Hour))
	bad := seedNote(store, professionalId, true, time.Now().Add(-1*time.Hour))
	bad.Subjective.Content = "POISON " + bad.Subjective.Content
	bad.ContentFingerprint = bad.Fingerprint()

	provider := &fakeEmbeddingProvider{failContains: "POISON"}
	svc := NewEmbeddingService(newFakeUowFactory(store), provider, nil, noopLogger{})

	res, err := svc.EmbedBatch(context.Background(), professionalId, &dto.EmbedBatchRequest{
		NoteIds: []uuid.UUID{good.Id, bad.Id},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.EmbeddedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, []uuid.UUID{good.Id}, res.EmbeddedNotes)
	if assert.Len(t, res.FailedNotes, 1) {
		assert.Equal(t, bad.Id, res.FailedNotes[0].NoteId)
		assert.Contains(t, res.FailedNotes[0].Reason, "embedding backend unavailable")
	}

	// The good note's chunks landed despite the failure next to it.
	fresh, err := store.hasFresh(good.Id, good.ContentFingerprint)
	assert.NoError(t, err)
	assert.True(t, fresh)
}

func TestEmbedBatchReportsUnapprovedAsFailed(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	draft := seedNote(store, professionalId, false, time.Now())

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	res, err := svc.EmbedBatch(context.Background(), professionalId, &dto.EmbedBatchRequest{
		NoteIds: []uuid.UUID{draft.Id},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, res.EmbeddedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Contains(t, res.FailedNotes[0].Reason, "not user-approved")
}

func TestEmbedApprovedExcludesDrafts(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	approved := seedNote(store, professionalId, true, time.Now().Add(-time.Hour))
	draft := seedNote(store, professionalId, false, time.Now())
	sessionId := approved.SessionId

	// Put the draft in the same session so a session filter catches both.
	draft.SessionId = sessionId
	store.notes[draft.Id] = draft

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	res, err := svc.EmbedApproved(context.Background(), professionalId, &dto.EmbedBatchRequest{
		SessionId:    &sessionId,
		ForceReembed: true,
	})
	assert.NoError(t, err)

	// The draft is not a candidate at all: neither embedded nor failed.
	assert.Equal(t, 1, res.EmbeddedCount)
	assert.Equal(t, 0, res.FailedCount)
	assert.Equal(t, []uuid.UUID{approved.Id}, res.EmbeddedNotes)
}

func TestEmbedBatchHonorsMaxParallel(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()

	ids := make([]uuid.UUID, 0, 6)
	for i := 0; i < 6; i++ {
		note := seedNote(store, professionalId, true, time.Now().Add(time.Duration(i)*time.Minute))
		ids = append(ids, note.Id)
	}

	provider := &fakeEmbeddingProvider{delay: 20 * time.Millisecond}
	svc := NewEmbeddingService(newFakeUowFactory(store), provider, nil, noopLogger{})

	res, err := svc.EmbedBatch(context.Background(), professionalId, &dto.EmbedBatchRequest{
		NoteIds:     ids,
		MaxParallel: 2,
	})
	assert.NoError(t, err)
	assert.Equal(t, 6, res.EmbeddedCount)
	assert.LessOrEqual(t, provider.maxInFlight, 2)
}

func TestMaxParallelClamped(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{name: "unset", requested: 0, want: 4},
		{name: "negative", requested: -1, want: 4},
		{name: "in range", requested: 2, want: 2},
		{name: "at ceiling", requested: 8, want: 8},
		{name: "over ceiling", requested: 100, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maxParallelOrDefault(tt.requested))
		})
	}
}

func TestListPendingReasons(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()

	never := seedNote(store, professionalId, true, time.Now().Add(-time.Hour))
	stale := seedNote(store, professionalId, true, time.Now())

	// Stale: an embedding exists but for an older fingerprint.
	store.embeddings[uuid.New()] = &entity.NoteEmbedding{
		Id:          uuid.New(),
		NoteId:      stale.Id,
		Fingerprint: "outdated",
		CreatedAt:   time.Now(),
	}

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	pending, err := svc.ListPending(context.Background(), professionalId, nil)
	assert.NoError(t, err)
	assert.Len(t, pending, 2)

	reasons := map[uuid.UUID]string{}
	for _, p := range pending {
		reasons[p.NoteId] = p.Reason
	}
	assert.Equal(t, "never embedded", reasons[never.Id])
	assert.Equal(t, "content changed since last embedding", reasons[stale.Id])
}

func TestListPendingOmitsFreshNotes(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())

	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	_, err := svc.EmbedOne(context.Background(), professionalId, &dto.EmbedOneRequest{NoteId: note.Id})
	assert.NoError(t, err)

	pending, err := svc.ListPending(context.Background(), professionalId, nil)
	assert.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessNoteSkipsUnapproved(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	draft := seedNote(store, professionalId, false, time.Now())

	provider := &fakeEmbeddingProvider{}
	svc := NewEmbeddingService(newFakeUowFactory(store), provider, nil, noopLogger{})

	err := svc.ProcessNote(context.Background(), draft.Id)
	assert.NoError(t, err)
	assert.Equal(t, 0, provider.calls)
}

func TestProcessNoteIgnoresMissingNote(t *testing.T) {
	store := newFakeStore()
	svc := NewEmbeddingService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, nil, noopLogger{})

	err := svc.ProcessNote(context.Background(), uuid.New())
	assert.NoError(t, err)
}
