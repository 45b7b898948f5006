package service

import (
	"context"
	"testing"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func scoredChunk(noteId uuid.UUID, similarity float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Embedding: &entity.NoteEmbedding{
			Id:       uuid.New(),
			Document: "Patient counseled on statin therapy.",
			NoteId:   noteId,
		},
		Similarity:    similarity,
		NoteCreatedAt: time.Now(),
		VisitDate:     time.Now(),
		SessionId:     uuid.New(),
		PatientId:     uuid.New(),
	}
}

func TestQueryRejectsEmptyText(t *testing.T) {
	store := newFakeStore()
	provider := &fakeEmbeddingProvider{}
	svc := NewRetrievalService(newFakeUowFactory(store), provider, &fakeLLM{})

	_, err := svc.Query(context.Background(), uuid.New(), &dto.RetrievalQueryRequest{QueryText: "   "})
	assert.Error(t, err)
	assert.Equal(t, 0, provider.calls)

	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindPrecondition, appErr.Kind)
	}
}

func TestQueryWithNoMatches(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "should not be called"}
	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, model)

	res, err := svc.Query(context.Background(), uuid.New(), &dto.RetrievalQueryRequest{
		QueryText: "statin history",
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, res.TotalChunksFound)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Contains(t, res.Answer, "No matching clinical notes")
	assert.Equal(t, 0, model.calls)

	// Defaults applied when the request leaves them unset.
	assert.Equal(t, 5, store.lastSearch.limit)
	assert.Equal(t, 0.35, store.lastSearch.threshold)
}

func TestQueryParsesAnswerConfidence(t *testing.T) {
	store := newFakeStore()
	userId := uuid.New()
	store.searchResults = []*contract.ScoredChunk{scoredChunk(uuid.New(), 0.82)}

	model := &fakeLLM{reply: "The patient was started on a statin last visit.\nCONFIDENCE: 0.9"}
	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, model)

	res, err := svc.Query(context.Background(), userId, &dto.RetrievalQueryRequest{
		QueryText: "statin history",
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.TotalChunksFound)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "The patient was started on a statin last visit.", res.Answer)

	// Ownership scope always rides along.
	if assert.NotNil(t, store.lastSearch.filter.ProfessionalId) {
		assert.Equal(t, userId, *store.lastSearch.filter.ProfessionalId)
	}
}

func TestQueryConfidenceFallback(t *testing.T) {
	store := newFakeStore()
	store.searchResults = []*contract.ScoredChunk{scoredChunk(uuid.New(), 0.6)}

	model := &fakeLLM{reply: "An answer without a rating line."}
	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, model)

	res, err := svc.Query(context.Background(), uuid.New(), &dto.RetrievalQueryRequest{
		QueryText: "anything",
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.5, res.Confidence)
}

func TestQueryReportsStaleNotes(t *testing.T) {
	store := newFakeStore()
	userId := uuid.New()
	stale := seedNote(store, userId, true, time.Now())
	store.searchResults = []*contract.ScoredChunk{scoredChunk(uuid.New(), 0.7)}

	model := &fakeLLM{reply: "Answer.\nCONFIDENCE: 0.8"}
	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, model)

	// Advisory by default: the query answers and flags the stale note.
	res, err := svc.Query(context.Background(), userId, &dto.RetrievalQueryRequest{
		QueryText: "statin history",
	})
	assert.NoError(t, err)
	if assert.Len(t, res.StaleNoteIds, 1) {
		assert.Equal(t, stale.Id, res.StaleNoteIds[0])
	}

	// With require_fresh it becomes a hard gate.
	_, err = svc.Query(context.Background(), userId, &dto.RetrievalQueryRequest{
		QueryText:    "statin history",
		RequireFresh: true,
	})
	assert.Error(t, err)
	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindConflict, appErr.Kind)
	}
}

func TestQueryRequireFreshPassesWhenIndexCurrent(t *testing.T) {
	store := newFakeStore()
	userId := uuid.New()
	note := seedNote(store, userId, true, time.Now())
	embeddingId := uuid.New()
	store.embeddings[embeddingId] = &entity.NoteEmbedding{
		Id:          embeddingId,
		NoteId:      note.Id,
		Fingerprint: note.ContentFingerprint,
	}
	store.searchResults = []*contract.ScoredChunk{scoredChunk(note.Id, 0.7)}

	model := &fakeLLM{reply: "Answer.\nCONFIDENCE: 0.8"}
	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, model)

	res, err := svc.Query(context.Background(), userId, &dto.RetrievalQueryRequest{
		QueryText:    "statin history",
		RequireFresh: true,
	})
	assert.NoError(t, err)
	assert.Empty(t, res.StaleNoteIds)
}

func TestFindSimilarExcludesOwnChunks(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())
	store.searchResults = []*contract.ScoredChunk{scoredChunk(uuid.New(), 0.7)}

	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, &fakeLLM{})

	res, err := svc.FindSimilar(context.Background(), professionalId, &dto.FindSimilarRequest{
		NoteId: note.Id,
	})
	assert.NoError(t, err)
	assert.Len(t, res.Chunks, 1)

	if assert.NotNil(t, store.lastSearch.filter.ExcludeNoteId) {
		assert.Equal(t, note.Id, *store.lastSearch.filter.ExcludeNoteId)
	}
}

func TestFindSimilarRejectsForeignNote(t *testing.T) {
	store := newFakeStore()
	note := seedNote(store, uuid.New(), true, time.Now())

	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, &fakeLLM{})

	_, err := svc.FindSimilar(context.Background(), uuid.New(), &dto.FindSimilarRequest{NoteId: note.Id})
	assert.Error(t, err)
}

func TestSearchBySimilarityMapsChunks(t *testing.T) {
	store := newFakeStore()
	noteId := uuid.New()
	store.searchResults = []*contract.ScoredChunk{scoredChunk(noteId, 0.77)}

	svc := NewRetrievalService(newFakeUowFactory(store), &fakeEmbeddingProvider{}, &fakeLLM{})

	res, err := svc.SearchBySimilarity(context.Background(), uuid.New(), &dto.SearchBySimilarityRequest{
		QueryText: "lipid panel",
		TopK:      3,
		Threshold: 0.5,
	})
	assert.NoError(t, err)
	if assert.Len(t, res.Chunks, 1) {
		chunk := res.Chunks[0]
		assert.Equal(t, noteId, chunk.SourceId)
		assert.Equal(t, "soap_note", chunk.SourceType)
		assert.Equal(t, 0.77, chunk.SimilarityScore)
		assert.NotEmpty(t, chunk.Metadata["visit_date"])
	}
	assert.Equal(t, 3, store.lastSearch.limit)
	assert.Equal(t, 0.5, store.lastSearch.threshold)
}

func TestParseAnswerConfidence(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantAnswer     string
		wantConfidence float64
	}{
		{
			name:           "trailing rating",
			raw:            "The answer.\nCONFIDENCE: 0.8",
			wantAnswer:     "The answer.",
			wantConfidence: 0.8,
		},
		{
			name:           "no rating",
			raw:            "The answer.",
			wantAnswer:     "The answer.",
			wantConfidence: 0.5,
		},
		{
			name:           "out of range",
			raw:            "The answer.\nCONFIDENCE: 7",
			wantAnswer:     "The answer.",
			wantConfidence: 0.5,
		},
		{
			name:           "malformed",
			raw:            "The answer.\nCONFIDENCE: high",
			wantAnswer:     "The answer.",
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, confidence := parseAnswerConfidence(tt.raw)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.wantConfidence, confidence)
		})
	}
}
