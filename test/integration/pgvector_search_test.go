package integration

import (
	"context"
	"log"
	"math"
	"os"
	"testing"
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

const embeddingDims = 768

// unitVector builds a 768-dim unit vector in the plane of the first two
// axes, so cosine similarity against axis 0 is exactly x.
func unitVector(x float64) []float32 {
	v := make([]float32, embeddingDims)
	v[0] = float32(x)
	v[1] = float32(math.Sqrt(1 - x*x))
	return v
}

func seedSearchNote(t *testing.T, uow unitofwork.UnitOfWork, professionalId uuid.UUID, visitDate time.Time, approved bool, similarity float64) *entity.SoapNote {
	t.Helper()
	ctx := context.Background()

	session := &entity.PatientSession{
		Id:             uuid.New(),
		PatientId:      uuid.New(),
		ProfessionalId: professionalId,
		Title:          "Search Ordering Visit",
		VisitDate:      visitDate,
	}
	if err := uow.PatientSessionRepository().Create(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	note := &entity.SoapNote{
		Id:             uuid.New(),
		SessionId:      session.Id,
		ProfessionalId: professionalId,
		Subjective:     entity.NoteSection{Content: "Ordering subjective.", WordCount: 2},
		Objective:      entity.NoteSection{Content: "Ordering objective.", WordCount: 2},
		Assessment:     entity.NoteSection{Content: "Ordering assessment.", WordCount: 2},
		Plan:           entity.NoteSection{Content: "Ordering plan.", WordCount: 2},
		AiApproved:     true,
		UserApproved:   approved,
	}
	note.ContentFingerprint = note.Fingerprint()
	if err := uow.SoapNoteRepository().Create(ctx, note); err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}

	err := uow.NoteEmbeddingRepository().CreateBulk(ctx, []*entity.NoteEmbedding{{
		Id:             uuid.New(),
		Document:       note.PlainText(),
		EmbeddingValue: unitVector(similarity),
		NoteId:         note.Id,
		ChunkIndex:     0,
		Fingerprint:    note.ContentFingerprint,
	}})
	if err != nil {
		t.Fatalf("Failed to create embedding: %v", err)
	}
	return note
}

func TestSearchSimilarOrdering(t *testing.T) {
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())
	ctx := context.Background()

	professionalId := uuid.New()
	user := &entity.User{
		Id:       professionalId,
		Email:    "test-ordering-" + uuid.New().String() + "@example.com",
		FullName: "Search Ordering Test User",
		Role:     entity.UserRoleProfessional,
		Status:   entity.UserStatusActive,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	now := time.Now()
	best := seedSearchNote(t, uow, professionalId, now.AddDate(0, 0, -30), true, 1.0)
	tiedRecent := seedSearchNote(t, uow, professionalId, now.AddDate(0, 0, -1), true, 0.8)
	tiedOld := seedSearchNote(t, uow, professionalId, now.AddDate(0, -6, 0), true, 0.8)
	belowThreshold := seedSearchNote(t, uow, professionalId, now, true, 0.3)
	unapproved := seedSearchNote(t, uow, professionalId, now, false, 0.95)

	query := unitVector(1.0)
	filter := contract.SimilarityFilter{ProfessionalId: &professionalId}

	// Threshold filters before the limit; ties break by recency DESC.
	scored, err := uow.NoteEmbeddingRepository().SearchSimilarWithScore(ctx, query, 10, 0.5, filter)
	assert.NoError(t, err)
	if assert.Len(t, scored, 3) {
		assert.Equal(t, best.Id, scored[0].Embedding.NoteId)
		assert.Equal(t, tiedRecent.Id, scored[1].Embedding.NoteId)
		assert.Equal(t, tiedOld.Id, scored[2].Embedding.NoteId)

		assert.InDelta(t, 1.0, scored[0].Similarity, 1e-4)
		assert.InDelta(t, 0.8, scored[1].Similarity, 1e-4)
		assert.InDelta(t, 0.8, scored[2].Similarity, 1e-4)
	}
	for _, chunk := range scored {
		assert.NotEqual(t, belowThreshold.Id, chunk.Embedding.NoteId)
		assert.NotEqual(t, unapproved.Id, chunk.Embedding.NoteId)
	}

	// The limit truncates after the threshold cut, keeping the best scores.
	top2, err := uow.NoteEmbeddingRepository().SearchSimilarWithScore(ctx, query, 2, 0.5, filter)
	assert.NoError(t, err)
	if assert.Len(t, top2, 2) {
		assert.Equal(t, best.Id, top2[0].Embedding.NoteId)
		assert.Equal(t, tiedRecent.Id, top2[1].Embedding.NoteId)
	}

	// Scoping to another professional must hide all of it.
	otherId := uuid.New()
	other, err := uow.NoteEmbeddingRepository().SearchSimilarWithScore(ctx, query, 10, 0.5, contract.SimilarityFilter{ProfessionalId: &otherId})
	assert.NoError(t, err)
	assert.Empty(t, other)
}
