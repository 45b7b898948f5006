package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/embedding"
	"clinical-scribe-be/pkg/llm"

	"github.com/google/uuid"
)

const (
	defaultTopK      = 5
	defaultThreshold = 0.35
)

const answerSystemPrompt = `You answer questions about a patient's clinical history using only the provided note excerpts. If the excerpts do not contain the answer, say so. End your reply with a line "CONFIDENCE: <0.0-1.0>" rating how well the excerpts support your answer.`

type IRetrievalService interface {
	Query(ctx context.Context, userId uuid.UUID, req *dto.RetrievalQueryRequest) (*dto.RetrievalQueryResponse, error)
	FindSimilar(ctx context.Context, userId uuid.UUID, req *dto.FindSimilarRequest) (*dto.SimilarNotesResponse, error)
	SearchBySimilarity(ctx context.Context, userId uuid.UUID, req *dto.SearchBySimilarityRequest) (*dto.SimilarNotesResponse, error)
}

type retrievalService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	llmProvider       llm.LLMProvider
}

func NewRetrievalService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
) IRetrievalService {
	return &retrievalService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		llmProvider:       llmProvider,
	}
}

// Query embeds the question, retrieves matching chunks (threshold first,
// then top_k) and asks the model for an answer over them. The answer
// confidence is the model's own rating, independent of chunk scores.
func (s *retrievalService) Query(ctx context.Context, userId uuid.UUID, req *dto.RetrievalQueryRequest) (*dto.RetrievalQueryResponse, error) {
	started := time.Now()

	queryText := strings.TrimSpace(req.QueryText)
	if queryText == "" {
		return nil, serverutils.NewPreconditionError("query text must not be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := req.SimilarityThreshold
	if threshold == 0 {
		threshold = defaultThreshold
	}

	staleIds, err := s.staleNoteIds(ctx, userId, req)
	if err != nil {
		return nil, err
	}
	if req.RequireFresh && len(staleIds) > 0 {
		return nil, serverutils.NewConflictError("approved notes are pending re-embedding, re-run embedding or drop require_fresh")
	}

	filter := contract.SimilarityFilter{
		ProfessionalId: &userId,
		PatientId:      req.PatientId,
		SessionId:      req.SessionId,
		VisitFrom:      req.DateFrom,
		VisitTo:        req.DateTo,
	}

	chunks, err := s.search(ctx, queryText, topK, threshold, filter)
	if err != nil {
		return nil, err
	}

	answer := "No matching clinical notes were found for this query."
	confidence := 0.0
	if len(chunks) > 0 {
		contextParts := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			contextParts = append(contextParts, fmt.Sprintf("Excerpt %d (visit %s):\n%s",
				i+1, chunk.Metadata["visit_date"], chunk.Content))
		}

		history := []llm.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: "Excerpts:\n\n" + strings.Join(contextParts, "\n\n") + "\n\nQuestion: " + queryText},
		}
		raw, err := s.llmProvider.Chat(ctx, history, llm.WithTemperature(0.1))
		if err != nil {
			return nil, serverutils.NewUpstreamError("answer generation failed", err)
		}
		answer, confidence = parseAnswerConfidence(raw)
	}

	return &dto.RetrievalQueryResponse{
		Answer:           answer,
		RetrievedChunks:  chunks,
		TotalChunksFound: len(chunks),
		Confidence:       confidence,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		StaleNoteIds:     staleIds,
	}, nil
}

// staleNoteIds finds approved notes in the query's scope whose content
// changed after their last embedding. Answers over them would cite
// outdated text, so the caller gets to decide whether that is acceptable.
func (s *retrievalService) staleNoteIds(ctx context.Context, userId uuid.UUID, req *dto.RetrievalQueryRequest) ([]uuid.UUID, error) {
	specs := []specification.Specification{
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
		specification.UserApprovedOnly{},
		specification.NeedsEmbedding{},
	}
	if req.SessionId != nil {
		specs = append(specs, specification.BySessionID{SessionID: *req.SessionId})
	}
	if req.PatientId != nil {
		specs = append(specs, specification.ByPatientID{PatientID: *req.PatientId})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notes, err := uow.SoapNoteRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(notes))
	for _, note := range notes {
		ids = append(ids, note.Id)
	}
	return ids, nil
}

// FindSimilar retrieves chunks similar to an existing note, excluding the
// note's own chunks from the result.
func (s *retrievalService) FindSimilar(ctx context.Context, userId uuid.UUID, req *dto.FindSimilarRequest) (*dto.SimilarNotesResponse, error) {
	if req.NoteId == uuid.Nil {
		return nil, serverutils.NewPreconditionError("note id is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.SoapNoteRepository().FindOne(ctx,
		specification.ByID{ID: req.NoteId},
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, serverutils.NewNotFoundError("note not found")
	}

	noteId := note.Id
	filter := contract.SimilarityFilter{
		ProfessionalId: &userId,
		ExcludeNoteId:  &noteId,
	}

	chunks, err := s.search(ctx, note.PlainText(), topK, defaultThreshold, filter)
	if err != nil {
		return nil, err
	}
	return &dto.SimilarNotesResponse{Chunks: chunks}, nil
}

func (s *retrievalService) SearchBySimilarity(ctx context.Context, userId uuid.UUID, req *dto.SearchBySimilarityRequest) (*dto.SimilarNotesResponse, error) {
	queryText := strings.TrimSpace(req.QueryText)
	if queryText == "" {
		return nil, serverutils.NewPreconditionError("query text must not be empty")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}

	chunks, err := s.search(ctx, queryText, topK, threshold, contract.SimilarityFilter{ProfessionalId: &userId})
	if err != nil {
		return nil, err
	}
	return &dto.SimilarNotesResponse{Chunks: chunks}, nil
}

func (s *retrievalService) search(ctx context.Context, queryText string, topK int, threshold float64, filter contract.SimilarityFilter) ([]dto.RetrievalChunk, error) {
	res, err := s.embeddingProvider.Generate(queryText, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, serverutils.NewUpstreamError("query embedding failed", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.NoteEmbeddingRepository().SearchSimilarWithScore(ctx, res.Embedding.Values, topK, threshold, filter)
	if err != nil {
		return nil, err
	}

	chunks := make([]dto.RetrievalChunk, 0, len(scored))
	for _, sc := range scored {
		chunks = append(chunks, dto.RetrievalChunk{
			ChunkId:         sc.Embedding.Id,
			Content:         sc.Embedding.Document,
			SimilarityScore: sc.Similarity,
			SourceType:      "soap_note",
			SourceId:        sc.Embedding.NoteId,
			Metadata: map[string]interface{}{
				"session_id":      sc.SessionId,
				"patient_id":      sc.PatientId,
				"chunk_index":     sc.Embedding.ChunkIndex,
				"visit_date":      sc.VisitDate.Format("2006-01-02"),
				"note_created_at": sc.NoteCreatedAt.Format(time.RFC3339),
			},
		})
	}
	return chunks, nil
}

// parseAnswerConfidence splits the trailing "CONFIDENCE: x" line off the
// model's reply. Missing or malformed ratings fall back to 0.5.
func parseAnswerConfidence(raw string) (string, float64) {
	answer := strings.TrimSpace(raw)
	confidence := 0.5

	idx := strings.LastIndex(answer, "CONFIDENCE:")
	if idx >= 0 {
		var parsed float64
		if _, err := fmt.Sscanf(answer[idx:], "CONFIDENCE: %f", &parsed); err == nil && parsed >= 0 && parsed <= 1 {
			confidence = parsed
		}
		answer = strings.TrimSpace(answer[:idx])
	}
	return answer, confidence
}
