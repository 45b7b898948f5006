package implementation

import (
	"context"
	"errors"
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/mapper"
	"clinical-scribe-be/internal/model"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type NoteEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NoteEmbeddingMapper
}

func NewNoteEmbeddingRepository(db *gorm.DB) contract.NoteEmbeddingRepository {
	return &NoteEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewNoteEmbeddingMapper(),
	}
}

func (r *NoteEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *NoteEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.NoteEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *NoteEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.NoteEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := make([]*model.NoteEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *NoteEmbeddingRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.NoteEmbedding{}, id).Error
}

func (r *NoteEmbeddingRepositoryImpl) DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("note_id = ?", noteId).Delete(&model.NoteEmbedding{}).Error
}

func (r *NoteEmbeddingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error) {
	var m model.NoteEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NoteEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error) {
	var models []*model.NoteEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.NoteEmbedding, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *NoteEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.NoteEmbedding{}).Count(&count).Error
	return count, err
}

func (r *NoteEmbeddingRepositoryImpl) HasFreshEmbedding(ctx context.Context, noteId uuid.UUID, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.NoteEmbedding{}).
		Where("note_id = ?", noteId).
		Where("fingerprint = ?", fingerprint).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchSimilarWithScore runs the cosine similarity query.
// Cosine distance in pgvector is 1 - cosine_similarity, so we compute
// 1 - (embedding_value <=> query_vector). The threshold is applied before
// the limit; ordering is similarity DESC with recency as the tie-breaker so
// results are deterministic.
func (r *NoteEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, filter contract.SimilarityFilter) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.NoteEmbedding
		Similarity    float64
		NoteCreatedAt time.Time
		VisitDate     time.Time
		SessionId     uuid.UUID
		PatientId     uuid.UUID
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("note_embeddings").
		Select(`note_embeddings.*,
			1 - (embedding_value <=> ?) as similarity,
			soap_notes.created_at as note_created_at,
			patient_sessions.visit_date as visit_date,
			soap_notes.session_id as session_id,
			patient_sessions.patient_id as patient_id`, queryVector).
		Joins("JOIN soap_notes ON soap_notes.id = note_embeddings.note_id").
		Joins("JOIN patient_sessions ON patient_sessions.id = soap_notes.session_id").
		Where("note_embeddings.deleted_at IS NULL").
		Where("soap_notes.deleted_at IS NULL").
		Where("patient_sessions.deleted_at IS NULL").
		Where("soap_notes.user_approved = ?", true).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if filter.ProfessionalId != nil {
		query = query.Where("soap_notes.professional_id = ?", *filter.ProfessionalId)
	}
	if filter.PatientId != nil {
		query = query.Where("patient_sessions.patient_id = ?", *filter.PatientId)
	}
	if filter.SessionId != nil {
		query = query.Where("soap_notes.session_id = ?", *filter.SessionId)
	}
	if filter.VisitFrom != nil {
		query = query.Where("patient_sessions.visit_date >= ?", *filter.VisitFrom)
	}
	if filter.VisitTo != nil {
		query = query.Where("patient_sessions.visit_date <= ?", *filter.VisitTo)
	}
	if filter.ExcludeNoteId != nil {
		query = query.Where("note_embeddings.note_id <> ?", *filter.ExcludeNoteId)
	}

	err := query.
		Order("similarity DESC, visit_date DESC, note_created_at DESC, note_embeddings.chunk_index ASC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Embedding:     r.mapper.ToEntity(&res.NoteEmbedding),
			Similarity:    res.Similarity,
			NoteCreatedAt: res.NoteCreatedAt,
			VisitDate:     res.VisitDate,
			SessionId:     res.SessionId,
			PatientId:     res.PatientId,
		}
	}
	return scored, nil
}
