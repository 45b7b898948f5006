package implementation

import (
	"context"
	"errors"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/mapper"
	"clinical-scribe-be/internal/model"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PatientSessionMapper
}

func NewPatientSessionRepository(db *gorm.DB) contract.PatientSessionRepository {
	return &PatientSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewPatientSessionMapper(),
	}
}

func (r *PatientSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PatientSessionRepositoryImpl) Create(ctx context.Context, session *entity.PatientSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *PatientSessionRepositoryImpl) Update(ctx context.Context, session *entity.PatientSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *PatientSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PatientSession, error) {
	var m model.PatientSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PatientSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PatientSession, error) {
	var models []*model.PatientSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PatientSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.PatientSession{}).Count(&count).Error
	return count, err
}

func (r *PatientSessionRepositoryImpl) IncrementDocumentCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.PatientSession{}).
		Where("id = ?", id).
		UpdateColumn("document_count", gorm.Expr("document_count + 1")).Error
}

func (r *PatientSessionRepositoryImpl) IncrementNoteCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.PatientSession{}).
		Where("id = ?", id).
		UpdateColumn("note_count", gorm.Expr("note_count + 1")).Error
}
