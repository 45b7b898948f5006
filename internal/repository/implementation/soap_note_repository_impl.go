package implementation

import (
	"context"
	"errors"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/mapper"
	"clinical-scribe-be/internal/model"
	"clinical-scribe-be/internal/repository/contract"
	"clinical-scribe-be/internal/repository/specification"

	"gorm.io/gorm"
)

type SoapNoteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SoapNoteMapper
}

func NewSoapNoteRepository(db *gorm.DB) contract.SoapNoteRepository {
	return &SoapNoteRepositoryImpl{
		db:     db,
		mapper: mapper.NewSoapNoteMapper(),
	}
}

func (r *SoapNoteRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SoapNoteRepositoryImpl) Create(ctx context.Context, note *entity.SoapNote) error {
	m := r.mapper.ToModel(note)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*note = *r.mapper.ToEntity(m)
	return nil
}

func (r *SoapNoteRepositoryImpl) Update(ctx context.Context, note *entity.SoapNote) error {
	m := r.mapper.ToModel(note)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*note = *r.mapper.ToEntity(m)
	return nil
}

func (r *SoapNoteRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SoapNote, error) {
	var m model.SoapNote
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SoapNoteRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SoapNote, error) {
	var models []*model.SoapNote
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SoapNoteRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.SoapNote{}).Count(&count).Error
	return count, err
}
