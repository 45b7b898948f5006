package mapper

import (
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/model"

	"gorm.io/gorm"
)

type PatientSessionMapper struct{}

func NewPatientSessionMapper() *PatientSessionMapper {
	return &PatientSessionMapper{}
}

func (m *PatientSessionMapper) ToEntity(s *model.PatientSession) *entity.PatientSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.PatientSession{
		Id:             s.Id,
		PatientId:      s.PatientId,
		ProfessionalId: s.ProfessionalId,
		Title:          s.Title,
		VisitDate:      s.VisitDate,
		DocumentCount:  s.DocumentCount,
		NoteCount:      s.NoteCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *PatientSessionMapper) ToModel(s *entity.PatientSession) *model.PatientSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.PatientSession{
		Id:             s.Id,
		PatientId:      s.PatientId,
		ProfessionalId: s.ProfessionalId,
		Title:          s.Title,
		VisitDate:      s.VisitDate,
		DocumentCount:  s.DocumentCount,
		NoteCount:      s.NoteCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *PatientSessionMapper) ToEntities(sessions []*model.PatientSession) []*entity.PatientSession {
	entities := make([]*entity.PatientSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
