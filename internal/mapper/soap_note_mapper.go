package mapper

import (
	"encoding/json"
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SoapNoteMapper struct{}

func NewSoapNoteMapper() *SoapNoteMapper {
	return &SoapNoteMapper{}
}

func sectionToJSON(s entity.NoteSection) datatypes.JSON {
	b, err := json.Marshal(s)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(b)
}

func sectionFromJSON(j datatypes.JSON) entity.NoteSection {
	var s entity.NoteSection
	if len(j) > 0 {
		_ = json.Unmarshal(j, &s)
	}
	return s
}

func (m *SoapNoteMapper) ToEntity(n *model.SoapNote) *entity.SoapNote {
	if n == nil {
		return nil
	}

	var deletedAt *time.Time
	if n.DeletedAt.Valid {
		t := n.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedAt = &t
	}

	var contextData map[string]interface{}
	if len(n.ContextData) > 0 {
		_ = json.Unmarshal(n.ContextData, &contextData)
	}

	return &entity.SoapNote{
		Id:                 n.Id,
		SessionId:          n.SessionId,
		DocumentId:         n.DocumentId,
		ProfessionalId:     n.ProfessionalId,
		Subjective:         sectionFromJSON(n.Subjective),
		Objective:          sectionFromJSON(n.Objective),
		Assessment:         sectionFromJSON(n.Assessment),
		Plan:               sectionFromJSON(n.Plan),
		AiApproved:         n.AiApproved,
		UserApproved:       n.UserApproved,
		RegenerationCount:  n.RegenerationCount,
		ContentFingerprint: n.ContentFingerprint,
		ValidationFeedback: n.ValidationFeedback,
		ContextData:        contextData,
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
	}
}

func (m *SoapNoteMapper) ToModel(n *entity.SoapNote) *model.SoapNote {
	if n == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if n.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *n.DeletedAt, Valid: true}
	}

	var updatedAt time.Time
	if n.UpdatedAt != nil {
		updatedAt = *n.UpdatedAt
	}

	var contextData datatypes.JSON
	if n.ContextData != nil {
		if b, err := json.Marshal(n.ContextData); err == nil {
			contextData = datatypes.JSON(b)
		}
	}

	return &model.SoapNote{
		Id:                 n.Id,
		SessionId:          n.SessionId,
		DocumentId:         n.DocumentId,
		ProfessionalId:     n.ProfessionalId,
		Subjective:         sectionToJSON(n.Subjective),
		Objective:          sectionToJSON(n.Objective),
		Assessment:         sectionToJSON(n.Assessment),
		Plan:               sectionToJSON(n.Plan),
		AiApproved:         n.AiApproved,
		UserApproved:       n.UserApproved,
		RegenerationCount:  n.RegenerationCount,
		ContentFingerprint: n.ContentFingerprint,
		ValidationFeedback: n.ValidationFeedback,
		ContextData:        contextData,
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
	}
}

func (m *SoapNoteMapper) ToEntities(notes []*model.SoapNote) []*entity.SoapNote {
	entities := make([]*entity.SoapNote, len(notes))
	for i, n := range notes {
		entities[i] = m.ToEntity(n)
	}
	return entities
}
