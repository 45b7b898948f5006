package mapper

import (
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/model"

	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:              d.Id,
		SessionId:       d.SessionId,
		UserId:          d.UserId,
		FileName:        d.FileName,
		FileSize:        d.FileSize,
		MimeType:        d.MimeType,
		Description:     d.Description,
		StoragePath:     d.StoragePath,
		UploadStatus:    entity.DocumentUploadStatus(d.UploadStatus),
		TextExtracted:   d.TextExtracted,
		ExtractedText:   d.ExtractedText,
		WordCount:       d.WordCount,
		ExtractionError: d.ExtractionError,
		SoapRequested:   d.SoapRequested,
		SoapGenerated:   d.SoapGenerated,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:              d.Id,
		SessionId:       d.SessionId,
		UserId:          d.UserId,
		FileName:        d.FileName,
		FileSize:        d.FileSize,
		MimeType:        d.MimeType,
		Description:     d.Description,
		StoragePath:     d.StoragePath,
		UploadStatus:    string(d.UploadStatus),
		TextExtracted:   d.TextExtracted,
		ExtractedText:   d.ExtractedText,
		WordCount:       d.WordCount,
		ExtractionError: d.ExtractionError,
		SoapRequested:   d.SoapRequested,
		SoapGenerated:   d.SoapGenerated,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
