package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index"`
	FileName        string         `gorm:"type:varchar(255);not null"`
	FileSize        int64          `gorm:"not null"`
	MimeType        string         `gorm:"type:varchar(128);not null"`
	Description     string         `gorm:"type:text"`
	StoragePath     string         `gorm:"type:varchar(512)"`
	UploadStatus    string         `gorm:"type:varchar(32);not null;default:'uploaded'"`
	TextExtracted   bool           `gorm:"default:false"`
	ExtractedText   string         `gorm:"type:text"`
	WordCount       int            `gorm:"default:0"`
	ExtractionError string         `gorm:"type:text"`
	SoapRequested   bool           `gorm:"default:false"`
	SoapGenerated   bool           `gorm:"default:false"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
