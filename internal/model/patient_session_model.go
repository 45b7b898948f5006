package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientSession struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PatientId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	ProfessionalId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title          string         `gorm:"type:varchar(255)"`
	VisitDate      time.Time      `gorm:"not null;index"`
	DocumentCount  int            `gorm:"default:0"`
	NoteCount      int            `gorm:"default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (PatientSession) TableName() string {
	return "patient_sessions"
}
