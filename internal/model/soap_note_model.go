package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SoapNote struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId          uuid.UUID      `gorm:"type:uuid;not null;index"`
	DocumentId         *uuid.UUID     `gorm:"type:uuid;index"`
	ProfessionalId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Subjective         datatypes.JSON `gorm:"type:jsonb;not null"`
	Objective          datatypes.JSON `gorm:"type:jsonb;not null"`
	Assessment         datatypes.JSON `gorm:"type:jsonb;not null"`
	Plan               datatypes.JSON `gorm:"type:jsonb;not null"`
	AiApproved         bool           `gorm:"default:false"`
	UserApproved       bool           `gorm:"default:false"`
	RegenerationCount  int            `gorm:"default:0"`
	ContentFingerprint string         `gorm:"type:varchar(64);not null;index"`
	ValidationFeedback string         `gorm:"type:text"`
	ContextData        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (SoapNote) TableName() string {
	return "soap_notes"
}
