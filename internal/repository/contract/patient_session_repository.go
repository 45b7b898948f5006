package contract

import (
	"context"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PatientSessionRepository interface {
	Create(ctx context.Context, session *entity.PatientSession) error
	Update(ctx context.Context, session *entity.PatientSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PatientSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PatientSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	IncrementDocumentCount(ctx context.Context, id uuid.UUID) error
	IncrementNoteCount(ctx context.Context, id uuid.UUID) error
}
