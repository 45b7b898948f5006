package contract

import (
	"context"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/specification"
)

type SoapNoteRepository interface {
	Create(ctx context.Context, note *entity.SoapNote) error
	Update(ctx context.Context, note *entity.SoapNote) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SoapNote, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SoapNote, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
