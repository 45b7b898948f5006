package unitofwork

import (
	"context"

	"clinical-scribe-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	PatientSessionRepository() contract.PatientSessionRepository
	DocumentRepository() contract.DocumentRepository
	SoapNoteRepository() contract.SoapNoteRepository
	NoteEmbeddingRepository() contract.NoteEmbeddingRepository
}
