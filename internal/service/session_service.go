package service

import (
	"context"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowSessionResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
	}
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := entity.PatientSession{
		Id:             uuid.New(),
		PatientId:      req.PatientId,
		ProfessionalId: userId,
		Title:          req.Title,
		VisitDate:      req.VisitDate,
		CreatedAt:      time.Now(),
	}

	if err := uow.PatientSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (s *sessionService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.PatientSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.FilterBy{Field: "professional_id", Value: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session not found")
	}

	return toSessionResponse(session), nil
}

func (s *sessionService) List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.PatientSessionRepository().FindAll(ctx,
		specification.FilterBy{Field: "professional_id", Value: userId},
		specification.OrderBy{Field: "visit_date", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, toSessionResponse(session))
	}
	return result, nil
}

func (s *sessionService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.PatientSessionRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.FilterBy{Field: "professional_id", Value: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return serverutils.NewNotFoundError("session not found")
	}

	session.Title = req.Title
	session.VisitDate = req.VisitDate
	return uow.PatientSessionRepository().Update(ctx, session)
}

func toSessionResponse(session *entity.PatientSession) *dto.ShowSessionResponse {
	return &dto.ShowSessionResponse{
		Id:            session.Id,
		PatientId:     session.PatientId,
		Title:         session.Title,
		VisitDate:     session.VisitDate,
		DocumentCount: session.DocumentCount,
		NoteCount:     session.NoteCount,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}
