package service

import (
	"context"
	"testing"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func seedApprover(store *fakeStore, id uuid.UUID) {
	store.users[id] = &entity.User{
		Id:     id,
		Email:  "doc@example.com",
		Role:   entity.UserRoleProfessional,
		Status: entity.UserStatusActive,
	}
}

func TestSaveRecomputesFingerprintAndQueuesReembed(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())
	before := note.ContentFingerprint

	publisher := &fakePublisher{}
	svc := NewNoteService(newFakeUowFactory(store), publisher, nil)

	res, err := svc.Save(context.Background(), professionalId, &dto.SaveNoteRequest{
		Id:         note.Id,
		Subjective: "Patient reports severe headache for two days.",
		Objective:  note.Objective.Content,
		Assessment: note.Assessment.Content,
		Plan:       note.Plan.Content,
	})
	assert.NoError(t, err)
	assert.NotEqual(t, before, res.ContentFingerprint)
	assert.Equal(t, 1, publisher.count())

	// Edits leave approval flags alone.
	assert.True(t, res.UserApproved)
	assert.Equal(t, string(entity.NoteStatusApproved), res.Status)

	stored := store.notes[note.Id]
	assert.Equal(t, res.ContentFingerprint, stored.ContentFingerprint)
	assert.Equal(t, 7, stored.Subjective.WordCount)
}

func TestSaveRejectsPartialBody(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	note := seedNote(store, professionalId, true, time.Now())
	before := *store.notes[note.Id]

	publisher := &fakePublisher{}
	svc := NewNoteService(newFakeUowFactory(store), publisher, nil)

	// A body carrying only one section must not blank the other three.
	_, err := svc.Save(context.Background(), professionalId, &dto.SaveNoteRequest{
		Id:         note.Id,
		Subjective: "Edited subjective only.",
	})
	assert.Error(t, err)

	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindValidation, appErr.Kind)
	}

	stored := store.notes[note.Id]
	assert.Equal(t, before.Objective.Content, stored.Objective.Content)
	assert.Equal(t, before.Assessment.Content, stored.Assessment.Content)
	assert.Equal(t, before.Plan.Content, stored.Plan.Content)
	assert.Equal(t, before.ContentFingerprint, stored.ContentFingerprint)
	assert.Equal(t, 0, publisher.count())
}

func TestSaveRequiresPersistedNote(t *testing.T) {
	store := newFakeStore()
	svc := NewNoteService(newFakeUowFactory(store), &fakePublisher{}, nil)

	_, err := svc.Save(context.Background(), uuid.New(), &dto.SaveNoteRequest{Id: uuid.Nil})
	assert.Error(t, err)

	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindPrecondition, appErr.Kind)
	}
}

func TestApproveIsIrreversible(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	seedApprover(store, professionalId)
	note := seedNote(store, professionalId, true, time.Now())

	svc := NewNoteService(newFakeUowFactory(store), &fakePublisher{}, nil)

	_, err := svc.Approve(context.Background(), professionalId, &dto.ApproveNoteRequest{
		Id:       note.Id,
		Approved: false,
	})
	assert.Error(t, err)

	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindValidation, appErr.Kind)
	}
}

func TestApproveChangesFingerprintAndQueuesReembed(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	seedApprover(store, professionalId)
	note := seedNote(store, professionalId, false, time.Now())
	before := note.ContentFingerprint

	publisher := &fakePublisher{}
	svc := NewNoteService(newFakeUowFactory(store), publisher, nil)

	res, err := svc.Approve(context.Background(), professionalId, &dto.ApproveNoteRequest{
		Id:       note.Id,
		Approved: true,
	})
	assert.NoError(t, err)
	assert.True(t, res.UserApproved)
	assert.NotEqual(t, before, res.ContentFingerprint)
	assert.Equal(t, 1, publisher.count())
}

func TestApproveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	seedApprover(store, professionalId)
	note := seedNote(store, professionalId, true, time.Now())

	publisher := &fakePublisher{}
	svc := NewNoteService(newFakeUowFactory(store), publisher, nil)

	res, err := svc.Approve(context.Background(), professionalId, &dto.ApproveNoteRequest{
		Id:       note.Id,
		Approved: true,
	})
	assert.NoError(t, err)
	assert.True(t, res.UserApproved)

	// Already approved: no fingerprint change, no re-embed queued.
	assert.Equal(t, note.ContentFingerprint, res.ContentFingerprint)
	assert.Equal(t, 0, publisher.count())
}

func TestApproveRequiresApprovalRight(t *testing.T) {
	store := newFakeStore()
	professionalId := uuid.New()
	store.users[professionalId] = &entity.User{
		Id:     professionalId,
		Role:   entity.UserRoleProfessional,
		Status: entity.UserStatusBlocked,
	}
	note := seedNote(store, professionalId, false, time.Now())

	svc := NewNoteService(newFakeUowFactory(store), &fakePublisher{}, nil)

	_, err := svc.Approve(context.Background(), professionalId, &dto.ApproveNoteRequest{
		Id:       note.Id,
		Approved: true,
	})
	assert.Error(t, err)

	appErr, ok := serverutils.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, serverutils.KindForbidden, appErr.Kind)
	}
}

func TestShowRejectsForeignNote(t *testing.T) {
	store := newFakeStore()
	note := seedNote(store, uuid.New(), true, time.Now())

	svc := NewNoteService(newFakeUowFactory(store), &fakePublisher{}, nil)

	_, err := svc.Show(context.Background(), uuid.New(), note.Id)
	assert.Error(t, err)
}

func TestEditedSectionKeepsConfidence(t *testing.T) {
	current := entity.NoteSection{Content: "old", Confidence: 0.8, WordCount: 1}

	unchanged := editedSection(current, "old")
	assert.Equal(t, current, unchanged)

	edited := editedSection(current, "new content here")
	assert.Equal(t, "new content here", edited.Content)
	assert.Equal(t, 0.8, edited.Confidence)
	assert.Equal(t, 3, edited.WordCount)
}
