package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
	"zenith-backend/pkg/logger"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	TransfersAll      = "all"
	TransfersLearning = "learning"
	TransfersTeaching = "teaching"
)

type SessionInput struct {
	Title  string
	Points int
}

// TransferDetails is a transfer seen by one of its participants.
type TransferDetails struct {
	Summary  models.TransferSummary
	Sessions []models.Session
}

// SessionResult is a mutated session and the transfer status it led to.
type SessionResult struct {
	Session models.Session
	Status  models.TransferStatus
}

type TransferService struct {
	store store.Store
	log   *zap.Logger
}

func NewTransferService(s store.Store, log *zap.Logger) *TransferService {
	return &TransferService{store: s, log: nopIfNil(log)}
}

// DeriveStatus folds the session states into the transfer status. Pending
// transfers have not been accepted and never move here.
func DeriveStatus(current models.TransferStatus, sessions []models.Session) models.TransferStatus {
	if current == models.TransferPending {
		return current
	}
	if len(sessions) == 0 {
		return models.TransferInProgress
	}
	for _, session := range sessions {
		if !session.Completed || !session.Paid {
			return models.TransferInProgress
		}
	}
	return models.TransferFinished
}

func (s *TransferService) Request(ctx context.Context, learner Student, skillID, teacherID int64) (*models.SkillTransfer, error) {
	if _, err := s.store.SkillByID(ctx, skillID); err != nil {
		return nil, translate(err, "load skill", "Skill not found")
	}
	if _, err := s.store.StudentProfileByID(ctx, teacherID); err != nil {
		return nil, translate(err, "load teacher profile", "Teacher not found")
	}
	if teacherID == learner.ProfileID {
		return nil, ErrValidation("You cannot request a skill from yourself")
	}
	exists, err := s.store.PendingTransferExists(ctx, skillID, learner.ProfileID, teacherID)
	if err != nil {
		return nil, WrapError(err, "check pending transfer")
	}
	if exists {
		return nil, ErrConflict("A pending request already exists")
	}
	transfer := &models.SkillTransfer{
		StudentID: learner.ProfileID,
		TeacherID: teacherID,
		SkillID:   skillID,
		Status:    models.TransferPending,
	}
	if err := s.store.CreateTransfer(ctx, transfer); err != nil {
		// The partial unique index settles concurrent duplicates.
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict("A pending request already exists")
		}
		return nil, translate(err, "create transfer", "Teacher not found")
	}
	s.log.Info("skill transfer requested",
		zap.Int64(logger.FieldTransferID, transfer.ID),
		zap.Int64(logger.FieldUserID, learner.UserID),
	)
	return transfer, nil
}

func (s *TransferService) TeachersSearch(ctx context.Context, learner Student, skillID int64) ([]models.TeacherCandidate, error) {
	if _, err := s.store.SkillByID(ctx, skillID); err != nil {
		return nil, translate(err, "load skill", "Skill not found")
	}
	items, err := s.store.TeacherCandidates(ctx, skillID, learner.ProfileID)
	if err != nil {
		return nil, WrapError(err, "search teachers")
	}
	return items, nil
}

func (s *TransferService) teacherTransfer(ctx context.Context, teacher Student, transferID int64) (*models.SkillTransfer, error) {
	transfer, err := s.store.TransferByID(ctx, transferID)
	if err != nil {
		return nil, translate(err, "load transfer", "Transfer not found")
	}
	if transfer.TeacherID != teacher.ProfileID {
		return nil, ErrForbidden("Only the teacher can manage this transfer")
	}
	return transfer, nil
}

func validSession(in SessionInput) (models.Session, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Session{}, ErrValidation("Session title is required")
	}
	if in.Points < 0 {
		return models.Session{}, ErrValidation("Session points cannot be negative")
	}
	return models.Session{Title: title, Points: in.Points}, nil
}

// Accept creates all sessions and moves the transfer to in_progress, or
// leaves it pending with no sessions.
func (s *TransferService) Accept(ctx context.Context, teacher Student, transferID int64, sessions []SessionInput) (*TransferDetails, error) {
	transfer, err := s.teacherTransfer(ctx, teacher, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != models.TransferPending {
		return nil, ErrValidation("Transfer is not pending")
	}
	if len(sessions) == 0 {
		return nil, ErrValidation("At least one session is required")
	}
	rows := make([]models.Session, 0, len(sessions))
	for _, in := range sessions {
		row, err := validSession(in)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := s.store.AcceptTransfer(ctx, transferID, rows); err != nil {
		return nil, translate(err, "accept transfer", "Transfer not found")
	}
	s.log.Info("skill transfer accepted",
		zap.Int64(logger.FieldTransferID, transferID),
		zap.Int("sessions", len(rows)),
	)
	return s.details(ctx, transferID)
}

func (s *TransferService) Reject(ctx context.Context, teacher Student, transferID int64) error {
	if _, err := s.teacherTransfer(ctx, teacher, transferID); err != nil {
		return err
	}
	if err := s.store.DeletePendingTransfer(ctx, transferID); err != nil {
		return translate(err, "reject transfer", "Transfer not found")
	}
	s.log.Info("skill transfer rejected", zap.Int64(logger.FieldTransferID, transferID))
	return nil
}

// AddSession appends a session to an accepted transfer. A finished transfer
// goes back to in_progress until the new session is completed and paid.
func (s *TransferService) AddSession(ctx context.Context, teacher Student, transferID int64, in SessionInput) (*SessionResult, error) {
	transfer, err := s.teacherTransfer(ctx, teacher, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status == models.TransferPending {
		return nil, ErrValidation("Transfer has not been accepted")
	}
	row, err := validSession(in)
	if err != nil {
		return nil, err
	}
	session, err := s.store.AddSession(ctx, transferID, row)
	if err != nil {
		return nil, translate(err, "add session", "Transfer not found")
	}
	status, err := s.CheckAndUpdateStatus(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: *session, Status: status}, nil
}

func (s *TransferService) CompleteSession(ctx context.Context, teacher Student, transferID, sessionID int64) (*SessionResult, error) {
	if _, err := s.teacherTransfer(ctx, teacher, transferID); err != nil {
		return nil, err
	}
	session, err := s.store.CompleteSession(ctx, transferID, sessionID)
	if err != nil {
		return nil, translate(err, "complete session", "Session not found")
	}
	status, err := s.CheckAndUpdateStatus(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: *session, Status: status}, nil
}

// PaySession moves the session price from the learner to the teacher.
func (s *TransferService) PaySession(ctx context.Context, learner Student, transferID, sessionID int64) (*SessionResult, error) {
	transfer, err := s.store.TransferByID(ctx, transferID)
	if err != nil {
		return nil, translate(err, "load transfer", "Transfer not found")
	}
	if transfer.StudentID != learner.ProfileID {
		return nil, ErrForbidden("Only the learner can pay for this transfer")
	}
	if transfer.Status == models.TransferPending {
		return nil, ErrValidation("Transfer has not been accepted")
	}
	session, err := s.store.PaySession(ctx, store.Payment{
		TransferID:     transferID,
		SessionID:      sessionID,
		PayerProfileID: transfer.StudentID,
		PayeeProfileID: transfer.TeacherID,
	})
	if err != nil {
		return nil, translate(err, "pay session", "Session not found")
	}
	s.log.Info("session paid",
		zap.Int64(logger.FieldTransferID, transferID),
		zap.Int64(logger.FieldSessionID, sessionID),
		zap.Int("points", session.Points),
	)
	status, err := s.CheckAndUpdateStatus(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: *session, Status: status}, nil
}

// CheckAndUpdateStatus re-derives the transfer status while holding the row.
func (s *TransferService) CheckAndUpdateStatus(ctx context.Context, transferID int64) (models.TransferStatus, error) {
	status, err := s.store.UpdateTransferStatus(ctx, transferID, DeriveStatus)
	if err != nil {
		return "", translate(err, "update transfer status", "Transfer not found")
	}
	if status == models.TransferFinished {
		s.log.Info("skill transfer finished", zap.Int64(logger.FieldTransferID, transferID))
	}
	return status, nil
}

func (s *TransferService) MyRequests(ctx context.Context, caller Student, direction string) ([]models.TransferSummary, error) {
	filter := models.TransferFilter{ProfileID: caller.ProfileID, Pending: true}
	switch direction {
	case "", DirectionIncoming:
		filter.AsTeacher = true
	case DirectionOutgoing:
		filter.AsStudent = true
	default:
		return nil, ErrValidation("direction must be incoming or outgoing")
	}
	items, err := s.store.ListTransfers(ctx, filter)
	if err != nil {
		return nil, WrapError(err, "list requests")
	}
	return items, nil
}

func (s *TransferService) MySkillTransfers(ctx context.Context, caller Student, kind string) ([]models.TransferSummary, error) {
	filter := models.TransferFilter{ProfileID: caller.ProfileID}
	switch kind {
	case "", TransfersAll:
		filter.AsStudent, filter.AsTeacher = true, true
	case TransfersLearning:
		filter.AsStudent = true
	case TransfersTeaching:
		filter.AsTeacher = true
	default:
		return nil, ErrValidation("type must be all, learning or teaching")
	}
	items, err := s.store.ListTransfers(ctx, filter)
	if err != nil {
		return nil, WrapError(err, "list skill transfers")
	}
	return items, nil
}

func (s *TransferService) Details(ctx context.Context, caller Student, transferID int64) (*TransferDetails, error) {
	transfer, err := s.store.TransferByID(ctx, transferID)
	if err != nil {
		return nil, translate(err, "load transfer", "Transfer not found")
	}
	if transfer.StudentID != caller.ProfileID && transfer.TeacherID != caller.ProfileID {
		return nil, ErrForbidden("You are not part of this transfer")
	}
	return s.details(ctx, transferID)
}

func (s *TransferService) details(ctx context.Context, transferID int64) (*TransferDetails, error) {
	summary, err := s.store.TransferSummary(ctx, transferID)
	if err != nil {
		return nil, translate(err, "load transfer summary", "Transfer not found")
	}
	sessions, err := s.store.SessionsByTransfer(ctx, transferID)
	if err != nil {
		return nil, WrapError(err, "load sessions")
	}
	return &TransferDetails{Summary: *summary, Sessions: sessions}, nil
}
