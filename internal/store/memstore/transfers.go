package memstore

import (
	"context"
	"sort"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

func (s *Store) PendingTransferExists(_ context.Context, skillID, studentID, teacherID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingExists(skillID, studentID, teacherID), nil
}

func (s *Store) pendingExists(skillID, studentID, teacherID int64) bool {
	for _, t := range s.transfers {
		if t.SkillID == skillID && t.StudentID == studentID && t.TeacherID == teacherID && t.Status == models.TransferPending {
			return true
		}
	}
	return false
}

func (s *Store) CreateTransfer(_ context.Context, transfer *models.SkillTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if transfer.Status == "" {
		transfer.Status = models.TransferPending
	}
	if _, ok := s.students[transfer.StudentID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.students[transfer.TeacherID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.skills[transfer.SkillID]; !ok {
		return store.ErrNotFound
	}
	if transfer.Status == models.TransferPending && s.pendingExists(transfer.SkillID, transfer.StudentID, transfer.TeacherID) {
		return store.ErrConflict
	}
	transfer.ID = s.next("skill_transfers")
	transfer.CreatedAt = s.now()
	s.transfers[transfer.ID] = *transfer
	return nil
}

func (s *Store) TransferByID(_ context.Context, id int64) (*models.SkillTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) summary(t models.SkillTransfer) models.TransferSummary {
	learner := s.users[s.students[t.StudentID].UserID]
	teacher := s.users[s.students[t.TeacherID].UserID]
	out := models.TransferSummary{
		SkillTransfer:    t,
		SkillName:        s.skills[t.SkillID].Name,
		StudentUserID:    learner.ID,
		StudentUsername:  learner.Username,
		StudentFirstName: learner.FirstName,
		StudentLastName:  learner.LastName,
		TeacherUserID:    teacher.ID,
		TeacherUsername:  teacher.Username,
		TeacherFirstName: teacher.FirstName,
		TeacherLastName:  teacher.LastName,
	}
	for _, session := range s.sessions {
		if session.SkillTransferID != t.ID {
			continue
		}
		out.SessionsCount++
		if session.Completed {
			out.CompletedSessions++
		}
		if session.Paid {
			out.PaidSessions++
		}
	}
	return out
}

func (s *Store) TransferSummary(_ context.Context, id int64) (*models.TransferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	summary := s.summary(t)
	return &summary, nil
}

func (s *Store) ListTransfers(_ context.Context, filter models.TransferFilter) ([]models.TransferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asStudent, asTeacher := filter.AsStudent, filter.AsTeacher
	if !asStudent && !asTeacher {
		asStudent, asTeacher = true, true
	}
	items := []models.TransferSummary{}
	for _, t := range s.transfers {
		if (t.Status == models.TransferPending) != filter.Pending {
			continue
		}
		if !(asStudent && t.StudentID == filter.ProfileID) && !(asTeacher && t.TeacherID == filter.ProfileID) {
			continue
		}
		items = append(items, s.summary(t))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (s *Store) TeacherCandidates(_ context.Context, skillID, learnerID int64) ([]models.TeacherCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []models.TeacherCandidate{}
	for _, profileID := range sortedKeys(s.declared) {
		if profileID == learnerID {
			continue
		}
		for _, declared := range s.declared[profileID] {
			if declared.SkillID != skillID || declared.Type != models.SkillLearned {
				continue
			}
			if s.pendingExists(skillID, learnerID, profileID) {
				continue
			}
			user := s.users[s.students[profileID].UserID]
			items = append(items, models.TeacherCandidate{
				ProfileID:   profileID,
				UserID:      user.ID,
				Username:    user.Username,
				FirstName:   user.FirstName,
				LastName:    user.LastName,
				Points:      declared.Points,
				Description: declared.Description,
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Points < items[j].Points })
	return items, nil
}

func (s *Store) AcceptTransfer(_ context.Context, transferID int64, sessions []models.Session) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != models.TransferPending {
		return nil, store.ErrNotPending
	}
	created := make([]models.Session, 0, len(sessions))
	total := 0
	for _, session := range sessions {
		total += session.Points
		row := models.Session{
			ID:              s.next("sessions"),
			SkillTransferID: transferID,
			Title:           session.Title,
			Points:          session.Points,
			CreatedAt:       s.now(),
		}
		s.sessions[row.ID] = row
		created = append(created, row)
	}
	t.Status = models.TransferInProgress
	t.Points = total
	s.transfers[transferID] = t
	return created, nil
}

func (s *Store) DeletePendingTransfer(_ context.Context, transferID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != models.TransferPending {
		return store.ErrNotPending
	}
	delete(s.transfers, transferID)
	for id, session := range s.sessions {
		if session.SkillTransferID == transferID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) AddSession(_ context.Context, transferID int64, session models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status == models.TransferPending {
		return nil, store.ErrNotPending
	}
	row := models.Session{
		ID:              s.next("sessions"),
		SkillTransferID: transferID,
		Title:           session.Title,
		Points:          session.Points,
		CreatedAt:       s.now(),
	}
	s.sessions[row.ID] = row
	t.Points += row.Points
	s.transfers[transferID] = t
	return &row, nil
}

func (s *Store) SessionsByTransfer(_ context.Context, transferID int64) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionsOf(transferID), nil
}

func (s *Store) sessionsOf(transferID int64) []models.Session {
	sessions := []models.Session{}
	for _, id := range sortedKeys(s.sessions) {
		if s.sessions[id].SkillTransferID == transferID {
			sessions = append(sessions, s.sessions[id])
		}
	}
	return sessions
}

func (s *Store) CompleteSession(_ context.Context, transferID, sessionID int64) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.SkillTransferID != transferID {
		return nil, store.ErrNotFound
	}
	session.Completed = true
	s.sessions[sessionID] = session
	return &session, nil
}

func (s *Store) PaySession(_ context.Context, payment store.Payment) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payer, ok := s.students[payment.PayerProfileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	payee, ok := s.students[payment.PayeeProfileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	session, ok := s.sessions[payment.SessionID]
	if !ok || session.SkillTransferID != payment.TransferID {
		return nil, store.ErrNotFound
	}
	if session.Paid {
		return nil, store.ErrAlreadyPaid
	}
	if payer.Points < session.Points {
		return nil, store.ErrInsufficientPoints
	}
	payer.Points -= session.Points
	s.students[payer.ID] = payer
	payee = s.students[payee.ID]
	payee.Points += session.Points
	s.students[payee.ID] = payee
	session.Paid = true
	s.sessions[session.ID] = session
	return &session, nil
}

func (s *Store) UpdateTransferStatus(_ context.Context, transferID int64, derive store.StatusFunc) (models.TransferStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return "", store.ErrNotFound
	}
	next := derive(t.Status, s.sessionsOf(transferID))
	t.Status = next
	t.Done = next == models.TransferFinished
	s.transfers[transferID] = t
	return next, nil
}
