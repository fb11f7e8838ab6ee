package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenith-backend/internal/db"
	"zenith-backend/internal/migrations"
	"zenith-backend/internal/models"
)

// openTestPostgres connects to DATABASE_URL and applies the migrations.
// Rows are keyed by random names so runs can share one database.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || dsn == "memory" {
		t.Skip("DATABASE_URL not set")
	}
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Apply(context.Background(), conn, zap.NewNop()))
	return NewPostgres(conn)
}

func pgStudent(t *testing.T, p *Postgres, points int) models.StudentProfile {
	t.Helper()
	ctx := context.Background()
	name := "u" + uuid.NewString()[:12]
	user := &models.User{
		FirstName:    name,
		LastName:     "Tester",
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleStudent,
	}
	require.NoError(t, p.CreateUser(ctx, user, points))
	profile, err := p.StudentProfileByUserID(ctx, user.ID)
	require.NoError(t, err)
	return *profile
}

func pgSkill(t *testing.T, p *Postgres) models.Skill {
	t.Helper()
	skill, err := p.CreateSkill(context.Background(), "skill-"+uuid.NewString())
	require.NoError(t, err)
	return *skill
}

func pgTransfer(t *testing.T, p *Postgres, learner, teacher models.StudentProfile) *models.SkillTransfer {
	t.Helper()
	transfer := &models.SkillTransfer{StudentID: learner.ID, TeacherID: teacher.ID, SkillID: pgSkill(t, p).ID}
	require.NoError(t, p.CreateTransfer(context.Background(), transfer))
	return transfer
}

func pgPoints(t *testing.T, p *Postgres, profileID int64) int {
	t.Helper()
	profile, err := p.StudentProfileByID(context.Background(), profileID)
	require.NoError(t, err)
	return profile.Points
}

func finishedWhenAllSettled(current models.TransferStatus, sessions []models.Session) models.TransferStatus {
	if current == models.TransferPending {
		return current
	}
	if len(sessions) == 0 {
		return models.TransferInProgress
	}
	for _, s := range sessions {
		if !s.Completed || !s.Paid {
			return models.TransferInProgress
		}
	}
	return models.TransferFinished
}

func TestPostgresConcurrentPaysNeverOverdraw(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	learner := pgStudent(t, p, 100)
	teacher := pgStudent(t, p, 100)
	transfer := pgTransfer(t, p, learner, teacher)

	rows := make([]models.Session, 5)
	for i := range rows {
		rows[i] = models.Session{Title: "lesson", Points: 30}
	}
	sessions, err := p.AcceptTransfer(ctx, transfer.ID, rows)
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	var (
		wg                   sync.WaitGroup
		mu                   sync.Mutex
		succeeded, shortfall int
	)
	for _, session := range sessions {
		wg.Add(1)
		go func(sessionID int64) {
			defer wg.Done()
			_, err := p.PaySession(ctx, Payment{
				TransferID:     transfer.ID,
				SessionID:      sessionID,
				PayerProfileID: learner.ID,
				PayeeProfileID: teacher.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientPoints):
				shortfall++
			default:
				t.Errorf("unexpected pay error: %v", err)
			}
		}(session.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 2, shortfall)
	assert.Equal(t, 10, pgPoints(t, p, learner.ID))
	assert.Equal(t, 190, pgPoints(t, p, teacher.ID))

	stored, err := p.SessionsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	paid := 0
	for _, s := range stored {
		if s.Paid {
			paid++
		}
	}
	assert.Equal(t, 3, paid, "a rolled back pay must leave its session unpaid")

	var first models.Session
	for _, s := range stored {
		if s.Paid {
			first = s
			break
		}
	}
	_, err = p.PaySession(ctx, Payment{TransferID: transfer.ID, SessionID: first.ID, PayerProfileID: learner.ID, PayeeProfileID: teacher.ID})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = p.PaySession(ctx, Payment{TransferID: transfer.ID, SessionID: first.ID + 1_000_000, PayerProfileID: learner.ID, PayeeProfileID: teacher.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDuplicatePendingRequests(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	learner := pgStudent(t, p, 100)
	teacher := pgStudent(t, p, 100)
	skill := pgSkill(t, p)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.CreateTransfer(ctx, &models.SkillTransfer{StudentID: learner.ID, TeacherID: teacher.ID, SkillID: skill.ID})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, created)

	pending, err := p.ListTransfers(ctx, models.TransferFilter{ProfileID: learner.ID, AsStudent: true, Pending: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Once accepted the triple is free for a new pending request.
	_, err = p.AcceptTransfer(ctx, pending[0].ID, []models.Session{{Title: "intro", Points: 1}})
	require.NoError(t, err)
	require.NoError(t, p.CreateTransfer(ctx, &models.SkillTransfer{StudentID: learner.ID, TeacherID: teacher.ID, SkillID: skill.ID}))
}

func TestPostgresAcceptIsAllOrNothing(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	learner := pgStudent(t, p, 100)
	teacher := pgStudent(t, p, 100)
	transfer := pgTransfer(t, p, learner, teacher)

	// The negative row violates the points check after the first insert.
	_, err := p.AcceptTransfer(ctx, transfer.ID, []models.Session{
		{Title: "ok", Points: 10},
		{Title: "broken", Points: -1},
	})
	require.Error(t, err)
	reloaded, err := p.TransferByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, reloaded.Status)
	assert.Equal(t, 0, reloaded.Points)
	sessions, err := p.SessionsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = p.AcceptTransfer(ctx, transfer.ID, []models.Session{{Title: "a", Points: 10}, {Title: "b", Points: 15}})
	require.NoError(t, err)
	reloaded, err = p.TransferByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferInProgress, reloaded.Status)
	assert.Equal(t, 25, reloaded.Points)

	_, err = p.AcceptTransfer(ctx, transfer.ID, []models.Session{{Title: "again", Points: 5}})
	assert.ErrorIs(t, err, ErrNotPending)
	sessions, err = p.SessionsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	_, err = p.AcceptTransfer(ctx, transfer.ID+1_000_000, []models.Session{{Title: "ghost", Points: 5}})
	assert.ErrorIs(t, err, ErrNotFound)
	sessions, err = p.SessionsByTransfer(ctx, transfer.ID+1_000_000)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestPostgresDeletePendingTransfer(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	learner := pgStudent(t, p, 100)
	teacher := pgStudent(t, p, 100)

	assert.ErrorIs(t, p.DeletePendingTransfer(ctx, 1_000_000_000), ErrNotFound)

	accepted := pgTransfer(t, p, learner, teacher)
	_, err := p.AcceptTransfer(ctx, accepted.ID, []models.Session{{Title: "intro", Points: 5}})
	require.NoError(t, err)
	assert.ErrorIs(t, p.DeletePendingTransfer(ctx, accepted.ID), ErrNotPending)
	_, err = p.TransferByID(ctx, accepted.ID)
	assert.NoError(t, err)

	pending := pgTransfer(t, p, learner, teacher)
	require.NoError(t, p.DeletePendingTransfer(ctx, pending.ID))
	_, err = p.TransferByID(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStatusFoldUnderConcurrency(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	learner := pgStudent(t, p, 100)
	teacher := pgStudent(t, p, 100)
	transfer := pgTransfer(t, p, learner, teacher)

	status, err := p.UpdateTransferStatus(ctx, transfer.ID, finishedWhenAllSettled)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, status)

	sessions, err := p.AcceptTransfer(ctx, transfer.ID, []models.Session{{Title: "a", Points: 10}, {Title: "b", Points: 10}})
	require.NoError(t, err)
	for _, s := range sessions {
		_, err := p.CompleteSession(ctx, transfer.ID, s.ID)
		require.NoError(t, err)
	}

	// Pay and fold concurrently; the last fold must see every payment.
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(sessionID int64) {
			defer wg.Done()
			_, err := p.PaySession(ctx, Payment{TransferID: transfer.ID, SessionID: sessionID, PayerProfileID: learner.ID, PayeeProfileID: teacher.ID})
			assert.NoError(t, err)
			_, err = p.UpdateTransferStatus(ctx, transfer.ID, finishedWhenAllSettled)
			assert.NoError(t, err)
		}(s.ID)
	}
	wg.Wait()

	reloaded, err := p.TransferByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferFinished, reloaded.Status)
	assert.True(t, reloaded.Done)

	_, err = p.UpdateTransferStatus(ctx, transfer.ID+1_000_000, finishedWhenAllSettled)
	assert.ErrorIs(t, err, ErrNotFound)
}
