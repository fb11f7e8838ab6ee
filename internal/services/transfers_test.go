package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenith-backend/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	done := models.Session{Completed: true, Paid: true}
	cases := []struct {
		name     string
		current  models.TransferStatus
		sessions []models.Session
		want     models.TransferStatus
	}{
		{"pending untouched", models.TransferPending, []models.Session{done}, models.TransferPending},
		{"no sessions", models.TransferInProgress, nil, models.TransferInProgress},
		{"all done", models.TransferInProgress, []models.Session{done, done}, models.TransferFinished},
		{"unpaid", models.TransferInProgress, []models.Session{done, {Completed: true}}, models.TransferInProgress},
		{"incomplete", models.TransferInProgress, []models.Session{{Paid: true}}, models.TransferInProgress},
		{"finished regresses", models.TransferFinished, []models.Session{done, {}}, models.TransferInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.current, tc.sessions))
		})
	}
}

func TestSkillExchangeEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	golang := f.skill(t, "Go")

	_, err := f.skills.Replace(ctx, bob, bob.ProfileID, []StudentSkillInput{
		{SkillID: golang.ID, Type: models.SkillLearned, Points: 20, Description: "concurrency"},
	})
	require.NoError(t, err)

	candidates, err := f.transfers.TeachersSearch(ctx, alice, golang.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, bob.ProfileID, candidates[0].ProfileID)

	transfer, err := f.transfers.Request(ctx, alice, golang.ID, bob.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, transfer.Status)

	candidates, err = f.transfers.TeachersSearch(ctx, alice, golang.ID)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	_, err = f.transfers.Request(ctx, alice, golang.ID, bob.ProfileID)
	requireServiceError(t, err, http.StatusConflict)

	incoming, err := f.transfers.MyRequests(ctx, bob, DirectionIncoming)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	outgoing, err := f.transfers.MyRequests(ctx, alice, DirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)

	details, err := f.transfers.Accept(ctx, bob, transfer.ID, []SessionInput{{Title: "S1", Points: 20}})
	require.NoError(t, err)
	assert.Equal(t, models.TransferInProgress, details.Summary.Status)
	assert.Equal(t, 20, details.Summary.Points)
	require.Len(t, details.Sessions, 1)
	session := details.Sessions[0]

	completed, err := f.transfers.CompleteSession(ctx, bob, transfer.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferInProgress, completed.Status)

	paid, err := f.transfers.PaySession(ctx, alice, transfer.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferFinished, paid.Status)
	assert.Equal(t, 80, f.points(t, alice))
	assert.Equal(t, 120, f.points(t, bob))

	_, err = f.transfers.PaySession(ctx, alice, transfer.ID, session.ID)
	requireServiceError(t, err, http.StatusBadRequest)
	assert.Equal(t, 80, f.points(t, alice))

	learning, err := f.transfers.MySkillTransfers(ctx, alice, TransfersLearning)
	require.NoError(t, err)
	require.Len(t, learning, 1)
	assert.Equal(t, 1, learning[0].SessionsCount)
	assert.Equal(t, 1, learning[0].PaidSessions)
	assert.Equal(t, "bob", learning[0].TeacherUsername)

	teaching, err := f.transfers.MySkillTransfers(ctx, alice, TransfersTeaching)
	require.NoError(t, err)
	assert.Empty(t, teaching)
}

func TestRequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	skill := f.skill(t, "SQL")

	_, err := f.transfers.Request(ctx, alice, 999, alice.ProfileID)
	requireServiceError(t, err, http.StatusNotFound)
	_, err = f.transfers.Request(ctx, alice, skill.ID, 999)
	requireServiceError(t, err, http.StatusNotFound)
	_, err = f.transfers.Request(ctx, alice, skill.ID, alice.ProfileID)
	requireServiceError(t, err, http.StatusBadRequest)
}

func acceptedTransfer(t *testing.T, f *fixture, learner, teacher Student, points ...int) *TransferDetails {
	t.Helper()
	ctx := context.Background()
	skill := f.skill(t, "skill-"+learner.Username+"-"+teacher.Username)
	transfer, err := f.transfers.Request(ctx, learner, skill.ID, teacher.ProfileID)
	require.NoError(t, err)
	sessions := make([]SessionInput, 0, len(points))
	for _, p := range points {
		sessions = append(sessions, SessionInput{Title: "session", Points: p})
	}
	details, err := f.transfers.Accept(ctx, teacher, transfer.ID, sessions)
	require.NoError(t, err)
	return details
}

func TestAcceptRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	skill := f.skill(t, "Rust")
	transfer, err := f.transfers.Request(ctx, alice, skill.ID, bob.ProfileID)
	require.NoError(t, err)

	_, err = f.transfers.Accept(ctx, alice, transfer.ID, []SessionInput{{Title: "x", Points: 1}})
	requireServiceError(t, err, http.StatusForbidden)
	_, err = f.transfers.Accept(ctx, bob, transfer.ID, nil)
	requireServiceError(t, err, http.StatusBadRequest)
	_, err = f.transfers.Accept(ctx, bob, transfer.ID, []SessionInput{{Title: "ok", Points: 5}, {Title: " ", Points: 5}})
	requireServiceError(t, err, http.StatusBadRequest)
	_, err = f.transfers.Accept(ctx, bob, transfer.ID, []SessionInput{{Title: "neg", Points: -1}})
	requireServiceError(t, err, http.StatusBadRequest)

	sessions, err := f.store.SessionsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	stored, err := f.store.TransferByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, stored.Status)

	_, err = f.transfers.Accept(ctx, bob, transfer.ID, []SessionInput{{Title: "a", Points: 10}, {Title: "b", Points: 15}})
	require.NoError(t, err)
	_, err = f.transfers.Accept(ctx, bob, transfer.ID, []SessionInput{{Title: "again", Points: 1}})
	requireServiceError(t, err, http.StatusBadRequest)

	_, err = f.transfers.Accept(ctx, bob, 999, []SessionInput{{Title: "a", Points: 1}})
	requireServiceError(t, err, http.StatusNotFound)
}

func TestRejectRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	skill := f.skill(t, "Design")
	transfer, err := f.transfers.Request(ctx, alice, skill.ID, bob.ProfileID)
	require.NoError(t, err)

	requireServiceError(t, f.transfers.Reject(ctx, alice, transfer.ID), http.StatusForbidden)
	require.NoError(t, f.transfers.Reject(ctx, bob, transfer.ID))
	requireServiceError(t, f.transfers.Reject(ctx, bob, transfer.ID), http.StatusNotFound)

	accepted := acceptedTransfer(t, f, alice, bob, 5)
	requireServiceError(t, f.transfers.Reject(ctx, bob, accepted.Summary.ID), http.StatusBadRequest)
}

func TestPayInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	details := acceptedTransfer(t, f, alice, bob, 150)

	_, err := f.transfers.PaySession(ctx, alice, details.Summary.ID, details.Sessions[0].ID)
	requireServiceError(t, err, http.StatusBadRequest)
	assert.Equal(t, 100, f.points(t, alice))
	assert.Equal(t, 100, f.points(t, bob))
	sessions, err := f.store.SessionsByTransfer(ctx, details.Summary.ID)
	require.NoError(t, err)
	assert.False(t, sessions[0].Paid)

	_, err = f.transfers.PaySession(ctx, bob, details.Summary.ID, details.Sessions[0].ID)
	requireServiceError(t, err, http.StatusForbidden)
}

func TestConcurrentPaysNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	details := acceptedTransfer(t, f, alice, bob, 30, 30, 30, 30, 30)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, session := range details.Sessions {
		wg.Add(1)
		go func(sessionID int64) {
			defer wg.Done()
			if _, err := f.transfers.PaySession(ctx, alice, details.Summary.ID, sessionID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(session.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 10, f.points(t, alice))
	assert.Equal(t, 190, f.points(t, bob))
}

func TestConcurrentDuplicateRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	skill := f.skill(t, "Piano")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.transfers.Request(ctx, alice, skill.ID, bob.ProfileID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
	pending, err := f.transfers.MyRequests(ctx, bob, DirectionIncoming)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAddSessionReopensFinishedTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	details := acceptedTransfer(t, f, alice, bob, 10)
	id, sessionID := details.Summary.ID, details.Sessions[0].ID

	_, err := f.transfers.CompleteSession(ctx, bob, id, sessionID)
	require.NoError(t, err)
	res, err := f.transfers.PaySession(ctx, alice, id, sessionID)
	require.NoError(t, err)
	require.Equal(t, models.TransferFinished, res.Status)

	added, err := f.transfers.AddSession(ctx, bob, id, SessionInput{Title: "bonus", Points: 5})
	require.NoError(t, err)
	assert.Equal(t, models.TransferInProgress, added.Status)

	transfer, err := f.store.TransferByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 15, transfer.Points)
	assert.False(t, transfer.Done)

	_, err = f.transfers.AddSession(ctx, alice, id, SessionInput{Title: "nope", Points: 1})
	requireServiceError(t, err, http.StatusForbidden)
}

func TestDetailsParticipantOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.student(t, "alice")
	bob := f.student(t, "bob")
	carol := f.student(t, "carol")
	details := acceptedTransfer(t, f, alice, bob, 10, 20)

	got, err := f.transfers.Details(ctx, alice, details.Summary.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sessions, 2)
	assert.Equal(t, 30, got.Summary.Points)

	_, err = f.transfers.Details(ctx, carol, details.Summary.ID)
	requireServiceError(t, err, http.StatusForbidden)

	_, err = f.transfers.MyRequests(ctx, alice, "sideways")
	requireServiceError(t, err, http.StatusBadRequest)
	_, err = f.transfers.MySkillTransfers(ctx, alice, "sideways")
	requireServiceError(t, err, http.StatusBadRequest)
}
