package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store/memstore"
)

var testTokens = TokenService{
	Secret:     []byte("test-secret"),
	Issuer:     "zenith-test",
	AccessTTL:  time.Hour,
	RefreshTTL: 24 * time.Hour,
}

type fixture struct {
	store     *memstore.Store
	identity  *IdentityService
	resolver  *Resolver
	skills    *SkillService
	transfers *TransferService
	courses   *CourseService
	chats     *ChatService
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	notifier := &recordingNotifier{}
	return &fixture{
		store:     st,
		identity:  NewIdentityService(st, testTokens, 100, nil),
		resolver:  NewResolver(st),
		skills:    NewSkillService(st),
		transfers: NewTransferService(st, nil),
		courses:   NewCourseService(st, nil),
		chats:     NewChatService(st, notifier, nil),
		notifier:  notifier,
	}
}

func (f *fixture) signup(t *testing.T, username string, role models.Role) Actor {
	t.Helper()
	res, err := f.identity.Signup(context.Background(), SignupInput{
		FirstName: username,
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Password:  "secret123",
		Role:      role,
	})
	require.NoError(t, err)
	return Actor{UserID: res.User.ID, Username: res.User.Username, Role: res.User.Role}
}

func (f *fixture) student(t *testing.T, username string) Student {
	t.Helper()
	student, err := f.resolver.Student(context.Background(), f.signup(t, username, models.RoleStudent))
	require.NoError(t, err)
	return student
}

func (f *fixture) instructor(t *testing.T, username string) Instructor {
	t.Helper()
	instructor, err := f.resolver.Instructor(context.Background(), f.signup(t, username, models.RoleInstructor))
	require.NoError(t, err)
	return instructor
}

func (f *fixture) skill(t *testing.T, name string) models.Skill {
	t.Helper()
	skill, err := f.skills.Create(context.Background(), name)
	require.NoError(t, err)
	return *skill
}

func (f *fixture) points(t *testing.T, s Student) int {
	t.Helper()
	profile, err := f.store.StudentProfileByID(context.Background(), s.ProfileID)
	require.NoError(t, err)
	return profile.Points
}

func requireServiceError(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	serr, ok := AsServiceError(err)
	require.True(t, ok, "expected ServiceError, got %v", err)
	require.Equal(t, status, serr.Status, serr.Message)
}

type notification struct {
	Room    string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, room, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Room: room, Event: event, Payload: payload})
	return nil
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}
