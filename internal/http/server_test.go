package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenith-backend/internal/config"
	"zenith-backend/internal/models"
	"zenith-backend/internal/realtime"
	"zenith-backend/internal/services"
	"zenith-backend/internal/store/memstore"
)

var testConfig = config.Config{
	DatabaseURL:       config.MemoryDatabase,
	JWTSecret:         "test-secret",
	JWTIssuer:         "zenith-test",
	AccessTTLSeconds:  3600,
	RefreshTTLSeconds: 86400,
	SignupPoints:      100,
}

type testEnv struct {
	t      *testing.T
	store  *memstore.Store
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memstore.New()
	hub := realtime.NewHub(nil)
	server := NewServer(st, testConfig, hub, hub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(server.Router(ctx))
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)
	return &testEnv{t: t, store: st, server: server, http: ts}
}

func (e *testEnv) do(method, path, token string, body any) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

func (e *testEnv) doJSON(method, path, token string, body any, want int, out any) {
	e.t.Helper()
	status, data := e.do(method, path, token, body)
	require.Equal(e.t, want, status, string(data))
	if out != nil {
		require.NoError(e.t, json.Unmarshal(data, out))
	}
}

func (e *testEnv) signup(username string, role models.Role) TokenResponse {
	e.t.Helper()
	var res TokenResponse
	e.doJSON(http.MethodPost, "/api/auth/signup", "", SignupRequest{
		FirstName: username,
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Password:  "secret123",
		Role:      string(role),
	}, http.StatusCreated, &res)
	return res
}

// admin accounts cannot sign up; they are seeded directly.
func (e *testEnv) admin() string {
	e.t.Helper()
	user := &models.User{FirstName: "Root", Username: "root", Email: "root@example.com", Role: models.RoleAdmin}
	require.NoError(e.t, e.store.CreateUser(context.Background(), user, 0))
	pair, err := e.server.Tokens.IssuePair(*user)
	require.NoError(e.t, err)
	return pair.AccessToken
}

func (e *testEnv) profile(username, token string) UserProfileResponse {
	e.t.Helper()
	var res UserProfileResponse
	e.doJSON(http.MethodGet, "/api/users/"+username, token, nil, http.StatusOK, &res)
	return res
}

func requireErrorCode(t *testing.T, data []byte, code string) {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(data, &body), string(data))
	assert.Equal(t, code, body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, data := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	signup := env.signup("alice", models.RoleStudent)
	require.NotEmpty(t, signup.Token)
	require.NotEmpty(t, signup.RefreshToken)
	assert.Equal(t, "alice@example.com", signup.User.Email)

	status, data := env.do(http.MethodPost, "/api/auth/signup", "", SignupRequest{
		FirstName: "Other", LastName: "Alice", Username: "alice", Email: "other@example.com",
		Password: "secret123", Role: "student",
	})
	assert.Equal(t, http.StatusConflict, status)
	requireErrorCode(t, data, services.CodeConflict)

	var login TokenResponse
	env.doJSON(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "secret123"}, http.StatusOK, &login)
	assert.Equal(t, signup.User.ID, login.User.ID)

	status, data = env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	requireErrorCode(t, data, services.CodeUnauthorized)

	var me map[string]UserDTO
	env.doJSON(http.MethodGet, "/api/auth/me", login.Token, nil, http.StatusOK, &me)
	assert.Equal(t, "alice", me["user"].Username)

	var refreshed TokenResponse
	env.doJSON(http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: login.RefreshToken}, http.StatusOK, &refreshed)
	assert.NotEmpty(t, refreshed.Token)

	// An access token is not a refresh token.
	status, _ = env.do(http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: login.Token})
	assert.Equal(t, http.StatusUnauthorized, status)

	env.doJSON(http.MethodPut, "/api/auth/password", login.Token, ChangePasswordRequest{
		CurrentPassword: "secret123", NewPassword: "newsecret", ConfirmPassword: "newsecret",
	}, http.StatusNoContent, nil)
	env.doJSON(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "newsecret"}, http.StatusOK, nil)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup("bob", models.RoleStudent)

	status, data := env.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	requireErrorCode(t, data, services.CodeUnauthorized)

	status, data = env.do(http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	requireErrorCode(t, data, services.CodeUnauthorized)

	status, data = env.do(http.MethodPost, "/api/skills", student.Token, CreateSkillRequest{Name: "Go"})
	assert.Equal(t, http.StatusForbidden, status)
	requireErrorCode(t, data, services.CodeForbidden)

	status, data = env.do(http.MethodPost, "/api/courses", student.Token, CreateCourseRequest{Title: "Nope"})
	assert.Equal(t, http.StatusForbidden, status)
	requireErrorCode(t, data, services.CodeForbidden)

	status, data = env.do(http.MethodGet, "/api/skill-transfers/transfer-details/abc", student.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	requireErrorCode(t, data, services.CodeValidation)
}

func TestSkillTransferOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.admin()
	alice := env.signup("alice", models.RoleStudent)
	bob := env.signup("bob", models.RoleStudent)

	var skill SkillDTO
	env.doJSON(http.MethodPost, "/api/skills", adminToken, CreateSkillRequest{Name: "Go"}, http.StatusCreated, &skill)

	bobProfile := env.profile("bob", alice.Token)
	require.NotNil(t, bobProfile.Student)
	env.doJSON(http.MethodPut, "/api/skills/students/"+strconv.FormatInt(bobProfile.Student.ID, 10)+"/skills", bob.Token,
		ReplaceStudentSkillsRequest{Skills: []StudentSkillItem{{SkillID: skill.ID, Type: "learned", Points: 30, Description: "Concurrency"}}},
		http.StatusOK, nil)

	var teachers ItemsResponse[TeacherDTO]
	env.doJSON(http.MethodGet, "/api/skill-transfers/teachers-search?skillId="+strconv.FormatInt(skill.ID, 10), alice.Token, nil, http.StatusOK, &teachers)
	require.Len(t, teachers.Items, 1)
	assert.Equal(t, bobProfile.Student.ID, teachers.Items[0].ProfileID)

	var requested TransferDetailsResponse
	env.doJSON(http.MethodPost, "/api/skill-transfers/request", alice.Token,
		TransferRequest{SkillID: skill.ID, TeacherID: bobProfile.Student.ID}, http.StatusCreated, &requested)
	assert.Equal(t, string(models.TransferPending), requested.Status)

	status, data := env.do(http.MethodPost, "/api/skill-transfers/request", alice.Token,
		TransferRequest{SkillID: skill.ID, TeacherID: bobProfile.Student.ID})
	assert.Equal(t, http.StatusConflict, status)
	requireErrorCode(t, data, services.CodeConflict)

	transferPath := strconv.FormatInt(requested.ID, 10)
	var incoming ItemsResponse[TransferDTO]
	env.doJSON(http.MethodGet, "/api/skill-transfers/my-requests?direction=incoming", bob.Token, nil, http.StatusOK, &incoming)
	require.Len(t, incoming.Items, 1)

	status, _ = env.do(http.MethodPut, "/api/skill-transfers/accept/"+transferPath, alice.Token,
		AcceptRequest{Sessions: []SessionItem{{SessionTitle: "Intro", Points: 30}}})
	assert.Equal(t, http.StatusForbidden, status)

	var accepted TransferDetailsResponse
	env.doJSON(http.MethodPut, "/api/skill-transfers/accept/"+transferPath, bob.Token,
		AcceptRequest{Sessions: []SessionItem{{SessionTitle: "Intro", Points: 30}}}, http.StatusOK, &accepted)
	assert.Equal(t, string(models.TransferInProgress), accepted.Status)
	assert.Equal(t, 30, accepted.Points)
	require.Len(t, accepted.Sessions, 1)
	sessionPath := strconv.FormatInt(accepted.Sessions[0].ID, 10)

	var completed SessionResultResponse
	env.doJSON(http.MethodPut, "/api/skill-transfers/"+transferPath+"/complete-session/"+sessionPath, bob.Token, nil, http.StatusOK, &completed)
	assert.True(t, completed.Session.Completed)
	assert.Equal(t, string(models.TransferInProgress), completed.Status)

	var paid SessionResultResponse
	env.doJSON(http.MethodPut, "/api/skill-transfers/"+transferPath+"/pay-session/"+sessionPath, alice.Token, nil, http.StatusOK, &paid)
	assert.True(t, paid.Session.Paid)
	assert.Equal(t, string(models.TransferFinished), paid.Status)

	status, data = env.do(http.MethodPut, "/api/skill-transfers/"+transferPath+"/pay-session/"+sessionPath, alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	requireErrorCode(t, data, services.CodeValidation)

	assert.Equal(t, 70, env.profile("alice", bob.Token).Student.Points)
	assert.Equal(t, 130, env.profile("bob", alice.Token).Student.Points)

	var learning ItemsResponse[TransferDTO]
	env.doJSON(http.MethodGet, "/api/skill-transfers/my-skill-transfers?type=learning", alice.Token, nil, http.StatusOK, &learning)
	require.Len(t, learning.Items, 1)
	assert.True(t, learning.Items[0].Done)
}

func TestRejectTransferOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.admin()
	alice := env.signup("alice", models.RoleStudent)
	bob := env.signup("bob", models.RoleStudent)

	var skill SkillDTO
	env.doJSON(http.MethodPost, "/api/skills", adminToken, CreateSkillRequest{Name: "SQL"}, http.StatusCreated, &skill)
	bobID := env.profile("bob", alice.Token).Student.ID

	var requested TransferDetailsResponse
	env.doJSON(http.MethodPost, "/api/skill-transfers/request", alice.Token,
		TransferRequest{SkillID: skill.ID, TeacherID: bobID}, http.StatusCreated, &requested)

	path := "/api/skill-transfers/reject/" + strconv.FormatInt(requested.ID, 10)
	env.doJSON(http.MethodDelete, path, bob.Token, nil, http.StatusNoContent, nil)
	status, data := env.do(http.MethodDelete, path, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	requireErrorCode(t, data, services.CodeNotFound)
}

func TestCoursesOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup("teach", models.RoleInstructor)
	student := env.signup("learner", models.RoleStudent)
	outsider := env.signup("outsider", models.RoleStudent)

	var course CourseDTO
	env.doJSON(http.MethodPost, "/api/courses", teacher.Token,
		CreateCourseRequest{Title: "Go Basics", Description: "Start here", Price: 19.99}, http.StatusCreated, &course)
	assert.Equal(t, "go-basics", course.Slug)
	assert.InDelta(t, 19.99, course.Price, 0.0001)

	coursePath := "/api/courses/" + strconv.FormatInt(course.ID, 10)
	var chapter ChapterDTO
	env.doJSON(http.MethodPost, coursePath+"/chapters", teacher.Token, CreateChapterRequest{Title: "Setup"}, http.StatusCreated, &chapter)
	assert.Equal(t, 1, chapter.Position)
	chapterPath := coursePath + "/chapters/" + strconv.FormatInt(chapter.ID, 10)
	env.doJSON(http.MethodPost, chapterPath+"/videos", teacher.Token, CreateVideoRequest{Title: "Install", URL: "https://example.com/v.mp4"}, http.StatusCreated, nil)
	env.doJSON(http.MethodPost, chapterPath+"/articles", teacher.Token, CreateArticleRequest{Title: "Notes", Body: "go version"}, http.StatusCreated, nil)

	var list ItemsResponse[CourseDTO]
	env.doJSON(http.MethodGet, "/api/courses?search=basics", "", nil, http.StatusOK, &list)
	require.Len(t, list.Items, 1)

	var detail CourseDetailResponse
	env.doJSON(http.MethodGet, coursePath, "", nil, http.StatusOK, &detail)
	require.Len(t, detail.Chapters, 1)

	status, _ := env.do(http.MethodGet, chapterPath, outsider.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	env.doJSON(http.MethodPost, "/api/courses/enroll", student.Token, EnrollRequest{CourseID: course.ID}, http.StatusOK, nil)
	env.doJSON(http.MethodPost, "/api/courses/enroll", student.Token, EnrollRequest{CourseID: course.ID}, http.StatusOK, nil)

	var content ChapterDetailResponse
	env.doJSON(http.MethodGet, chapterPath, student.Token, nil, http.StatusOK, &content)
	assert.Len(t, content.Videos, 1)
	assert.Len(t, content.Articles, 1)

	var mine ItemsResponse[CourseDTO]
	env.doJSON(http.MethodGet, "/api/courses/my-enrollments", student.Token, nil, http.StatusOK, &mine)
	require.Len(t, mine.Items, 1)

	req, err := http.NewRequest(http.MethodGet, env.http.URL+"/api/courses/courses/"+strconv.FormatInt(course.ID, 10)+"/certificate", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+student.Token)
	resp, err := env.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "certificate-go-basics.pdf")
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func dialSocket(t *testing.T, env *testEnv, path, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + path + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readFrame(t *testing.T, conn *websocket.Conn) realtime.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame realtime.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestChatSocketReceivesMessages(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup("alice", models.RoleStudent)
	bob := env.signup("bob", models.RoleInstructor)
	carol := env.signup("carol", models.RoleStudent)

	var chat ChatDTO
	env.doJSON(http.MethodPost, "/api/chats", alice.Token, CreateChatRequest{OtherUserID: bob.User.ID}, http.StatusOK, &chat)
	var again ChatDTO
	env.doJSON(http.MethodPost, "/api/chats", bob.Token, CreateChatRequest{OtherUserID: alice.User.ID}, http.StatusOK, &again)
	assert.Equal(t, chat.ID, again.ID)

	conn, _, err := dialSocket(t, env, "/ws", bob.Token)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "joinChat", "data": chat.ID}))
	joined := readFrame(t, conn)
	require.Equal(t, "joinedChat", joined.Event)
	assert.Equal(t, strconv.FormatInt(chat.ID, 10), string(joined.Data))

	chatPath := "/api/chats/" + strconv.FormatInt(chat.ID, 10) + "/messages"
	env.doJSON(http.MethodPost, chatPath, alice.Token, SendMessageRequest{Content: "  hello bob  "}, http.StatusCreated, nil)

	frame := readFrame(t, conn)
	require.Equal(t, services.EventNewMessage, frame.Event)
	var message services.MessageView
	require.NoError(t, json.Unmarshal(frame.Data, &message))
	assert.Equal(t, "hello bob", message.Content)
	assert.Equal(t, alice.User.ID, message.SenderID)

	var history ItemsResponse[services.MessageView]
	env.doJSON(http.MethodGet, chatPath, bob.Token, nil, http.StatusOK, &history)
	require.Len(t, history.Items, 1)

	status, _ := env.do(http.MethodGet, chatPath, carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	other, _, err := dialSocket(t, env, "/ws", carol.Token)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.WriteJSON(map[string]any{"event": "joinChat", "data": chat.ID}))
	assert.Equal(t, "error", readFrame(t, other).Event)
}

func TestSocketAuth(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup("alice", models.RoleStudent)

	_, resp, err := dialSocket(t, env, "/ws", "bogus")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialSocket(t, env, "/ws/metrics", student.Token)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMetricsOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.admin()

	conn, _, err := dialSocket(t, env, "/ws/metrics", adminToken)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.server.Hub.RoomSize(services.MetricsRoom) == 1 }, 2*time.Second, 10*time.Millisecond)

	sample, err := env.server.Metrics.Sample(context.Background())
	require.NoError(t, err)

	frame := readFrame(t, conn)
	require.Equal(t, services.EventMetricSample, frame.Event)
	var view services.MetricSampleView
	require.NoError(t, json.Unmarshal(frame.Data, &view))
	assert.Equal(t, sample.ID, view.ID)

	var history ItemsResponse[services.MetricSampleView]
	env.doJSON(http.MethodGet, "/api/admin/metrics/history?limit=10", adminToken, nil, http.StatusOK, &history)
	require.Len(t, history.Items, 1)
	assert.Equal(t, sample.ID, history.Items[0].ID)
}
