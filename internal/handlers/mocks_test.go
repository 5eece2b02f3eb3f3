package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) VerifyPassword(plain, hash string) bool {
	return m.Called(plain, hash).Bool(0)
}

func (m *mockUsers) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) UpdateProfile(ctx context.Context, id string, patch services.ProfilePatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) ChangePassword(ctx context.Context, id, current, next string) error {
	return m.Called(ctx, id, current, next).Error(0)
}

func (m *mockUsers) UpdateProfilePicture(ctx context.Context, id, storedPath string) (*models.User, error) {
	args := m.Called(ctx, id, storedPath)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) DeleteProfilePicture(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type mockComments struct{ mock.Mock }

func (m *mockComments) Create(ctx context.Context, in services.NewComment) (*models.Comment, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) GetByPage(ctx context.Context, pageURL string, opts services.ListOptions) ([]models.Comment, error) {
	args := m.Called(ctx, pageURL, opts)
	c, _ := args.Get(0).([]models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) CountByPage(ctx context.Context, pageURL string) (int64, error) {
	args := m.Called(ctx, pageURL)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockComments) GetRecent(ctx context.Context, limit int64) ([]models.Comment, error) {
	args := m.Called(ctx, limit)
	c, _ := args.Get(0).([]models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) GetByUser(ctx context.Context, userID primitive.ObjectID, opts services.ListOptions) ([]models.Comment, error) {
	args := m.Called(ctx, userID, opts)
	c, _ := args.Get(0).([]models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) Update(ctx context.Context, id string, userID primitive.ObjectID, content string) (*models.Comment, error) {
	args := m.Called(ctx, id, userID, content)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockComments) AddReply(ctx context.Context, id string, in services.NewReply) (*models.Comment, error) {
	args := m.Called(ctx, id, in)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockComments) ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*services.LikeResult, error) {
	args := m.Called(ctx, id, userID)
	res, _ := args.Get(0).(*services.LikeResult)
	return res, args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) Create(ctx context.Context, in services.NewNotification) (*models.Notification, error) {
	args := m.Called(ctx, in)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) GetByUser(ctx context.Context, userID primitive.ObjectID, opts services.NotificationListOptions) ([]models.Notification, error) {
	args := m.Called(ctx, userID, opts)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*models.Notification, error) {
	args := m.Called(ctx, id, userID)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifications) DeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Create(ctx context.Context, identity models.Identity) (string, *models.Session, error) {
	args := m.Called(ctx, identity)
	s, _ := args.Get(1).(*models.Session)
	return args.String(0), s, args.Error(2)
}

func (m *mockSessions) UpdateIdentity(ctx context.Context, sessionID string, identity models.Identity) error {
	return m.Called(ctx, sessionID, identity).Error(0)
}

func (m *mockSessions) Destroy(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockSessions) DestroyOthers(ctx context.Context, identity models.Identity, keepID string) (int64, error) {
	args := m.Called(ctx, identity, keepID)
	return args.Get(0).(int64), args.Error(1)
}

type mockPictures struct{ mock.Mock }

func (m *mockPictures) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, filename, r)
	return args.String(0), args.Error(1)
}

func (m *mockPictures) Remove(ctx context.Context, storedPath string) error {
	return m.Called(ctx, storedPath).Error(0)
}

type mockAI struct{ mock.Mock }

func (m *mockAI) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockAI) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type testDeps struct {
	users         *mockUsers
	comments      *mockComments
	notifications *mockNotifications
	sessions      *mockSessions
	pictures      *mockPictures
	ai            *mockAI
	hub           *services.NotificationHub
	handler       *Handler
}

func newTestDeps() *testDeps {
	d := &testDeps{
		users:         &mockUsers{},
		comments:      &mockComments{},
		notifications: &mockNotifications{},
		sessions:      &mockSessions{},
		pictures:      &mockPictures{},
		ai:            &mockAI{},
		hub:           services.NewNotificationHub(nil, nil),
	}
	d.handler = New(Handler{
		Users:         d.users,
		Comments:      d.comments,
		Notifications: d.notifications,
		Sessions:      d.sessions,
		Pictures:      d.pictures,
		AI:            d.ai,
		Hub:           d.hub,
		Cookies:       middleware.NewCookieConfig(false, 7*24*time.Hour),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, []string{"http://localhost:3000"})
	return d
}

func testUser(name string) *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Username:  name,
		Email:     name + "@example.com",
		FullName:  "Test " + name,
		Password:  "$2a$12$hash",
		CreatedAt: time.Now().UTC(),
	}
}

// asUser attaches a session for u to the request context.
func asUser(req *http.Request, u *models.User) *http.Request {
	sess := &models.Session{ID: "sess-" + u.Username, Identity: u.Identity()}
	return req.WithContext(middleware.WithSession(req.Context(), sess))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParams sets chi route params so handlers can be called directly.
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
