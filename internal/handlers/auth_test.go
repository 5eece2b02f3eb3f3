package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/co-razer/docs-backend/internal/apperr"
	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesSession(t *testing.T) {
	d := newTestDeps()
	user := testUser("alice")
	d.users.On("Create", mock.Anything, services.CreateUserInput{
		Username: "Alice", Email: "alice@example.com", Password: "secret1", FullName: "Alice A",
	}).Return(user, nil)
	d.sessions.On("Create", mock.Anything, user.Identity()).Return("signed-token", nil, nil)

	rec := httptest.NewRecorder()
	d.handler.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "secret1", FullName: "Alice A",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User registered successfully", body["message"])
	assert.Equal(t, user.ID.Hex(), body["user"].(map[string]interface{})["id"])
	assert.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"missing fields", RegisterRequest{Username: "bob"}, "Username, email, and password are required"},
		{"short username", RegisterRequest{Username: "ab", Email: "a@b.co", Password: "secret1"}, "Username must be at least 3 characters long"},
		{"short password", RegisterRequest{Username: "bob", Email: "a@b.co", Password: "123"}, "Password must be at least 6 characters long"},
		{"bad email", RegisterRequest{Username: "bob", Email: "not-an-email", Password: "secret1"}, "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			rec := httptest.NewRecorder()
			d.handler.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", tt.req))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
			d.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	d := newTestDeps()
	d.users.On("Create", mock.Anything, mock.Anything).Return(nil, apperr.Conflict("email"))

	rec := httptest.NewRecorder()
	d.handler.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Username: "alice", Email: "ALICE@example.com", Password: "secret1",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already exists", decodeBody(t, rec)["error"])
}

func TestLogin(t *testing.T) {
	user := testUser("alice")

	t.Run("success", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("FindByEmailOrUsername", mock.Anything, "Alice").Return(user, nil)
		d.users.On("VerifyPassword", "secret1", user.Password).Return(true)
		d.users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)
		d.sessions.On("Destroy", mock.Anything, "old-token").Return(nil)
		d.sessions.On("Create", mock.Anything, user.Identity()).Return("new-token", nil, nil)

		req := jsonRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Identifier: "Alice", Password: "secret1"})
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "old-token"})
		rec := httptest.NewRecorder()
		d.handler.Login(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Login successful", decodeBody(t, rec)["message"])
		d.sessions.AssertCalled(t, "Destroy", mock.Anything, "old-token")
		d.users.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("FindByEmailOrUsername", mock.Anything, "alice").Return(user, nil)
		d.users.On("VerifyPassword", "nope", user.Password).Return(false)

		rec := httptest.NewRecorder()
		d.handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Identifier: "alice", Password: "nope"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
		d.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("FindByEmailOrUsername", mock.Anything, "ghost").Return(nil, nil)

		rec := httptest.NewRecorder()
		d.handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Identifier: "ghost", Password: "secret1"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		d := newTestDeps()
		rec := httptest.NewRecorder()
		d.handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Identifier: "alice"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email/username and password are required", decodeBody(t, rec)["error"])
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	d := newTestDeps()
	d.sessions.On("Destroy", mock.Anything, "tok").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	d.handler.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, rec)["message"])
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMe(t *testing.T) {
	user := testUser("alice")

	t.Run("anonymous", func(t *testing.T) {
		d := newTestDeps()
		rec := httptest.NewRecorder()
		d.handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Not authenticated", decodeBody(t, rec)["error"])
	})

	t.Run("user vanished", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("FindByID", mock.Anything, user.ID.Hex()).Return(nil, nil)

		rec := httptest.NewRecorder()
		d.handler.Me(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), user))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("found", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("FindByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		rec := httptest.NewRecorder()
		d.handler.Me(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), user))

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody(t, rec)["user"].(map[string]interface{})
		assert.Equal(t, "alice", got["username"])
		assert.Contains(t, got, "profilePicture")
		assert.Contains(t, got, "lastLogin")
	})
}

func TestUpdateProfileRefreshesSession(t *testing.T) {
	d := newTestDeps()
	user := testUser("alice")
	renamed := *user
	renamed.Username = "alice2"

	newName := "alice2"
	patch := services.ProfilePatch{Username: &newName}
	d.users.On("UpdateProfile", mock.Anything, user.ID.Hex(), patch).Return(&renamed, nil)
	d.sessions.On("UpdateIdentity", mock.Anything, "sess-alice", renamed.Identity()).Return(nil)

	rec := httptest.NewRecorder()
	d.handler.UpdateProfile(rec, asUser(jsonRequest(t, http.MethodPut, "/api/auth/profile", map[string]string{
		"username": "alice2",
		"password": "ignored",
	}), user))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Profile updated successfully", decodeBody(t, rec)["message"])
	d.sessions.AssertExpectations(t)
}

func TestUpdateProfileConflict(t *testing.T) {
	d := newTestDeps()
	user := testUser("alice")
	d.users.On("UpdateProfile", mock.Anything, user.ID.Hex(), mock.Anything).Return(nil, apperr.Conflict("username"))

	rec := httptest.NewRecorder()
	d.handler.UpdateProfile(rec, asUser(jsonRequest(t, http.MethodPut, "/api/auth/profile", map[string]string{"username": "bobby"}), user))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", decodeBody(t, rec)["error"])
}

func TestChangePassword(t *testing.T) {
	user := testUser("alice")

	t.Run("too short", func(t *testing.T) {
		d := newTestDeps()
		rec := httptest.NewRecorder()
		d.handler.ChangePassword(rec, asUser(jsonRequest(t, http.MethodPost, "/api/auth/change-password",
			ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "123"}), user))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "New password must be at least 6 characters long", decodeBody(t, rec)["error"])
	})

	t.Run("wrong current password", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("ChangePassword", mock.Anything, user.ID.Hex(), "bad", "secret2").
			Return(apperr.Auth("Current password is incorrect"))

		rec := httptest.NewRecorder()
		d.handler.ChangePassword(rec, asUser(jsonRequest(t, http.MethodPost, "/api/auth/change-password",
			ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "secret2"}), user))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Current password is incorrect", decodeBody(t, rec)["error"])
	})

	t.Run("revokes other sessions", func(t *testing.T) {
		d := newTestDeps()
		d.users.On("ChangePassword", mock.Anything, user.ID.Hex(), "secret1", "secret2").Return(nil)
		d.sessions.On("DestroyOthers", mock.Anything, user.Identity(), "sess-alice").Return(int64(2), nil)

		rec := httptest.NewRecorder()
		d.handler.ChangePassword(rec, asUser(jsonRequest(t, http.MethodPost, "/api/auth/change-password",
			ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}), user))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Password changed successfully", decodeBody(t, rec)["message"])
		d.sessions.AssertExpectations(t)
	})
}
