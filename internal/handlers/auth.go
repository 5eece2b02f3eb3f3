package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/co-razer/docs-backend/internal/apperr"
	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/co-razer/docs-backend/pkg/utils"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// userSummary is the public shape returned by register, login and profile updates.
type userSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Bio      string `json:"bio,omitempty"`
}

type userDetail struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"fullName"`
	Bio            string     `json:"bio"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin"`
	ProfilePicture *string    `json:"profilePicture"`
}

type AuthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    interface{} `json:"user"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID.Hex(), Username: u.Username, Email: u.Email, FullName: u.FullName, Bio: u.Bio}
}

// startSession creates a server-side session for user and sets the cookie.
func (h *Handler) startSession(ctx context.Context, w http.ResponseWriter, user *models.User) error {
	token, _, err := h.Sessions.Create(ctx, user.Identity())
	if err != nil {
		return err
	}
	h.Cookies.Set(w, token)
	return nil
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateRegistration(req.Username, req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.Create(ctx, services.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.writeAppError(w, r, err, "Registration failed")
		return
	}

	if err := h.startSession(ctx, w, user); err != nil {
		h.internalError(w, r, err, "Registration failed")
		return
	}

	h.Logger.InfoContext(r.Context(), "user registered", "user_id", user.ID.Hex())
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully",
		User:    summarize(user),
	})
}

// Login handles POST /api/auth/login. The identifier may be an email or a username.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email/username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.FindByEmailOrUsername(ctx, req.Identifier)
	if err != nil {
		h.internalError(w, r, err, "Login failed")
		return
	}
	if user == nil || !h.Users.VerifyPassword(req.Password, user.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.Users.UpdateLastLogin(ctx, user.ID.Hex()); err != nil {
		h.Logger.WarnContext(r.Context(), "failed to record last login", "user_id", user.ID.Hex(), "error", err)
	}

	// a fresh session per login; any session the browser still holds is dropped
	if old := h.Cookies.Read(r); old != "" {
		if err := h.Sessions.Destroy(ctx, old); err != nil {
			h.Logger.WarnContext(r.Context(), "failed to destroy previous session", "error", err)
		}
	}
	if err := h.startSession(ctx, w, user); err != nil {
		h.internalError(w, r, err, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    summarize(user),
	})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if token := h.Cookies.Read(r); token != "" {
		if err := h.Sessions.Destroy(ctx, token); err != nil {
			h.internalError(w, r, err, "Logout failed")
			return
		}
	}
	h.Cookies.Clear(w)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logout successful"})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	if identity.Anonymous() {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.FindByID(ctx, identity.UserID.Hex())
	if err != nil {
		h.internalError(w, r, err, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		User: userDetail{
			ID:             user.ID.Hex(),
			Username:       user.Username,
			Email:          user.Email,
			FullName:       user.FullName,
			Bio:            user.Bio,
			CreatedAt:      user.CreatedAt,
			LastLogin:      user.LastLogin,
			ProfilePicture: user.ProfilePicture,
		},
	})
}

// UpdateProfile handles PUT /api/auth/profile. Only fullName, email, username
// and bio can change; anything else in the body is ignored.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var patch services.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.Username != nil {
		if err := utils.ValidateUsername(*patch.Username); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Email != nil {
		if err := utils.ValidateEmail(*patch.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.UpdateProfile(ctx, identity.UserID.Hex(), patch)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			writeError(w, http.StatusBadRequest, apperr.PublicMessage(err))
			return
		}
		h.internalError(w, r, err, "Failed to update profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if user.Username != identity.Username || user.Email != identity.Email {
		if err := h.Sessions.UpdateIdentity(ctx, middleware.SessionIDFrom(r.Context()), user.Identity()); err != nil {
			h.Logger.WarnContext(r.Context(), "failed to refresh session identity", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    summarize(user),
	})
}

// ChangePassword handles POST /api/auth/change-password. Every other session
// of the user is signed out on success.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Current password and new password are required")
		return
	}
	if len(req.NewPassword) < utils.MinPasswordLength {
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters long")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Users.ChangePassword(ctx, identity.UserID.Hex(), req.CurrentPassword, req.NewPassword); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindAuth:
			// a wrong current password must not look like an expired session
			writeError(w, http.StatusBadRequest, apperr.PublicMessage(err))
		case apperr.KindNotFound:
			writeError(w, http.StatusNotFound, apperr.PublicMessage(err))
		default:
			h.internalError(w, r, err, "Failed to change password")
		}
		return
	}

	if n, err := h.Sessions.DestroyOthers(ctx, identity, middleware.SessionIDFrom(r.Context())); err != nil {
		h.Logger.WarnContext(r.Context(), "failed to revoke other sessions", "error", err)
	} else if n > 0 {
		h.Logger.InfoContext(r.Context(), "revoked other sessions", "count", n)
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}
