package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/co-razer/docs-backend/internal/models"
)

// SessionCookieName is the cookie carrying the signed session reference.
const SessionCookieName = "corazer.sid"

type ctxKey int

const (
	identityKey ctxKey = iota
	sessionIDKey
)

// SessionResolver looks up the live session behind a cookie value.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, bool, error)
}

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func NewCookieConfig(secure bool, maxAge time.Duration) CookieConfig {
	return CookieConfig{Name: SessionCookieName, Secure: secure, MaxAge: maxAge}
}

// Set writes the session cookie: httpOnly, SameSite=Lax, secure in production.
func (c CookieConfig) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		Expires:  time.Now().Add(c.MaxAge),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the raw cookie value, or "" when absent.
func (c CookieConfig) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Identity resolves the session cookie and stores the caller's identity on
// the request context. It never rejects a request; anonymous callers get a
// zero Identity. A session whose expiry slid forward gets a fresh cookie.
func Identity(resolver SessionResolver, cookies CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Read(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, touched, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.ErrorContext(r.Context(), "session lookup failed", "error", err)
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			if touched {
				cookies.Set(w, token)
			}
			noteUserID(r.Context(), sess.Identity)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession attaches a resolved session to ctx.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	ctx = context.WithValue(ctx, identityKey, sess.Identity)
	return context.WithValue(ctx, sessionIDKey, sess.ID)
}

// IdentityFrom returns the caller's identity, zero when anonymous.
func IdentityFrom(ctx context.Context) models.Identity {
	id, _ := ctx.Value(identityKey).(models.Identity)
	return id
}

// SessionIDFrom returns the current session id, "" when anonymous.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// RequireAuth rejects anonymous API calls with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).Anonymous() {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthPage redirects anonymous page requests to loginPath.
func RequireAuthPage(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFrom(r.Context()).Anonymous() {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: msg})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
