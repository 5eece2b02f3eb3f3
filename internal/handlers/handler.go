package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

type UserStore interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error)
	VerifyPassword(plain, hash string) bool
	UpdateLastLogin(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, patch services.ProfilePatch) (*models.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	UpdateProfilePicture(ctx context.Context, id, storedPath string) (*models.User, error)
	DeleteProfilePicture(ctx context.Context, id string) (*models.User, error)
}

type CommentStore interface {
	Create(ctx context.Context, in services.NewComment) (*models.Comment, error)
	GetByPage(ctx context.Context, pageURL string, opts services.ListOptions) ([]models.Comment, error)
	CountByPage(ctx context.Context, pageURL string) (int64, error)
	GetRecent(ctx context.Context, limit int64) ([]models.Comment, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID, opts services.ListOptions) ([]models.Comment, error)
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Update(ctx context.Context, id string, userID primitive.ObjectID, content string) (*models.Comment, error)
	Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error)
	AddReply(ctx context.Context, id string, in services.NewReply) (*models.Comment, error)
	ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*services.LikeResult, error)
}

type NotificationStore interface {
	Create(ctx context.Context, in services.NewNotification) (*models.Notification, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID, opts services.NotificationListOptions) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error)
	DeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, identity models.Identity) (string, *models.Session, error)
	UpdateIdentity(ctx context.Context, sessionID string, identity models.Identity) error
	Destroy(ctx context.Context, token string) error
	DestroyOthers(ctx context.Context, identity models.Identity, keepID string) (int64, error)
}

type PictureStorage interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, storedPath string) error
}

type AIGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// NotificationSubscriber hands out live notification streams per user.
type NotificationSubscriber interface {
	Subscribe(userID string) (<-chan services.NotificationEvent, func())
}

// Handler holds the dependencies shared by every HTTP handler.
type Handler struct {
	Users         UserStore
	Comments      CommentStore
	Notifications NotificationStore
	Sessions      SessionStore
	Pictures      PictureStorage
	AI            AIGenerator
	Hub           NotificationSubscriber
	Cookies       middleware.CookieConfig
	Logger        *slog.Logger

	upgrader websocket.Upgrader
}

// New wires a Handler. allowedOrigins restricts WebSocket upgrades the same
// way CORS restricts XHR.
func New(h Handler, allowedOrigins []string) *Handler {
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return &h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HealthCheck reports liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
