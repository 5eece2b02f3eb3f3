package routes

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/co-razer/docs-backend/internal/handlers"
	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// LoginPage is where the account page guard sends anonymous visitors.
const LoginPage = "/login.html"

type Options struct {
	Redis     *redis.Client // nil disables the shared Redis limits
	Logger    *slog.Logger
	UploadDir string // served under /uploads
	StaticDir string // built docs site served at /; empty disables it
}

func SetupRoutes(r chi.Router, h *handlers.Handler, opts Options) {
	authLimit := middleware.RedisRateLimit(opts.Redis, middleware.AuthLimit, opts.Logger)
	aiLimit := middleware.RedisRateLimit(opts.Redis, middleware.AILimit, opts.Logger)

	r.Get("/health", handlers.HealthCheck)
	r.Handle("/metrics", middleware.MetricsHandler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authLimit).Post("/register", h.Register)
		r.With(authLimit).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
			r.Post("/upload-profile-picture", h.UploadProfilePicture)
			r.Delete("/profile-picture", h.DeleteProfilePicture)
		})
	})

	r.Route("/api/comments", func(r chi.Router) {
		r.Get("/", h.ListComments)
		r.Get("/recent", h.RecentComments)
		r.Get("/user/{userId}", h.UserComments)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", h.CreateComment)
			r.Put("/{id}", h.UpdateComment)
			r.Delete("/{id}", h.DeleteComment)
			r.Post("/{id}/reply", h.ReplyToComment)
			r.Post("/{id}/like", h.ToggleLike)
		})
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.ListNotifications)
		r.Get("/unread-count", h.UnreadCount)
		r.Put("/mark-all-read", h.MarkAllNotificationsRead)
		r.Put("/{id}/read", h.MarkNotificationRead)
		r.Delete("/{id}", h.DeleteNotification)
		r.Delete("/", h.DeleteAllNotifications)
	})

	r.With(middleware.RequireAuth).Get("/ws/notifications", h.NotificationsWebSocket)

	r.With(middleware.AIRateLimit(), aiLimit).Post("/api/ai", h.AskAI)

	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", noDirListing(http.FileServer(http.Dir(opts.UploadDir)))))
	}

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			account := filepath.Join(opts.StaticDir, "profile.html")
			r.With(middleware.RequireAuthPage(LoginPage)).Get("/account", func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, account)
			})
			r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
		}
	}
}

// noDirListing hides directory indexes of the upload root.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
