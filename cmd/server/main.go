package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/co-razer/docs-backend/internal/config"
	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/handlers"
	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/routes"
	"github.com/co-razer/docs-backend/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}
	cfg := config.Load()

	logger := middleware.NewLogger(os.Stdout, cfg.IsProduction())
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SessionSecret == config.DefaultSessionSecret {
		if cfg.IsProduction() {
			return errors.New("SESSION_SECRET must be set in production")
		}
		logger.Warn("⚠️  SESSION_SECRET not set, using the development default")
	}

	// Connect to MongoDB
	mongoConn := database.NewMongo(cfg.MongoURI, cfg.MongoDBName, logger)
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := mongoConn.Get(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoConn.Close(closeCtx); err != nil {
			logger.Warn("failed to close MongoDB", "error", err)
		}
	}()

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		logger.Warn("⚠️  failed to ensure MongoDB indexes", "error", err)
	} else {
		logger.Info("✅ MongoDB indexes ensured")
	}
	cancel()

	// Redis is optional: it backs the shared rate limits, the recent comments
	// cache and cross-instance push
	var redisClient *redis.Client
	if cfg.RedisURI != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURI, logger)
		if err != nil {
			logger.Warn("⚠️  Redis unavailable, continuing without it", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		logger.Info("Redis not configured; notifications are delivered in-process only")
	}

	pictures, err := pictureStorage(cfg, logger)
	if err != nil {
		return err
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	hub := services.NewNotificationHub(redisClient, logger)
	hub.Start(ctx)

	sessions := services.NewSessionStore(db, cfg.SessionSecret)
	cookies := middleware.NewCookieConfig(cfg.IsProduction(), services.SessionDuration)

	h := handlers.New(handlers.Handler{
		Users:         services.NewUserStore(db, pictures, logger),
		Comments:      services.NewCachedCommentStore(services.NewCommentStore(db), services.NewCache(redisClient, logger), logger),
		Notifications: services.NewNotificationStore(db, hub, logger),
		Sessions:      sessions,
		Pictures:      pictures,
		AI:            services.NewAIService(cfg.AIAPIKey, cfg.AIModel),
		Hub:           hub,
		Cookies:       cookies,
		Logger:        logger,
	}, cfg.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(proxies))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		logger.Info("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	}
	r.Use(middleware.Identity(sessions, cookies, logger))

	routes.SetupRoutes(r, h, routes.Options{
		Redis:     redisClient,
		Logger:    logger,
		UploadDir: cfg.UploadDir,
		StaticDir: cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Co-Razer backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pictureStorage picks Cloudinary when credentials exist, local disk otherwise.
func pictureStorage(cfg *config.Config, logger *slog.Logger) (services.PictureStorage, error) {
	if cfg.CloudinaryEnabled() {
		storage, err := services.NewCloudinaryPictureStorage(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err == nil {
			logger.Info("✅ Cloudinary picture storage initialized")
			return storage, nil
		}
		logger.Warn("⚠️  failed to initialize Cloudinary, falling back to local storage", "error", err)
	}
	storage, err := services.NewLocalPictureStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Profile pictures stored on local disk", "dir", cfg.UploadDir)
	return storage, nil
}
