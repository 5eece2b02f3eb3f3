package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/co-razer/docs-backend/internal/models"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxHandler adds the request id and caller to every record logged with a request context.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid := chimw.GetReqID(ctx); rid != "" {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if id := IdentityFrom(ctx); !id.Anonymous() {
		r.AddAttrs(slog.String("user_id", id.UserID.Hex()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger returns JSON output in production and text output elsewhere.
func NewLogger(w io.Writer, production bool) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

type requestLogKey struct{}

// requestLog collects fields discovered by inner middleware for the request line.
type requestLog struct {
	userID string
}

// noteUserID records the caller for the enclosing RequestLogger, if any.
func noteUserID(ctx context.Context, id models.Identity) {
	if rl, ok := ctx.Value(requestLogKey{}).(*requestLog); ok && !id.Anonymous() {
		rl.userID = id.UserID.Hex()
	}
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			rl := &requestLog{}
			r = r.WithContext(context.WithValue(r.Context(), requestLogKey{}, rl))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", r.RemoteAddr,
			}
			if rl.userID != "" {
				attrs = append(attrs, "user_id", rl.userID)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}
