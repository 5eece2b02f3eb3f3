package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 60 * time.Second
	wsReadLimit  = 4 * 1024
)

// NotificationsWebSocket handles GET /ws/notifications. It pushes the current
// unread count on connect, then every notification event for the user.
// Client frames are read only to service pings and detect disconnects.
func (h *Handler) NotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Hub.Subscribe(identity.UserID.Hex())
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	count, err := h.Notifications.GetUnreadCount(ctx, identity.UserID)
	cancel()
	if err != nil {
		h.Logger.WarnContext(r.Context(), "failed to load unread count", "error", err)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		err := conn.WriteJSON(services.NotificationEvent{
			Type:        services.EventTypeUnreadCount,
			UserID:      identity.UserID.Hex(),
			UnreadCount: count,
		})
		if err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
