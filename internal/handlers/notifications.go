package handlers

import (
	"context"
	"net/http"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type NotificationListResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
}

type NotificationResponse struct {
	Success      bool                 `json:"success"`
	Notification *models.Notification `json:"notification"`
}

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	notifications, err := h.Notifications.GetByUser(ctx, identity.UserID, services.NotificationListOptions{
		Limit:      queryLimit(r, services.DefaultNotificationLimit),
		Skip:       queryInt(r, "skip", 0),
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
	})
	if err != nil {
		h.internalError(w, r, err, "Failed to get notifications")
		return
	}
	writeJSON(w, http.StatusOK, NotificationListResponse{Success: true, Notifications: notifications})
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	count, err := h.Notifications.GetUnreadCount(ctx, identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to get unread count")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: count})
}

// MarkNotificationRead handles PUT /api/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	notification, err := h.Notifications.MarkAsRead(ctx, chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to mark notification as read")
		return
	}
	if notification == nil {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	writeJSON(w, http.StatusOK, NotificationResponse{Success: true, Notification: notification})
}

// MarkAllNotificationsRead handles PUT /api/notifications/mark-all-read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	count, err := h.Notifications.MarkAllAsRead(ctx, identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to mark all notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: count})
}

// DeleteNotification handles DELETE /api/notifications/{id}.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := h.Notifications.Delete(ctx, chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to delete notification")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Notification deleted"})
}

// DeleteAllNotifications handles DELETE /api/notifications.
func (h *Handler) DeleteAllNotifications(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	count, err := h.Notifications.DeleteAll(ctx, identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to delete notifications")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: count})
}
