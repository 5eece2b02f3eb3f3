package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// how much of a reply is quoted in the notification message
const replyPreviewLength = 50

type CreateCommentRequest struct {
	PageURL string `json:"pageUrl"`
	Content string `json:"content"`
}

type ContentRequest struct {
	Content string `json:"content"`
}

type CommentResponse struct {
	Success bool            `json:"success"`
	Comment *models.Comment `json:"comment"`
}

type CommentListResponse struct {
	Success  bool             `json:"success"`
	Comments []models.Comment `json:"comments"`
	Count    *int64           `json:"count,omitempty"`
}

type LikeResponse struct {
	Success bool `json:"success"`
	Liked   bool `json:"liked"`
}

// CreateComment handles POST /api/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req CreateCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PageURL == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Page URL and content are required")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty")
		return
	}
	if utf8.RuneCountInString(req.Content) > services.MaxCommentLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Comment is too long (max %d characters)", services.MaxCommentLength))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.FindByID(ctx, identity.UserID.Hex())
	if err != nil {
		h.internalError(w, r, err, "Failed to create comment")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	comment, err := h.Comments.Create(ctx, services.NewComment{
		UserID:             user.ID,
		Username:           user.Username,
		UserProfilePicture: user.ProfilePicture,
		PageURL:            req.PageURL,
		Content:            content,
	})
	if err != nil {
		h.internalError(w, r, err, "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Success: true, Comment: comment})
}

// ListComments handles GET /api/comments?pageUrl=...
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("pageUrl")
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, "Page URL is required")
		return
	}

	opts := services.ListOptions{
		Limit:  queryLimit(r, services.DefaultCommentLimit),
		Skip:   queryInt(r, "skip", 0),
		SortBy: r.URL.Query().Get("sortBy"),
	}
	if r.URL.Query().Get("sortOrder") == "asc" {
		opts.SortOrder = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comments, err := h.Comments.GetByPage(ctx, pageURL, opts)
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch comments")
		return
	}
	count, err := h.Comments.CountByPage(ctx, pageURL)
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch comments")
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: comments, Count: &count})
}

// RecentComments handles GET /api/comments/recent.
func (h *Handler) RecentComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comments, err := h.Comments.GetRecent(ctx, queryLimit(r, services.DefaultRecentCommentLimit))
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch recent comments")
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: comments})
}

// UserComments handles GET /api/comments/user/{userId}. A malformed id has no comments.
func (h *Handler) UserComments(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: []models.Comment{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comments, err := h.Comments.GetByUser(ctx, userID, services.ListOptions{
		Limit: queryLimit(r, services.DefaultCommentLimit),
		Skip:  queryInt(r, "skip", 0),
	})
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch user comments")
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: comments})
}

// UpdateComment handles PUT /api/comments/{id}. Only the author may edit.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req ContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Comment content is required")
		return
	}
	if utf8.RuneCountInString(req.Content) > services.MaxCommentLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Comment is too long (max %d characters)", services.MaxCommentLength))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comment, err := h.Comments.Update(ctx, chi.URLParam(r, "id"), identity.UserID, content)
	if err != nil {
		h.internalError(w, r, err, "Failed to update comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "Comment not found or you do not have permission to edit it")
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{Success: true, Comment: comment})
}

// DeleteComment handles DELETE /api/comments/{id}. Only the author may delete.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := h.Comments.Delete(ctx, chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to delete comment")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Comment not found or you do not have permission to delete it")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Comment deleted successfully"})
}

// ReplyToComment handles POST /api/comments/{id}/reply and notifies the
// comment author unless they are replying to themselves.
func (h *Handler) ReplyToComment(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	commentID := chi.URLParam(r, "id")

	var req ContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Reply content is required")
		return
	}
	if utf8.RuneCountInString(req.Content) > services.MaxReplyLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Reply is too long (max %d characters)", services.MaxReplyLength))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	original, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		h.internalError(w, r, err, "Failed to add reply")
		return
	}
	if original == nil {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}

	user, err := h.Users.FindByID(ctx, identity.UserID.Hex())
	if err != nil {
		h.internalError(w, r, err, "Failed to add reply")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	comment, err := h.Comments.AddReply(ctx, commentID, services.NewReply{
		UserID:             user.ID,
		Username:           user.Username,
		UserProfilePicture: user.ProfilePicture,
		Content:            content,
	})
	if err != nil {
		h.internalError(w, r, err, "Failed to add reply")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}

	if original.UserID != user.ID {
		_, err := h.Notifications.Create(ctx, services.NewNotification{
			UserID:  original.UserID,
			Type:    models.NotificationTypeCommentReply,
			Message: fmt.Sprintf("%s replied to your comment: \"%s\"", user.Username, preview(content, replyPreviewLength)),
			Data: map[string]interface{}{
				"commentId":     comment.ID.Hex(),
				"replyUserId":   user.ID.Hex(),
				"replyUsername": user.Username,
				"pageUrl":       comment.PageURL,
			},
		})
		// the reply is already stored; a lost notification is not worth failing it
		if err != nil {
			h.Logger.ErrorContext(r.Context(), "failed to create reply notification",
				"comment_id", comment.ID.Hex(), "recipient", original.UserID.Hex(), "error", err)
		}
	}

	writeJSON(w, http.StatusOK, CommentResponse{Success: true, Comment: comment})
}

// ToggleLike handles POST /api/comments/{id}/like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.Comments.ToggleLike(ctx, chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to toggle like")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}
	writeJSON(w, http.StatusOK, LikeResponse{Success: true, Liked: res.Liked})
}

// preview cuts s to n runes, marking the cut with an ellipsis.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
