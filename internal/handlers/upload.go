package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/co-razer/docs-backend/internal/middleware"
	"github.com/google/uuid"
)

const (
	maxPictureSize   = 5 << 20
	pictureFormField = "profilePicture"
)

// allowed picture extensions and the content types they may sniff as
var pictureTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type PictureResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ProfilePicture string `json:"profilePicture"`
}

// UploadProfilePicture handles POST /api/auth/upload-profile-picture.
func (h *Handler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPictureSize+1<<20)
	if err := r.ParseMultipartForm(maxPictureSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(pictureFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxPictureSize {
		writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isAllowedPicture(ext, file) {
		writeError(w, http.StatusBadRequest, "Only image files are allowed (jpeg, jpg, png, gif, webp)")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*requestTimeout)
	defer cancel()

	filename := identity.UserID.Hex() + "-" + uuid.New().String() + ext
	stored, err := h.Pictures.Save(ctx, filename, file)
	if err != nil {
		h.internalError(w, r, err, "Failed to upload profile picture")
		return
	}

	user, err := h.Users.UpdateProfilePicture(ctx, identity.UserID.Hex(), stored)
	if err != nil || user == nil {
		if rmErr := h.Pictures.Remove(ctx, stored); rmErr != nil {
			h.Logger.WarnContext(r.Context(), "failed to remove orphaned picture", "path", stored, "error", rmErr)
		}
		if err != nil {
			h.internalError(w, r, err, "Failed to upload profile picture")
			return
		}
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, PictureResponse{
		Success:        true,
		Message:        "Profile picture updated successfully",
		ProfilePicture: stored,
	})
}

// DeleteProfilePicture handles DELETE /api/auth/profile-picture.
func (h *Handler) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Users.DeleteProfilePicture(ctx, identity.UserID.Hex())
	if err != nil {
		h.internalError(w, r, err, "Failed to delete profile picture")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found or no profile picture to delete")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Profile picture deleted successfully"})
}

// isAllowedPicture checks both the extension and the sniffed content type,
// then rewinds the file.
func isAllowedPicture(ext string, file io.ReadSeeker) bool {
	want, ok := pictureTypes[ext]
	if !ok {
		return false
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return http.DetectContentType(head[:n]) == want
}
