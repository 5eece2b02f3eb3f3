package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	aiTimeout       = 60 * time.Second
	maxPromptLength = 8000
)

type AIRequest struct {
	Prompt string `json:"prompt"`
}

type AIResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// AskAI handles POST /api/ai, forwarding the prompt to the configured model.
func (h *Handler) AskAI(w http.ResponseWriter, r *http.Request) {
	if h.AI == nil || !h.AI.Configured() {
		writeError(w, http.StatusInternalServerError, "Missing GOOGLE_API_KEY environment variable.")
		return
	}

	var req AIRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Missing prompt")
		return
	}
	if utf8.RuneCountInString(req.Prompt) > maxPromptLength {
		writeError(w, http.StatusBadRequest, "Prompt is too long")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), aiTimeout)
	defer cancel()

	text, err := h.AI.Generate(ctx, req.Prompt)
	if err != nil {
		h.internalError(w, r, err, "AI request failed")
		return
	}
	writeJSON(w, http.StatusOK, AIResponse{Success: true, Text: text})
}
