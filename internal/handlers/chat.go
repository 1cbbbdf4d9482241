package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nexora-chat/apiserver/internal/logging"
	"github.com/nexora-chat/apiserver/internal/mirror"
)

// ChatHandler issues chat-provider tokens for authenticated users.
type ChatHandler struct {
	mirror *mirror.Client
	log    logging.Logger
}

func NewChatHandler(client *mirror.Client, log logging.Logger) *ChatHandler {
	return &ChatHandler{mirror: client, log: log}
}

// ChatRouter registers chat routes on the given router.
func ChatRouter(r chi.Router, client *mirror.Client, authMiddleware func(http.Handler) http.Handler, log logging.Logger) {
	handler := NewChatHandler(client, log)

	r.With(authMiddleware).Get("/token", handler.Token)
}

// Token returns a chat-provider token for the current user. The token is
// signed with the provider's API secret and is unrelated to the session.
func (h *ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.mirror == nil {
		writeError(w, http.StatusInternalServerError, "Chat provider is not configured")
		return
	}

	token, err := h.mirror.UserToken(userID)
	if err != nil {
		h.log.Error(r.Context(), "chat token signing failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}
