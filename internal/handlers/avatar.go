package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nexora-chat/apiserver/internal/avatars"
	"github.com/nexora-chat/apiserver/internal/logging"
)

// AvatarHandler serves the self-hosted avatar pool from object storage.
// It is registered only when a storage backend is configured.
type AvatarHandler struct {
	store avatars.ObjectStore
	log   logging.Logger
}

func NewAvatarHandler(store avatars.ObjectStore, log logging.Logger) *AvatarHandler {
	return &AvatarHandler{store: store, log: log}
}

// AvatarRouter registers avatar routes on the given router.
func AvatarRouter(r chi.Router, store avatars.ObjectStore, log logging.Logger) {
	handler := NewAvatarHandler(store, log)

	r.Get("/{index}.png", handler.Get)
}

// Get streams one pool image by index.
func (h *AvatarHandler) Get(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 1 || index > avatars.PoolSize {
		writeError(w, http.StatusNotFound, "Avatar not found")
		return
	}

	object, err := h.store.Get(r.Context(), avatars.Key(index))
	if err != nil {
		writeError(w, http.StatusNotFound, "Avatar not found")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, object); err != nil {
		h.log.Warn(r.Context(), "avatar stream interrupted", "index", index, "error", err)
	}
}
