package files

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/adube/placeshare/internal/httperr"
)

// Handler streams stored images back to clients.
type Handler struct {
	store Store
	log   zerolog.Logger
}

func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Serve handles GET /files/{key}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	data, contentType, err := h.store.Download(r.Context(), key)
	if err != nil {
		httperr.Write(w, h.log, httperr.NotFound("Could not find the requested file."))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
