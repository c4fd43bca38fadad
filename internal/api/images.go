package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/rewear/internal/store"
)

// ImagesHandler serves stored listing photos.
type ImagesHandler struct {
	DB *sql.DB
}

// Get handles GET /api/images/{id}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	// Images are immutable once stored.
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Write(data)
}
