package server

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/services"
	"github.com/desertthunder/udj/internal/shared"
)

// AuthHandler answers POST /auth with 200 for known credentials and 401 otherwise.
type AuthHandler struct {
	store *Store
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	if !h.store.Authenticate(r.PostForm.Get(services.FieldUsername), r.PostForm.Get(services.FieldPassword)) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PlaylistHandler answers POST /playlist: it applies the uploaded update array and returns the playlist delta.
type PlaylistHandler struct {
	store  *Store
	logger *log.Logger
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	since, ok := authorizeDelta(w, r, h.store)
	if !ok {
		return
	}

	updates := []services.WireEntry{}
	if raw := r.PostForm.Get(services.FieldUpdateArray); raw != "" {
		var err error
		if updates, err = services.DecodeUpdateArray([]byte(raw)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	applied := h.store.ApplyUpdates(updates)
	h.logger.Debug("updates applied", "username", r.PostForm.Get(services.FieldUsername), "received", len(updates), "applied", applied)

	body, err := services.EncodePlaylistEntries(h.store.PlaylistSince(since))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, body)
}

// LibraryHandler answers POST /library with the library delta.
type LibraryHandler struct {
	store *Store
}

func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	since, ok := authorizeDelta(w, r, h.store)
	if !ok {
		return
	}

	body, err := services.EncodeLibraryEntries(h.store.LibrarySince(since))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, body)
}

// authorizeDelta parses the form, checks credentials and the optional timestamp, writing the error response itself.
func authorizeDelta(w http.ResponseWriter, r *http.Request, store *Store) (*time.Time, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return nil, false
	}
	if !store.Authenticate(r.PostForm.Get(services.FieldUsername), r.PostForm.Get(services.FieldPassword)) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	raw := r.PostForm.Get(services.FieldTimestamp)
	if raw == "" {
		return nil, true
	}
	since, err := shared.ParseServerTimestamp(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &since, true
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ReadLibrary decodes a JSON library seed in response form.
func ReadLibrary(r io.Reader) ([]models.LibraryEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return services.DecodeLibraryEntries(data)
}
