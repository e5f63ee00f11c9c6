package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ChaitanyaJx/Trackflix/services/library"
)

type libraryService interface {
	Read() (json.RawMessage, error)
	Write(blob json.RawMessage) error
}

var _ libraryService = (*library.Service)(nil)

// LibraryHandler exposes the local movie seed file as an opaque blob:
// GET returns it wholesale, PUT replaces it wholesale.
type LibraryHandler struct {
	Service libraryService
}

func NewLibraryHandler(service libraryService) *LibraryHandler {
	return &LibraryHandler{Service: service}
}

func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	blob, err := h.Service.Read()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrNotSeeded) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(blob)
}

func (h *LibraryHandler) Put(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Write(body); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrInvalidJSON) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Movies updated successfully"})
}

func (h *LibraryHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
