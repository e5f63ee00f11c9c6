package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ChaitanyaJx/Trackflix/models"
	"github.com/ChaitanyaJx/Trackflix/services/metadata"
)

type metadataService interface {
	GetByID(ctx context.Context, imdbID string) (models.MovieRecord, error)
}

var _ metadataService = (*metadata.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(service metadataService) *MetadataHandler {
	return &MetadataHandler{Service: service}
}

// GetByID returns the full provider record for one imdb id.
func (h *MetadataHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	imdbID := strings.TrimSpace(mux.Vars(r)["imdbID"])
	if imdbID == "" {
		http.Error(w, "imdb id is required", http.StatusBadRequest)
		return
	}

	record, err := h.Service.GetByID(r.Context(), imdbID)
	if err != nil {
		// Only a provider "no record" answer is a 404; transport failures
		// and timeouts are an upstream problem.
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, metadata.ErrIDRequired):
			status = http.StatusBadRequest
		case errors.Is(err, metadata.ErrNotFound):
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *MetadataHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
