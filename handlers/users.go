package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ChaitanyaJx/Trackflix/models"
	"github.com/ChaitanyaJx/Trackflix/services/userstore"
)

type userStore interface {
	Usernames(ctx context.Context) ([]models.UserSummary, error)
	CheckUsername(ctx context.Context, username string) (bool, *int64, error)
	Delete(ctx context.Context, username string) error
	Backup(ctx context.Context, username string) (models.UserBackup, error)
	Restore(ctx context.Context, username string, record models.UserRecord) error
}

var _ userStore = (*userstore.Client)(nil)

type UsersHandler struct {
	Store userStore
}

func NewUsersHandler(store userStore) *UsersHandler {
	return &UsersHandler{Store: store}
}

// List returns every username the store knows, with last write times.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Store.Usernames(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// Check reports whether a username has a stored record.
func (h *UsersHandler) Check(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	exists, lastUpdated, err := h.Store.CheckUsername(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Exists      bool   `json:"exists"`
		LastUpdated *int64 `json:"lastUpdated"`
	}{Exists: exists, LastUpdated: lastUpdated})
}

// Delete removes a username's record from the store.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	if err := h.Store.Delete(r.Context(), username); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Backup returns a point-in-time copy of a username's record.
func (h *UsersHandler) Backup(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	backup, err := h.Store.Backup(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(backup)
}

// Restore writes a previously backed-up record for a username.
func (h *UsersHandler) Restore(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	var record models.UserRecord
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&record); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.Restore(r.Context(), username, record); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, userstore.ErrUsernameRequired),
		errors.Is(err, userstore.ErrUsernameReserved):
		status = http.StatusBadRequest
	case errors.Is(err, userstore.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, userstore.ErrRevisionConflict):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
