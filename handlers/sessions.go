package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ChaitanyaJx/Trackflix/services/metadata"
	"github.com/ChaitanyaJx/Trackflix/services/tracker"
	"github.com/ChaitanyaJx/Trackflix/services/userstore"
)

type trackerService interface {
	Open(ctx context.Context, username string) (tracker.Snapshot, error)
	Close(username string) bool
	Lists(username string) (tracker.Snapshot, error)
	SetSort(username string, criteria tracker.SortCriteria, order tracker.SortOrder) (tracker.Snapshot, error)
	Search(ctx context.Context, username, query string, opts tracker.FilterOptions) (tracker.Snapshot, error)
	ClearSearch(username string) (tracker.Snapshot, error)
	ToggleWatchlist(ctx context.Context, username, imdbID string) (tracker.Snapshot, error)
	ToggleSeen(ctx context.Context, username, imdbID string) (tracker.Snapshot, error)
	Rate(ctx context.Context, username, imdbID string, rating int) (tracker.Snapshot, error)
}

var _ trackerService = (*tracker.Service)(nil)

type SessionsHandler struct {
	Service trackerService
}

func NewSessionsHandler(service trackerService) *SessionsHandler {
	return &SessionsHandler{Service: service}
}

// Open signs a username in and returns the hydrated lists.
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.Service.Open(r.Context(), body.Username)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snapshot)
}

// Close drops the in-memory session for a username.
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	if !h.Service.Close(username) {
		http.Error(w, tracker.ErrSessionNotFound.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Lists returns the session's current lists; optional sort/order query
// parameters change the session sort first.
func (h *SessionsHandler) Lists(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	criteria := strings.TrimSpace(r.URL.Query().Get("sort"))
	order := strings.TrimSpace(r.URL.Query().Get("order"))

	var snapshot tracker.Snapshot
	var err error
	if criteria != "" || order != "" {
		if order == "" {
			order = string(tracker.SortAsc)
		}
		snapshot, err = h.Service.SetSort(username, tracker.SortCriteria(criteria), tracker.SortOrder(order))
	} else {
		snapshot, err = h.Service.Lists(username)
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// Search runs a provider search for the session.
func (h *SessionsHandler) Search(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	var body struct {
		Query     string  `json:"query"`
		Genre     string  `json:"genre"`
		Language  string  `json:"language"`
		MinRating float64 `json:"minRating"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.Service.Search(r.Context(), username, body.Query, tracker.FilterOptions{
		Genre:     body.Genre,
		Language:  body.Language,
		MinRating: body.MinRating,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// ClearSearch empties the session's search results.
func (h *SessionsHandler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	snapshot, err := h.Service.ClearSearch(username)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// ToggleWatchlist flips a title's watchlist membership.
func (h *SessionsHandler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Service.ToggleWatchlist)
}

// ToggleSeen flips a title's seen membership.
func (h *SessionsHandler) ToggleSeen(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Service.ToggleSeen)
}

func (h *SessionsHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) (tracker.Snapshot, error)) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	imdbID := strings.TrimSpace(mux.Vars(r)["imdbID"])
	if imdbID == "" {
		http.Error(w, "imdb id is required", http.StatusBadRequest)
		return
	}

	snapshot, err := fn(r.Context(), username, imdbID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// Rate sets a personal rating for a title.
func (h *SessionsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}

	imdbID := strings.TrimSpace(mux.Vars(r)["imdbID"])
	if imdbID == "" {
		http.Error(w, "imdb id is required", http.StatusBadRequest)
		return
	}

	var body struct {
		Rating int `json:"rating"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.Service.Rate(r.Context(), username, imdbID, body.Rating)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (h *SessionsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func pathUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := strings.TrimSpace(mux.Vars(r)["username"])
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return "", false
	}
	return username, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var lookupErr *metadata.LookupError
	var storeErr *userstore.StoreError
	switch {
	case errors.Is(err, tracker.ErrUsernameRequired),
		errors.Is(err, tracker.ErrQueryRequired),
		errors.Is(err, tracker.ErrRatingOutOfRange),
		errors.Is(err, tracker.ErrBadSortCriteria),
		errors.Is(err, tracker.ErrBadSortOrder),
		errors.Is(err, metadata.ErrTitleRequired),
		errors.Is(err, metadata.ErrIDRequired),
		errors.Is(err, userstore.ErrUsernameReserved):
		status = http.StatusBadRequest
	case errors.Is(err, tracker.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, userstore.ErrRevisionConflict):
		status = http.StatusConflict
	case errors.As(err, &lookupErr), errors.As(err, &storeErr):
		status = http.StatusBadGateway
	}

	http.Error(w, err.Error(), status)
}
