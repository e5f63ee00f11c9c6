package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ChaitanyaJx/Trackflix/models"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrSessionNotFound  = errors.New("no active session for username")
	ErrQueryRequired    = errors.New("search query is required")
)

type metadataService interface {
	SearchByTitle(ctx context.Context, title string) ([]models.MovieRecord, []error, error)
	GetByID(ctx context.Context, imdbID string) (models.MovieRecord, error)
}

type storeClient interface {
	Load(ctx context.Context, username string) (models.UserRecord, error)
	Save(ctx context.Context, username string, record models.UserRecord) error
	UpdateRating(ctx context.Context, username, imdbID string, rating int) error
}

// Service owns one reconciliation session per signed-in username. Each
// session holds the three in-memory lists for the duration of the sign-in;
// every mutation applies the pure state function and then explicitly
// persists through the store client. In optimistic mode (the default) a
// failed save keeps the in-memory change and surfaces a warning; otherwise
// the mutation rolls back to its pre-change snapshot and fails.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	metadata   metadataService
	store      storeClient
	optimistic bool
	now        func() time.Time
}

type session struct {
	mu            sync.Mutex
	username      string
	state         State
	sortCriteria  SortCriteria
	sortOrder     SortOrder
	lastUpdated   *int64
	lastSaveError string
}

// Snapshot is the view of a session returned to callers, lists pre-sorted by
// the session's current sort. Warnings carry non-fatal conditions such as a
// failed background save or dropped detail fetches.
type Snapshot struct {
	Username      string               `json:"username"`
	SearchResults []models.MovieRecord `json:"searchResults"`
	Watchlist     []models.MovieRecord `json:"watchlist"`
	SeenMovies    []models.MovieRecord `json:"seenMovies"`
	Genres        []string             `json:"genres"`
	Languages     []string             `json:"languages"`
	SortCriteria  SortCriteria         `json:"sortCriteria"`
	SortOrder     SortOrder            `json:"sortOrder"`
	LastUpdated   *int64               `json:"lastUpdated"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// NewService creates the session service.
func NewService(metadata metadataService, store storeClient, optimistic bool) *Service {
	return &Service{
		sessions:   make(map[string]*session),
		metadata:   metadata,
		store:      store,
		optimistic: optimistic,
		now:        time.Now,
	}
}

// Open signs a username in: loads its stored record and hydrates the
// watchlist and seen list with full metadata fetched concurrently from the
// provider. Titles whose detail fetch fails are dropped from the hydrated
// list with a warning; the sign-in itself only fails when the store load
// fails. Re-opening an already open session reloads from the store.
func (s *Service) Open(ctx context.Context, username string) (Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Snapshot{}, ErrUsernameRequired
	}

	record, err := s.store.Load(ctx, username)
	if err != nil {
		return Snapshot{}, err
	}

	st := NewState()
	var warnings []string

	watchlist, dropped := s.hydrate(ctx, record.Watchlist, record.Ratings, false)
	st.Watchlist = watchlist
	warnings = append(warnings, dropped...)

	seen, dropped := s.hydrate(ctx, record.SeenMovies, record.Ratings, true)
	st.SeenMovies = seen
	warnings = append(warnings, dropped...)

	sess := &session{
		username:     username,
		state:        st,
		sortCriteria: SortByTitle,
		sortOrder:    SortAsc,
		lastUpdated:  record.LastUpdated,
	}

	s.mu.Lock()
	s.sessions[username] = sess
	s.mu.Unlock()

	return s.snapshotLocked(sess, warnings), nil
}

// Close drops the in-memory session. Returns false if none was open.
func (s *Service) Close(username string) bool {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[username]; !ok {
		return false
	}
	delete(s.sessions, username)
	return true
}

// Lists returns the current session view.
func (s *Service) Lists(username string) (Snapshot, error) {
	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return s.snapshotLocked(sess, nil), nil
}

// SetSort changes the session's sort. Lists in subsequent snapshots come
// back in the new order. An empty criteria or order keeps the session's
// current value, so callers can change one axis without knowing the other.
func (s *Service) SetSort(username string, criteria SortCriteria, order SortOrder) (Snapshot, error) {
	switch criteria {
	case SortByTitle, SortByRating, "":
	default:
		return Snapshot{}, ErrBadSortCriteria
	}
	switch order {
	case SortAsc, SortDesc, "":
	default:
		return Snapshot{}, ErrBadSortOrder
	}

	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if criteria != "" {
		sess.sortCriteria = criteria
	}
	if order != "" {
		sess.sortOrder = order
	}

	return s.snapshotLocked(sess, nil), nil
}

// Search runs the provider search, applies the optional filter, and ingests
// the results into the session. Per-title detail failures surface as
// warnings without failing the search.
func (s *Service) Search(ctx context.Context, username, query string, opts FilterOptions) (Snapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Snapshot{}, ErrQueryRequired
	}

	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	records, partial, err := s.metadata.SearchByTitle(ctx, query)
	if err != nil {
		return Snapshot{}, err
	}

	records = FilterRecords(records, opts)

	var warnings []string
	for _, perr := range partial {
		warnings = append(warnings, perr.Error())
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.state = IngestSearchResults(sess.state, records)

	return s.snapshotLocked(sess, warnings), nil
}

// ClearSearch empties the session's search results.
func (s *Service) ClearSearch(username string) (Snapshot, error) {
	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.state.SearchResults = []models.MovieRecord{}

	return s.snapshotLocked(sess, nil), nil
}

// ToggleWatchlist flips imdbID's watchlist membership and persists the
// updated lists.
func (s *Service) ToggleWatchlist(ctx context.Context, username, imdbID string) (Snapshot, error) {
	return s.mutate(ctx, username, func(st State) (State, error) {
		return ToggleWatchlist(st, imdbID, s.now()), nil
	})
}

// ToggleSeen flips imdbID's seen membership and persists the updated lists.
func (s *Service) ToggleSeen(ctx context.Context, username, imdbID string) (Snapshot, error) {
	return s.mutate(ctx, username, func(st State) (State, error) {
		return ToggleSeen(st, imdbID, s.now()), nil
	})
}

// Rate applies a personal rating across the session lists and persists it
// through the store's single-rating patch.
func (s *Service) Rate(ctx context.Context, username, imdbID string, rating int) (Snapshot, error) {
	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	prev := sess.state
	next, err := Rate(sess.state, imdbID, rating)
	if err != nil {
		return Snapshot{}, err
	}
	sess.state = next

	var warnings []string
	if err := s.store.UpdateRating(ctx, sess.username, imdbID, rating); err != nil {
		if !s.optimistic {
			sess.state = prev
			return Snapshot{}, err
		}
		sess.lastSaveError = err.Error()
		warnings = append(warnings, fmt.Sprintf("rating not saved: %v", err))
		slog.Warn("rating save failed", "username", sess.username, "imdbID", imdbID, "error", err)
	} else {
		sess.lastSaveError = ""
	}

	return s.snapshotLocked(sess, warnings), nil
}

func (s *Service) mutate(ctx context.Context, username string, fn func(State) (State, error)) (Snapshot, error) {
	sess, err := s.session(username)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	prev := sess.state
	next, err := fn(sess.state)
	if err != nil {
		return Snapshot{}, err
	}
	sess.state = next

	var warnings []string
	if err := s.store.Save(ctx, sess.username, recordFromState(sess.state)); err != nil {
		if !s.optimistic {
			sess.state = prev
			return Snapshot{}, err
		}
		sess.lastSaveError = err.Error()
		warnings = append(warnings, fmt.Sprintf("changes not saved: %v", err))
		slog.Warn("session save failed", "username", sess.username, "error", err)
	} else {
		sess.lastSaveError = ""
		now := s.now().UnixMilli()
		sess.lastUpdated = &now
	}

	return s.snapshotLocked(sess, warnings), nil
}

func (s *Service) session(username string) (*session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[username]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// hydrate expands persisted entries into full records via concurrent detail
// fetches, preserving entry order. Failed titles are dropped and reported.
func (s *Service) hydrate(ctx context.Context, entries []models.WatchlistEntry, ratings map[string]int, seen bool) ([]models.MovieRecord, []string) {
	if len(entries) == 0 {
		return []models.MovieRecord{}, nil
	}

	records := make([]models.MovieRecord, len(entries))
	failures := make([]error, len(entries))

	p := pool.New().WithMaxGoroutines(len(entries))
	for i, entry := range entries {
		i, entry := i, entry
		p.Go(func() {
			rec, err := s.metadata.GetByID(ctx, entry.ImdbID)
			if err != nil {
				failures[i] = err
				return
			}
			rec.InWatchlist = !seen
			rec.Watched = seen
			rec.UserRating = ratings[entry.ImdbID]
			rec.AddedAt = entry.AddedAt
			records[i] = rec
		})
	}
	p.Wait()

	out := make([]models.MovieRecord, 0, len(records))
	var warnings []string
	for i := range records {
		if failures[i] != nil {
			warnings = append(warnings, fmt.Sprintf("could not load %s: %v", entries[i].ImdbID, failures[i]))
			continue
		}
		out = append(out, records[i])
	}

	return out, warnings
}

// snapshotLocked builds the caller view; sess.mu must be held (Open holds no
// lock but owns the only reference at that point).
func (s *Service) snapshotLocked(sess *session, warnings []string) Snapshot {
	if sess.lastSaveError != "" && len(warnings) == 0 {
		warnings = []string{"last save failed: " + sess.lastSaveError}
	}

	sortList := func(records []models.MovieRecord) []models.MovieRecord {
		out, err := SortRecords(records, sess.sortCriteria, sess.sortOrder)
		if err != nil {
			return records
		}
		return out
	}

	all := make([]models.MovieRecord, 0,
		len(sess.state.SearchResults)+len(sess.state.Watchlist)+len(sess.state.SeenMovies))
	all = append(all, sess.state.SearchResults...)
	all = append(all, sess.state.Watchlist...)
	all = append(all, sess.state.SeenMovies...)

	return Snapshot{
		Username:      sess.username,
		SearchResults: sortList(sess.state.SearchResults),
		Watchlist:     sortList(sess.state.Watchlist),
		SeenMovies:    sortList(sess.state.SeenMovies),
		Genres:        collectGenres(all),
		Languages:     collectLanguages(all),
		SortCriteria:  sess.sortCriteria,
		SortOrder:     sess.sortOrder,
		LastUpdated:   sess.lastUpdated,
		Warnings:      warnings,
	}
}

// recordFromState flattens the in-memory lists back to the persisted shape.
// Ratings cover every tracked title, zero meaning unrated.
func recordFromState(st State) models.UserRecord {
	record := models.EmptyUserRecord()

	for _, rec := range st.Watchlist {
		record.Watchlist = append(record.Watchlist, models.WatchlistEntry{
			ImdbID:  rec.ImdbID,
			Title:   rec.Title,
			AddedAt: rec.AddedAt,
		})
		record.Ratings[rec.ImdbID] = rec.UserRating
	}
	for _, rec := range st.SeenMovies {
		record.SeenMovies = append(record.SeenMovies, models.WatchlistEntry{
			ImdbID:  rec.ImdbID,
			Title:   rec.Title,
			AddedAt: rec.AddedAt,
		})
		record.Ratings[rec.ImdbID] = rec.UserRating
	}

	return record
}

func collectGenres(records []models.MovieRecord) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		for _, g := range rec.Genres {
			if g != "" {
				set[g] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func collectLanguages(records []models.MovieRecord) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		if rec.Language != "" {
			set[rec.Language] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
