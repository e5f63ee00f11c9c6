package tracker

import (
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ChaitanyaJx/Trackflix/models"
)

var (
	ErrRatingOutOfRange = errors.New("rating must be an integer between 0 and 5")
	ErrBadSortCriteria  = errors.New("sort criteria must be title or rating")
	ErrBadSortOrder     = errors.New("sort order must be asc or desc")
)

type SortCriteria string

const (
	SortByTitle  SortCriteria = "title"
	SortByRating SortCriteria = "rating"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterOptions narrows a record list. Zero-valued fields are inactive; the
// active predicates AND together.
type FilterOptions struct {
	Genre     string
	Language  string
	MinRating float64
}

// State holds the three session lists. Every imdb id appears at most once in
// Watchlist and at most once in SeenMovies, never in both: a title is either
// "to watch" or "already seen". Operations take a State by value and return
// the updated one; modified lists are rebuilt rather than mutated in place,
// so a caller can keep the previous value as a rollback snapshot.
type State struct {
	SearchResults []models.MovieRecord `json:"searchResults"`
	Watchlist     []models.MovieRecord `json:"watchlist"`
	SeenMovies    []models.MovieRecord `json:"seenMovies"`
}

// NewState returns an empty session state.
func NewState() State {
	return State{
		SearchResults: []models.MovieRecord{},
		Watchlist:     []models.MovieRecord{},
		SeenMovies:    []models.MovieRecord{},
	}
}

// IngestSearchResults replaces the search results, stamping each incoming
// record with the membership flags, rating and addedAt of any matching entry
// already tracked in the watchlist or seen list.
func IngestSearchResults(st State, records []models.MovieRecord) State {
	results := make([]models.MovieRecord, len(records))
	for i, rec := range records {
		if cur, ok := findRecord(st.Watchlist, rec.ImdbID); ok {
			rec.InWatchlist = true
			rec.Watched = false
			rec.UserRating = cur.UserRating
			rec.AddedAt = cur.AddedAt
		} else if cur, ok := findRecord(st.SeenMovies, rec.ImdbID); ok {
			rec.Watched = true
			rec.InWatchlist = false
			rec.UserRating = cur.UserRating
			rec.AddedAt = cur.AddedAt
		} else {
			rec.InWatchlist = false
			rec.Watched = false
		}
		results[i] = rec
	}
	st.SearchResults = results
	return st
}

// ToggleWatchlist flips imdbID's watchlist membership. Adding a title that is
// currently marked seen moves it out of the seen list; a title is never in
// both. A prior addedAt survives the move, so hopping between lists does not
// reset how long a title has been tracked. Unknown ids are a no-op.
func ToggleWatchlist(st State, imdbID string, now time.Time) State {
	rec, ok := lookupRecord(st, imdbID)
	if !ok {
		return st
	}

	if rec.InWatchlist {
		st.Watchlist = removeRecord(st.Watchlist, imdbID)
	} else {
		entry := rec
		entry.InWatchlist = true
		entry.Watched = false
		entry.AddedAt = carryAddedAt(st, imdbID, entry.AddedAt, now)
		st.Watchlist = appendRecord(st.Watchlist, entry)
		if rec.Watched {
			st.SeenMovies = removeRecord(st.SeenMovies, imdbID)
		}
		st.SearchResults = updateSearchEntry(st.SearchResults, imdbID, func(m *models.MovieRecord) {
			m.InWatchlist = true
			m.Watched = false
			m.AddedAt = entry.AddedAt
		})
		return st
	}

	st.SearchResults = updateSearchEntry(st.SearchResults, imdbID, func(m *models.MovieRecord) {
		m.InWatchlist = false
		m.Watched = false
	})
	return st
}

// ToggleSeen is the symmetric operation for the seen list. Removing a title
// from the seen list does not re-add it to the watchlist.
func ToggleSeen(st State, imdbID string, now time.Time) State {
	rec, ok := lookupRecord(st, imdbID)
	if !ok {
		return st
	}

	if rec.Watched {
		st.SeenMovies = removeRecord(st.SeenMovies, imdbID)
	} else {
		entry := rec
		entry.Watched = true
		entry.InWatchlist = false
		entry.AddedAt = carryAddedAt(st, imdbID, entry.AddedAt, now)
		st.SeenMovies = appendRecord(st.SeenMovies, entry)
		st.Watchlist = removeRecord(st.Watchlist, imdbID)
		st.SearchResults = updateSearchEntry(st.SearchResults, imdbID, func(m *models.MovieRecord) {
			m.Watched = true
			m.InWatchlist = false
			m.AddedAt = entry.AddedAt
		})
		return st
	}

	st.SearchResults = updateSearchEntry(st.SearchResults, imdbID, func(m *models.MovieRecord) {
		m.Watched = false
		m.InWatchlist = false
	})
	return st
}

// Rate applies a personal rating to every copy of imdbID across all three
// lists, so looking the title up anywhere yields the same value. Out-of-range
// ratings are rejected, not clamped.
func Rate(st State, imdbID string, rating int) (State, error) {
	if rating < 0 || rating > 5 {
		return st, ErrRatingOutOfRange
	}

	apply := func(records []models.MovieRecord) []models.MovieRecord {
		out := make([]models.MovieRecord, len(records))
		for i, rec := range records {
			if rec.ImdbID == imdbID {
				rec.UserRating = rating
			}
			out[i] = rec
		}
		return out
	}

	st.SearchResults = apply(st.SearchResults)
	st.Watchlist = apply(st.Watchlist)
	st.SeenMovies = apply(st.SeenMovies)
	return st, nil
}

var titleCollator = collate.New(language.English)

// SortRecords returns a stably sorted copy: titles compare with locale-aware
// collation, ratings numerically on the provider rating. Ties keep their
// prior relative order.
func SortRecords(records []models.MovieRecord, criteria SortCriteria, order SortOrder) ([]models.MovieRecord, error) {
	switch criteria {
	case SortByTitle, SortByRating:
	default:
		return nil, ErrBadSortCriteria
	}
	switch order {
	case SortAsc, SortDesc:
	default:
		return nil, ErrBadSortOrder
	}

	out := make([]models.MovieRecord, len(records))
	copy(out, records)

	less := func(a, b models.MovieRecord) bool {
		if criteria == SortByTitle {
			return titleCollator.CompareString(a.Title, b.Title) < 0
		}
		return a.ExternalRating < b.ExternalRating
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	return out, nil
}

// FilterRecords keeps records matching every active predicate: genre set
// membership, language substring, and provider rating at or above MinRating.
func FilterRecords(records []models.MovieRecord, opts FilterOptions) []models.MovieRecord {
	out := make([]models.MovieRecord, 0, len(records))
	for _, rec := range records {
		if opts.Genre != "" && !containsGenre(rec.Genres, opts.Genre) {
			continue
		}
		if opts.Language != "" && !strings.Contains(rec.Language, opts.Language) {
			continue
		}
		if opts.MinRating > 0 && rec.ExternalRating < opts.MinRating {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func containsGenre(genres []string, genre string) bool {
	for _, g := range genres {
		if g == genre {
			return true
		}
	}
	return false
}

// lookupRecord finds the first record for imdbID across search results,
// watchlist and seen list, in that order.
func lookupRecord(st State, imdbID string) (models.MovieRecord, bool) {
	for _, list := range [][]models.MovieRecord{st.SearchResults, st.Watchlist, st.SeenMovies} {
		if rec, ok := findRecord(list, imdbID); ok {
			return rec, true
		}
	}
	return models.MovieRecord{}, false
}

// carryAddedAt preserves the time a title first entered either list; only a
// title tracked nowhere gets stamped with now.
func carryAddedAt(st State, imdbID string, current int64, now time.Time) int64 {
	if current != 0 {
		return current
	}
	if cur, ok := findRecord(st.Watchlist, imdbID); ok && cur.AddedAt != 0 {
		return cur.AddedAt
	}
	if cur, ok := findRecord(st.SeenMovies, imdbID); ok && cur.AddedAt != 0 {
		return cur.AddedAt
	}
	return now.UnixMilli()
}

func findRecord(records []models.MovieRecord, imdbID string) (models.MovieRecord, bool) {
	for _, rec := range records {
		if rec.ImdbID == imdbID {
			return rec, true
		}
	}
	return models.MovieRecord{}, false
}

func removeRecord(records []models.MovieRecord, imdbID string) []models.MovieRecord {
	out := make([]models.MovieRecord, 0, len(records))
	for _, rec := range records {
		if rec.ImdbID == imdbID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func appendRecord(records []models.MovieRecord, rec models.MovieRecord) []models.MovieRecord {
	out := make([]models.MovieRecord, 0, len(records)+1)
	out = append(out, records...)
	return append(out, rec)
}

func updateSearchEntry(records []models.MovieRecord, imdbID string, fn func(*models.MovieRecord)) []models.MovieRecord {
	out := make([]models.MovieRecord, len(records))
	for i, rec := range records {
		if rec.ImdbID == imdbID {
			fn(&rec)
		}
		out[i] = rec
	}
	return out
}
