package metadata_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChaitanyaJx/Trackflix/models"
	"github.com/ChaitanyaJx/Trackflix/services/metadata"
)

type fakeTitle struct {
	title    string
	year     string
	rating   string
	genre    string
	plot     string
	language string
	poster   string
	fail     bool
}

// fakeProvider answers s= and i= queries the way the real API does,
// including the "Response"/"Error" envelope and "N/A" placeholders.
func fakeProvider(t *testing.T, titles map[string]fakeTitle, order []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") == "" {
			http.Error(w, `{"Response":"False","Error":"No API key provided."}`, http.StatusUnauthorized)
			return
		}

		if id := r.URL.Query().Get("i"); id != "" {
			ft, ok := titles[id]
			if !ok || ft.fail {
				json.NewEncoder(w).Encode(map[string]string{
					"Response": "False",
					"Error":    "Incorrect IMDb ID.",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"Title":      ft.title,
				"Year":       ft.year,
				"imdbID":     id,
				"imdbRating": ft.rating,
				"Genre":      ft.genre,
				"Plot":       ft.plot,
				"Language":   ft.language,
				"Poster":     ft.poster,
				"Response":   "True",
			})
			return
		}

		if r.URL.Query().Get("s") == "" {
			json.NewEncoder(w).Encode(map[string]string{
				"Response": "False",
				"Error":    "Something went wrong.",
			})
			return
		}
		if len(order) == 0 {
			json.NewEncoder(w).Encode(map[string]string{
				"Response": "False",
				"Error":    "Movie not found!",
			})
			return
		}

		var search []map[string]string
		for _, id := range order {
			search = append(search, map[string]string{
				"Title":  titles[id].title,
				"Year":   titles[id].year,
				"imdbID": id,
				"Type":   "movie",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"Search":       search,
			"totalResults": fmt.Sprint(len(search)),
			"Response":     "True",
		})
	}))
}

func newService(srv *httptest.Server, maxResults int) *metadata.Service {
	// A high request rate keeps the limiter out of the test's way.
	return metadata.NewService("testkey", srv.URL, maxResults, 5*time.Second, 1000)
}

func TestSearchByTitleReturnsDetailsInSummaryOrder(t *testing.T) {
	titles := map[string]fakeTitle{
		"tt002": {title: "Aliens", year: "1986", rating: "8.4", genre: "Action, Sci-Fi", plot: "They mostly come at night.", language: "English", poster: "https://img/tt002.jpg"},
		"tt001": {title: "Alien", year: "1979", rating: "8.5", genre: "Horror, Sci-Fi", plot: "In space no one can hear you scream.", language: "English", poster: "https://img/tt001.jpg"},
	}
	srv := fakeProvider(t, titles, []string{"tt002", "tt001"})
	defer srv.Close()

	records, partial, err := newService(srv, 10).SearchByTitle(context.Background(), "alien")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(partial) != 0 {
		t.Fatalf("unexpected partial failures: %v", partial)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ImdbID != "tt002" || records[1].ImdbID != "tt001" {
		t.Fatalf("records out of summary order: %s, %s", records[0].ImdbID, records[1].ImdbID)
	}

	rec := records[1]
	if rec.Title != "Alien" || rec.ExternalRating != 8.5 {
		t.Fatalf("detail not transformed: %+v", rec)
	}
	if len(rec.Genres) != 2 || rec.Genres[0] != "Horror" || rec.Genres[1] != "Sci-Fi" {
		t.Fatalf("genre string not split: %v", rec.Genres)
	}
	if rec.PosterURL != "https://img/tt001.jpg" {
		t.Fatalf("poster not carried: %q", rec.PosterURL)
	}
}

func TestSearchByTitleCollectsPartialFailures(t *testing.T) {
	titles := map[string]fakeTitle{
		"tt001": {title: "Alien", year: "1979", rating: "8.5", genre: "Horror", poster: "N/A"},
		"tt002": {title: "Aliens", fail: true},
		"tt003": {title: "Alien 3", year: "1992", rating: "6.4", genre: "Horror", poster: "N/A"},
	}
	srv := fakeProvider(t, titles, []string{"tt001", "tt002", "tt003"})
	defer srv.Close()

	records, partial, err := newService(srv, 10).SearchByTitle(context.Background(), "alien")
	if err != nil {
		t.Fatalf("search should survive per-title failures: %v", err)
	}
	if len(records) != 2 || records[0].ImdbID != "tt001" || records[1].ImdbID != "tt003" {
		t.Fatalf("unexpected surviving records: %+v", records)
	}
	if len(partial) != 1 {
		t.Fatalf("expected 1 partial failure, got %d", len(partial))
	}

	var lerr *metadata.LookupError
	if !errors.As(partial[0], &lerr) || lerr.Op != "detail" || lerr.ID != "tt002" {
		t.Fatalf("unexpected partial failure: %v", partial[0])
	}
}

func TestSearchByTitleCapsResults(t *testing.T) {
	titles := map[string]fakeTitle{
		"tt001": {title: "Alien", rating: "8.5"},
		"tt002": {title: "Aliens", rating: "8.4"},
		"tt003": {title: "Alien 3", rating: "6.4"},
	}
	srv := fakeProvider(t, titles, []string{"tt001", "tt002", "tt003"})
	defer srv.Close()

	records, _, err := newService(srv, 2).SearchByTitle(context.Background(), "alien")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("cap not applied: got %d records", len(records))
	}
}

func TestSearchByTitleProviderError(t *testing.T) {
	srv := fakeProvider(t, nil, nil)
	defer srv.Close()

	_, _, err := newService(srv, 10).SearchByTitle(context.Background(), "no such movie")
	var lerr *metadata.LookupError
	if !errors.As(err, &lerr) || lerr.Op != "search" {
		t.Fatalf("expected search LookupError, got %v", err)
	}
}

func TestSearchByTitleRequiresTitle(t *testing.T) {
	srv := fakeProvider(t, nil, nil)
	defer srv.Close()

	if _, _, err := newService(srv, 10).SearchByTitle(context.Background(), "  "); err != metadata.ErrTitleRequired {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestGetByIDCleansPlaceholderFields(t *testing.T) {
	titles := map[string]fakeTitle{
		"tt001": {title: "Obscurity", year: "1931", rating: "N/A", genre: "N/A", plot: "N/A", language: "N/A", poster: "N/A"},
	}
	srv := fakeProvider(t, titles, nil)
	defer srv.Close()

	rec, err := newService(srv, 10).GetByID(context.Background(), "tt001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if rec.ExternalRating != 0 {
		t.Fatalf("N/A rating not zeroed: %v", rec.ExternalRating)
	}
	if len(rec.Genres) != 0 {
		t.Fatalf("N/A genre not emptied: %v", rec.Genres)
	}
	if rec.Description != "" || rec.Language != "" {
		t.Fatalf("N/A text fields not cleaned: %+v", rec)
	}
	if rec.PosterURL != models.PlaceholderPoster {
		t.Fatalf("missing poster not replaced: %q", rec.PosterURL)
	}
}

func TestGetByIDUnknownID(t *testing.T) {
	srv := fakeProvider(t, map[string]fakeTitle{}, nil)
	defer srv.Close()

	_, err := newService(srv, 10).GetByID(context.Background(), "tt404")
	var lerr *metadata.LookupError
	if !errors.As(err, &lerr) || lerr.Op != "detail" || lerr.ID != "tt404" {
		t.Fatalf("expected detail LookupError for tt404, got %v", err)
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Fatalf("provider miss should report ErrNotFound, got %v", err)
	}
}

func TestGetByIDServerFailureIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newService(srv, 10).GetByID(context.Background(), "tt001")
	if err == nil {
		t.Fatalf("expected error for failing provider")
	}
	if errors.Is(err, metadata.ErrNotFound) {
		t.Fatalf("provider failure misreported as not found: %v", err)
	}
}

func TestGetByIDRequiresID(t *testing.T) {
	srv := fakeProvider(t, nil, nil)
	defer srv.Close()

	if _, err := newService(srv, 10).GetByID(context.Background(), ""); err != metadata.ErrIDRequired {
		t.Fatalf("expected ErrIDRequired, got %v", err)
	}
}
