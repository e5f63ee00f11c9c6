package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/ChaitanyaJx/Trackflix/handlers"
	"github.com/ChaitanyaJx/Trackflix/services/library"
)

func newLibraryHandler(t *testing.T) *handlers.LibraryHandler {
	t.Helper()
	svc, err := library.NewService(afero.NewMemMapFs(), "data/movies.json")
	if err != nil {
		t.Fatalf("new library service: %v", err)
	}
	return handlers.NewLibraryHandler(svc)
}

func TestLibraryGetBeforeSeed(t *testing.T) {
	h := newLibraryHandler(t)

	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/movies", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestLibraryPutThenGet(t *testing.T) {
	h := newLibraryHandler(t)

	put := httptest.NewRequest(http.MethodPut, "/api/movies", strings.NewReader(`{"movies":[{"imdbID":"tt001"}]}`))
	rr := httptest.NewRecorder()
	h.Put(rr, put)
	if rr.Code != http.StatusOK {
		t.Fatalf("put: status %d: %s", rr.Code, rr.Body.String())
	}
	var msg map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&msg); err != nil {
		t.Fatalf("decode put response: %v", err)
	}
	if msg["message"] != "Movies updated successfully" {
		t.Fatalf("unexpected put response: %v", msg)
	}

	rr = httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/movies", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: status %d", rr.Code)
	}

	var blob struct {
		Movies []struct {
			ImdbID string `json:"imdbID"`
		} `json:"movies"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&blob); err != nil {
		t.Fatalf("decode blob: %v", err)
	}
	if len(blob.Movies) != 1 || blob.Movies[0].ImdbID != "tt001" {
		t.Fatalf("round trip lost content: %+v", blob)
	}
}

func TestLibraryPutRejectsInvalidJSON(t *testing.T) {
	h := newLibraryHandler(t)

	put := httptest.NewRequest(http.MethodPut, "/api/movies", strings.NewReader(`{"movies": [`))
	rr := httptest.NewRecorder()
	h.Put(rr, put)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
