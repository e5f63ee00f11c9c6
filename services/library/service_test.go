package library_test

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"

	"github.com/ChaitanyaJx/Trackflix/services/library"
)

func TestNewServiceRequiresPath(t *testing.T) {
	if _, err := library.NewService(afero.NewMemMapFs(), "  "); err != library.ErrPathRequired {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
}

func TestReadBeforeSeed(t *testing.T) {
	svc, err := library.NewService(afero.NewMemMapFs(), "data/movies.json")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Read(); err != library.ErrNotSeeded {
		t.Fatalf("expected ErrNotSeeded, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, err := library.NewService(fs, "data/movies.json")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	blob := json.RawMessage(`{"movies":[{"imdbID":"tt001","title":"Alien"}]}`)
	if err := svc.Write(blob); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := svc.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var parsed struct {
		Movies []struct {
			ImdbID string `json:"imdbID"`
		} `json:"movies"`
	}
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("stored blob is not valid JSON: %v", err)
	}
	if len(parsed.Movies) != 1 || parsed.Movies[0].ImdbID != "tt001" {
		t.Fatalf("round trip lost content: %s", got)
	}

	// No temp file left behind.
	if exists, _ := afero.Exists(fs, "data/movies.json.tmp"); exists {
		t.Fatalf("temp file left after write")
	}
}

func TestWriteRejectsInvalidJSON(t *testing.T) {
	svc, err := library.NewService(afero.NewMemMapFs(), "data/movies.json")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Write(json.RawMessage(`{"movies": [`)); err != library.ErrInvalidJSON {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}

	if _, err := svc.Read(); err != library.ErrNotSeeded {
		t.Fatalf("rejected write still created the file: %v", err)
	}
}

func TestWriteReplacesWholesale(t *testing.T) {
	svc, err := library.NewService(afero.NewMemMapFs(), "data/movies.json")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Write(json.RawMessage(`{"movies":[{"imdbID":"tt001"},{"imdbID":"tt002"}]}`)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := svc.Write(json.RawMessage(`{"movies":[]}`)); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := svc.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var parsed struct {
		Movies []json.RawMessage `json:"movies"`
	}
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed.Movies) != 0 {
		t.Fatalf("old content survived a replace: %s", got)
	}
}
