package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ChaitanyaJx/Trackflix/models"
)

var (
	ErrTitleRequired = errors.New("search title is required")
	ErrIDRequired    = errors.New("imdb id is required")
	// ErrNotFound means the provider answered but has no record for the id.
	// Transport failures and timeouts are not ErrNotFound.
	ErrNotFound = errors.New("no record for id")
)

// LookupError reports a failure talking to the metadata provider: transport
// errors, non-2xx responses, and provider-reported domain errors such as
// "Movie not found!".
type LookupError struct {
	Op  string // "search" or "detail"
	ID  string // imdb id or search title
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("metadata %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Service wraps the movie metadata provider. It holds no state beyond the
// HTTP client; every call is pure request/response.
type Service struct {
	client     *omdbClient
	maxResults int
}

// NewService creates a metadata service talking to an OMDB-compatible
// provider. maxResults caps how many search hits are expanded to full
// records per batch.
func NewService(apiKey, baseURL string, maxResults int, timeout time.Duration, requestsPerSecond float64) *Service {
	if maxResults <= 0 {
		maxResults = 30
	}
	return &Service{
		client:     newOMDBClient(apiKey, baseURL, timeout, requestsPerSecond),
		maxResults: maxResults,
	}
}

// SearchByTitle runs the two-phase search: a title query for lightweight
// summaries, then one concurrent detail fetch per summary. The batch fails as
// a whole only when the title query itself fails; individual detail failures
// are collected and returned alongside the successful records. Records come
// back in summary order, not completion order.
func (s *Service) SearchByTitle(ctx context.Context, title string) ([]models.MovieRecord, []error, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil, ErrTitleRequired
	}

	summaries, err := s.client.search(ctx, title)
	if err != nil {
		return nil, nil, &LookupError{Op: "search", ID: title, Err: err}
	}
	if len(summaries) == 0 {
		return []models.MovieRecord{}, nil, nil
	}
	if len(summaries) > s.maxResults {
		summaries = summaries[:s.maxResults]
	}

	records := make([]models.MovieRecord, len(summaries))
	failures := make([]error, len(summaries))

	p := pool.New().WithMaxGoroutines(len(summaries))
	for i, summary := range summaries {
		i, summary := i, summary
		p.Go(func() {
			detail, err := s.client.detail(ctx, summary.ImdbID)
			if err != nil {
				failures[i] = &LookupError{Op: "detail", ID: summary.ImdbID, Err: err}
				return
			}
			records[i] = transformDetail(detail)
		})
	}
	p.Wait()

	out := make([]models.MovieRecord, 0, len(records))
	var errs []error
	for i, rec := range records {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		out = append(out, rec)
	}

	return out, errs, nil
}

// GetByID fetches the full record for a single imdb id.
func (s *Service) GetByID(ctx context.Context, imdbID string) (models.MovieRecord, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return models.MovieRecord{}, ErrIDRequired
	}

	detail, err := s.client.detail(ctx, imdbID)
	if err != nil {
		return models.MovieRecord{}, &LookupError{Op: "detail", ID: imdbID, Err: err}
	}

	return transformDetail(detail), nil
}
