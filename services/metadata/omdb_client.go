package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChaitanyaJx/Trackflix/models"
)

type omdbClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
}

func newOMDBClient(apiKey, baseURL string, timeout time.Duration, requestsPerSecond float64) *omdbClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &omdbClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// omdbSummary is one entry of the lightweight title search response.
type omdbSummary struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type omdbSearchResponse struct {
	Search       []omdbSummary `json:"Search"`
	TotalResults string        `json:"totalResults"`
	Response     string        `json:"Response"`
	Error        string        `json:"Error"`
}

// omdbDetail is the full per-title response. OMDB capitalizes its keys and
// reports absent values as the literal string "N/A".
type omdbDetail struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

func (c *omdbClient) doGET(ctx context.Context, query url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("omdb request failed: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *omdbClient) search(ctx context.Context, title string) ([]omdbSummary, error) {
	q := url.Values{}
	q.Set("s", title)
	q.Set("type", "movie")

	var payload omdbSearchResponse
	if err := c.doGET(ctx, q, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("omdb: %s", payload.Error)
	}

	return payload.Search, nil
}

func (c *omdbClient) detail(ctx context.Context, imdbID string) (omdbDetail, error) {
	q := url.Values{}
	q.Set("i", imdbID)

	var payload omdbDetail
	if err := c.doGET(ctx, q, &payload); err != nil {
		return omdbDetail{}, err
	}
	if payload.Error != "" {
		return omdbDetail{}, fmt.Errorf("%w %s: omdb: %s", ErrNotFound, imdbID, payload.Error)
	}
	if strings.TrimSpace(payload.ImdbID) == "" {
		return omdbDetail{}, fmt.Errorf("%w %s", ErrNotFound, imdbID)
	}

	return payload, nil
}

func transformDetail(d omdbDetail) models.MovieRecord {
	rec := models.MovieRecord{
		ImdbID:      d.ImdbID,
		Title:       d.Title,
		Year:        d.Year,
		Description: cleanField(d.Plot),
		Language:    cleanField(d.Language),
		Director:    cleanField(d.Director),
		Actors:      cleanField(d.Actors),
		PosterURL:   models.PlaceholderPoster,
	}

	if rating, err := strconv.ParseFloat(d.ImdbRating, 64); err == nil {
		rec.ExternalRating = rating
	}

	if genres := cleanField(d.Genre); genres != "" {
		rec.Genres = strings.Split(genres, ", ")
	} else {
		rec.Genres = []string{}
	}

	if poster := strings.TrimSpace(d.Poster); poster != "" && poster != "N/A" {
		rec.PosterURL = poster
	}

	return rec
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "N/A" {
		return ""
	}
	return s
}
