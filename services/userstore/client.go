package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChaitanyaJx/Trackflix/models"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	// ErrUsernameReserved rejects the internal document key as a username.
	ErrUsernameReserved = errors.New("username is reserved")
	ErrUserNotFound     = errors.New("user not found")
	// ErrRevisionConflict is returned when the revision check is enabled and
	// the shared document changed between the read and the write of a save.
	ErrRevisionConflict = errors.New("store document changed during save")
)

// StoreError reports a failure talking to the document store.
type StoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// metaKey is a reserved entry of the shared document carrying the write
// revision. It is skipped when listing usernames.
const metaKey = "_meta"

type docMeta struct {
	Revision string `json:"revision"`
}

// document is the full shared store payload: username -> UserRecord, kept raw
// so a save only re-encodes the entry being replaced.
type document map[string]json.RawMessage

// Client wraps the hosted JSON document store. The store holds one shared
// document for all usernames, so every write is a read-modify-write of the
// whole document. The client is a stateless transport; it owns no data.
//
// Known consistency gap: two concurrent saves for different usernames can
// race and one username's update is lost (last writer wins). With
// checkRevision enabled each write stamps a fresh revision and re-reads the
// document immediately before the PUT, failing with ErrRevisionConflict when
// the revision moved; the store has no conditional PUT, so this narrows the
// window without closing it.
type Client struct {
	baseURL       string
	binID         string
	masterKey     string
	httpc         *http.Client
	checkRevision bool
	now           func() time.Time
}

// NewClient creates a store client for a JSONBin-compatible document store.
func NewClient(baseURL, binID, masterKey string, timeout time.Duration, checkRevision bool) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		binID:         strings.TrimSpace(binID),
		masterKey:     strings.TrimSpace(masterKey),
		httpc:         &http.Client{Timeout: timeout},
		checkRevision: checkRevision,
		now:           time.Now,
	}
}

// Load returns the record stored for username, or the empty default record
// when the store has never seen the username. The latter is not an error.
func (c *Client) Load(ctx context.Context, username string) (models.UserRecord, error) {
	username, err := validUsername(username)
	if err != nil {
		return models.UserRecord{}, err
	}

	doc, _, err := c.fetchDocument(ctx)
	if err != nil {
		return models.UserRecord{}, err
	}

	raw, ok := doc[username]
	if !ok {
		return models.EmptyUserRecord(), nil
	}

	var record models.UserRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.UserRecord{}, &StoreError{Op: "decode record", Err: err}
	}

	return normalizeRecord(record), nil
}

// Save replaces username's entry in the shared document, stamping
// lastUpdated, and writes the whole document back. No retry on failure.
func (c *Client) Save(ctx context.Context, username string, record models.UserRecord) error {
	username, err := validUsername(username)
	if err != nil {
		return err
	}

	doc, revision, err := c.fetchDocument(ctx)
	if err != nil {
		return err
	}

	record = normalizeRecord(record)
	nowMillis := c.now().UnixMilli()
	for i := range record.Watchlist {
		if record.Watchlist[i].AddedAt == 0 {
			record.Watchlist[i].AddedAt = nowMillis
		}
	}
	for i := range record.SeenMovies {
		if record.SeenMovies[i].AddedAt == 0 {
			record.SeenMovies[i].AddedAt = nowMillis
		}
	}
	record.LastUpdated = &nowMillis

	raw, err := json.Marshal(record)
	if err != nil {
		return &StoreError{Op: "encode record", Err: err}
	}
	doc[username] = raw

	return c.putDocument(ctx, doc, revision)
}

// UpdateRating patches a single rating into username's record: load, set,
// save. Subject to the same read-modify-write race as Save.
func (c *Client) UpdateRating(ctx context.Context, username, imdbID string, rating int) error {
	username, err := validUsername(username)
	if err != nil {
		return err
	}

	record, err := c.Load(ctx, username)
	if err != nil {
		return err
	}

	record.Ratings[imdbID] = rating

	return c.Save(ctx, username, record)
}

// CheckUsername reports whether the store holds a record for username.
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, *int64, error) {
	username, err := validUsername(username)
	if err != nil {
		return false, nil, err
	}

	doc, _, err := c.fetchDocument(ctx)
	if err != nil {
		return false, nil, err
	}

	raw, ok := doc[username]
	if !ok {
		return false, nil, nil
	}

	var record models.UserRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, nil, &StoreError{Op: "decode record", Err: err}
	}

	return true, record.LastUpdated, nil
}

// Usernames lists every username in the store with its last write time,
// sorted by username.
func (c *Client) Usernames(ctx context.Context) ([]models.UserSummary, error) {
	doc, _, err := c.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.UserSummary, 0, len(doc))
	for username, raw := range doc {
		if username == metaKey {
			continue
		}
		var record models.UserRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		summaries = append(summaries, models.UserSummary{
			Username:    username,
			LastUpdated: record.LastUpdated,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Username < summaries[j].Username
	})

	return summaries, nil
}

// Delete removes username's entry from the shared document.
func (c *Client) Delete(ctx context.Context, username string) error {
	username, err := validUsername(username)
	if err != nil {
		return err
	}

	doc, revision, err := c.fetchDocument(ctx)
	if err != nil {
		return err
	}

	if _, ok := doc[username]; !ok {
		return ErrUserNotFound
	}
	delete(doc, username)

	return c.putDocument(ctx, doc, revision)
}

// Backup returns a point-in-time copy of username's record.
func (c *Client) Backup(ctx context.Context, username string) (models.UserBackup, error) {
	record, err := c.Load(ctx, username)
	if err != nil {
		return models.UserBackup{}, err
	}

	return models.UserBackup{
		UserRecord: record,
		BackupDate: c.now().UnixMilli(),
	}, nil
}

// Restore writes a previously backed-up record for username. The stored
// lastUpdated is re-stamped by Save.
func (c *Client) Restore(ctx context.Context, username string, record models.UserRecord) error {
	return c.Save(ctx, username, record)
}

func (c *Client) fetchDocument(ctx context.Context) (document, string, error) {
	endpoint := fmt.Sprintf("%s/b/%s/latest", c.baseURL, c.binID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", &StoreError{Op: "get", Err: err}
	}
	req.Header.Set("X-Master-Key", c.masterKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", &StoreError{Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StoreError{Op: "get", Status: resp.StatusCode}
	}

	var payload struct {
		Record document `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", &StoreError{Op: "decode document", Err: err}
	}

	doc := payload.Record
	if doc == nil {
		doc = document{}
	}

	var revision string
	if raw, ok := doc[metaKey]; ok {
		var meta docMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			revision = meta.Revision
		}
	}

	return doc, revision, nil
}

func (c *Client) putDocument(ctx context.Context, doc document, expectRevision string) error {
	if c.checkRevision && expectRevision != "" {
		_, current, err := c.fetchDocument(ctx)
		if err != nil {
			return err
		}
		if current != expectRevision {
			return ErrRevisionConflict
		}
	}

	meta, err := json.Marshal(docMeta{Revision: uuid.NewString()})
	if err != nil {
		return &StoreError{Op: "encode meta", Err: err}
	}
	doc[metaKey] = meta

	body, err := json.Marshal(doc)
	if err != nil {
		return &StoreError{Op: "encode document", Err: err}
	}

	endpoint := fmt.Sprintf("%s/b/%s", c.baseURL, c.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Master-Key", c.masterKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StoreError{Op: "put", Status: resp.StatusCode}
	}

	return nil
}

// validUsername trims the username and rejects empty or reserved names. The
// reserved check keeps a user literally named "_meta" from reading or
// clobbering the revision entry.
func validUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if username == metaKey {
		return "", ErrUsernameReserved
	}
	return username, nil
}

func normalizeRecord(record models.UserRecord) models.UserRecord {
	if record.Watchlist == nil {
		record.Watchlist = []models.WatchlistEntry{}
	}
	if record.SeenMovies == nil {
		record.SeenMovies = []models.WatchlistEntry{}
	}
	if record.Ratings == nil {
		record.Ratings = map[string]int{}
	}
	return record
}
