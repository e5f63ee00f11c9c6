package models

// WatchlistEntry is the persisted shape of a tracked title. Only identity,
// title and the time it first entered a list survive a round trip through the
// store; full metadata is re-fetched from the provider on sign-in.
type WatchlistEntry struct {
	ImdbID  string `json:"imdbID"`
	Title   string `json:"title"`
	AddedAt int64  `json:"addedAt"`
}

// UserRecord is one username's entry in the shared store document.
// LastUpdated is nil until the first save.
type UserRecord struct {
	Watchlist   []WatchlistEntry `json:"watchlist"`
	SeenMovies  []WatchlistEntry `json:"seenMovies"`
	Ratings     map[string]int   `json:"ratings"`
	LastUpdated *int64           `json:"lastUpdated"`
}

// EmptyUserRecord returns the default record handed out for usernames the
// store has never seen. Loading an unknown username is not an error.
func EmptyUserRecord() UserRecord {
	return UserRecord{
		Watchlist:  []WatchlistEntry{},
		SeenMovies: []WatchlistEntry{},
		Ratings:    map[string]int{},
	}
}

// UserSummary pairs a username with the time its record was last written.
type UserSummary struct {
	Username    string `json:"username"`
	LastUpdated *int64 `json:"lastUpdated"`
}

// UserBackup is a point-in-time copy of a user record.
type UserBackup struct {
	UserRecord
	BackupDate int64 `json:"backupDate"`
}
