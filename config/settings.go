package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Metadata    MetadataSettings    `json:"metadata"`
	Store       StoreSettings       `json:"store"`
	Library     LibrarySettings     `json:"library"`
	Search      SearchSettings      `json:"search"`
	Persistence PersistenceSettings `json:"persistence"`
	Log         LogConfig           `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// MetadataSettings configures the movie metadata provider (OMDB-compatible).
type MetadataSettings struct {
	BaseURL           string  `json:"baseUrl"`
	APIKey            string  `json:"apiKey"`
	TimeoutSeconds    int     `json:"timeoutSeconds"`
	RequestsPerSecond float64 `json:"requestsPerSecond"` // client-side limiter; free OMDB keys throttle hard
}

// StoreSettings configures the hosted JSON document store holding per-user
// records (JSONBin-compatible: one shared document keyed by username).
type StoreSettings struct {
	BaseURL        string `json:"baseUrl"`
	BinID          string `json:"binId"`
	MasterKey      string `json:"masterKey"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	// CheckRevision enables a best-effort revision check before each write.
	// The store has no conditional PUT, so two racing writers can still lose
	// an update; this only narrows the window.
	CheckRevision bool `json:"checkRevision"`
}

// LibrarySettings points at the local seed-data JSON file served wholesale
// through /api/movies.
type LibrarySettings struct {
	Path string `json:"path"`
}

type SearchSettings struct {
	MaxResults int `json:"maxResults"`
}

// PersistenceSettings controls what happens when a background save fails.
// Optimistic keeps the in-memory change and surfaces a warning; when disabled
// the mutation is rolled back and reported as an error. Nil means optimistic.
type PersistenceSettings struct {
	Optimistic *bool `json:"optimistic"`
}

// IsOptimistic reports the effective persistence mode.
func (p PersistenceSettings) IsOptimistic() bool {
	return p.Optimistic == nil || *p.Optimistic
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 3001,
		},
		Metadata: MetadataSettings{
			BaseURL:           "https://www.omdbapi.com/",
			TimeoutSeconds:    15,
			RequestsPerSecond: 10,
		},
		Store: StoreSettings{
			BaseURL:        "https://api.jsonbin.io/v3",
			TimeoutSeconds: 15,
		},
		Library: LibrarySettings{
			Path: filepath.Join("data", "movies.json"),
		},
		Search: SearchSettings{
			MaxResults: 30,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the settings file from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults when the config predates a setting.
	if strings.TrimSpace(s.Metadata.BaseURL) == "" {
		s.Metadata.BaseURL = "https://www.omdbapi.com/"
	}
	if s.Metadata.TimeoutSeconds <= 0 {
		s.Metadata.TimeoutSeconds = 15
	}
	if s.Metadata.RequestsPerSecond <= 0 {
		s.Metadata.RequestsPerSecond = 10
	}
	if strings.TrimSpace(s.Store.BaseURL) == "" {
		s.Store.BaseURL = "https://api.jsonbin.io/v3"
	}
	if s.Store.TimeoutSeconds <= 0 {
		s.Store.TimeoutSeconds = 15
	}
	if strings.TrimSpace(s.Library.Path) == "" {
		s.Library.Path = filepath.Join("data", "movies.json")
	}
	if s.Search.MaxResults <= 0 {
		s.Search.MaxResults = 30
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = "info"
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
