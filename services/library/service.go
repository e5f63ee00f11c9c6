package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var (
	ErrPathRequired = errors.New("library file path not provided")
	ErrInvalidJSON  = errors.New("body is not valid JSON")
	// ErrNotSeeded is returned when the seed file has never been written.
	ErrNotSeeded = errors.New("library file does not exist")
)

// Service serves the local movie seed file as an opaque JSON blob: reads
// return the file wholesale, writes replace it wholesale. The content is not
// validated against any schema; only JSON well-formedness is checked.
type Service struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
}

// NewService creates a library service over the given filesystem. Tests pass
// an afero.MemMapFs.
func NewService(filesystem afero.Fs, path string) (*Service, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := filesystem.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library dir: %w", err)
		}
	}

	return &Service{fs: filesystem, path: path}, nil
}

// Read returns the raw contents of the seed file.
func (s *Service) Read() (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotSeeded
	}
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	return data, nil
}

// Write replaces the seed file with the provided blob, re-indented for
// readability. The write goes through a temp file and rename.
func (s *Service) Write(blob json.RawMessage) error {
	if !json.Valid(blob) {
		return ErrInvalidJSON
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, blob, "", "  "); err != nil {
		return ErrInvalidJSON
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, pretty.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write library temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace library file: %w", err)
	}

	return nil
}
