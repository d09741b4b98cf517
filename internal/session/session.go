// Package session holds the client-side mirror of the server session: one
// cache slot for fast re-render after login. The cache is not authoritative —
// every protected operation re-validates with the server — so it tolerates
// corruption by treating unreadable state as absent.
package session

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// Store is a single-slot session cache. With an empty path it is purely
// in-memory; otherwise the slot is mirrored to a TOML file so skctl sessions
// survive process restarts.
type Store struct {
	mu   sync.Mutex
	path string
	mem  *model.SessionData
}

// NewMemory returns a cache that lives only in this process.
func NewMemory() *Store {
	return &Store{}
}

// NewFile returns a cache backed by the TOML file at path. The file is read
// lazily on Get; a missing or malformed file reads as an empty slot.
func NewFile(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional per-user cache location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "sammelkarten", "session.toml"), nil
}

// Store overwrites the cache slot with data.
func (s *Store) Store(data model.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = &data
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(data)
}

// Get returns the cached session, or ok=false when the slot is empty.
// A file that fails to parse is treated as absent, never as an error.
func (s *Store) Get() (model.SessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem != nil {
		return *s.mem, true
	}
	if s.path == "" {
		return model.SessionData{}, false
	}
	var data model.SessionData
	if _, err := toml.DecodeFile(s.path, &data); err != nil {
		return model.SessionData{}, false
	}
	if data.Pubkey == "" {
		return model.SessionData{}, false
	}
	s.mem = &data
	return data, true
}

// Clear removes the slot, both in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
