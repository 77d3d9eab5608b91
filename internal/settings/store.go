// Package settings persists the small amount of per-user state termdock
// remembers between runs: the dock side and the last primary window size.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/1broseidon/termdock/internal/dock"
)

const (
	// SettingsFile holds application settings as a flat JSON object.
	SettingsFile = "settings.json"
	// WindowStateFile holds the last primary window size.
	WindowStateFile = "window-state.json"

	dockSideKey = "dock_side"
)

// DefaultDir returns ~/.config/termdock.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "termdock"), nil
}

// Store reads and writes the settings files under a single directory.
type Store struct {
	dir string

	mu       sync.Mutex
	lastSize dock.WindowSize
	hasLast  bool
}

var _ dock.Store = (*Store)(nil)

// NewStore returns a store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// SettingsPath returns the full path of settings.json.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.dir, SettingsFile)
}

// WindowStatePath returns the full path of window-state.json.
func (s *Store) WindowStatePath() string {
	return filepath.Join(s.dir, WindowStateFile)
}

// LoadDockSide returns the persisted side. Absent or malformed data yields
// SideLeft together with an error wrapping dock.ErrConfigIO for logging.
func (s *Store) LoadDockSide() (dock.Side, error) {
	values, err := s.readSettings()
	if err != nil {
		return dock.SideLeft, err
	}
	raw, ok := values[dockSideKey]
	if !ok {
		return dock.SideLeft, fmt.Errorf("%w: %s not set", dock.ErrConfigIO, dockSideKey)
	}
	var side string
	if err := json.Unmarshal(raw, &side); err != nil {
		return dock.SideLeft, fmt.Errorf("%w: %s is not a string: %v", dock.ErrConfigIO, dockSideKey, err)
	}
	parsed, _ := dock.ParseSide(side)
	return parsed, nil
}

// SaveDockSide writes the side, keeping any other keys already present in
// settings.json.
func (s *Store) SaveDockSide(side dock.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readSettings()
	if err != nil {
		// Start over from an empty document when the old one is unreadable.
		values = make(map[string]json.RawMessage)
	}
	encoded, err := json.Marshal(side.String())
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", dock.ErrConfigIO, dockSideKey, err)
	}
	values[dockSideKey] = encoded
	return s.writeJSON(s.SettingsPath(), values)
}

// LoadWindowSize returns the persisted primary size, if any.
func (s *Store) LoadWindowSize() (dock.WindowSize, bool) {
	data, err := os.ReadFile(s.WindowStatePath())
	if err != nil {
		return dock.WindowSize{}, false
	}
	var size dock.WindowSize
	if err := json.Unmarshal(data, &size); err != nil {
		return dock.WindowSize{}, false
	}
	if size.Width <= 0 || size.Height <= 0 {
		return dock.WindowSize{}, false
	}

	s.mu.Lock()
	s.lastSize, s.hasLast = size, true
	s.mu.Unlock()
	return size, true
}

// SaveWindowSize writes the primary size. Repeated saves of the same size are
// skipped.
func (s *Store) SaveWindowSize(size dock.WindowSize) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLast && s.lastSize == size {
		return nil
	}
	if err := s.writeJSON(s.WindowStatePath(), size); err != nil {
		return err
	}
	s.lastSize, s.hasLast = size, true
	return nil
}

func (s *Store) readSettings() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("%w: read settings: %v", dock.ErrConfigIO, err)
	}
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: parse settings: %v", dock.ErrConfigIO, err)
	}
	return values, nil
}

// writeJSON writes v through a temp file and rename so readers never see a
// partial document.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: create settings directory: %v", dock.ErrConfigIO, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", dock.ErrConfigIO, filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", dock.ErrConfigIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", dock.ErrConfigIO, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", dock.ErrConfigIO, filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", dock.ErrConfigIO, filepath.Base(path), err)
	}
	return nil
}
