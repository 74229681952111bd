package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"

	"github.com/gravitrone/corelayout/internal/gate"
)

// Store is the live config shared by the TUI. Edits made through Update are
// written back to the file the config came from.
//
// Writes (Replace, Reload, Update) belong to the TUI's update loop. A stored
// Config is never modified in place, so Config and FactSource may be read
// from other goroutines.
type Store struct {
	path string
	cfg  atomic.Pointer[Config]
}

// NewStore wraps cfg, persisted at path. An empty path keeps edits in memory.
func NewStore(path string, cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Store{path: path}
	s.cfg.Store(cfg)
	return s
}

// Config returns the current config.
func (s *Store) Config() *Config {
	return s.cfg.Load()
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Replace swaps in a freshly loaded config.
func (s *Store) Replace(cfg *Config) {
	if cfg != nil {
		s.cfg.Store(cfg)
	}
}

// Reload reads the backing file again. A missing file reloads as an empty
// config.
func (s *Store) Reload() (*Config, error) {
	if s.path == "" {
		return s.Config(), nil
	}
	cfg, err := LoadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.cfg.Store(cfg)
	return cfg, nil
}

// FactSource yields the facts of whatever config the store holds when the
// source runs, so re-resolving sees saves made since.
func (s *Store) FactSource() gate.FactSource {
	return func(context.Context) (gate.Facts, error) {
		return s.Config().Facts(), nil
	}
}

// Update applies fn to a copy of the config and saves it. The store only
// switches to the copy once the save succeeded.
func (s *Store) Update(fn func(*Config)) error {
	next := *s.Config()
	fn(&next)
	if s.path != "" {
		if err := next.SaveTo(s.path); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}
	s.cfg.Store(&next)
	return nil
}
