// Package storage handles persistence of pinned message ids and player playtime.
package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"farmsim-notifier/pkg/farmsim"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	playtimeKey     = "playtime.toml"
	playtimeVersion = 1
)

// errNotExist is returned by backends for keys that were never written.
var errNotExist = errors.New("storage: object doesn't exist")

// backend stores opaque values by key.
type backend interface {
	read(ctx context.Context, key string) ([]byte, error)
	write(ctx context.Context, key string, data []byte) error
	remove(ctx context.Context, key string) error
	close() error
	String() string
}

// Store persists bot state through a local, Cloud Storage or Postgres backend.
type Store struct {
	backend backend
	logger  *slog.Logger
}

func newStore(b backend, logger *slog.Logger) *Store {
	return &Store{backend: b, logger: logger}
}

// PinnedKey returns the storage key of a pinned message id.
func PinnedKey(purpose farmsim.Purpose) string {
	switch purpose {
	case farmsim.PurposeSummary:
		return "pinned_message_id.txt"
	default:
		return string(purpose) + "_message_id.txt"
	}
}

// PinnedID loads the message id stored for purpose. Returns "" when none is stored
// or the stored value is not a valid id.
func (s *Store) PinnedID(ctx context.Context, purpose farmsim.Purpose) (string, error) {
	key := PinnedKey(purpose)
	data, err := s.backend.read(ctx, key)
	if errors.Is(err, errNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}

	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	id := strings.TrimSpace(string(line))
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		s.logger.Warn("Ignoring invalid stored message id", "key", key, "value", id)
		return "", nil
	}

	s.logger.Debug("Loaded pinned message id", "key", key, "message_id", id)
	return id, nil
}

// SavePinnedID stores the message id for purpose. An empty id clears it.
func (s *Store) SavePinnedID(ctx context.Context, purpose farmsim.Purpose, id string) error {
	key := PinnedKey(purpose)
	if id == "" {
		if err := s.backend.remove(ctx, key); err != nil && !errors.Is(err, errNotExist) {
			return fmt.Errorf("clear %s: %w", key, err)
		}
		s.logger.Info("Pinned message id cleared", "key", key, "backend", s.backend.String())
		return nil
	}

	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("save %s: invalid message id %q", key, id)
	}
	if err := s.backend.write(ctx, key, []byte(id+"\n")); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	s.logger.Info("Pinned message id saved", "key", key, "message_id", id, "backend", s.backend.String())
	return nil
}

type playtimeFile struct {
	Version int                      `toml:"version"`
	Players []farmsim.PlaytimeRecord `toml:"players"`
}

// LoadPlaytime loads cumulative playtime in insertion order.
func (s *Store) LoadPlaytime(ctx context.Context) ([]farmsim.PlaytimeRecord, error) {
	data, err := s.backend.read(ctx, playtimeKey)
	if errors.Is(err, errNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load playtime: %w", err)
	}

	var file playtimeFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode playtime: %w", err)
	}
	if file.Version > playtimeVersion {
		return nil, fmt.Errorf("decode playtime: unsupported version %d", file.Version)
	}

	s.logger.Info("Playtime loaded", "players", len(file.Players), "backend", s.backend.String())
	return file.Players, nil
}

// SavePlaytime rewrites the whole playtime document.
func (s *Store) SavePlaytime(ctx context.Context, records []farmsim.PlaytimeRecord) error {
	data, err := toml.Marshal(playtimeFile{Version: playtimeVersion, Players: records})
	if err != nil {
		return fmt.Errorf("encode playtime: %w", err)
	}
	if err := s.backend.write(ctx, playtimeKey, data); err != nil {
		return fmt.Errorf("save playtime: %w", err)
	}

	s.logger.Debug("Playtime saved", "players", len(records), "backend", s.backend.String())
	return nil
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	return s.backend.close()
}
