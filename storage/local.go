package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

type localBackend struct {
	dir string
}

// NewLocal creates a store that keeps each value in a file under dir.
func NewLocal(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return newStore(&localBackend{dir: dir}, logger), nil
}

func (b *localBackend) read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read from local storage: %w", err)
	}
	return data, nil
}

// write replaces the file via a temp file and rename so a crash never leaves it half written.
func (b *localBackend) write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(b.dir, key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	cleanup = false
	return nil
}

func (b *localBackend) remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(b.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return errNotExist
	}
	if err != nil {
		return fmt.Errorf("delete from local storage: %w", err)
	}
	return nil
}

func (b *localBackend) close() error { return nil }

func (b *localBackend) String() string { return "local:" + b.dir }
