package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresBackend struct {
	db *sql.DB
}

// NewPostgres creates a store that keeps each value as a row of the bot_state table.
func NewPostgres(ctx context.Context, connStr string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	b := &postgresBackend{db: db}
	err = retry.Do(
		func() error { return b.init(ctx) },
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying postgres connect after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return newStore(b, logger), nil
}

func (b *postgresBackend) init(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS bot_state (
            key TEXT PRIMARY KEY,
            value BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`)
	if err != nil {
		return fmt.Errorf("create bot_state table: %w", err)
	}
	return nil
}

func (b *postgresBackend) read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM bot_state WHERE key=$1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return data, nil
}

func (b *postgresBackend) write(ctx context.Context, key string, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
        INSERT INTO bot_state (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET
            value=EXCLUDED.value,
            updated_at=EXCLUDED.updated_at`, key, data)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (b *postgresBackend) remove(ctx context.Context, key string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM bot_state WHERE key=$1`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNotExist
	}
	return nil
}

func (b *postgresBackend) close() error {
	return b.db.Close()
}

func (b *postgresBackend) String() string { return "postgres" }
