package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
)

type gcsBackend struct {
	client *gcs.Client
	logger *slog.Logger
	bucket string
	prefix string
}

// NewGCS creates a store that keeps each value as an object in a Cloud Storage bucket.
// The store takes ownership of client and closes it on Close.
func NewGCS(client *gcs.Client, bucket, prefix string, logger *slog.Logger) *Store {
	return newStore(&gcsBackend{
		client: client,
		logger: logger,
		bucket: bucket,
		prefix: prefix,
	}, logger)
}

func (b *gcsBackend) object(key string) *gcs.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + key)
}

func (b *gcsBackend) read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			r, openErr := b.object(key).NewReader(ctx)
			if openErr != nil {
				// Don't retry on "not found" errors
				if errors.Is(openErr, gcs.ErrObjectNotExist) {
					return retry.Unrecoverable(errNotExist)
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					b.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", err)
		}),
	)
	if errors.Is(err, errNotExist) {
		return nil, errNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	return data, nil
}

func (b *gcsBackend) write(ctx context.Context, key string, data []byte) error {
	err := retry.Do(
		func() error {
			w := b.object(key).NewWriter(ctx)
			w.ContentType = "text/plain; charset=utf-8"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					b.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}

func (b *gcsBackend) remove(ctx context.Context, key string) error {
	err := retry.Do(
		func() error {
			if deleteErr := b.object(key).Delete(ctx); deleteErr != nil {
				// Deletion is idempotent
				if errors.Is(deleteErr, gcs.ErrObjectNotExist) {
					return retry.Unrecoverable(errNotExist)
				}
				return fmt.Errorf("delete from storage: %w", deleteErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Info("Retrying delete operation after error", "attempt", n, "key", key, "error", err)
		}),
	)
	if errors.Is(err, errNotExist) {
		return errNotExist
	}
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}
	return nil
}

func (b *gcsBackend) close() error {
	return b.client.Close()
}

func (b *gcsBackend) String() string { return "gs://" + b.bucket + "/" + b.prefix }
