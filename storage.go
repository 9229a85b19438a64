package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"farmsim-notifier/config"
	"farmsim-notifier/storage"
)

// openStore opens the configured state backend.
func openStore(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*storage.Store, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		client, err := newGCSClient(ctx, cfg.CredentialsJSON, logger)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		logger.Info("Using Cloud Storage", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
		return storage.NewGCS(client, cfg.Bucket, cfg.Prefix, logger), nil
	case config.BackendPostgres:
		logger.Info("Using Postgres storage")
		return storage.NewPostgres(ctx, cfg.DatabaseURL, logger)
	default:
		logger.Info("Using local storage", "storage_path", cfg.Dir)
		return storage.NewLocal(cfg.Dir, logger)
	}
}

func newGCSClient(ctx context.Context, credsJSON string, logger *slog.Logger) (*gcs.Client, error) {
	// Explicit credentials first, for running outside Google Cloud.
	if credsJSON != "" {
		return gcs.NewClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	if !isCloudRun(ctx) {
		logger.Warn("GOOGLE_CREDENTIALS_JSON not set and not running in Cloud Run, trying application default credentials")
	}
	return gcs.NewClient(ctx)
}

// isCloudRun checks if we're running in a GCP environment by querying the metadata server.
func isCloudRun(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://metadata.google.internal/computeMetadata/v1/project/project-id", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode == http.StatusOK
}
