package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/bikesim/drivetrain/internal/api"
	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/rebuild"
	"github.com/bikesim/drivetrain/internal/storage"
)

func uploadMeta(st rebuild.Status, elapsed time.Duration) api.UploadMetadata {
	return api.UploadMetadata{
		Service:  ServiceName,
		Rebuilds: int(st.Rebuilds + st.Failures),
		Duration: elapsed,
	}
}

// uploadJournal sends the exported journal to the collector when uploads are
// enabled and the backend wrote a file. Failures are logged; the local file stays.
func uploadJournal(ctx context.Context, cfg config.APIConfig, backend storage.Backend, meta api.UploadMetadata, logger *slog.Logger) bool {
	if !cfg.Enabled {
		return false
	}
	exp, ok := backend.(storage.Exportable)
	if !ok {
		logger.Debug("Storage backend has no export to upload")
		return false
	}
	path := exp.GetExportedFilePath()
	if path == "" {
		logger.Debug("No journal file was exported")
		return false
	}

	client := api.New(cfg.ServerURL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		logger.Warn("Collector unreachable, keeping journal locally", "error", err, "path", path)
		return false
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		logger.Error("Failed to upload journal", "error", err, "path", path)
		return false
	}
	logger.Info("Uploaded journal", "path", path, "url", cfg.ServerURL)
	return true
}
