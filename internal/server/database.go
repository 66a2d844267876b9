package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

// ConnectDB opens the configured database and brings its schema up to date.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	c, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := repo.Migrate(ctx, c, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		repo.Close(c, logger)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return c, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, c *repo.Client, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, c, timeout, logger)
}

// CloseDB closes the database connections gracefully
func CloseDB(c *repo.Client, logger *slog.Logger) {
	repo.Close(c, logger)
}
