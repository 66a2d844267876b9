package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Setting keys.
const (
	SettingCalendarName = "calendar.name"
	SettingCalendarAuth = "calendar.authorization"
)

type SettingsRepository interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type settingsRepository struct {
	client *Client
	logger *slog.Logger
}

func NewSettingsRepository(client *Client, logger *slog.Logger) SettingsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsRepository{client: client, logger: logger}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	q, args := r.client.builder().Select("value").
		From(entsql.Table(settingsTable)).
		Where(entsql.EQ("id", key)).
		Query()
	rows := &entsql.Rows{}
	if err := r.client.Driver.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to read setting", "key", key, "error", err)
		return "", false, err
	}
	defer func(rows *entsql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}(rows)

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var v string
	if err := rows.Scan(&v); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set upserts key. Update first, insert when no row was touched.
func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	if err := validate(settingsTable, map[string]string{"id": key}); err != nil {
		return err
	}
	now := time.Now().UTC()
	q, args := r.client.builder().Update(settingsTable).
		Set("value", value).
		Set("updated_at", now).
		Where(entsql.EQ("id", key)).
		Query()
	var res sql.Result
	if err := r.client.Driver.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to update setting", "key", key, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	q, args = r.client.builder().Insert(settingsTable).
		Columns("id", "value", "updated_at").
		Values(key, value, now).
		Query()
	if err := r.client.Driver.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to insert setting", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *settingsRepository) Delete(ctx context.Context, key string) error {
	q, args := r.client.builder().Delete(settingsTable).Where(entsql.EQ("id", key)).Query()
	if err := r.client.Driver.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to delete setting", "key", key, "error", err)
		return err
	}
	return nil
}
