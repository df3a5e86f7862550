package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medical-calendar/backend/internal/storage/models"
)

// SettingsRepository provides access to key/value settings.
type SettingsRepository struct {
	BaseRepository
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Get returns the value for key and whether it is set.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB().QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, r.Now())
	if err != nil {
		return fmt.Errorf("updating setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting keyed by name.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB().QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[s.Key] = s.Value
	}
	return settings, rows.Err()
}
