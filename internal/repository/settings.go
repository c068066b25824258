package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

const (
	getSettingSQL = `SELECT value FROM app_settings WHERE key = $1`

	upsertSettingSQL = `INSERT INTO app_settings (key, value, description, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE app_settings.description END,
			category = CASE WHEN EXCLUDED.category <> '' THEN EXCLUDED.category ELSE app_settings.category END,
			updated_at = now()`
)

var _ settings.Store = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Store backed by PostgreSQL. Values
// live in a JSONB column, so strings, numbers, and booleans round-trip without
// a type column.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetString returns the setting or def when absent.
func (r *SettingsRepository) GetString(ctx context.Context, key, def string) (string, error) {
	raw, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return def, fmt.Errorf("decoding setting %q: %w", key, err)
	}
	return s, nil
}

// GetInt returns the setting or def when absent.
func (r *SettingsRepository) GetInt(ctx context.Context, key string, def int) (int, error) {
	raw, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return def, fmt.Errorf("decoding setting %q: %w", key, err)
	}
	return n, nil
}

// GetDecimal returns the setting or def when absent. Both JSON numbers and
// numeric strings decode.
func (r *SettingsRepository) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return def, fmt.Errorf("decoding setting %q: %w", key, err)
	}
	return d, nil
}

// Set upserts a setting.
func (r *SettingsRepository) Set(ctx context.Context, key string, value any, description, category string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %q: %w", key, err)
	}
	if _, err := r.pool.Exec(ctx, upsertSettingSQL, key, raw, description, category); err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

func (r *SettingsRepository) get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw json.RawMessage
	err := r.pool.QueryRow(ctx, getSettingSQL, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return raw, true, nil
}
