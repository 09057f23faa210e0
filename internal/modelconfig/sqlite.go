package modelconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS model_configs (
	id            TEXT PRIMARY KEY,
	base_model_id TEXT NOT NULL DEFAULT '',
	params        TEXT NOT NULL DEFAULT '{}',
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps model configurations in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=wal", "PRAGMA busy_timeout=1000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, modelID string) (*core.ModelConfig, error) {
	var baseModelID, params string
	err := s.db.QueryRowContext(ctx,
		`SELECT base_model_id, params FROM model_configs WHERE id = ?`, modelID,
	).Scan(&baseModelID, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query model config %q: %w", modelID, err)
	}

	cfg := &core.ModelConfig{ID: modelID, BaseModelID: baseModelID}
	if err := util.UnmarshalJSON([]byte(params), &cfg.Params); err != nil {
		return nil, fmt.Errorf("decode params of %q: %w", modelID, err)
	}
	return cfg, nil
}

// Upsert inserts or replaces a model configuration.
func (s *SQLiteStore) Upsert(ctx context.Context, cfg core.ModelConfig) error {
	params, err := util.MarshalJSON(cfg.Params)
	if err != nil {
		return fmt.Errorf("encode params of %q: %w", cfg.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_configs (id, base_model_id, params, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			base_model_id = excluded.base_model_id,
			params = excluded.params,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.ID, cfg.BaseModelID, string(params))
	if err != nil {
		return fmt.Errorf("upsert model config %q: %w", cfg.ID, err)
	}
	return nil
}

// Delete removes a model configuration.
func (s *SQLiteStore) Delete(ctx context.Context, modelID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM model_configs WHERE id = ?`, modelID); err != nil {
		return fmt.Errorf("delete model config %q: %w", modelID, err)
	}
	return nil
}

// Import upserts every record, typically loaded from a configuration file.
func (s *SQLiteStore) Import(ctx context.Context, records []core.ModelConfig) error {
	for _, record := range records {
		if err := s.Upsert(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
