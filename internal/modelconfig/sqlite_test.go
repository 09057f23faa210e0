package modelconfig

import (
	"context"
	"path/filepath"
	"testing"

	"openaigateway/internal/core"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_UpsertGet(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	temperature := 0.3

	err := store.Upsert(ctx, core.ModelConfig{
		ID:          "analyst",
		BaseModelID: "gpt-4o-mini",
		Params:      core.ModelParams{System: "Answer with numbers.", Temperature: &temperature},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	cfg, err := store.Get(ctx, "analyst")
	if err != nil || cfg == nil {
		t.Fatalf("Get failed: %v, %v", cfg, err)
	}
	if cfg.BaseModelID != "gpt-4o-mini" || cfg.Params.System != "Answer with numbers." || *cfg.Params.Temperature != 0.3 {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	if err := store.Upsert(ctx, core.ModelConfig{ID: "analyst", BaseModelID: "gpt-4o"}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	cfg, _ = store.Get(ctx, "analyst")
	if cfg.BaseModelID != "gpt-4o" || cfg.Params.Temperature != nil {
		t.Errorf("Upsert should replace the record, got %+v", cfg)
	}
}

func TestSQLiteStore_MissingAndDelete(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	if cfg, err := store.Get(ctx, "ghost"); err != nil || cfg != nil {
		t.Errorf("Missing model should return nil, nil; got %v, %v", cfg, err)
	}

	if err := store.Import(ctx, []core.ModelConfig{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if cfg, _ := store.Get(ctx, "a"); cfg != nil {
		t.Error("Deleted model should be gone")
	}
	if cfg, _ := store.Get(ctx, "b"); cfg == nil {
		t.Error("Other models should survive")
	}
}
