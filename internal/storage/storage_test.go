package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"openaigateway/internal/core"
)

func newTestFileStorage(t *testing.T) *FileStorage {
	t.Helper()
	dir := t.TempDir()
	return NewFileStorage(filepath.Join(dir, "stats.json"), filepath.Join(dir, "settings.json"))
}

func TestFileStorage_LoadStats_Missing(t *testing.T) {
	fs := newTestFileStorage(t)

	stats, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if stats.TotalRequests != 0 || stats.RequestHistory == nil {
		t.Errorf("Expected empty stats with non-nil history, got %+v", stats)
	}
}

func TestFileStorage_StatsRoundTrip(t *testing.T) {
	fs := newTestFileStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	stats := &core.RequestStats{
		TotalRequests:      3,
		SuccessfulRequests: 2,
		FailedRequests:     1,
		LastRequestTime:    now,
		RequestHistory: []core.RequestRecord{
			{Timestamp: now, Success: true, ResponseTime: 12, Model: "gpt-4o", Backend: 1},
		},
	}
	if err := fs.SaveStats(stats); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	loaded, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if loaded.TotalRequests != 3 || loaded.FailedRequests != 1 {
		t.Errorf("Unexpected counters: %+v", loaded)
	}
	if len(loaded.RequestHistory) != 1 || loaded.RequestHistory[0].Model != "gpt-4o" || loaded.RequestHistory[0].Backend != 1 {
		t.Errorf("Unexpected history: %+v", loaded.RequestHistory)
	}
}

func TestFileStorage_LoadStats_Corrupt(t *testing.T) {
	fs := newTestFileStorage(t)
	if err := os.WriteFile(fs.statsPath, []byte("{not json"), core.FilePermissionReadWrite); err != nil {
		t.Fatalf("写入文件失败: %v", err)
	}

	if _, err := fs.LoadStats(); err == nil {
		t.Error("Expected decode error for corrupt stats file")
	}
}

func TestFileStorage_Settings(t *testing.T) {
	fs := newTestFileStorage(t)

	settings, err := fs.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings != nil {
		t.Fatalf("Expected nil settings before first save, got %+v", settings)
	}

	saved := &core.Settings{
		EnableOpenAIAPI: true,
		BaseURLs:        []string{"https://api.openai.com/v1", "http://localhost:11434/v1"},
		APIKeys:         []string{"sk-a", ""},
	}
	if err := fs.SaveSettings(saved); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := fs.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !loaded.EnableOpenAIAPI || len(loaded.BaseURLs) != 2 || len(loaded.APIKeys) != 2 || loaded.APIKeys[1] != "" {
		t.Errorf("Unexpected settings: %+v", loaded)
	}
}

func TestNewFileStorage_Defaults(t *testing.T) {
	fs := NewFileStorage("", "")
	if fs.statsPath != core.StatsFilePath || fs.settingsPath != core.SettingsFilePath {
		t.Errorf("Unexpected default paths: %s, %s", fs.statsPath, fs.settingsPath)
	}
}

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	if _, err := NewRedisStorage(RedisStorageConfig{URL: "not-a-redis-url"}); err == nil {
		t.Error("Expected error for invalid redis url")
	}
}

func TestInitStorage_FallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	storage := InitStorage(Options{
		RedisURL:     "redis://127.0.0.1:1/0",
		StatsFile:    filepath.Join(dir, "stats.json"),
		SettingsFile: filepath.Join(dir, "settings.json"),
	}, &core.NopLogger{})
	defer func() { _ = storage.Close() }()

	if _, ok := storage.(*FileStorage); !ok {
		t.Errorf("Expected file storage fallback, got %T", storage)
	}
}
