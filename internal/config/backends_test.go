package config

import (
	"sync"
	"testing"
)

func TestBackendSet_ReconcileKeys(t *testing.T) {
	tests := []struct {
		name     string
		urls     []string
		keys     []string
		expected []string
	}{
		{"等长", []string{"http://a", "http://b"}, []string{"k1", "k2"}, []string{"k1", "k2"}},
		{"密钥不足补空", []string{"http://a", "http://b", "http://c"}, []string{"k1"}, []string{"k1", "", ""}},
		{"密钥过多截断", []string{"http://a"}, []string{"k1", "k2", "k3"}, []string{"k1"}},
		{"无后端", nil, []string{"k1"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewBackendSet(true, tt.urls, tt.keys)
			keys := set.Keys()
			if len(keys) != len(tt.expected) {
				t.Fatalf("Expected %d keys, got %d (%q)", len(tt.expected), len(keys), keys)
			}
			for i := range tt.expected {
				if keys[i] != tt.expected[i] {
					t.Errorf("key %d: expected %q, got %q", i, tt.expected[i], keys[i])
				}
			}
		})
	}
}

func TestBackendSet_Snapshot(t *testing.T) {
	set := NewBackendSet(true, []string{"https://api.openai.com/v1/", "https://openrouter.ai/api/v1"}, []string{"sk-a"})

	backends := set.Snapshot()
	if len(backends) != 2 {
		t.Fatalf("Expected 2 backends, got %d", len(backends))
	}
	if backends[0].Index != 0 || backends[1].Index != 1 {
		t.Error("Backend index should follow list position")
	}
	if backends[0].BaseURL != "https://api.openai.com/v1" {
		t.Errorf("Trailing slash should be trimmed, got %q", backends[0].BaseURL)
	}
	if !backends[0].IsOpenAI() || backends[1].IsOpenAI() {
		t.Error("Only the first backend is the canonical OpenAI host")
	}
	if !backends[1].IsOpenRouter() {
		t.Error("Second backend should be detected as OpenRouter")
	}
	if backends[1].APIKey != "" {
		t.Errorf("Missing key should be padded with empty string, got %q", backends[1].APIKey)
	}

	backends[0].BaseURL = "mutated"
	if set.Snapshot()[0].BaseURL == "mutated" {
		t.Error("Snapshot must not alias internal state")
	}
}

func TestBackendSet_SetURLsReconcilesKeys(t *testing.T) {
	set := NewBackendSet(true, []string{"http://a", "http://b"}, []string{"k1", "k2"})

	set.SetURLs([]string{"http://a"})
	if keys := set.Keys(); len(keys) != 1 || keys[0] != "k1" {
		t.Errorf("Keys should be truncated with the URL list, got %q", keys)
	}

	set.SetURLs([]string{"http://a", "http://b", "http://c"})
	if keys := set.Keys(); len(keys) != 3 || keys[2] != "" {
		t.Errorf("Keys should be padded with the URL list, got %q", keys)
	}
}

func TestBackendSet_SettingsRoundTrip(t *testing.T) {
	set := NewBackendSet(true, []string{"http://a"}, []string{"k1"})
	set.SetEnabled(false)

	settings := set.Settings()
	if settings.EnableOpenAIAPI {
		t.Error("Settings should carry the disabled flag")
	}

	other := NewBackendSet(true, nil, nil)
	other.ApplySettings(settings)
	if other.Enabled() || other.Len() != 1 || other.Keys()[0] != "k1" {
		t.Errorf("ApplySettings did not restore state: enabled=%v urls=%v keys=%v", other.Enabled(), other.URLs(), other.Keys())
	}

	other.ApplySettings(nil)
	if other.Len() != 1 {
		t.Error("nil settings should be ignored")
	}
}

func TestBackendSet_ConcurrentAccess(t *testing.T) {
	set := NewBackendSet(true, []string{"http://a", "http://b"}, []string{"k1", "k2"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			set.SetURLs([]string{"http://a", "http://b"})
			set.SetKeys([]string{"k1", "k2"})
		}()
		go func() {
			defer wg.Done()
			backends := set.Snapshot()
			for _, b := range backends {
				if b.Index < 0 || b.Index >= len(backends) {
					t.Errorf("Invalid backend index %d", b.Index)
				}
			}
		}()
	}
	wg.Wait()
}
