package config

import (
	"sync"

	"openaigateway/internal/core"
	"openaigateway/internal/util"
)

// BackendSet owns the runtime-mutable enable flag, URL list and key list.
// Every reader works on a copy taken under the lock.
type BackendSet struct {
	mu      sync.RWMutex
	enabled bool
	urls    []string
	keys    []string
}

// NewBackendSet creates a backend set with keys reconciled against urls.
func NewBackendSet(enabled bool, urls, keys []string) *BackendSet {
	urls = util.NormalizeBaseURLs(urls)
	return &BackendSet{
		enabled: enabled,
		urls:    urls,
		keys:    core.ReconcileKeys(urls, util.TrimKeys(keys)),
	}
}

// Enabled reports whether the OpenAI API is switched on.
func (s *BackendSet) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Snapshot returns the current backends in index order.
func (s *BackendSet) Snapshot() []core.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.BuildBackends(s.urls, s.keys)
}

// Len returns the number of configured backends.
func (s *BackendSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}

// URLs returns a copy of the base URLs.
func (s *BackendSet) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.urls...)
}

// Keys returns a copy of the API keys, one per URL.
func (s *BackendSet) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.keys...)
}

// SetEnabled switches the OpenAI API on or off.
func (s *BackendSet) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// SetURLs replaces the base URLs and reconciles keys. It returns the stored URLs.
func (s *BackendSet) SetURLs(urls []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = util.NormalizeBaseURLs(urls)
	s.keys = core.ReconcileKeys(s.urls, s.keys)
	return append([]string{}, s.urls...)
}

// SetKeys replaces the API keys, padded or truncated to the URL count. It returns the stored keys.
func (s *BackendSet) SetKeys(keys []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = core.ReconcileKeys(s.urls, util.TrimKeys(keys))
	return append([]string{}, s.keys...)
}

// Settings returns the persistable view of the backend set.
func (s *BackendSet) Settings() *core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &core.Settings{
		EnableOpenAIAPI: s.enabled,
		BaseURLs:        append([]string{}, s.urls...),
		APIKeys:         append([]string{}, s.keys...),
	}
}

// ApplySettings replaces the whole backend set with persisted settings.
func (s *BackendSet) ApplySettings(settings *core.Settings) {
	if settings == nil {
		return
	}
	urls := util.NormalizeBaseURLs(settings.BaseURLs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = settings.EnableOpenAIAPI
	s.urls = urls
	s.keys = core.ReconcileKeys(urls, util.TrimKeys(settings.APIKeys))
}
