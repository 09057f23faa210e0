package core

import (
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Backend is one configured OpenAI-compatible upstream. Index is its identity.
type Backend struct {
	Index   int    `json:"index"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
}

// Host returns the lower-cased host of the backend base URL.
func (b Backend) Host() string {
	return hostOf(b.BaseURL)
}

// IsOpenAI reports whether the backend is the canonical OpenAI endpoint.
func (b Backend) IsOpenAI() bool {
	return b.Host() == OpenAIHost
}

// IsOpenRouter reports whether the backend is the OpenRouter aggregator.
func (b Backend) IsOpenRouter() bool {
	host := b.Host()
	return host == OpenRouterHost || strings.HasSuffix(host, "."+OpenRouterHost)
}

// Endpoint joins the base URL with an API path.
func (b Backend) Endpoint(path string) string {
	return strings.TrimRight(b.BaseURL, "/") + path
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// ModelRecord is one model entry of the merged catalog.
type ModelRecord struct {
	ID      string
	Name    string
	OwnedBy string
	Raw     map[string]any
	URLIdx  int
}

// IsPipeline reports whether the upstream flagged this model as a pipeline.
func (m ModelRecord) IsPipeline() bool {
	v, ok := m.Raw[FieldPipeline]
	if !ok || v == nil {
		return false
	}
	switch p := v.(type) {
	case bool:
		return p
	case string:
		return p != ""
	case map[string]any:
		return len(p) > 0
	case []any:
		return len(p) > 0
	case float64:
		return p != 0
	}
	return true
}

// MarshalJSON flattens the upstream fields and overlays the gateway fields.
func (m ModelRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Raw)+4)
	for k, v := range m.Raw {
		out[k] = v
	}
	out["id"] = m.ID
	out["name"] = m.Name
	out["owned_by"] = m.OwnedBy
	out["openai"] = m.Raw
	out["urlIdx"] = m.URLIdx
	return sonic.Marshal(out)
}

// ModelCatalog is an immutable merged view of every backend's models.
type ModelCatalog struct {
	Data      []ModelRecord
	Backends  []Backend
	FetchedAt time.Time
	byID      map[string]int
}

// NewModelCatalog builds the id index. Later entries win on duplicate ids.
func NewModelCatalog(records []ModelRecord, backends []Backend, fetchedAt time.Time) *ModelCatalog {
	byID := make(map[string]int, len(records))
	for i, record := range records {
		byID[record.ID] = i
	}
	if records == nil {
		records = []ModelRecord{}
	}
	return &ModelCatalog{
		Data:      records,
		Backends:  backends,
		FetchedAt: fetchedAt,
		byID:      byID,
	}
}

// Lookup resolves a model id to its record and the backend configured at fetch time.
func (c *ModelCatalog) Lookup(modelID string) (ModelRecord, Backend, bool) {
	if c == nil {
		return ModelRecord{}, Backend{}, false
	}
	idx, ok := c.byID[modelID]
	if !ok {
		return ModelRecord{}, Backend{}, false
	}
	record := c.Data[idx]
	if record.URLIdx < 0 || record.URLIdx >= len(c.Backends) {
		return ModelRecord{}, Backend{}, false
	}
	return record, c.Backends[record.URLIdx], true
}

// Len returns the number of models in the catalog.
func (c *ModelCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// CountByBackend returns the number of catalog entries per backend index.
func (c *ModelCatalog) CountByBackend() map[int]int {
	counts := make(map[int]int)
	if c == nil {
		return counts
	}
	for _, record := range c.Data {
		counts[record.URLIdx]++
	}
	return counts
}

// ModelList is the OpenAI-compatible model list response.
type ModelList struct {
	Object string        `json:"object"`
	Data   []ModelRecord `json:"data"`
}

// Identity is the verified caller of a request.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ModelParams are per-model overrides applied before a completion is forwarded.
type ModelParams struct {
	System           string   `json:"system,omitempty" yaml:"system,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty" yaml:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// ModelConfig maps a user-facing model id onto a base model with parameter overrides.
type ModelConfig struct {
	ID          string      `json:"id" yaml:"id"`
	BaseModelID string      `json:"base_model_id,omitempty" yaml:"base_model_id,omitempty"`
	Params      ModelParams `json:"params" yaml:"params"`
}

// Settings is the runtime-mutable backend configuration.
type Settings struct {
	EnableOpenAIAPI bool     `json:"enable_openai_api"`
	BaseURLs        []string `json:"base_urls"`
	APIKeys         []string `json:"api_keys"`
}

// RequestStats holds aggregated request statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64           `json:"total_requests"`
	SuccessfulRequests int64           `json:"successful_requests"`
	FailedRequests     int64           `json:"failed_requests"`
	TotalResponseTime  int64           `json:"total_response_time"`
	LastRequestTime    time.Time       `json:"last_request_time"`
	RequestHistory     []RequestRecord `json:"request_history"`
}

// RequestRecord represents a single request's metadata for history tracking.
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"response_time"`
	Model        string    `json:"model"`
	Backend      int       `json:"backend"`
}

// PeriodStats holds computed statistics for a time period.
type PeriodStats struct {
	Requests        int64   `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	QPS             float64 `json:"qps"`
}
