package core

import (
	"context"
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	SaveSettings(settings *Settings) error
	LoadSettings() (*Settings, error)
	Close() error
}

// ModelConfigStore resolves user-facing model ids to their configuration.
// Get returns nil, nil when no configuration exists.
type ModelConfigStore interface {
	Get(ctx context.Context, modelID string) (*ModelConfig, error)
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordCatalogRefresh(models int, duration time.Duration)
	RecordBackendFetchFailure(backend int)
	RecordUpstreamRequest(backend int, status int, duration time.Duration)
	StreamOpened()
	StreamClosed()
	RecordCacheHit()
	RecordCacheMiss()
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordCatalogRefresh(models int, duration time.Duration)               {}
func (*NopMetrics) RecordBackendFetchFailure(backend int)                                 {}
func (*NopMetrics) RecordUpstreamRequest(backend int, status int, duration time.Duration) {}
func (*NopMetrics) StreamOpened()                                                         {}
func (*NopMetrics) StreamClosed()                                                         {}
func (*NopMetrics) RecordCacheHit()                                                       {}
func (*NopMetrics) RecordCacheMiss()                                                      {}
