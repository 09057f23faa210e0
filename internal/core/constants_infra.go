package core

import "time"

// Model catalog constants
const (
	ModelCacheTTL        = 300 * time.Second
	DefaultModelListWait = 10 * time.Second
)

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 500
	HTTPMaxIdleConnsPerHost   = 100
	HTTPMaxConnsPerHost       = 200
	HTTPIdleConnTimeout       = 600 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPResponseHeaderTimeout = 60 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
	HTTPRequestTimeout        = 5 * time.Minute
)

// Cache config constants
const (
	CacheDefaultCapacity = 1000
	CacheCleanupInterval = 5 * time.Minute
	ModelConfigCacheTTL  = 1 * time.Minute
	CacheKeyVersion      = "v1"
)

// Stats and monitoring constants
const (
	StatsFilePath     = "stats.json"
	SettingsFilePath  = "settings.json"
	MinSaveInterval   = 5 * time.Second
	HistoryBufferSize = 1000
)

// Response body size limits
const (
	MaxResponseBodySize  = 10 * 1024 * 1024
	StreamCopyBufferSize = 32 * 1024
)

// Logging config constants
const (
	MaxDebugFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
