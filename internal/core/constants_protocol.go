package core

// Default config constants
const (
	DefaultPort    = "8080"
	DefaultGinMode = "release"
	CORSMaxAge     = "86400"
)

// Content type and header constants
const (
	ContentTypeEventStream = "text/event-stream"
	ContentTypeJSON        = "application/json"
	CacheControlNoCache    = "no-cache"
	HeaderContentType      = "Content-Type"
	HeaderContentLength    = "Content-Length"
	HeaderAuthorization    = "Authorization"
	HeaderCacheControl     = "Cache-Control"
	HeaderXAPIKey          = "x-api-key"
	HeaderRequestID        = "X-Request-ID"
	HeaderReferer          = "HTTP-Referer"
	HeaderTitle            = "X-Title"
	AuthBearerPrefix       = "Bearer "
)

// Role constants
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAdmin     = "admin"
)

// Gin context keys
const (
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)
