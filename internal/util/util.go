package util

import (
	"fmt"
	"strings"

	"openaigateway/internal/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MarshalJSON wraps Sonic for performance
func MarshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// UnmarshalJSON wraps Sonic for performance
func UnmarshalJSON(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// GenerateRequestID returns a random request identifier.
func GenerateRequestID() string {
	return uuid.New().String()
}

// TruncateString truncates string and adds replacement text in the middle
func TruncateString(s string, prefixLen, suffixLen int, replacement string) string {
	if len(s) > prefixLen+suffixLen {
		return s[:prefixLen] + replacement + s[len(s)-suffixLen:]
	}
	return s
}

// MaskKey hides all but the edges of an API key for logging.
func MaskKey(key string) string {
	if key == "" {
		return "<empty>"
	}
	return TruncateString(key, 3, 4, "...")
}

// CleanList trims every entry and drops the empty ones.
func CleanList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// NormalizeBaseURLs trims whitespace and trailing slashes, dropping empty entries.
func NormalizeBaseURLs(urls []string) []string {
	cleaned := CleanList(urls)
	for i, u := range cleaned {
		cleaned[i] = strings.TrimRight(u, "/")
	}
	return cleaned
}

// TrimKeys trims whitespace but keeps empty entries so positions stay aligned with URLs.
func TrimKeys(keys []string) []string {
	result := make([]string, len(keys))
	for i, k := range keys {
		result[i] = strings.TrimSpace(k)
	}
	return result
}

// BearerToken extracts the token of an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, core.AuthBearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, core.AuthBearerPrefix)), true
}

// ErrorDetailFromBody extracts the caller-visible detail of an upstream error body.
// Bodies that are not JSON are returned verbatim.
func ErrorDetailFromBody(body []byte) string {
	var doc any
	if err := UnmarshalJSON(body, &doc); err != nil {
		return string(body)
	}
	return ErrorDetail(doc)
}

// ErrorDetail applies error.message, then error, to a decoded body. A JSON string
// body is its own detail. Anything else yields "" so callers fall back to a default.
func ErrorDetail(doc any) string {
	switch v := doc.(type) {
	case map[string]any:
		errValue, ok := v["error"]
		if !ok || errValue == nil {
			return ""
		}
		if errMap, ok := errValue.(map[string]any); ok {
			if msg, ok := errMap["message"]; ok && msg != nil {
				return fmt.Sprint(msg)
			}
		}
		if s, ok := errValue.(string); ok {
			return s
		}
		data, err := MarshalJSON(errValue)
		if err != nil {
			return fmt.Sprint(errValue)
		}
		return string(data)
	case string:
		return v
	default:
		return ""
	}
}
