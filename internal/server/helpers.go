package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"openaigateway/internal/core"

	"github.com/gin-gonic/gin"
)

// Error types reported in the error body.
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeNotFound       = "not_found_error"
	errTypeUpstream       = "upstream_error"
	errTypeUnavailable    = "service_unavailable"
	errTypeServer         = "server_error"
)

// respondWithError returns an OpenAI format error response
func respondWithError(c *gin.Context, code int, errType, message string) {
	c.JSON(code, gin.H{"error": gin.H{
		"message": message,
		"type":    errType,
	}})
}

// respondWithGatewayError maps a gateway or registry error onto its response.
func respondWithGatewayError(c *gin.Context, err error) {
	status := core.StatusCodeFor(err)
	var upstream *core.UpstreamError
	var errType string
	switch {
	case errors.As(err, &upstream):
		errType = errTypeUpstream
	case errors.Is(err, core.ErrModelNotFound):
		errType = errTypeNotFound
	case errors.Is(err, core.ErrBackendIndexOutOfRange):
		errType = errTypeInvalidRequest
	case errors.Is(err, core.ErrAPIDisabled):
		errType = errTypeUnavailable
	default:
		errType = errTypeServer
	}
	respondWithError(c, status, errType, core.MessageFor(err))
}

// backendIndexParam reads an explicit backend index from the :idx path
// parameter or the backend query parameter. nil means none was given.
func backendIndexParam(c *gin.Context) (*int, error) {
	raw := c.Param("idx")
	if raw == "" {
		raw = c.Query("backend")
	}
	if raw == "" {
		return nil, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid backend index %q", raw)
	}
	return &idx, nil
}

// setStreamingHeaders copies the upstream stream headers onto the response.
func setStreamingHeaders(c *gin.Context, header http.Header) {
	for name, values := range header {
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	if c.Writer.Header().Get(core.HeaderCacheControl) == "" {
		c.Header(core.HeaderCacheControl, core.CacheControlNoCache)
	}
}
