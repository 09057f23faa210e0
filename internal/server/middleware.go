package server

import (
	"net/http"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"github.com/gin-gonic/gin"
)

// MaxBodySize is the maximum allowed request body size (50MB).
const MaxBodySize = 50 << 20

func (s *Server) maxBodySizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)
		c.Next()
	}
}

// requestIDMiddleware keeps a caller supplied X-Request-ID or assigns a new one.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(core.HeaderRequestID)
		if requestID == "" {
			requestID = util.GenerateRequestID()
		}
		c.Set(core.ContextKeyRequestID, requestID)
		c.Header(core.HeaderRequestID, requestID)
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowOrigin := s.config.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
