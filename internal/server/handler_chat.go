package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"openaigateway/internal/auth"
	"openaigateway/internal/core"
	"openaigateway/internal/gateway"

	"github.com/gin-gonic/gin"
)

// noBackend marks a request that failed before a backend was resolved.
const noBackend = -1

func (s *Server) chatCompletions(c *gin.Context) {
	startTime := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.metricsService.RecordCompletion(startTime, "", noBackend, false)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondWithError(c, http.StatusRequestEntityTooLarge, errTypeInvalidRequest, "request body too large")
			return
		}
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "failed to read request body")
		return
	}

	payload, err := gateway.ParsePayload(body)
	if err != nil {
		s.metricsService.RecordCompletion(startTime, "", noBackend, false)
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid request body")
		return
	}

	idx, err := backendIndexParam(c)
	if err != nil {
		s.metricsService.RecordCompletion(startTime, payload.Model(), noBackend, false)
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, err.Error())
		return
	}

	requested := payload.Model()
	result, err := s.gateway.Complete(c.Request.Context(), payload, auth.IdentityFrom(c), idx)
	if err != nil {
		s.config.Logger.Warn("Chat completion for model %s failed: %v", requested, err)
		s.metricsService.RecordCompletion(startTime, requested, noBackend, false)
		respondWithGatewayError(c, err)
		return
	}

	if result.IsStream() {
		err := s.relayStream(c, result)
		if err != nil {
			s.config.Logger.Debug("Stream for model %s ended early: %v", requested, err)
		}
		if err == nil && result.StatusCode < http.StatusBadRequest {
			s.metricsService.RecordCompletion(startTime, requested, result.Backend.Index, true)
		} else {
			s.metricsService.RecordCompletion(startTime, requested, result.Backend.Index, false)
		}
		return
	}

	s.metricsService.RecordCompletion(startTime, requested, result.Backend.Index, true)
	if text, ok := result.Body.(string); ok {
		c.JSON(result.StatusCode, text)
		return
	}
	c.Data(result.StatusCode, core.ContentTypeJSON, result.Raw)
}

// relayStream copies the upstream event stream to the client chunk by chunk.
// The upstream connection is released when the copy ends for any reason.
func (s *Server) relayStream(c *gin.Context, result *gateway.Result) error {
	defer func() {
		if err := result.Stream.Close(); err != nil {
			s.config.Logger.Debug("Failed to close upstream stream: %v", err)
		}
	}()

	setStreamingHeaders(c, result.Header)
	c.Status(result.StatusCode)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	buf := make([]byte, core.StreamCopyBufferSize)
	for {
		n, readErr := result.Stream.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				return err
			}
			c.Writer.Flush()
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
