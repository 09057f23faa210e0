package gateway

import (
	"context"
	"io"
	"net/http"
	"sync"
)

// hopHeaders are connection-scoped and never relayed downstream.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

func relayHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	return out
}

// StreamRelay passes an upstream event stream through unmodified. Close
// releases the upstream connection exactly once, however many times it is
// called.
type StreamRelay struct {
	StatusCode int
	Header     http.Header

	body    io.ReadCloser
	cancel  context.CancelFunc
	onClose func()

	once     sync.Once
	closeErr error
}

func newStreamRelay(resp *http.Response, cancel context.CancelFunc, onClose func()) *StreamRelay {
	return &StreamRelay{
		StatusCode: resp.StatusCode,
		Header:     relayHeaders(resp.Header),
		body:       resp.Body,
		cancel:     cancel,
		onClose:    onClose,
	}
}

func (s *StreamRelay) Read(p []byte) (int, error) {
	return s.body.Read(p)
}

func (s *StreamRelay) Close() error {
	s.once.Do(func() {
		s.closeErr = s.body.Close()
		if s.cancel != nil {
			s.cancel()
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.closeErr
}
