// Package gateway resolves chat completion requests to their backend and
// relays the upstream response.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"openaigateway/internal/core"
	"openaigateway/internal/payload"
	"openaigateway/internal/util"
)

// Catalog is the model registry view the gateway resolves against.
// ListMergedCatalog is expected to serve from cache inside its TTL.
type Catalog interface {
	ListMergedCatalog(ctx context.Context) *core.ModelCatalog
}

// EnabledSource reports whether the OpenAI API is switched on.
type EnabledSource interface {
	Enabled() bool
}

// Options configures a Gateway.
type Options struct {
	Catalog      Catalog
	Backends     EnabledSource
	ModelConfigs core.ModelConfigStore
	HTTPClient   *http.Client
	Timeout      time.Duration
	Referer      string
	Title        string
	Logger       core.Logger
	Metrics      core.MetricsCollector
	Now          func() time.Time
}

// Gateway forwards chat completions to the backend that owns the model.
type Gateway struct {
	catalog  Catalog
	backends EnabledSource
	configs  core.ModelConfigStore
	client   *http.Client
	timeout  time.Duration
	referer  string
	title    string
	logger   core.Logger
	metrics  core.MetricsCollector
	now      func() time.Time
}

// Result is a completed upstream call. Exactly one of Stream and Body is set;
// the caller must Close a non-nil Stream.
type Result struct {
	Backend    core.Backend
	Model      string
	StatusCode int
	Header     http.Header
	Stream     *StreamRelay
	Body       any
	Raw        []byte
}

// IsStream reports whether the upstream answered with an event stream.
func (r *Result) IsStream() bool {
	return r.Stream != nil
}

func New(opts Options) *Gateway {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = core.HTTPRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = &core.NopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = &core.NopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{
		catalog:  opts.Catalog,
		backends: opts.Backends,
		configs:  opts.ModelConfigs,
		client:   opts.HTTPClient,
		timeout:  opts.Timeout,
		referer:  opts.Referer,
		title:    opts.Title,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// Complete rewrites p for its model and backend and issues the upstream call.
// explicitIdx, when set, overrides the backend the catalog resolved.
func (g *Gateway) Complete(ctx context.Context, p Payload, identity *core.Identity, explicitIdx *int) (*Result, error) {
	if g.backends != nil && !g.backends.Enabled() {
		return nil, core.ErrAPIDisabled
	}

	delete(p, core.FieldMetadata)

	if err := g.applyModelConfig(ctx, p, identity); err != nil {
		return nil, err
	}

	catalog := g.catalog.ListMergedCatalog(ctx)

	modelID := p.Model()
	record, backend, ok := catalog.Lookup(modelID)
	if !ok {
		return nil, &core.ModelNotFoundError{ModelID: modelID}
	}
	if explicitIdx != nil {
		idx := *explicitIdx
		if idx < 0 || idx >= len(catalog.Backends) {
			return nil, &core.BackendIndexError{Index: idx, Count: len(catalog.Backends)}
		}
		backend = catalog.Backends[idx]
	}

	if record.IsPipeline() {
		p[core.FieldUser] = pipelineUser(identity)
	}

	Normalize(p, backend)

	body, err := util.MarshalJSON(p)
	if err != nil {
		return nil, core.NewUpstreamError(http.StatusBadRequest, "invalid request body", fmt.Errorf("failed to marshal request: %w", err))
	}
	g.logger.Debug("Chat completion: model=%s backend=%d size=%d", modelID, backend.Index, len(body))

	return g.send(ctx, backend, modelID, body)
}

func (g *Gateway) applyModelConfig(ctx context.Context, p Payload, identity *core.Identity) error {
	if g.configs == nil {
		return nil
	}
	cfg, err := g.configs.Get(ctx, p.Model())
	if err != nil {
		return fmt.Errorf("failed to load model config for %q: %w", p.Model(), err)
	}
	if cfg == nil {
		return nil
	}
	if cfg.BaseModelID != "" {
		p[core.FieldModel] = cfg.BaseModelID
	}
	payload.ApplyParams(cfg.Params, p)
	payload.ApplySystemPrompt(cfg.Params, p, identity, g.now())
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, backend core.Backend, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		backend.Endpoint(core.ChatCompletionsPath),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+backend.APIKey)
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	if backend.IsOpenRouter() {
		req.Header.Set(core.HeaderReferer, g.referer)
		req.Header.Set(core.HeaderTitle, g.title)
	}
	return req, nil
}

func (g *Gateway) send(ctx context.Context, backend core.Backend, modelID string, body []byte) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)

	req, err := g.newRequest(callCtx, backend, body)
	if err != nil {
		cancel()
		return nil, core.NewUpstreamError(0, "", err)
	}

	start := g.now()
	resp, err := g.client.Do(req)
	if err != nil {
		cancel()
		g.metrics.RecordUpstreamRequest(backend.Index, 0, g.now().Sub(start))
		g.logger.Error("Chat completion request to backend %d failed: %v", backend.Index, err)
		return nil, core.NewUpstreamError(0, "", fmt.Errorf("failed to make request: %w", err))
	}
	g.metrics.RecordUpstreamRequest(backend.Index, resp.StatusCode, g.now().Sub(start))

	if strings.Contains(resp.Header.Get(core.HeaderContentType), core.ContentTypeEventStream) {
		g.metrics.StreamOpened()
		return &Result{
			Backend:    backend,
			Model:      modelID,
			StatusCode: resp.StatusCode,
			Header:     relayHeaders(resp.Header),
			Stream:     newStreamRelay(resp, cancel, g.metrics.StreamClosed),
		}, nil
	}

	defer cancel()
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn("Failed to close upstream body: %v", closeErr)
		}
	}()
	return g.buffer(resp, backend, modelID)
}

func (g *Gateway) buffer(resp *http.Response, backend core.Backend, modelID string) (*Result, error) {
	success := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	errStatus := resp.StatusCode
	if success {
		errStatus = 0
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize+1))
	if err != nil {
		return nil, core.NewUpstreamError(errStatus, "", fmt.Errorf("failed to read response: %w", err))
	}
	if len(data) > core.MaxResponseBodySize {
		return nil, core.NewUpstreamError(errStatus, "", errors.New("upstream response exceeds size limit"))
	}

	var doc any
	if err := util.UnmarshalJSON(data, &doc); err != nil {
		g.logger.Debug("Backend %d returned a non-JSON body: %v", backend.Index, err)
		doc = string(data)
	}

	if !success {
		detail := util.ErrorDetail(doc)
		g.logger.Warn("Backend %d answered %d: %s", backend.Index, resp.StatusCode, util.TruncateString(detail, 200, 0, "..."))
		return nil, core.NewUpstreamError(resp.StatusCode, detail, fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	return &Result{
		Backend:    backend,
		Model:      modelID,
		StatusCode: resp.StatusCode,
		Header:     relayHeaders(resp.Header),
		Body:       doc,
		Raw:        data,
	}, nil
}
