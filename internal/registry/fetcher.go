package registry

import (
	"context"
	"fmt"
	"time"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"resty.dev/v3"
)

// Fetcher retrieves the model list document of one backend.
type Fetcher interface {
	// FetchModels returns whatever JSON the backend answered with, error
	// documents included. Network and decode failures wrap core.ErrBackendUnreachable.
	FetchModels(ctx context.Context, backend core.Backend) (any, error)
	// ListModels is the strict variant: non-2xx answers become *core.UpstreamError.
	ListModels(ctx context.Context, backend core.Backend) (map[string]any, error)
}

// RestyFetcher fetches model lists over one shared resty client.
type RestyFetcher struct {
	client *resty.Client
}

// NewRestyFetcher creates a fetcher whose every call is bounded by timeout.
func NewRestyFetcher(timeout time.Duration) *RestyFetcher {
	if timeout <= 0 {
		timeout = core.DefaultModelListWait
	}
	return &RestyFetcher{
		client: resty.New().SetTimeout(timeout),
	}
}

// Close releases idle connections of the underlying client.
func (f *RestyFetcher) Close() error {
	return f.client.Close()
}

func (f *RestyFetcher) get(ctx context.Context, backend core.Backend) (*resty.Response, error) {
	return f.client.R().
		SetContext(ctx).
		SetHeader(core.HeaderAuthorization, core.AuthBearerPrefix+backend.APIKey).
		SetHeader(core.HeaderContentType, core.ContentTypeJSON).
		Get(backend.Endpoint(core.ModelsPath))
}

func (f *RestyFetcher) FetchModels(ctx context.Context, backend core.Backend) (any, error) {
	resp, err := f.get(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("%w: backend %d: %v", core.ErrBackendUnreachable, backend.Index, err)
	}

	var doc any
	if err := util.UnmarshalJSON(resp.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("%w: backend %d: decode status %d: %v",
			core.ErrBackendUnreachable, backend.Index, resp.StatusCode(), err)
	}
	return doc, nil
}

func (f *RestyFetcher) ListModels(ctx context.Context, backend core.Backend) (map[string]any, error) {
	resp, err := f.get(ctx, backend)
	if err != nil {
		return nil, core.NewUpstreamError(0, "", fmt.Errorf("%w: %v", core.ErrBackendUnreachable, err))
	}
	if !resp.IsSuccess() {
		return nil, core.NewUpstreamError(resp.StatusCode(), util.ErrorDetailFromBody(resp.Bytes()), nil)
	}

	var doc map[string]any
	if err := util.UnmarshalJSON(resp.Bytes(), &doc); err != nil {
		return nil, core.NewUpstreamError(0, "", fmt.Errorf("decode model list: %w", err))
	}
	return doc, nil
}
