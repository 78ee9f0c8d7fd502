package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}
}

// Get fetches rawURL and returns the body of a successful response.
func Get(ctx context.Context, f Fetcher, rawURL, kind string) ([]byte, error) {
	if f == nil {
		return nil, types.ErrNoFetcher
	}
	req, err := types.NewKindRequest(rawURL, kind)
	if err != nil {
		return nil, err
	}
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
			Retryable:  resp.IsServerError(),
		}
	}
	if len(resp.Body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: types.ErrEmptyResponse}
	}
	return resp.Body, nil
}

// RetryFetcher retries retryable fetch errors with exponential backoff.
type RetryFetcher struct {
	next       Fetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps next. maxRetries of 0 disables retrying.
func NewRetryFetcher(next Fetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With("component", "retry_fetcher"),
	}
}

// Fetch implements Fetcher.
func (r *RetryFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		resp, err := r.next.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}

		var fe *types.FetchError
		if attempt >= r.maxRetries || !errors.As(err, &fe) || !fe.IsRetryable() {
			return nil, err
		}

		r.logger.Warn("retrying request",
			"url", req.URLString(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Close implements Fetcher.
func (r *RetryFetcher) Close() error { return r.next.Close() }

// Type implements Fetcher.
func (r *RetryFetcher) Type() string { return r.next.Type() }
