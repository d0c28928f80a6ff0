// Package gateway wraps the external breach, identity and password
// providers behind one calling convention: each call returns a normalized
// value or a classified *Error, never a raw transport error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"digifootprint/internal/metrics"
)

const (
	// DefaultTimeout bounds every provider call.
	DefaultTimeout = 10 * time.Second
	// UserAgent identifies the scanner to providers that require one.
	UserAgent = "DigitalFootprint-Scanner/1.0"

	maxBodyBytes = 1 << 20
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func noRedirects(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}

// do executes req and returns the status and up to limit bytes of body.
// Transport failures, including timeouts, become ErrConnection.
func do(client *http.Client, provider string, req *http.Request, limit int64) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &Error{Provider: provider, Kind: ErrConnection, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, &Error{Provider: provider, Kind: ErrConnection, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.StatusCode, body, nil
}

// classifyStatus maps a non-success HTTP status to an error kind.
func classifyStatus(provider string, status int) error {
	switch status {
	case http.StatusNotFound:
		return &Error{Provider: provider, Kind: ErrNotFound, Status: status}
	case http.StatusTooManyRequests:
		return &Error{Provider: provider, Kind: ErrRateLimited, Status: status}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Provider: provider, Kind: ErrUnauthorized, Status: status}
	default:
		return &Error{Provider: provider, Kind: ErrConnection, Status: status}
	}
}

// observe counts the call outcome and logs unexpected failures.
func observe(ctx context.Context, provider string, err error) {
	metrics.ProviderRequests.WithLabelValues(provider, outcomeLabel(err)).Inc()
	if err == nil {
		return
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRateLimited) {
		slog.WarnContext(ctx, "provider call failed", "provider", provider, "err", err)
		return
	}
	slog.DebugContext(ctx, "provider call", "provider", provider, "outcome", outcomeLabel(err))
}

func breakerOpen(provider string) error {
	return &Error{Provider: provider, Kind: ErrConnection, Err: errors.New("circuit open")}
}
