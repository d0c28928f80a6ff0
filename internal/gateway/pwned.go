package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderPwnedRange = "pwned_range"

	DefaultPwnedRangeURL = "https://api.pwnedpasswords.com"
)

// PwnedRange queries the k-anonymity password range endpoint. Only the
// 5-character hash prefix ever leaves the process.
type PwnedRange struct {
	baseURL string
	client  *http.Client
}

func NewPwnedRange(baseURL string, timeout time.Duration) *PwnedRange {
	if baseURL == "" {
		baseURL = DefaultPwnedRangeURL
	}
	return &PwnedRange{baseURL: strings.TrimRight(baseURL, "/"), client: newHTTPClient(timeout)}
}

// Range returns the newline-delimited SUFFIX:COUNT body for prefix.
func (p *PwnedRange) Range(ctx context.Context, prefix string) (body string, err error) {
	defer func() { observe(ctx, ProviderPwnedRange, err) }()

	if len(prefix) != 5 {
		return "", &Error{Provider: ProviderPwnedRange, Kind: ErrConnection, Err: fmt.Errorf("prefix must be 5 characters, got %d", len(prefix))}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return "", &Error{Provider: ProviderPwnedRange, Kind: ErrConnection, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	status, data, err := do(p.client, ProviderPwnedRange, req, maxBodyBytes)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &Error{Provider: ProviderPwnedRange, Kind: ErrConnection, Status: status}
	}
	return string(data), nil
}
