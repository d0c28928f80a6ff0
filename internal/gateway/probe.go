package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"digifootprint/internal/metrics"
)

const (
	ProviderPlatform = "platform"

	// BrowserUserAgent is sent to platforms that reject non-browser clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	probeBodyBytes = 64 << 10
)

// ProbeRequest describes one platform-presence request.
type ProbeRequest struct {
	Platform        string
	Method          string
	URL             string
	UserAgent       string
	FollowRedirects bool
}

// ProbeResponse carries the raw outcome; interpreting the status is the
// caller's job.
type ProbeResponse struct {
	Status int
	Body   []byte
}

// HTTPProber issues platform-presence requests. Any HTTP status is a
// successful probe; only transport failures are errors.
type HTTPProber struct {
	follow   *http.Client
	noFollow *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	noFollow := newHTTPClient(timeout)
	noFollow.CheckRedirect = noRedirects
	return &HTTPProber{follow: newHTTPClient(timeout), noFollow: noFollow}
}

func (p *HTTPProber) Probe(ctx context.Context, pr ProbeRequest) (resp ProbeResponse, err error) {
	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues(pr.Platform).Observe(time.Since(start).Seconds())
		observe(ctx, ProviderPlatform+"_"+strings.ToLower(pr.Platform), err)
	}()

	method := pr.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, pr.URL, nil)
	if err != nil {
		return ProbeResponse{}, &Error{Provider: pr.Platform, Kind: ErrConnection, Err: err}
	}
	if pr.UserAgent != "" {
		req.Header.Set("User-Agent", pr.UserAgent)
	}

	client := p.noFollow
	if pr.FollowRedirects {
		client = p.follow
	}
	status, body, err := do(client, pr.Platform, req, probeBodyBytes)
	if err != nil {
		return ProbeResponse{}, err
	}
	return ProbeResponse{Status: status, Body: body}, nil
}
