package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"digifootprint/internal/common"
)

const (
	ProviderIntelX = "intelx"

	DefaultIntelXURL = "https://free.intelx.io"
)

// RawHit is one primary-provider hit. Raw keeps the full payload for
// debugging.
type RawHit struct {
	Bucket   string          `json:"bucket"`
	Name     string          `json:"name"`
	Date     string          `json:"date"`
	DataType string          `json:"dataType"`
	Raw      json.RawMessage `json:"-"`
}

// PrimaryResult is the normalized primary-provider answer.
type PrimaryResult struct {
	Found bool
	Count int
	Hits  []RawHit
}

// IntelX queries the primary breach provider.
type IntelX struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *Breaker
}

// NewIntelX builds the primary client. An empty apiKey makes every Search
// return ErrConfiguration without touching the network.
func NewIntelX(baseURL, apiKey string, timeout time.Duration) *IntelX {
	if baseURL == "" {
		baseURL = DefaultIntelXURL
	}
	return &IntelX{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  newHTTPClient(timeout),
		breaker: NewBreaker(5, 30*time.Second),
	}
}

// Configured reports whether an API key is set.
func (c *IntelX) Configured() bool { return c.apiKey != "" }

// Search looks input up by kind.
func (c *IntelX) Search(ctx context.Context, input string, kind common.InputKind) (res PrimaryResult, err error) {
	defer func() { observe(ctx, ProviderIntelX, err) }()

	if !c.Configured() {
		return PrimaryResult{}, &Error{Provider: ProviderIntelX, Kind: ErrConfiguration}
	}

	var endpoint string
	body := map[string]any{"bucket": 0, "limit": 100}
	switch kind {
	case common.KindEmail:
		endpoint = "/emailsearch"
		body["email"] = input
	case common.KindPhone:
		endpoint = "/phonenumbersearch"
		body["phonenumber"] = input
	case common.KindUsername:
		endpoint = "/usernamesearch"
		body["username"] = input
	default:
		return PrimaryResult{}, &Error{Provider: ProviderIntelX, Kind: ErrConfiguration, Err: fmt.Errorf("invalid search type %q", kind)}
	}

	if !c.breaker.Allow() {
		return PrimaryResult{}, breakerOpen(ProviderIntelX)
	}
	defer func() { c.breaker.record(err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return PrimaryResult{}, &Error{Provider: ProviderIntelX, Kind: ErrConnection, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return PrimaryResult{}, &Error{Provider: ProviderIntelX, Kind: ErrConnection, Err: err}
	}
	req.Header.Set("x-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	status, data, err := do(c.client, ProviderIntelX, req, maxBodyBytes)
	if err != nil {
		return PrimaryResult{}, err
	}
	if status < 200 || status > 299 {
		return PrimaryResult{}, classifyStatus(ProviderIntelX, status)
	}

	hits := decodeHits(data)
	return PrimaryResult{Found: len(hits) > 0, Count: len(hits), Hits: hits}, nil
}

// decodeHits treats anything other than a JSON array as zero hits.
func decodeHits(data []byte) []RawHit {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	hits := make([]RawHit, 0, len(items))
	for _, item := range items {
		var h RawHit
		// non-object entries still count as hits, with only the raw payload
		_ = json.Unmarshal(item, &h)
		h.Raw = item
		hits = append(hits, h)
	}
	return hits
}
