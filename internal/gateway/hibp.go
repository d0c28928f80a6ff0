package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProviderHIBP = "hibp"

	DefaultHIBPURL = "https://haveibeenpwned.com/api/v3"

	// placeholderKey ships in sample env files and is treated as unset.
	placeholderKey = "your-api-key-here"
)

// HIBPBreach is a breach object as returned by the secondary provider.
type HIBPBreach struct {
	Name         string   `json:"Name"`
	Title        string   `json:"Title"`
	Domain       string   `json:"Domain"`
	BreachDate   string   `json:"BreachDate"`
	Description  string   `json:"Description"`
	LogoPath     string   `json:"LogoPath"`
	DataClasses  []string `json:"DataClasses"`
	PwnCount     int64    `json:"PwnCount"`
	IsVerified   bool     `json:"IsVerified"`
	IsFabricated bool     `json:"IsFabricated"`
	IsSpamList   bool     `json:"IsSpamList"`
}

// HIBP queries the secondary breach provider. It only supports email.
type HIBP struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *Breaker
}

func NewHIBP(baseURL, apiKey string, timeout time.Duration) *HIBP {
	if baseURL == "" {
		baseURL = DefaultHIBPURL
	}
	apiKey = strings.TrimSpace(apiKey)
	if !KeyConfigured(apiKey) {
		apiKey = ""
	}
	return &HIBP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		breaker: NewBreaker(5, 30*time.Second),
	}
}

// KeyConfigured is false for a blank key or the sample placeholder.
func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderKey
}

// Configured reports whether a usable API key is set.
func (c *HIBP) Configured() bool { return c.apiKey != "" }

// BreachedAccount returns the breaches containing email. A 404 is reported
// as ErrNotFound, which callers treat as a valid empty answer.
func (c *HIBP) BreachedAccount(ctx context.Context, email string) (breaches []HIBPBreach, err error) {
	defer func() { observe(ctx, ProviderHIBP, err) }()

	if !c.Configured() {
		return nil, &Error{Provider: ProviderHIBP, Kind: ErrConfiguration}
	}
	if !c.breaker.Allow() {
		return nil, breakerOpen(ProviderHIBP)
	}
	defer func() { c.breaker.record(err) }()

	u := c.baseURL + "/breachedaccount/" + url.PathEscape(email) + "?truncateResponse=false"
	return c.get(ctx, u, true)
}

// Breaches lists the provider's whole breach catalogue. No key is needed.
func (c *HIBP) Breaches(ctx context.Context) (breaches []HIBPBreach, err error) {
	defer func() { observe(ctx, ProviderHIBP, err) }()
	return c.get(ctx, c.baseURL+"/breaches", false)
}

func (c *HIBP) get(ctx context.Context, u string, withKey bool) ([]HIBPBreach, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Provider: ProviderHIBP, Kind: ErrConnection, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	if withKey {
		req.Header.Set("hibp-api-key", c.apiKey)
	}

	status, data, err := do(c.client, ProviderHIBP, req, maxBodyBytes)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, classifyStatus(ProviderHIBP, status)
	}

	var out []HIBPBreach
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &Error{Provider: ProviderHIBP, Kind: ErrConnection, Status: status, Err: err}
	}
	return out, nil
}
