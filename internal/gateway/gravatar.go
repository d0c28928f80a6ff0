package gateway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderGravatar = "gravatar"

	DefaultGravatarURL = "https://www.gravatar.com"
)

// Gravatar checks whether a public avatar is registered for an email.
type Gravatar struct {
	baseURL string
	client  *http.Client
}

func NewGravatar(baseURL string, timeout time.Duration) *Gravatar {
	if baseURL == "" {
		baseURL = DefaultGravatarURL
	}
	return &Gravatar{baseURL: strings.TrimRight(baseURL, "/"), client: newHTTPClient(timeout)}
}

// AvatarHash is the lookup key for email: md5 of the trimmed, lower-cased
// address.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Exists reports true only on HTTP 200.
func (g *Gravatar) Exists(ctx context.Context, email string) (found bool, err error) {
	defer func() { observe(ctx, ProviderGravatar, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, g.baseURL+"/avatar/"+AvatarHash(email)+"?d=404", nil)
	if err != nil {
		return false, &Error{Provider: ProviderGravatar, Kind: ErrConnection, Err: err}
	}
	status, _, err := do(g.client, ProviderGravatar, req, 0)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}
