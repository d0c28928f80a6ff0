// Package password checks passwords against the public breach corpus using
// the k-anonymity range API: only the first five hex characters of the
// SHA-1 digest are ever sent.
package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"digifootprint/internal/cache"
)

const DefaultCacheTTL = 5 * time.Minute

// Result is the outcome of one check.
type Result struct {
	Pwned bool `json:"pwned"`
	Count int  `json:"count"`
}

// RangeClient fetches the SUFFIX:COUNT body for a hash prefix.
// *gateway.PwnedRange satisfies it.
type RangeClient interface {
	Range(ctx context.Context, prefix string) (string, error)
}

type Option func(*Checker)

func WithCache(c *cache.Cache[string]) Option {
	return func(ch *Checker) { ch.cache = c }
}

type Checker struct {
	client RangeClient
	cache  *cache.Cache[string]
}

func NewChecker(client RangeClient, opts ...Option) *Checker {
	c := &Checker{client: client}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New[string]("password_range", DefaultCacheTTL)
	}
	return c
}

// HashParts splits the upper-case SHA-1 hex digest of password into the
// 5-character prefix and the remaining suffix.
func HashParts(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return digest[:5], digest[5:]
}

// Check reports whether password appears in the corpus. An empty password is
// never looked up. On failure the zero Result is returned with the error so
// callers can tell "not found" from "could not check".
func (c *Checker) Check(ctx context.Context, password string) (Result, error) {
	if password == "" {
		return Result{}, nil
	}
	prefix, suffix := HashParts(password)

	body, err := c.cache.GetOrCompute(ctx, prefix, func(ctx context.Context) (string, error) {
		return c.client.Range(ctx, prefix)
	})
	if err != nil {
		slog.Warn("password range lookup failed", "prefix", prefix, "err", err)
		return Result{}, err
	}
	return lookup(body, suffix), nil
}

// lookup scans a range body for suffix, ignoring case and trailing CR.
func lookup(body, suffix string) Result {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		hash, count, _ := strings.Cut(sc.Text(), ":")
		hash = strings.TrimSpace(hash)
		if hash == "" || !strings.EqualFold(hash, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			n = 0
		}
		return Result{Pwned: true, Count: n}
	}
	return Result{}
}
