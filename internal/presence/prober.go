// Package presence walks a fixed roster of platforms to find public profiles
// registered under a username.
package presence

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"digifootprint/internal/cache"
	"digifootprint/internal/common"
	"digifootprint/internal/gateway"
)

const (
	DefaultInterval = 300 * time.Millisecond
	DefaultCacheTTL = 10 * time.Minute
)

// State is the outcome of a single platform check.
type State string

const (
	Found    State = "found"
	NotFound State = "not_found"
	Failed   State = "failed"
)

// Check records what one platform probe concluded.
type Check struct {
	Platform string `json:"platform"`
	State    State  `json:"state"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report is the result of a roster walk. Accounts holds the found entries
// in roster order.
type Report struct {
	Username string                   `json:"username"`
	Checks   []Check                  `json:"checks"`
	Accounts []common.PlatformAccount `json:"accounts"`
}

// Client issues a single platform request. *gateway.HTTPProber satisfies it.
type Client interface {
	Probe(ctx context.Context, req gateway.ProbeRequest) (gateway.ProbeResponse, error)
}

type Option func(*Prober)

func WithRoster(roster []Platform) Option {
	return func(p *Prober) { p.roster = roster }
}

// WithInterval sets the gap between consecutive probes within one walk.
// Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(p *Prober) { p.interval = d }
}

func WithCache(c *cache.Cache[Report]) Option {
	return func(p *Prober) { p.cache = c }
}

// Prober checks platforms sequentially, pacing requests so probed sites do
// not throttle the scanner.
type Prober struct {
	client   Client
	roster   []Platform
	interval time.Duration
	cache    *cache.Cache[Report]
	tracer   trace.Tracer
}

func New(client Client, opts ...Option) *Prober {
	p := &Prober{
		client:   client,
		roster:   DefaultRoster(),
		interval: DefaultInterval,
		tracer:   otel.Tracer("digifootprint/presence"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = cache.New[Report]("platform", DefaultCacheTTL)
	}
	return p
}

// Roster returns the platforms walked by p.
func (p *Prober) Roster() []Platform { return p.roster }

// Walk returns the full three-state report for username. A cached report is
// returned without touching the network. Concurrent callers share one walk.
// A caller whose ctx ends before the shared walk finishes gets every platform
// marked failed, while the walk completes and is cached for the others. A
// walk cut short by its own deadline is returned but not cached.
func (p *Prober) Walk(ctx context.Context, username string) Report {
	rep, err := p.cache.GetOrCompute(ctx, "username:"+username, func(ctx context.Context) (Report, error) {
		r := p.walk(ctx, username)
		return r, ctx.Err()
	})
	if err != nil {
		slog.Debug("platform walk interrupted", "username", username, "err", err)
		if rep.Checks == nil {
			rep = p.failed(username, err)
		}
	}
	return rep
}

func (p *Prober) failed(username string, err error) Report {
	rep := Report{
		Username: username,
		Checks:   make([]Check, 0, len(p.roster)),
		Accounts: []common.PlatformAccount{},
	}
	for _, pl := range p.roster {
		rep.Checks = append(rep.Checks, Check{Platform: pl.Name, State: Failed, Error: err.Error()})
	}
	return rep
}

// Probe returns only the platforms where a profile was confirmed.
func (p *Prober) Probe(ctx context.Context, username string) []common.PlatformAccount {
	return p.Walk(ctx, username).Accounts
}

func (p *Prober) walk(ctx context.Context, username string) Report {
	ctx, span := p.tracer.Start(ctx, "presence.walk", trace.WithAttributes(attribute.Int("platforms", len(p.roster))))
	defer span.End()

	limit := rate.Inf
	if p.interval > 0 {
		limit = rate.Every(p.interval)
	}
	gate := rate.NewLimiter(limit, 1)

	rep := Report{
		Username: username,
		Checks:   make([]Check, 0, len(p.roster)),
		Accounts: []common.PlatformAccount{},
	}
	for _, pl := range p.roster {
		if err := gate.Wait(ctx); err != nil {
			rep.Checks = append(rep.Checks, Check{Platform: pl.Name, State: Failed, Error: err.Error()})
			continue
		}
		check := p.check(ctx, pl, username)
		rep.Checks = append(rep.Checks, check)
		if check.State == Found {
			rep.Accounts = append(rep.Accounts, common.PlatformAccount{
				Platform: pl.Name,
				URL:      pl.profileURL(username),
				Status:   common.AccountFound,
			})
		}
	}
	span.SetAttributes(attribute.Int("found", len(rep.Accounts)))
	return rep
}

func (p *Prober) check(ctx context.Context, pl Platform, username string) Check {
	resp, err := p.client.Probe(ctx, pl.request(username))
	if err != nil {
		slog.Debug("platform probe failed", "platform", pl.Name, "err", err)
		return Check{Platform: pl.Name, State: Failed, Error: err.Error()}
	}
	state := NotFound
	if pl.matches(resp, username) {
		state = Found
	}
	slog.Debug("platform probed", "platform", pl.Name, "status", resp.Status, "state", state)
	return Check{Platform: pl.Name, State: state, Status: resp.Status}
}
