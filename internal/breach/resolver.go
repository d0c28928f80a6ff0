// Package breach resolves the breach history of an email, username or phone
// number across the primary provider, the secondary provider and a local
// dataset, in that order.
package breach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"

	"digifootprint/internal/common"
	"digifootprint/internal/gateway"
)

// Data source labels reported in provenance.
const (
	SourcePrimary         = "IntelX API"
	SourceSecondary       = "REAL-TIME: Have I Been Pwned API"
	SourceRateLimited     = "HIBP API Rate Limit Exceeded"
	SourceConnectionError = "HIBP API Connection Error"
	SourceLocalFallback   = "LOCAL BREACH DATABASE (fallback)"
	SourceNoUsernameDB    = "LOCAL (no username breach DB)"
	SourceNoPhoneDB       = "LOCAL (no phone breach DB)"
)

const (
	rateLimitWarning = "Rate limit exceeded. Too many requests to HIBP API. Please try again in a few minutes."
	noMatchWarning   = "No local matches found; consider adding a HIBP API key for authoritative results."
)

func fallbackInstructions() *common.Instructions {
	return &common.Instructions{
		Title: "Enable Real Breach Detection (optional)",
		Steps: []string{
			"1. Obtain a HIBP API key at https://haveibeenpwned.com/API/v3",
			"2. Add to backend/.env: HIBP_API_KEY=your_key_here",
			"3. Restart the backend to enable real-time breach checks",
		},
	}
}

// Primary searches every input kind. *gateway.IntelX satisfies it.
type Primary interface {
	Search(ctx context.Context, input string, kind common.InputKind) (gateway.PrimaryResult, error)
}

// Secondary looks up email addresses only. *gateway.HIBP satisfies it.
type Secondary interface {
	Configured() bool
	BreachedAccount(ctx context.Context, email string) ([]gateway.HIBPBreach, error)
	Breaches(ctx context.Context) ([]gateway.HIBPBreach, error)
}

// Presence reports the platforms where a username has a public profile.
type Presence interface {
	Probe(ctx context.Context, username string) []common.PlatformAccount
}

// Resolver applies the provider-priority policy. Any collaborator may be
// nil; a nil provider behaves as unconfigured.
type Resolver struct {
	primary   Primary
	secondary Secondary
	presence  Presence
	table     *Table
	tracer    trace.Tracer
}

func NewResolver(primary Primary, secondary Secondary, presence Presence, table *Table) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		presence:  presence,
		table:     table,
		tracer:    otel.Tracer("digifootprint/breach"),
	}
}

// Resolve never fails; provider conditions are reported in the provenance.
func (r *Resolver) Resolve(ctx context.Context, input string, kind common.InputKind) common.BreachResult {
	ctx, span := r.tracer.Start(ctx, "breach.resolve", trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	res := r.resolve(ctx, input, kind)
	span.SetAttributes(
		attribute.String("source", res.Status.DataSource),
		attribute.Int("breaches", len(res.Breaches)),
	)
	return res
}

func (r *Resolver) resolve(ctx context.Context, input string, kind common.InputKind) common.BreachResult {
	if hits, ok := r.searchPrimary(ctx, input, kind); ok {
		return common.BreachResult{
			Breaches: fromPrimary(hits),
			Status:   common.Provenance{HasRealData: true, IsRealTime: true, DataSource: SourcePrimary},
		}
	}

	switch kind {
	case common.KindEmail:
		return r.resolveEmail(ctx, input)
	case common.KindPhone:
		return noDatabase(SourceNoPhoneDB, kind)
	default:
		return noDatabase(SourceNoUsernameDB, kind)
	}
}

func (r *Resolver) searchPrimary(ctx context.Context, input string, kind common.InputKind) (gateway.PrimaryResult, bool) {
	if r.primary == nil {
		return gateway.PrimaryResult{}, false
	}
	res, err := r.primary.Search(ctx, input, kind)
	switch {
	case errors.Is(err, gateway.ErrConfiguration):
		return res, false
	case err != nil:
		slog.Warn("primary breach provider unavailable", "kind", kind, "err", err)
		return res, false
	}
	return res, res.Found
}

func (r *Resolver) resolveEmail(ctx context.Context, email string) common.BreachResult {
	if r.secondary == nil || !r.secondary.Configured() {
		slog.Info("secondary breach provider not configured, using local dataset")
		return r.localFallback(ctx, email)
	}

	list, err := r.secondary.BreachedAccount(ctx, email)
	switch {
	case err == nil:
		return common.BreachResult{
			Breaches: fromSecondary(list),
			Status:   common.Provenance{HasRealData: true, IsRealTime: true, DataSource: SourceSecondary},
		}
	case errors.Is(err, gateway.ErrNotFound):
		return common.BreachResult{
			Breaches: []common.BreachRecord{},
			Status:   common.Provenance{HasRealData: true, IsRealTime: true, DataSource: SourceSecondary},
		}
	case errors.Is(err, gateway.ErrRateLimited):
		return common.BreachResult{
			Breaches: []common.BreachRecord{},
			Status:   common.Provenance{DataSource: SourceRateLimited, Warning: rateLimitWarning},
		}
	case errors.Is(err, gateway.ErrUnauthorized), errors.Is(err, gateway.ErrConfiguration):
		slog.Warn("secondary breach provider rejected credentials, using local dataset", "err", err)
		return r.localFallback(ctx, email)
	default:
		return common.BreachResult{
			Breaches: []common.BreachRecord{},
			Status: common.Provenance{
				DataSource: SourceConnectionError,
				Warning:    fmt.Sprintf("Could not connect to HIBP API: %v", err),
			},
		}
	}
}

// localFallback infers breaches from platforms where the email's local part
// is registered, plus table sites named in the email's domain.
func (r *Resolver) localFallback(ctx context.Context, email string) common.BreachResult {
	local, domain, _ := strings.Cut(email, "@")

	seen := make(map[string]bool)
	breaches := []common.BreachRecord{}
	add := func(e Entry) {
		key := strings.ToLower(e.Website)
		if seen[key] {
			return
		}
		seen[key] = true
		breaches = append(breaches, e.record())
	}

	if r.presence != nil {
		for _, acct := range r.presence.Probe(ctx, local) {
			if e, ok := r.table.Lookup(acct.Platform); ok {
				add(e)
			}
		}
	}

	if label := domainLabel(domain); label != "" {
		for _, e := range r.table.Entries() {
			if leaksCategory(e, "email") && strings.Contains(label, strings.ToLower(e.Website)) {
				add(e)
			}
		}
	}

	status := common.Provenance{
		HasRealData:  len(breaches) > 0,
		DataSource:   SourceLocalFallback,
		Instructions: fallbackInstructions(),
	}
	if len(breaches) == 0 {
		status.Warning = noMatchWarning
	}
	return common.BreachResult{Breaches: breaches, Status: status}
}

// domainLabel lower-cases domain and strips its public suffix, so
// "mail.github.co.uk" yields "mail.github".
func domainLabel(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ""
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == domain {
		return domain
	}
	return strings.TrimSuffix(domain, "."+suffix)
}

func leaksCategory(e Entry, category string) bool {
	for _, d := range e.DataLeaked {
		if strings.EqualFold(d, category) {
			return true
		}
	}
	return false
}

func noDatabase(source string, kind common.InputKind) common.BreachResult {
	return common.BreachResult{
		Breaches: []common.BreachRecord{},
		Status: common.Provenance{
			DataSource: source,
			Warning:    fmt.Sprintf("No %s breach DB available.", kind),
		},
	}
}

// AllBreaches lists the secondary provider's breach catalogue. It returns an
// empty list when the provider cannot be reached.
func (r *Resolver) AllBreaches(ctx context.Context) []common.BreachRecord {
	if r.secondary == nil {
		return []common.BreachRecord{}
	}
	list, err := r.secondary.Breaches(ctx)
	if err != nil {
		slog.Warn("breach catalogue unavailable", "err", err)
		return []common.BreachRecord{}
	}
	return fromSecondary(list)
}
