// Package scan composes breach resolution, platform probing, avatar lookup
// and scoring into the operations exposed to callers.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"digifootprint/internal/common"
	"digifootprint/internal/metrics"
	"digifootprint/internal/password"
	"digifootprint/internal/scoring"
)

// ErrInvalidInput is returned for malformed caller input. It is the only
// error the scan operations produce; provider failures are reported inside
// the results.
var ErrInvalidInput = errors.New("invalid input")

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigit     = regexp.MustCompile(`\D`)
)

const (
	sourceRealTime  = "Real-time HIBP API + Platform APIs"
	sourcePlatforms = "Platform APIs only"
)

// BreachResolver is satisfied by *breach.Resolver.
type BreachResolver interface {
	Resolve(ctx context.Context, input string, kind common.InputKind) common.BreachResult
	AllBreaches(ctx context.Context) []common.BreachRecord
}

// PlatformProber is satisfied by *presence.Prober.
type PlatformProber interface {
	Probe(ctx context.Context, username string) []common.PlatformAccount
}

// AvatarChecker is satisfied by *gateway.Gravatar.
type AvatarChecker interface {
	Exists(ctx context.Context, email string) (bool, error)
}

// PasswordChecker is satisfied by *password.Checker.
type PasswordChecker interface {
	Check(ctx context.Context, password string) (password.Result, error)
}

type Option func(*Service)

// WithClock replaces time.Now for scan timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs scans. It holds no per-request state.
type Service struct {
	breaches  BreachResolver
	platforms PlatformProber
	avatars   AvatarChecker
	passwords PasswordChecker
	now       func() time.Time
}

func New(breaches BreachResolver, platforms PlatformProber, avatars AvatarChecker, passwords PasswordChecker, opts ...Option) *Service {
	s := &Service{
		breaches:  breaches,
		platforms: platforms,
		avatars:   avatars,
		passwords: passwords,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidEmail reports whether email has the shape local@domain.tld.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

// ValidPhone accepts 10 to 15 digits once separators are removed.
func ValidPhone(phone string) bool {
	n := len(nonDigit.ReplaceAllString(phone, ""))
	return n >= 10 && n <= 15
}

// ScanEmail resolves breaches for email, probes its local part across the
// platform roster and checks for a public avatar.
func (s *Service) ScanEmail(ctx context.Context, email string) (*common.ScanResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	username, _, _ := strings.Cut(email, "@")

	br := s.breaches.Resolve(ctx, email, common.KindEmail)
	accounts := s.platforms.Probe(ctx, username)
	if accounts == nil {
		accounts = []common.PlatformAccount{}
	}

	avatar := false
	if s.avatars != nil {
		found, err := s.avatars.Exists(ctx, email)
		if err != nil {
			slog.Debug("avatar check failed", "err", err)
		}
		avatar = found
	}
	confidence := scoring.Confidence(len(accounts), avatar)

	res := &common.ScanResult{
		ID:                uuid.NewString(),
		Input:             email,
		Username:          username,
		Breaches:          br.Breaches,
		BreachCheckStatus: br.Status,
		AccountsFound:     accounts,
		GravatarFound:     avatar,
		ConfidenceScore:   confidence.Score,
		ConfidenceDetails: confidence.Details,
		EmailExposed:      anyLeaks(br.Breaches, "email"),
		PhoneExposed:      anyLeaks(br.Breaches, "phone"),
		ReusedUsername:    len(accounts) > 0,
		PublicVisibility:  max(0, len(accounts)-5),
		Timestamp:         s.now(),
		DataSource:        sourcePlatforms,
	}
	if br.Status.IsRealTime {
		res.DataSource = sourceRealTime
	}

	metrics.Scans.WithLabelValues(string(common.KindEmail), br.Status.DataSource).Inc()
	slog.Info("email scan complete",
		"scan_id", res.ID,
		"breaches", len(res.Breaches),
		"accounts", len(accounts),
		"source", br.Status.DataSource,
	)
	return res, nil
}

// ScanUsername resolves breaches recorded against a username.
func (s *Service) ScanUsername(ctx context.Context, username string) (common.BreachResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return common.BreachResult{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return s.resolve(ctx, username, common.KindUsername), nil
}

// ScanPhone resolves breaches recorded against a phone number.
func (s *Service) ScanPhone(ctx context.Context, phone string) (common.BreachResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return common.BreachResult{}, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	if !ValidPhone(phone) {
		return common.BreachResult{}, fmt.Errorf("%w: phone must contain 10 to 15 digits", ErrInvalidInput)
	}
	return s.resolve(ctx, phone, common.KindPhone), nil
}

func (s *Service) resolve(ctx context.Context, input string, kind common.InputKind) common.BreachResult {
	res := s.breaches.Resolve(ctx, input, kind)
	metrics.Scans.WithLabelValues(string(kind), res.Status.DataSource).Inc()
	return res
}

// ResolveBreaches applies the provider-priority policy without validation.
func (s *Service) ResolveBreaches(ctx context.Context, input string, kind common.InputKind) (common.BreachResult, error) {
	if !kind.Valid() {
		return common.BreachResult{}, fmt.Errorf("%w: unknown input kind %q", ErrInvalidInput, kind)
	}
	return s.breaches.Resolve(ctx, input, kind), nil
}

// ProbePlatforms lists the platforms with a public profile for username, in
// roster order.
func (s *Service) ProbePlatforms(ctx context.Context, username string) []common.PlatformAccount {
	return s.platforms.Probe(ctx, username)
}

// CheckPassword looks up password by hash prefix. A provider failure is
// returned alongside the zero result.
func (s *Service) CheckPassword(ctx context.Context, pw string) (password.Result, error) {
	if pw == "" {
		return password.Result{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return s.passwords.Check(ctx, pw)
}

// AllBreaches lists the breach catalogue of the secondary provider.
func (s *Service) AllBreaches(ctx context.Context) []common.BreachRecord {
	return s.breaches.AllBreaches(ctx)
}

// Score computes the exposure assessment of r.
func (s *Service) Score(r *common.ScanResult) common.ExposureAssessment {
	a := scoring.Exposure(r)
	metrics.ExposureScore.Observe(float64(a.Score))
	return a
}

func anyLeaks(breaches []common.BreachRecord, category string) bool {
	for _, b := range breaches {
		if b.Leaks(category) {
			return true
		}
	}
	return false
}
