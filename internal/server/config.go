package server

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"digifootprint/internal/breach"
	"digifootprint/internal/cache"
	"digifootprint/internal/gateway"
	"digifootprint/internal/password"
	"digifootprint/internal/presence"
	"digifootprint/internal/scan"
)

// Config holds server configuration
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	GRPCAddr    string

	IntelXKey     string
	IntelXURL     string
	HIBPKey       string
	HIBPURL       string
	PwnedRangeURL string
	GravatarURL   string

	APITimeout       time.Duration
	ProbeInterval    time.Duration
	PlatformCacheTTL time.Duration
	PasswordCacheTTL time.Duration

	CORSOrigin      string
	RateLimitWindow time.Duration
	RateLimitMax    int
	// TrustProxy keys rate limits on the last X-Forwarded-For entry. Enable
	// only behind a proxy that sets that header.
	TrustProxy bool
}

// LoadConfig reads an optional .env file, then environment variables.
func LoadConfig() (*Config, error) {
	for _, path := range []string{".env", "backend/.env"} {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded env file", "path", path)
			break
		}
	}

	cfg := &Config{
		HTTPAddr:      getEnv("DF_HTTP_ADDR", ":5050"),
		MetricsAddr:   getEnv("DF_METRICS_ADDR", ":9090"),
		GRPCAddr:      getEnv("DF_GRPC_ADDR", ""),
		IntelXKey:     getEnv("INTELX_API_KEY", ""),
		IntelXURL:     getEnv("INTELX_API_URL", gateway.DefaultIntelXURL),
		HIBPKey:       getEnv("HIBP_API_KEY", ""),
		HIBPURL:       getEnv("HIBP_API_URL", gateway.DefaultHIBPURL),
		PwnedRangeURL: getEnv("PWNED_RANGE_URL", gateway.DefaultPwnedRangeURL),
		GravatarURL:   getEnv("GRAVATAR_URL", gateway.DefaultGravatarURL),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.APITimeout, err = getMillis("API_TIMEOUT", gateway.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getMillis("RATE_LIMIT_WINDOW_MS", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX_REQUESTS", 100); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = getBool("DF_TRUST_PROXY", false); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = getDuration("DF_PROBE_INTERVAL", presence.DefaultInterval); err != nil {
		return nil, err
	}
	if cfg.PlatformCacheTTL, err = getDuration("DF_PLATFORM_CACHE_TTL", presence.DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.PasswordCacheTTL, err = getDuration("DF_PASSWORD_CACHE_TTL", password.DefaultCacheTTL); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewService wires the gateway clients, caches and engines described by c.
func (c *Config) NewService() *scan.Service {
	walkBudget := time.Duration(len(presence.DefaultRoster())) * (c.APITimeout + c.ProbeInterval)
	prober := presence.New(
		gateway.NewHTTPProber(c.APITimeout),
		presence.WithInterval(c.ProbeInterval),
		presence.WithCache(cache.New[presence.Report]("platform", c.PlatformCacheTTL,
			cache.WithMaxSize(10000), cache.WithComputeTimeout(walkBudget))),
	)
	hibp := gateway.NewHIBP(c.HIBPURL, c.HIBPKey, c.APITimeout)
	resolver := breach.NewResolver(
		gateway.NewIntelX(c.IntelXURL, c.IntelXKey, c.APITimeout),
		hibp,
		prober,
		breach.DefaultTable(),
	)
	checker := password.NewChecker(
		gateway.NewPwnedRange(c.PwnedRangeURL, c.APITimeout),
		password.WithCache(cache.New[string]("password_range", c.PasswordCacheTTL, cache.WithMaxSize(10000))),
	)
	return scan.New(resolver, prober, gateway.NewGravatar(c.GravatarURL, c.APITimeout), checker)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func getBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", k, v)
	}
	return b, nil
}

func getMillis(k string, def time.Duration) (time.Duration, error) {
	n, err := getInt(k, int(def/time.Millisecond))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}
