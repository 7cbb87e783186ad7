// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment driven configuration values.
type Config struct {
	Addr           string
	WebDir         string
	DatabaseURL    string
	LocalCachePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	StatsTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string

	MetricsUser string
	MetricsPass string

	// TrustForwardAuth honours the Remote-User header. Only enable it behind
	// a proxy that strips the header from client requests.
	TrustForwardAuth bool

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// RemoteBacked reports whether a remote database is configured.
func (c Config) RemoteBacked() bool { return c.DatabaseURL != "" }

// OIDCEnabled reports whether single sign-on is fully configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCRedirectURL != ""
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Config {
	return Config{
		Addr:           ":8080",
		WebDir:         "web",
		LocalCachePath: "mindtrack-cache.db",
		LogLevel:       "info",
		LogMaxSizeMB:   100,
		LogMaxBackups:  3,
		LogMaxAgeDays:  7,
		StatsTimeout:   8 * time.Second,
		RateLimitRPS:   5,
		RateLimitBurst: 30,
		AllowedOrigins: []string{"*"},
	}
}

// Load reads a .env file from the working directory if one exists, then the
// process environment. Keys that fail to parse keep their default and are
// reported together in the returned error; the Config is always usable.
func Load() (Config, error) {
	var dotenvErr error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		dotenvErr = fmt.Errorf("load .env: %w", err)
	}
	c, err := FromEnv(os.LookupEnv)
	return c, errors.Join(dotenvErr, err)
}

// FromEnv builds a Config from lookup, which has the shape of os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Defaults()
	p := parser{lookup: lookup}

	p.str("ADDR", &c.Addr)
	p.str("WEB_DIR", &c.WebDir)
	p.str("DATABASE_URL", &c.DatabaseURL)
	p.str("LOCAL_CACHE_PATH", &c.LocalCachePath)

	p.str("REDIS_ADDR", &c.RedisAddr)
	p.str("REDIS_PASSWORD", &c.RedisPassword)
	p.int("REDIS_DB", &c.RedisDB)

	p.str("LOG_LEVEL", &c.LogLevel)
	p.str("LOG_PATH", &c.LogPath)
	p.int("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	p.int("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	p.int("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	p.bool("LOG_COMPRESS", &c.LogCompress)

	p.duration("STATS_TIMEOUT", &c.StatsTimeout)
	p.float("RATE_LIMIT_RPS", &c.RateLimitRPS)
	p.int("RATE_LIMIT_BURST", &c.RateLimitBurst)
	p.list("ALLOWED_ORIGINS", &c.AllowedOrigins)

	p.str("METRICS_USER", &c.MetricsUser)
	p.str("METRICS_PASS", &c.MetricsPass)
	p.bool("TRUST_FORWARD_AUTH", &c.TrustForwardAuth)

	p.str("OIDC_ISSUER", &c.OIDCIssuer)
	p.str("OIDC_CLIENT_ID", &c.OIDCClientID)
	p.str("OIDC_CLIENT_SECRET", &c.OIDCClientSecret)
	p.str("OIDC_REDIRECT_URL", &c.OIDCRedirectURL)

	return c, errors.Join(p.errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.fail(key, v, errors.New("must be a positive number"))
		return
	}
	*dst = f
}

func (p *parser) bool(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(key, v, errors.New("must be a positive duration"))
		return
	}
	*dst = d
}

func (p *parser) list(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
