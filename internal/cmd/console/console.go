// Package console parses console command flags and starts the HTTP service.
package console

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	entrypoint "github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/cmd"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/requestmeta"
)

const generatedKeySize = 32

// Config holds console command configuration.
type Config struct {
	HTTPAddr            string        `env:"SMARTAPPT_CONSOLE_HTTP_ADDR"             envDefault:"localhost:8090"`
	APIBaseURL          string        `env:"SMARTAPPT_API_BASE_URL"                  envDefault:"http://localhost:8095"`
	CookieHashKey       string        `env:"SMARTAPPT_CONSOLE_COOKIE_HASH_KEY"`
	CookieBlockKey      string        `env:"SMARTAPPT_CONSOLE_COOKIE_BLOCK_KEY"`
	CookieMaxAge        time.Duration `env:"SMARTAPPT_CONSOLE_COOKIE_MAX_AGE"        envDefault:"168h"`
	TrustForwardedProto bool          `env:"SMARTAPPT_CONSOLE_TRUST_FORWARDED_PROTO"`
	CacheSize           int           `env:"SMARTAPPT_CONSOLE_CACHE_SIZE"            envDefault:"256"`
	CacheTTL            time.Duration `env:"SMARTAPPT_CONSOLE_CACHE_TTL"             envDefault:"30s"`
	RequestTimeout      time.Duration `env:"SMARTAPPT_API_REQUEST_TIMEOUT"           envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "console HTTP listen address")
	fs.StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL, "appointment API base URL")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "honor X-Forwarded-Proto for cookie security")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-call API timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the console server and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConsole, func(ctx context.Context) error {
		hashKey, err := cookieKey(cfg.CookieHashKey, "hash")
		if err != nil {
			return err
		}
		var blockKey []byte
		if key := strings.TrimSpace(cfg.CookieBlockKey); key != "" {
			blockKey = []byte(key)
		}
		server, err := console.NewServer(ctx, console.Config{
			HTTPAddr:       cfg.HTTPAddr,
			APIBaseURL:     cfg.APIBaseURL,
			CookieHashKey:  hashKey,
			CookieBlockKey: blockKey,
			CookieMaxAge:   cfg.CookieMaxAge,
			SchemePolicy:   requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
			CacheSize:      cfg.CacheSize,
			CacheTTL:       cfg.CacheTTL,
			RequestTimeout: cfg.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("init console server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve console: %w", err)
		}
		return nil
	})
}

// cookieKey returns the configured key or a random one. Random keys do not
// survive restarts, so every session ends when the process does.
func cookieKey(value, name string) ([]byte, error) {
	if key := strings.TrimSpace(value); key != "" {
		return []byte(key), nil
	}
	key := make([]byte, generatedKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate cookie %s key: %w", name, err)
	}
	log.Printf("console cookie %s key not configured; generated an ephemeral key", name)
	return key, nil
}
