// Package devbackend parses devbackend flags and serves the in-memory API.
package devbackend

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/cmd"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/devbackend"
)

// Config holds devbackend command configuration.
type Config struct {
	HTTPAddr       string        `env:"SMARTAPPT_DEVBACKEND_HTTP_ADDR"       envDefault:"localhost:8095"`
	TokenSecret    string        `env:"SMARTAPPT_DEVBACKEND_TOKEN_SECRET"`
	TokenTTL       time.Duration `env:"SMARTAPPT_DEVBACKEND_TOKEN_TTL"       envDefault:"24h"`
	AllowedOrigins []string      `env:"SMARTAPPT_DEVBACKEND_ALLOWED_ORIGINS" envSeparator:","`
	Seed           bool          `env:"SMARTAPPT_DEVBACKEND_SEED"            envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "devbackend HTTP listen address")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "load demo tenants and accounts")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the backend and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDevBackend, func(ctx context.Context) error {
		store := devbackend.NewStore()
		if cfg.Seed {
			devbackend.Seed(store, time.Now())
		}
		var secret []byte
		if s := strings.TrimSpace(cfg.TokenSecret); s != "" {
			secret = []byte(s)
		}
		backend, err := devbackend.New(devbackend.Config{
			Secret:         secret,
			TokenTTL:       cfg.TokenTTL,
			AllowedOrigins: cfg.AllowedOrigins,
			Store:          store,
		})
		if err != nil {
			return fmt.Errorf("init devbackend: %w", err)
		}
		if err := backend.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
			return fmt.Errorf("serve devbackend: %w", err)
		}
		return nil
	})
}
