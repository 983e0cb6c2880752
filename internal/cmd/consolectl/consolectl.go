// Package consolectl builds the consolectl command tree. The CLI keeps its
// credential and impersonation target in a local SQLite file and talks to
// the appointment API through the same session the console uses.
package consolectl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/session"
	entrypoint "github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/cmd"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore/sqlite"
)

// Config holds consolectl defaults read from the environment.
type Config struct {
	APIBaseURL     string        `env:"SMARTAPPT_API_BASE_URL"          envDefault:"http://localhost:8095"`
	StatePath      string        `env:"SMARTAPPT_CONSOLECTL_STATE"`
	Password       string        `env:"SMARTAPPT_CONSOLECTL_PASSWORD"`
	RequestTimeout time.Duration `env:"SMARTAPPT_API_REQUEST_TIMEOUT"   envDefault:"10s"`
}

// ParseConfig loads Config from .env and the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.StatePath) == "" {
		cfg.StatePath = defaultStatePath()
	}
	return cfg, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "smartappt", "consolectl.db")
}

type app struct {
	cfg Config
}

// NewRootCommand returns the consolectl command tree.
func NewRootCommand(cfg Config) *cobra.Command {
	a := &app{cfg: cfg}
	root := &cobra.Command{
		Use:           entrypoint.ServiceConsoleCtl,
		Short:         "Appointment console from the terminal",
		Long:          "consolectl signs in to the appointment API, impersonates client tenants, and reads tenant data.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfg.APIBaseURL, "api", a.cfg.APIBaseURL, "appointment API base URL")
	root.PersistentFlags().StringVar(&a.cfg.StatePath, "state", a.cfg.StatePath, "path of the local session database")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.impersonateCommand(),
		a.stopImpersonatingCommand(),
		a.clientsCommand(),
		a.getCommand(),
	)
	return root
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, cfg Config, args []string) int {
	root := NewRootCommand(cfg)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		pterm.Error.WithWriter(root.ErrOrStderr()).Println(err.Error())
		return 1
	}
	return 0
}

// withSession opens the persisted session for one command.
func (a *app) withSession(cmd *cobra.Command, run func(context.Context, *session.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path := strings.TrimSpace(a.cfg.StatePath)
	if path == "" {
		return fmt.Errorf("state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := session.Open(ctx, session.Config{
		Store:          store,
		APIBaseURL:     a.cfg.APIBaseURL,
		RequestTimeout: a.cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	defer sess.Close()
	return run(ctx, sess)
}
