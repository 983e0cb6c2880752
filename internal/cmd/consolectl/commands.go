package consolectl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/access"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/impersonation"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/session"
)

var (
	errNotSignedIn        = errors.New("not signed in; run consolectl login")
	errBackofficeOnly     = errors.New("this command requires a backoffice account")
	errImpersonationFirst = errors.New("impersonation required; run consolectl impersonate <client-id>")
)

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = a.cfg.Password
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return errors.New("--email and --password (or SMARTAPPT_CONSOLECTL_PASSWORD) are required")
			}
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				state, err := sess.SignIn(ctx, apiclient.Credentials{Email: strings.TrimSpace(email), Password: password})
				if errors.Is(err, identity.ErrAlreadyAuthenticated) {
					pterm.Warning.WithWriter(cmd.OutOrStdout()).Printfln("Already signed in as %s", state.Principal.Account().Email)
					return nil
				}
				if err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
				user := state.Principal.Account()
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Signed in as %s <%s> (%s)", user.Name, user.Email, state.Principal.Kind())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential and impersonation target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := sess.SignOut(ctx); err != nil {
					return fmt.Errorf("sign out: %w", err)
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Signed out")
				return nil
			})
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in principal and active scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				state := sess.Access(ctx)
				if !state.Authenticated() {
					return errNotSignedIn
				}
				user := state.Identity.Principal.Account()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "NAME\t%s\n", user.Name)
				fmt.Fprintf(w, "EMAIL\t%s\n", user.Email)
				fmt.Fprintf(w, "KIND\t%s\n", state.Identity.Principal.Kind())
				fmt.Fprintf(w, "TENANT SCOPE\t%s\n", dash(state.EffectiveTenantScope))
				impersonating := "-"
				if state.IsImpersonating {
					impersonating = fmt.Sprintf("%s (%s)", dash(state.Target.DisplayName), state.Target.TenantID)
				}
				fmt.Fprintf(w, "IMPERSONATING\t%s\n", impersonating)
				return w.Flush()
			})
		},
	}
}

func (a *app) impersonateCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "impersonate <client-id>",
		Short: "Act on behalf of a client tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := requireBackoffice(sess.Access(ctx)); err != nil {
					return err
				}
				clientID := strings.TrimSpace(args[0])
				display := strings.TrimSpace(name)
				if display == "" {
					client, err := sess.API().GetBackofficeClient(ctx, clientID)
					if err != nil {
						return fmt.Errorf("look up client: %w", err)
					}
					display = client.CompanyName
				}
				if _, err := sess.Impersonation().Start(ctx, impersonation.Target{TenantID: clientID, DisplayName: display}); err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Impersonating %s (%s)", dash(display), clientID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name; looked up when empty")
	return cmd
}

func (a *app) stopImpersonatingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-impersonating",
		Short: "Return to the backoffice scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				if _, err := sess.Impersonation().Stop(ctx); err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Impersonation stopped")
				return nil
			})
		},
	}
}

func (a *app) clientsCommand() *cobra.Command {
	var filter apiclient.ClientFilter
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List client tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := requireBackoffice(sess.Access(ctx)); err != nil {
					return err
				}
				clients, err := sess.API().ListBackofficeClients(ctx, filter)
				if err != nil {
					return fmt.Errorf("list clients: %w", err)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCOMPANY\tEMAIL\tSTATUS")
				for _, c := range clients {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.CompanyName, c.Email, c.Status())
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.Status, "status", "", "active or inactive")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match company name or email")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET an API path in the current scope and print the JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/" + strings.TrimLeft(strings.TrimSpace(args[0]), "/")
			query, err := parseParams(params)
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := guardPath(sess.Access(ctx), path); err != nil {
					return err
				}
				var body []byte
				if err := sess.API().Get(ctx, path, query, &body); err != nil {
					if apiclient.IsUnauthorized(err) {
						return errNotSignedIn
					}
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gjson.ParseBytes(body).Get("@pretty").String())
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value; repeatable")
	return cmd
}

// guardPath applies the console's view rules to a raw API path: backoffice
// endpoints need an operator, tenant endpoints need a tenant scope.
func guardPath(state access.State, path string) error {
	if path == "/auth/profile" {
		if !state.Authenticated() {
			return errNotSignedIn
		}
		return nil
	}
	decide := access.Decide
	if strings.HasPrefix(path, "/backoffice") || path == "/auth/activity-logs/global" {
		decide = access.DecideBackoffice
	}
	switch decide(state) {
	case access.DecisionMount:
		return nil
	case access.DecisionSignIn, access.DecisionPending:
		return errNotSignedIn
	case access.DecisionPlaceholder:
		return errImpersonationFirst
	default:
		return errBackofficeOnly
	}
}

func requireBackoffice(state access.State) error {
	if !state.Authenticated() {
		return errNotSignedIn
	}
	if !state.IsBackofficeUser {
		return errBackofficeOnly
	}
	return nil
}

func parseParams(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q; want key=value", value)
		}
		out[key] = strings.TrimSpace(val)
	}
	return out, nil
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
