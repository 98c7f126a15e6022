package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in; run `ops-portal login` first")

// cliSession is one CLI invocation: the wired services plus the persisted
// sign-in.
type cliSession struct {
	deps    *Dependencies
	session *identity.Session
	in      *bufio.Reader
	out     io.Writer
}

func openSession(cmd *cobra.Command) (*cliSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	deps, err := initializeDependencies(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return &cliSession{
		deps:    deps,
		session: identity.NewSession(deps.Identity, identity.NewFileTokenStore(cfg.Session.TokenPath)),
		in:      bufio.NewReader(cmd.InOrStdin()),
		out:     cmd.OutOrStdout(),
	}, nil
}

func (c *cliSession) close(ctx context.Context) {
	c.deps.Close(ctx)
}

// principal restores the persisted sign-in against the current store.
func (c *cliSession) principal(ctx context.Context) (*domain.User, error) {
	u, err := c.session.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errNotSignedIn
	}
	return u, nil
}

// prompt reads one line. ok is false when input ended before anything was typed.
func (c *cliSession) prompt(label string) (line string, ok bool, err error) {
	fmt.Fprint(c.out, label)
	line, err = c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return strings.TrimSpace(line), line != "", nil
		}
		return "", false, err
	}
	return strings.TrimSpace(line), true, nil
}

// withSession runs fn with an opened session and releases it afterwards.
func withSession(fn func(ctx context.Context, c *cliSession, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := openSession(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer c.close(ctx)
		return fn(ctx, c, args)
	}
}

var (
	loginEmail   string
	loginIDToken string

	passwordCurrent string
	passwordNew     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session for later commands",
	Long: `Sign in with email and password, or with an OIDC ID token from an
allow-listed domain (--id-token).`,
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		var (
			u   *domain.User
			err error
		)
		if loginIDToken != "" {
			u, err = c.session.SignInDelegated(ctx, loginIDToken)
		} else {
			email := loginEmail
			if email == "" {
				if email, _, err = c.prompt("Email: "); err != nil {
					return err
				}
			}
			password, _, perr := c.prompt("Password: ")
			if perr != nil {
				return perr
			}
			u, err = c.session.SignIn(ctx, email, password)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "Signed in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
		if u.Status == domain.UserStatusActiveTempPassword {
			fmt.Fprintln(c.out, "You are using a temporary password; run `ops-portal password` to set your own.")
		}
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: withSession(func(_ context.Context, c *cliSession, _ []string) error {
		if err := c.session.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Signed out.")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and the sections they can open",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		u, err := c.principal(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s <%s>\nrole:   %s\nstatus: %s\n", u.Name, u.Email, u.Role, u.Status)
		fmt.Fprintln(c.out, "sections:")
		for _, item := range rbac.NavItems(u.Role) {
			fmt.Fprintf(c.out, "  %-16s %s\n", item.Label, item.Path)
		}
		return nil
	}),
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the password of the signed-in user",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		if _, err := c.principal(ctx); err != nil {
			return err
		}
		current, next := passwordCurrent, passwordNew
		var err error
		if current == "" {
			if current, _, err = c.prompt("Current password: "); err != nil {
				return err
			}
		}
		if next == "" {
			if next, _, err = c.prompt("New password: "); err != nil {
				return err
			}
		}

		u, err := c.session.ChangePassword(ctx, current, next)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Password changed for %s.\n", u.Email)
		return nil
	}),
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVar(&loginIDToken, "id-token", "", "OIDC ID token for delegated sign-in")
	passwordCmd.Flags().StringVar(&passwordCurrent, "current", "", "current password")
	passwordCmd.Flags().StringVar(&passwordNew, "new", "", "new password")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, passwordCmd)
}
