// Package cli implements partsctl, a command line client for the parts API.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autoparts/pkg/client"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PARTSCTL"

// CLI holds what every command shares.
type CLI struct {
	fs  afero.Fs
	v   *viper.Viper
	out io.Writer
}

// NewRootCommand returns the partsctl command tree. Files (the session and
// uploaded images) are read from and written to fs.
func NewRootCommand(fs afero.Fs, out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	app := &CLI{fs: fs, v: v, out: out}

	root := &cobra.Command{
		Use:           "partsctl",
		Short:         "Manage the auto parts inventory from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.String("api", "http://localhost:5000/api", "base URL of the parts API")
	flags.String("session", defaultSessionPath(), "file the session is kept in")
	flags.Duration("timeout", client.DefaultTimeout, "timeout of each API call")
	for _, name := range []string{"api", "session", "timeout"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		app.loginCommand(),
		app.registerCommand(),
		app.logoutCommand(),
		app.whoamiCommand(),
		app.partsCommand(),
		app.dashboardCommand(),
	)
	return root
}

// Execute runs partsctl against the real filesystem.
func Execute() error {
	return NewRootCommand(afero.NewOsFs(), os.Stdout).Execute()
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partsctl-session.json"
	}
	return filepath.Join(home, ".partsctl", "session.json")
}

// client returns an API client holding the stored session, if any.
func (a *CLI) client() *client.Client {
	timeout := a.v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}
	c := client.New(a.v.GetString("api"),
		client.WithStore(client.NewFileStore(a.fs, a.v.GetString("session"))),
		client.WithTimeout(timeout),
	)
	if err := c.Restore(); err != nil {
		fmt.Fprintf(a.out, "warning: discarded unreadable session: %v\n", err)
	}
	return c
}

// authedClient is client for commands that need a session.
func (a *CLI) authedClient() (*client.Client, error) {
	c := a.client()
	if !c.Authenticated() {
		return nil, fmt.Errorf("not logged in; run partsctl login first")
	}
	return c, nil
}

// bindFlags exposes a command's flags to viper so PARTSCTL_<FLAG> works for
// them too.
func (a *CLI) bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = a.v.BindPFlag(cmd.Name()+"."+f.Name, f)
		_ = a.v.BindEnv(cmd.Name()+"."+f.Name, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
	})
}

func (a *CLI) flag(cmd *cobra.Command, name string) string {
	return a.v.GetString(cmd.Name() + "." + name)
}

func (a *CLI) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			user, err := c.Login(a.flag(cmd, "email"), a.flag(cmd, "password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (or PARTSCTL_PASSWORD)")
	a.bindFlags(cmd)
	return cmd
}

func (a *CLI) registerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in as it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			user, err := c.Register(a.flag(cmd, "name"), a.flag(cmd, "email"), a.flag(cmd, "password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered and logged in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().String("name", "", "full name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (or PARTSCTL_PASSWORD)")
	a.bindFlags(cmd)
	return cmd
}

func (a *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			if err := c.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			user, err := c.Me()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> (id %d, since %s)\n", user.Name, user.Email, user.ID, user.CreatedAt.Format(time.DateOnly))
			return nil
		},
	}
}
