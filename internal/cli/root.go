// Package cli holds the storefront command line: the web shell, the one-shot
// session commands and the mock backend.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the storefront command tree
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront client: login, session and role-gated pages",
		Long: `storefront is the client for the storefront backend.

It keeps one session per process: "serve" runs the web shell on localhost,
"login", "whoami" and "logout" work on the same stored tokens from the shell.

Environment Variables:
  AUTH_BASE_URL        Backend auth API (default: http://localhost:8081/api/auth)
  API_BASE_URL         Backend origin proxied under /api/* by serve (default: disabled)
  PORT                 Web shell port (default: 3000)
  FALLBACK_ROUTE       Where users lacking a role land (default: /profile)
  REVALIDATE_INTERVAL  Periodic session check in serve, e.g. 5m (default: off)
  TOKEN_FILE           Encrypted token file (default: <user config dir>/storefront/tokens.json)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg := config.New()
			logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File to load environment variables from")

	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newRegisterCmd(),
		newMockBackendCmd(),
	)
	return root
}

// Execute runs the command tree until it finishes or SIGINT/SIGTERM arrives
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return NewRootCmd().ExecuteContext(ctx)
}
