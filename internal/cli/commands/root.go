package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-go/internal/cli/app"
	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

// Exit codes for scripting. Authentication problems get their own code so
// wrappers can trigger a login instead of just failing.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeAuthRequired = 2
)

var (
	flagConfig   string
	flagLogLevel string

	// application is built by the root PersistentPreRunE and shared by all
	// subcommands for the lifetime of one invocation.
	application *app.Application
)

var rootCmd = &cobra.Command{
	Use:   "clipctl",
	Short: "Authenticate against a ClipForge backend and fetch clips",
	Long: `clipctl drives ClipForge's Plex-backed login and media access from the
command line: sign in via the PIN handshake, inspect the session, mint
scoped media URLs and download clip files.

Session state lives in a local database under the state directory
(default ~/.clipctl), sealed with a master key when one is configured.`,
	Version: app.BuildVersion,

	// SilenceUsage keeps handled errors from dumping the usage text.
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}

		application, err = app.New(cfg)
		return err
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a config file (default: <state-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(mediaURLCmd)
	rootCmd.AddCommand(fetchCmd)
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, clipsdk.ErrAuth), errors.Is(err, clipsdk.ErrNoPendingHandshake):
		return ExitCodeAuthRequired
	default:
		return ExitCodeError
	}
}
