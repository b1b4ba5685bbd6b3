package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local session state",
	Long: `Show whether a session exists, who it belongs to and when it expires.

status only consults local state (refreshing the session if it can); it
does not verify the session against the backend. Use whoami for that.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := application.RequestContext(cmd.Context())
	defer cancel()

	cmd.Printf("Backend:   %s\n", application.Config().ServerURL)
	cmd.Printf("Device ID: %s\n", application.DeviceID())

	sess, err := application.Creds.Get(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		cmd.Println("Session:   none (run 'clipctl login')")

		if hs, err := application.StateStore().LoadHandshake(ctx); err == nil && hs != nil {
			if time.Now().Before(hs.ExpiresAt) {
				cmd.Println("Pending:   a login is awaiting approval; finish with 'clipctl login --resume'")
			}
		}
		return nil
	}

	cmd.Printf("Session:   %s (%s)\n", sess.User.Username, sess.User.Email)
	cmd.Printf("Expires:   %s (in %s)\n",
		sess.ExpiresAt.Local().Format("2006-01-02 15:04:05"),
		time.Until(sess.ExpiresAt).Round(time.Second))
	if sess.Remember {
		cmd.Println("Remember:  yes")
	}
	return nil
}
