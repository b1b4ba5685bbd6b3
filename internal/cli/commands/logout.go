package commands

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear local session state",
	Long: `Revoke the session on the backend and remove it from local state.

Backend revocation is best effort: a backend that cannot be reached does
not keep the local session alive.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx, cancel := application.RequestContext(cmd.Context())
	defer cancel()

	sess, err := application.Creds.Get(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		cmd.Println("Not signed in.")
		return nil
	}

	if err := application.Client.SignOut(ctx, sess.AccessToken); err != nil {
		application.Logger().Warn("backend_logout_failed", "error", err)
	}

	if err := application.Creds.Clear(ctx); err != nil {
		return err
	}

	cmd.Println("Signed out.")
	return nil
}
