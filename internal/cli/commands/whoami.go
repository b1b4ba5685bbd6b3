package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account as the backend sees it",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx, cancel := application.RequestContext(cmd.Context())
	defer cancel()

	sess, err := application.Creds.Get(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("%w: run 'clipctl login'", clipsdk.ErrAuth)
	}

	user, err := application.Client.Me(ctx, sess.AccessToken)
	if err != nil {
		return err
	}

	cmd.Printf("User:     %s\n", user.Username)
	cmd.Printf("Email:    %s\n", user.Email)
	cmd.Printf("User ID:  %s\n", user.ID)
	if user.Thumb != "" {
		cmd.Printf("Avatar:   %s\n", user.Thumb)
	}
	return nil
}
