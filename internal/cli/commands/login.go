package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

var (
	loginNoBrowser bool
	loginRemember  bool
	loginResume    bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in via the Plex PIN handshake",
	Long: `Sign in to the ClipForge backend.

By default login opens your browser at the Plex authorization page and
polls until you approve the PIN. With --no-browser the URL is printed
instead and the pending handshake is saved before polling, so an
interrupted login can be finished later with 'clipctl login --resume'.

Examples:
  clipctl login                # browser flow
  clipctl login --remember     # long-lived session
  clipctl login --no-browser   # print the URL, poll without a browser
  clipctl login --resume       # finish an interrupted login`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "request a long-lived session")
	loginCmd.Flags().BoolVar(&loginResume, "resume", false, "resume an interrupted --no-browser login")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	orch := application.Orch
	orch.Remember = loginRemember

	if loginResume {
		sess, err := orch.Resume(ctx)
		if err != nil {
			if errors.Is(err, clipsdk.ErrNoPendingHandshake) {
				return fmt.Errorf("no pending login to resume; run 'clipctl login' first")
			}
			if errors.Is(err, clipsdk.ErrHandshakeTimeout) {
				return fmt.Errorf("the pending login expired; run 'clipctl login' again")
			}
			return err
		}
		printSignedIn(cmd, sess)
		return nil
	}

	announce := func(url string) {
		cmd.Println("Authorize clipctl at:")
		cmd.Println()
		cmd.Println("    " + url)
		cmd.Println()
	}

	var surface clipsdk.Surface
	if loginNoBrowser {
		rs := clipsdk.NewRedirectSurface(application.StateStore())
		rs.Announce = announce
		surface = rs
	} else {
		is := clipsdk.NewInteractiveSurface()
		is.Announce = announce
		surface = is
	}

	sess, err := orch.StartHandshake(ctx, surface)
	if errors.Is(err, clipsdk.ErrHandshakePending) {
		// The handshake is parked durably, so polling here can be
		// interrupted and picked up later with --resume.
		cmd.Println("Waiting for approval (Ctrl-C is safe; finish later with 'clipctl login --resume')")
		sess, err = orch.Resume(ctx)
	}
	if err != nil {
		switch {
		case errors.Is(err, clipsdk.ErrHandshakeTimeout):
			return fmt.Errorf("the Plex approval window closed before the PIN was approved; run 'clipctl login' again")
		case errors.Is(err, clipsdk.ErrHandshakeCancelled):
			return fmt.Errorf("login cancelled")
		default:
			return err
		}
	}

	printSignedIn(cmd, sess)
	return nil
}

func printSignedIn(cmd *cobra.Command, sess *clipsdk.AuthSession) {
	cmd.Printf("Signed in as %s (%s)\n", sess.User.Username, sess.User.Email)
	cmd.Printf("Session valid until %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}
