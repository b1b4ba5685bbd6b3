package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-go/pkg/clipsdk"
	"github.com/clipforge/clipforge-go/pkg/httpx"
)

var (
	fetchOutput string
	fetchWait   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <type> <id>",
	Short: "Download a media resource to a local file",
	Long: `Stream a media resource to disk using a scoped media token.

Freshly created clips may still be rendering. Pass --wait to retry until
the backend has the file ready instead of failing immediately.

Examples:
  clipctl fetch video clip_42
  clipctl fetch video clip_42 -o highlight.mp4 --wait`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file (defaults to the resource id)")
	fetchCmd.Flags().BoolVar(&fetchWait, "wait", false, "retry while the resource is still being prepared")
}

func runFetch(cmd *cobra.Command, args []string) error {
	resourceType, err := parseResourceType(args[0])
	if err != nil {
		return err
	}
	resourceID := args[1]

	output := fetchOutput
	if output == "" {
		output = resourceID
	}

	// Media payloads can be large, so the fetch runs on the bare command
	// context instead of the request timeout.
	ctx := cmd.Context()

	var resp *http.Response
	fetch := func() error {
		var fetchErr error
		resp, fetchErr = application.Tokens.Fetch(ctx, resourceType, resourceID, false)
		return fetchErr
	}

	if fetchWait {
		policy := httpx.RetryPolicy{
			MaxAttempts:     10,
			InitialInterval: time.Second,
			MaxInterval:     15 * time.Second,
		}
		notReady := func(err error) bool { return errors.Is(err, clipsdk.ErrNotReady) }
		err = httpx.Retry(ctx, policy, notReady, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		if errors.Is(err, clipsdk.ErrNotReady) {
			if fetchWait {
				return fmt.Errorf("%s %s was still being prepared after all retries: %w", resourceType, resourceID, err)
			}
			return fmt.Errorf("%s %s is still being prepared, retry with --wait: %w", resourceType, resourceID, err)
		}
		return err
	}
	defer resp.Body.Close()

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}

	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	cmd.Printf("Wrote %s (%d bytes)\n", output, written)
	return nil
}
