package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

var mediaURLDownload bool

var mediaURLCmd = &cobra.Command{
	Use:   "media-url <type> <id>",
	Short: "Print an authenticated URL for a media resource",
	Long: `Acquire a scoped media token and print the URL that serves the resource.

The URL embeds a short-lived token, so it works in players and download
tools that cannot send headers. Types: video, snapshot, edit, thumbnail.

Examples:
  clipctl media-url video clip_42
  clipctl media-url snapshot snap_7 --download`,
	Args: cobra.ExactArgs(2),
	RunE: runMediaURL,
}

func init() {
	mediaURLCmd.Flags().BoolVar(&mediaURLDownload, "download", false, "mark the URL as a download (attachment disposition)")
}

func runMediaURL(cmd *cobra.Command, args []string) error {
	resourceType, err := parseResourceType(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := application.RequestContext(cmd.Context())
	defer cancel()

	url, err := application.Tokens.MediaURL(ctx, resourceType, args[1], mediaURLDownload)
	if err != nil {
		return err
	}

	cmd.Println(url)
	return nil
}

// parseResourceType maps a CLI argument onto a media resource type.
func parseResourceType(arg string) (clipsdk.ResourceType, error) {
	switch clipsdk.ResourceType(strings.ToLower(arg)) {
	case clipsdk.ResourceVideo:
		return clipsdk.ResourceVideo, nil
	case clipsdk.ResourceSnapshot:
		return clipsdk.ResourceSnapshot, nil
	case clipsdk.ResourceEdit:
		return clipsdk.ResourceEdit, nil
	case clipsdk.ResourceThumbnail:
		return clipsdk.ResourceThumbnail, nil
	default:
		return "", fmt.Errorf("unknown resource type %q (expected video, snapshot, edit or thumbnail)", arg)
	}
}
