package clipsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MediaToken mints a scoped access token for a single resource. The call is
// mutating and therefore anti-forgery-protected.
func (c *Client) MediaToken(
	ctx context.Context,
	accessToken string,
	resourceType ResourceType,
	resourceID string,
) (*MediaTokenResponse, error) {
	data := url.Values{
		"resource_id":   {resourceID},
		"resource_type": {string(resourceType)},
	}

	var out MediaTokenResponse
	if err := c.doForm(ctx, http.MethodPost, "/auth/media-token", accessToken, data, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// MediaURL builds the authenticated URL for a resource. The scoped token
// rides as a query parameter so the URL works in contexts that cannot set
// headers (video elements, direct downloads, external players).
func (c *Client) MediaURL(resourceType ResourceType, resourceID, token string, download bool) string {
	return c.BaseURL + mediaPath(resourceType, resourceID, token, download)
}

// FetchResource performs a raw media fetch and hands the response to the
// caller, body included. Status classification and the 401 retry policy are
// the token cache's job, so any backend answer comes back as-is.
func (c *Client) FetchResource(
	ctx context.Context,
	resourceType ResourceType,
	resourceID, token string,
	download bool,
) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, mediaPath(resourceType, resourceID, token, download), nil, nil)
}

// mediaPath builds the storage path plus token query for a resource.
func mediaPath(resourceType ResourceType, resourceID, token string, download bool) string {
	v := url.Values{}
	v.Set("token", token)
	if download {
		v.Set("download", "true")
	}
	return fmt.Sprintf("/storage/%s/%s?%s", resourceType, url.PathEscape(resourceID), v.Encode())
}
