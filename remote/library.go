package remote

import (
	"io"
	"net/url"
	"strings"

	"github.com/resonode/resonode/domain"
)

// wireItem is one entry of a browse or search response.
type wireItem struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Path   string `json:"path"`
	Artist string `json:"artist,omitempty"`
}

type browseResponse struct {
	CurrentPath string     `json:"current_path"`
	Items       []wireItem `json:"items"`
	IsVault     bool       `json:"is_vault"`
}

type searchResponse struct {
	Items []wireItem `json:"items"`
}

// Browse fetches the listing of a server folder. An empty folder string
// lists the user's root.
func (c *Client) Browse(username, folder string) (*domain.Listing, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("folder", folder)

	var resp browseResponse
	if err := c.getJSON("/browse", q, &resp); err != nil {
		return nil, err
	}

	return &domain.Listing{
		CurrentPath: resp.CurrentPath,
		Mode:        listingMode(resp.CurrentPath, resp.IsVault),
		Tracks:      toTracks(resp.Items),
	}, nil
}

// Search runs a server-side search over the user's library and the vault.
func (c *Client) Search(username, query string) (*domain.Listing, error) {
	var resp searchResponse
	err := c.postJSON("/search", map[string]string{
		"username": username,
		"query":    query,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &domain.Listing{
		Mode:   domain.ListingSearch,
		Tracks: toTracks(resp.Items),
	}, nil
}

// StreamURL builds the authenticated streaming URL for a server-relative
// track path. The shared-secret header still has to accompany the request;
// the player obtains it from StreamHeaders.
func (c *Client) StreamURL(username, path string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("path", path)
	return c.endpoint("/stream", q)
}

// CoverURL builds the cover-art URL for a server-relative path.
func (c *Client) CoverURL(username, path string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("path", path)
	return c.endpoint("/cover", q)
}

// StreamHeaders returns the headers a non-Client consumer (the media
// player) must attach when fetching a stream URL.
func (c *Client) StreamHeaders() map[string]string {
	_, secret := c.cfg.Endpoint()
	return map[string]string{SecretHeader: secret}
}

// Fetch retrieves an arbitrary URL through the authenticated client and
// returns the response body. Used by the download service for streams and
// covers.
func (c *Client) Fetch(rawURL string) (io.ReadCloser, error) {
	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func toTracks(items []wireItem) []domain.Track {
	tracks := make([]domain.Track, len(items))
	for i, it := range items {
		tracks[i] = domain.Track{
			Name:   it.Name,
			Kind:   domain.TrackKind(it.Type),
			Path:   it.Path,
			Artist: it.Artist,
		}
	}
	return tracks
}

func listingMode(currentPath string, isVault bool) domain.ListingMode {
	switch {
	case isVault:
		return domain.ListingVault
	case currentPath == "General" || strings.HasPrefix(currentPath, "General/"):
		return domain.ListingPublic
	default:
		return domain.ListingPrivate
	}
}
