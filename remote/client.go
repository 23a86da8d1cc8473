package remote

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/resonode/resonode/config"
)

// Sentinel errors for the failure taxonomy the rest of the client maps HTTP
// responses into. Callers match them with errors.Is.
var (
	// ErrUnauthorized means the credentials or the shared secret were
	// rejected. Never retried automatically.
	ErrUnauthorized = errors.New("remote: authentication rejected")
	// ErrNotFound means the requested path does not exist on the server.
	ErrNotFound = errors.New("remote: not found")
)

// Client talks to the ResoNode server. All authenticated requests carry the
// shared-secret header, injected by the transport so individual endpoint
// methods never deal with it. The configuration object is shared and
// mutable: a server-discovery update is picked up on the next request.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a Client around the given configuration. Connect and read
// timeouts come from the player section of the config.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Player.GetHTTPTimeout(),
			Transport: &secretTransport{
				cfg:  cfg,
				base: http.DefaultTransport,
			},
		},
	}
}

// SecretHeader is the authentication header expected by the server.
const SecretHeader = "x-secret-key"

// secretTransport injects the shared-secret header into every outgoing
// request.
type secretTransport struct {
	cfg  *config.Config
	base http.RoundTripper
}

func (t *secretTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	_, secret := t.cfg.Endpoint()
	clone := req.Clone(req.Context())
	clone.Header.Set(SecretHeader, secret)
	return t.base.RoundTrip(clone)
}

// endpoint builds an absolute URL for path with the given query values.
func (c *Client) endpoint(path string, query url.Values) string {
	base, _ := c.cfg.Endpoint()
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(path string, query url.Values, out interface{}) error {
	resp, err := c.httpClient.Get(c.endpoint(path, query))
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into
// out when out is non-nil.
func (c *Client) postJSON(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "encode %s request", path)
	}

	resp, err := c.httpClient.Post(c.endpoint(path, nil), "application/json", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// statusError converts a non-2xx response into a taxonomy error. The body is
// drained so the connection can be reused.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrapf(ErrUnauthorized, "status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	case http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "status %d", resp.StatusCode)
	default:
		return errors.Errorf("remote: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}
