package remote

// Login verifies the user's credentials against the server. A wrong
// password surfaces as ErrUnauthorized; an unknown user as ErrNotFound.
func (c *Client) Login(username, password string) error {
	return c.postJSON("/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

// Register creates the server-side account. Registration only succeeds when
// the administrator has already provisioned the user's music folder.
func (c *Client) Register(username, password string) error {
	return c.postJSON("/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

// Device is one entry of the per-account device registry.
type Device struct {
	Model    string `json:"model"`
	LastSeen string `json:"last_seen"`
}

// GetDevices lists the devices that have logged into the account.
func (c *Client) GetDevices(username string) ([]Device, error) {
	var resp struct {
		Devices []Device `json:"devices"`
	}
	err := c.postJSON("/auth/get_devices", map[string]string{
		"username": username,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// UpdateInfo describes the latest published client build.
type UpdateInfo struct {
	Version   string `json:"version"`
	Changelog string `json:"changelog"`
}

// CheckUpdate fetches the latest version descriptor. Downloading and
// installing the update is handled outside the core.
func (c *Client) CheckUpdate() (*UpdateInfo, error) {
	var info UpdateInfo
	if err := c.getJSON("/update/check", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
