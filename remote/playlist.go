package remote

// Playlist mutations. The server treats playlists as plain folders under the
// user's root, so every operation is addressed by username plus name/path
// strings.

// CreatePlaylist creates an empty playlist folder for the user.
func (c *Client) CreatePlaylist(username, name string) error {
	return c.postJSON("/playlist/create", map[string]string{
		"username": username,
		"name":     name,
	}, nil)
}

// DeleteItem removes a song or a whole playlist folder.
func (c *Client) DeleteItem(username, path string) error {
	return c.postJSON("/playlist/delete_item", map[string]string{
		"username": username,
		"path":     path,
	}, nil)
}

// RenameItem renames a song or playlist folder in place.
func (c *Client) RenameItem(username, path, newName string) error {
	return c.postJSON("/playlist/rename", map[string]string{
		"username": username,
		"path":     path,
		"new_name": newName,
	}, nil)
}

// AddToPlaylist copies an existing library song into a playlist.
func (c *Client) AddToPlaylist(username, songPath, playlist string) error {
	return c.postJSON("/playlist/add", map[string]string{
		"username": username,
		"path":     songPath,
		"playlist": playlist,
	}, nil)
}

// AddFromVault copies a shared vault song into one of the user's playlists.
func (c *Client) AddFromVault(username, vaultPath, playlist string) error {
	return c.postJSON("/playlist/add_from_vault", map[string]string{
		"username": username,
		"path":     vaultPath,
		"playlist": playlist,
	}, nil)
}

// UploadCover attaches custom cover art to a playlist folder. The image is
// sent as a base64 payload, matching the server's small-file convention.
func (c *Client) UploadCover(username, playlist string, imageData []byte) error {
	return c.postJSON("/playlist/upload_cover", map[string]interface{}{
		"username": username,
		"playlist": playlist,
		"image":    imageData,
	}, nil)
}
