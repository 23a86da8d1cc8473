package library

import (
	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/remote"
)

// RemoteLibrary serves listings from the streaming server for a fixed
// user.
type RemoteLibrary struct {
	client   *remote.Client
	username string
}

func NewRemoteLibrary(client *remote.Client, username string) *RemoteLibrary {
	return &RemoteLibrary{
		client:   client,
		username: username,
	}
}

func (r *RemoteLibrary) List(folder string) (*domain.Listing, error) {
	return r.client.Browse(r.username, folder)
}

func (r *RemoteLibrary) Search(query string) (*domain.Listing, error) {
	return r.client.Search(r.username, query)
}
