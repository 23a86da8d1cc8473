package library

import "github.com/resonode/resonode/domain"

// Library is the browsing surface the UI reads from, whether the tracks
// come from the server or from the offline cache.
type Library interface {
	List(folder string) (*domain.Listing, error)
	Search(query string) (*domain.Listing, error)
}
