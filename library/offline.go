package library

import (
	"strings"

	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/store"
)

// OfflineLibrary reconstructs a browsable tree from the download catalog:
// the root lists downloaded playlists as folders, and each playlist lists
// its cached files with local paths.
type OfflineLibrary struct {
	store *store.OfflineStore
}

func NewOfflineLibrary(s *store.OfflineStore) *OfflineLibrary {
	return &OfflineLibrary{store: s}
}

func (o *OfflineLibrary) List(folder string) (*domain.Listing, error) {
	var (
		tracks []domain.Track
		err    error
	)
	if folder == "" {
		tracks, err = o.store.OfflinePlaylists()
	} else {
		tracks, err = o.store.SongsInPlaylist(folder)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Listing{
		CurrentPath: folder,
		Mode:        domain.ListingOffline,
		Tracks:      tracks,
	}, nil
}

// Search matches cached song names case-insensitively across all
// downloaded playlists.
func (o *OfflineLibrary) Search(query string) (*domain.Listing, error) {
	playlists, err := o.store.OfflinePlaylists()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var hits []domain.Track
	for _, pl := range playlists {
		songs, err := o.store.SongsInPlaylist(pl.Name)
		if err != nil {
			return nil, err
		}
		for _, s := range songs {
			if strings.Contains(strings.ToLower(s.Name), needle) {
				hits = append(hits, s)
			}
		}
	}
	return &domain.Listing{
		Mode:   domain.ListingSearch,
		Tracks: hits,
	}, nil
}
