package download

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
)

// Remote is the slice of the library client the downloader needs.
type Remote interface {
	Browse(username, folder string) (*domain.Listing, error)
	StreamURL(username, path string) string
	CoverURL(username, path string) string
	Fetch(rawURL string) (io.ReadCloser, error)
}

// Store records completed downloads. Rows are written only after every
// file of the playlist landed on disk.
type Store interface {
	SaveSong(serverPath, name, playlistName, filePath, artist string) error
	PlaylistFilePaths(playlistName string) ([]string, error)
	DeletePlaylist(playlistName string) error
}

// Progress reports per-song completion while a playlist downloads.
type Progress func(done, total int, songName string)

type pendingSong struct {
	track    domain.Track
	filePath string
	artist   string
}

// Service downloads whole playlists for offline playback and evicts them
// again.
type Service struct {
	remote   Remote
	store    Store
	musicDir string
	progress Progress
}

func NewService(remote Remote, store Store, musicDir string) *Service {
	return &Service{remote: remote, store: store, musicDir: musicDir}
}

// SetProgress registers an optional progress callback.
func (s *Service) SetProgress(p Progress) { s.progress = p }

// DownloadPlaylist fetches every song of a remote folder into the offline
// music directory. The operation is all-or-nothing: catalog rows are only
// written once every file succeeded, and a mid-download failure removes
// the partial files again, so the catalog never refers to half a
// playlist.
func (s *Service) DownloadPlaylist(ctx context.Context, username, folderPath, playlistName string) error {
	listing, err := s.remote.Browse(username, folderPath)
	if err != nil {
		return errors.Wrap(err, "browse playlist")
	}
	var songs []domain.Track
	for _, t := range listing.Tracks {
		if !t.IsFolder() {
			songs = append(songs, t)
		}
	}
	if len(songs) == 0 {
		return errors.Errorf("playlist %q has no songs", playlistName)
	}

	destDir := filepath.Join(s.musicDir, sanitize(playlistName))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(err, "create playlist dir")
	}

	pending := make([]pendingSong, 0, len(songs))
	for i, song := range songs {
		if err := ctx.Err(); err != nil {
			s.cleanup(destDir)
			return err
		}
		filePath := filepath.Join(destDir, sanitize(song.Name))
		if err := s.fetchFile(s.remote.StreamURL(username, song.Path), filePath); err != nil {
			s.cleanup(destDir)
			return errors.Wrapf(err, "download %q", song.Name)
		}
		pending = append(pending, pendingSong{
			track:    song,
			filePath: filePath,
			artist:   artistFor(song, filePath),
		})
		if s.progress != nil {
			s.progress(i+1, len(songs), song.Name)
		}
	}

	// cover art is cosmetic; a failure does not fail the download
	coverPath := filepath.Join(destDir, "cover.jpg")
	if err := s.fetchFile(s.remote.CoverURL(username, folderPath), coverPath); err != nil {
		log.Printf("download: cover for %q: %v", playlistName, err)
	}

	for _, p := range pending {
		if err := s.store.SaveSong(p.track.Path, p.track.Name, playlistName, p.filePath, p.artist); err != nil {
			return errors.Wrap(err, "record download")
		}
	}
	return nil
}

// RemovePlaylist evicts a downloaded playlist, files first and catalog
// rows second, so an interrupted eviction re-runs cleanly.
func (s *Service) RemovePlaylist(playlistName string) error {
	files, err := s.store.PlaylistFilePaths(playlistName)
	if err != nil {
		return errors.Wrap(err, "list playlist files")
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %q", f)
		}
	}
	s.cleanup(filepath.Join(s.musicDir, sanitize(playlistName)))
	return errors.Wrap(s.store.DeletePlaylist(playlistName), "delete playlist rows")
}

func (s *Service) fetchFile(rawURL, dest string) error {
	body, err := s.remote.Fetch(rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func (s *Service) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("download: cleanup %q: %v", dir, err)
	}
}

// artistFor prefers the server-reported artist and falls back to the
// file's own tags for servers that do not send one.
func artistFor(track domain.Track, filePath string) string {
	if track.Artist != "" {
		return track.Artist
	}
	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()
	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return meta.Artist()
}

// sanitize keeps names safe as single path elements.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
