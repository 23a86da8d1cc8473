package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id            INTEGER PRIMARY KEY,
	server_path   TEXT NOT NULL,
	name          TEXT NOT NULL,
	playlist_name TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	artist        TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS play_history (
	id               INTEGER PRIMARY KEY,
	played_at        INTEGER NOT NULL,
	song_name        TEXT NOT NULL,
	artist           TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL,
	synced           INTEGER NOT NULL DEFAULT 0
);
`

// OfflineStore is the durable local cache of downloaded songs and play
// history. It is a pure data-access component: no network calls, and read
// operations tolerate an empty store. Mutating operations are synchronous
// and must not run on the interaction thread; that is the caller's job.
type OfflineStore struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the offline database at path.
// ":memory:" gives an ephemeral store for tests.
func Open(path string) (*OfflineStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open offline db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create offline schema")
	}
	return &OfflineStore{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests that need to
// inject a failing connection.
func NewWithDB(db *sql.DB) *OfflineStore {
	return &OfflineStore{db: db}
}

// Close releases the database handle.
func (s *OfflineStore) Close() error {
	return s.db.Close()
}

// SaveSong records one downloaded copy. No uniqueness is enforced: playlist
// downloads are bulk all-or-nothing operations gated by IsPlaylistDownloaded,
// so a re-download simply rewrites the whole set.
func (s *OfflineStore) SaveSong(serverPath, name, playlistName, filePath, artist string) error {
	_, err := s.db.Exec(
		`INSERT INTO songs (server_path, name, playlist_name, file_path, artist) VALUES (?, ?, ?, ?, ?)`,
		serverPath, name, playlistName, filePath, artist,
	)
	return errors.Wrap(err, "save song")
}

// OfflinePlaylists returns the distinct downloaded playlist names as
// folder-type tracks.
func (s *OfflineStore) OfflinePlaylists() ([]domain.Track, error) {
	rows, err := s.db.Query(`SELECT DISTINCT playlist_name FROM songs ORDER BY playlist_name`)
	if err != nil {
		return nil, errors.Wrap(err, "list offline playlists")
	}
	defer rows.Close()

	var playlists []domain.Track
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan playlist name")
		}
		playlists = append(playlists, domain.Track{Name: name, Kind: domain.KindFolder, Path: name})
	}
	return playlists, rows.Err()
}

// SongsInPlaylist returns the downloaded songs of a playlist as file-type
// tracks. The track path is the LOCAL file path, which is what lets the
// engine's source resolution play these entries without touching the
// network.
func (s *OfflineStore) SongsInPlaylist(playlistName string) ([]domain.Track, error) {
	rows, err := s.db.Query(
		`SELECT name, file_path, artist FROM songs WHERE playlist_name = ? ORDER BY id`,
		playlistName,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list playlist songs")
	}
	defer rows.Close()

	var songs []domain.Track
	for rows.Next() {
		var name, filePath, artist string
		if err := rows.Scan(&name, &filePath, &artist); err != nil {
			return nil, errors.Wrap(err, "scan song")
		}
		songs = append(songs, domain.Track{Name: name, Kind: domain.KindFile, Path: filePath, Artist: artist})
	}
	return songs, rows.Err()
}

// IsPlaylistDownloaded reports whether at least one song of the playlist is
// cached.
func (s *OfflineStore) IsPlaylistDownloaded(playlistName string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM songs WHERE playlist_name = ?`, playlistName).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "count playlist songs")
	}
	return count > 0, nil
}

// PlaylistFilePaths returns the backing files of a playlist, for eviction.
func (s *OfflineStore) PlaylistFilePaths(playlistName string) ([]string, error) {
	rows, err := s.db.Query(`SELECT file_path FROM songs WHERE playlist_name = ?`, playlistName)
	if err != nil {
		return nil, errors.Wrap(err, "list playlist files")
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "scan file path")
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeletePlaylist removes all rows of a playlist. Callers delete the backing
// files first.
func (s *OfflineStore) DeletePlaylist(playlistName string) error {
	_, err := s.db.Exec(`DELETE FROM songs WHERE playlist_name = ?`, playlistName)
	return errors.Wrap(err, "delete playlist")
}

// FindDownload locates a downloaded copy of a server track, matching by
// exact server path first and falling back to the song name. Returns ""
// when nothing matches.
func (s *OfflineStore) FindDownload(serverPath, name string) (string, error) {
	var filePath string
	err := s.db.QueryRow(
		`SELECT file_path FROM songs WHERE server_path = ? OR name = ? ORDER BY server_path = ? DESC LIMIT 1`,
		serverPath, name, serverPath,
	).Scan(&filePath)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "find download")
	}
	return filePath, nil
}

// ServerPathForLocalFile is the reverse lookup from a cached file back to
// its original server path, needed to fetch remote cover art for a locally
// played track. Returns "" when the file is not a cached download.
func (s *OfflineStore) ServerPathForLocalFile(localPath string) (string, error) {
	var serverPath string
	err := s.db.QueryRow(`SELECT server_path FROM songs WHERE file_path = ?`, localPath).Scan(&serverPath)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "reverse path lookup")
	}
	return serverPath, nil
}
