package domain

import (
	"strings"
	"time"
)

// TrackKind distinguishes playable files from navigable folders.
type TrackKind string

const (
	KindFile   TrackKind = "file"
	KindFolder TrackKind = "folder"
)

// Track is a single entry in the browsing model: a playable file or a
// navigable folder. The JSON field names match the server wire format so a
// persisted playlist snapshot round-trips unchanged.
type Track struct {
	Name   string    `json:"name"`
	Kind   TrackKind `json:"type"`
	Path   string    `json:"path"`
	Artist string    `json:"artist,omitempty"`
}

// IsFolder reports whether the track is a navigable container rather than a
// playable file.
func (t Track) IsFolder() bool {
	return t.Kind == KindFolder
}

// IsLocal reports whether the track path points at a file on this device
// instead of a server-relative location.
func (t Track) IsLocal() bool {
	return strings.HasPrefix(t.Path, "/")
}

// PlaybackSession is the engine-owned playlist plus cursor. CurrentIndex is
// -1 while nothing is loaded; otherwise it is a valid index into Playlist.
type PlaybackSession struct {
	Playlist     []Track
	CurrentIndex int
	Username     string
	FailureCount int
}

// Current returns the track under the cursor, or false when the session is
// empty.
func (s *PlaybackSession) Current() (Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Playlist) {
		return Track{}, false
	}
	return s.Playlist[s.CurrentIndex], true
}

// OfflineSong is one downloaded copy of a server track. Many rows may share
// a playlist name; playlists are identified purely by that name string.
type OfflineSong struct {
	ID           int64
	ServerPath   string
	Name         string
	PlaylistName string
	FilePath     string
	Artist       string
}

// PlayRecord is one entry of the local play-history log. Synced flips to
// true once the remote statistics endpoint has acknowledged the record.
type PlayRecord struct {
	ID       int64
	PlayedAt time.Time
	SongName string
	Artist   string
	Duration int // seconds
	Synced   bool
}

// StatsPeriod selects the rolling window for listening statistics.
type StatsPeriod string

const (
	PeriodWeek  StatsPeriod = "week"
	PeriodMonth StatsPeriod = "month"
	PeriodYear  StatsPeriod = "year"
)

// Window returns the period length measured back from now.
func (p StatsPeriod) Window() time.Duration {
	switch p {
	case PeriodMonth:
		return 30 * 24 * time.Hour
	case PeriodYear:
		return 365 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// TopSong is one row of the most-played ranking.
type TopSong struct {
	Name  string
	Plays int
}

// ListeningStats aggregates play history over a period.
type ListeningStats struct {
	TotalSeconds int
	TopSongs     []TopSong // at most five, play count descending
}

// ListingMode is the closed variant describing how a listing was produced.
// It is a pure UI-layer concern; the playback engine never inspects it.
type ListingMode int

const (
	ListingPublic ListingMode = iota
	ListingPrivate
	ListingVault
	ListingOffline
	ListingSearch
)

// Listing is a browsable page of tracks as returned by the remote library
// or reconstructed from the offline cache.
type Listing struct {
	CurrentPath string
	Mode        ListingMode
	Tracks      []Track
}
