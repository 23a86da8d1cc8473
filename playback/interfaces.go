package playback

import (
	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/session"
)

// Connectivity answers the fast, non-blocking reachability query behind
// source resolution.
type Connectivity interface {
	IsConnected() bool
}

// OfflineCatalog is the slice of the offline store the engine needs:
// finding a downloaded copy of a server track, mapping a cached file back
// to its server path, and logging plays.
type OfflineCatalog interface {
	FindDownload(serverPath, name string) (filePath string, err error)
	ServerPathForLocalFile(localPath string) (string, error)
	LogPlay(songName, artist string, durationSeconds int) error
}

// StreamSource builds authenticated remote URLs for streaming and cover
// art.
type StreamSource interface {
	StreamURL(username, path string) string
	StreamHeaders() map[string]string
	CoverURL(username, path string) string
}

// SessionStore persists and restores the playback session snapshot.
type SessionStore interface {
	SaveSnapshot(session.Snapshot) error
	LoadSnapshot() *session.Snapshot
}

// Listener receives the engine's two event kinds. Callbacks run on the
// engine's goroutine while it holds its control lock, so implementations
// must hand work off instead of calling back into the engine.
type Listener interface {
	OnSongChanged(track domain.Track, playing bool)
	OnPlaybackStateChanged(playing bool)
}

// Notifier surfaces discrete, user-visible failure notices.
type Notifier interface {
	Notify(message string)
}

// AudioFocus arbitrates exclusive audio output with the platform. The
// default implementation always grants.
type AudioFocus interface {
	Request() bool
	Abandon()
}

// FocusChange models the platform's focus transitions.
type FocusChange int

const (
	// FocusLoss is a permanent loss; playback pauses and stays paused.
	FocusLoss FocusChange = iota
	// FocusLossTransient pauses playback and remembers to resume.
	FocusLossTransient
	// FocusGain resumes playback only after a transient loss the engine
	// itself paused for.
	FocusGain
)

// grantedFocus is the no-op focus arbiter used when the platform offers
// none.
type grantedFocus struct{}

func (grantedFocus) Request() bool { return true }
func (grantedFocus) Abandon()      {}
