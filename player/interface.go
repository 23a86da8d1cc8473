package player

import "time"

// Source describes where a track's audio comes from after source
// resolution: either a file on this device or an authenticated stream URL.
type Source struct {
	LocalPath string
	URL       string
	Headers   map[string]string
}

// IsLocal reports whether the source plays from the local filesystem.
func (s Source) IsLocal() bool {
	return s.LocalPath != ""
}

// EventKind enumerates the player's asynchronous notifications.
type EventKind int

const (
	// EventPrepared fires when a source finished preparing and can start.
	EventPrepared EventKind = iota
	// EventFinished fires when the current track played to completion.
	EventFinished
	// EventFailed fires when preparing or decoding a source failed.
	EventFailed
)

// Event is one asynchronous player notification. Gen carries the prepare
// generation the event belongs to, so a consumer can drop events from an
// abandoned prepare.
type Event struct {
	Kind EventKind
	Gen  uint64
	Err  error
}

// Player defines the interface for audio playback. Prepare is asynchronous:
// it returns immediately and the outcome arrives on Events. Starting a new
// Prepare abandons any prepare still in flight.
type Player interface {
	// Prepare starts loading a source. The result is reported on Events
	// tagged with gen.
	Prepare(gen uint64, src Source)

	// Play starts or resumes the prepared track.
	Play()

	// Pause suspends playback, keeping the position.
	Pause()

	// Stop tears down the current track entirely.
	Stop()

	// SeekTo moves the playback position of the loaded track.
	SeekTo(pos time.Duration)

	// Position returns the current playback position, zero when idle.
	Position() time.Duration

	// Duration returns the loaded track's length, zero when idle.
	Duration() time.Duration

	// IsPlaying reports whether audio is currently advancing.
	IsPlaying() bool

	// Events returns the asynchronous notification channel.
	Events() <-chan Event

	// Close releases all playback resources.
	Close()
}
