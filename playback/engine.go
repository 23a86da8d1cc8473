package playback

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/player"
	"github.com/resonode/resonode/session"
)

// maxConsecutiveFailures is the number of back-to-back playback errors
// tolerated before the engine gives up advancing and notifies once.
const maxConsecutiveFailures = 3

// ErrInvalidStart is returned by PlayFrom when the start index does not
// address a track in the given playlist.
var ErrInvalidStart = errors.New("playback: start index out of range")

// current tracks the song most recently handed to the player, so the
// event loop can fall back, log plays, and persist on completion.
type current struct {
	track    domain.Track
	remote   bool
	fellBack bool
	duration time.Duration
}

// Engine owns the playback session: the playlist, the current index, and
// all transport state. Every control method takes the engine lock, so
// concurrent callers are serialized and the session never half-updates.
type Engine struct {
	player   player.Player
	catalog  OfflineCatalog
	streams  StreamSource
	sessions SessionStore
	conn     Connectivity
	focus    AudioFocus

	mu           sync.Mutex
	playlist     []domain.Track
	currentIndex int
	username     string
	failureCount int
	gen          uint64
	cur          *current
	playing      bool
	resumeOnGain bool

	listener Listener
	notifier Notifier

	// stubbed in tests
	fileExists func(string) bool
}

// New builds an idle engine. Call Start to restore the previous session
// and begin consuming player events.
func New(p player.Player, catalog OfflineCatalog, streams StreamSource, sessions SessionStore, conn Connectivity) *Engine {
	return &Engine{
		player:       p,
		catalog:      catalog,
		streams:      streams,
		sessions:     sessions,
		conn:         conn,
		focus:        grantedFocus{},
		currentIndex: -1,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// SetListener registers the UI callback sink. Must be called before Start.
func (e *Engine) SetListener(l Listener) { e.listener = l }

// SetNotifier registers the failure notice sink. Must be called before Start.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

// SetAudioFocus replaces the default always-granted focus arbiter.
func (e *Engine) SetAudioFocus(f AudioFocus) { e.focus = f }

// Start synchronously restores the last session snapshot, then runs the
// player event loop until ctx is cancelled. Restored sessions come back
// paused; playback never starts on its own.
func (e *Engine) Start(ctx context.Context) {
	e.restore()
	go e.run(ctx)
}

func (e *Engine) restore() {
	snap := e.sessions.LoadSnapshot()
	if snap == nil {
		return
	}
	if snap.Index < 0 || snap.Index >= len(snap.Playlist) {
		log.Printf("playback: discarding snapshot with index %d of %d tracks", snap.Index, len(snap.Playlist))
		return
	}
	e.mu.Lock()
	e.playlist = snap.Playlist
	e.currentIndex = snap.Index
	e.username = snap.Username
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case ev := <-e.player.Events():
			e.handleEvent(ev)
		case <-ctx.Done():
			e.player.Close()
			e.focus.Abandon()
			return
		}
	}
}

// PlayFrom replaces the whole session atomically and starts the track at
// startIndex. The consecutive-failure counter resets: this is a fresh
// user intent.
func (e *Engine) PlayFrom(playlist []domain.Track, startIndex int, username string) error {
	if startIndex < 0 || startIndex >= len(playlist) {
		return ErrInvalidStart
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playlist = append([]domain.Track(nil), playlist...)
	e.currentIndex = startIndex
	e.username = username
	e.failureCount = 0

	if e.playlist[startIndex].IsFolder() {
		e.stopLocked()
		return nil
	}
	e.startCurrentLocked()
	return nil
}

// Resume continues a paused track. It is a no-op while idle or already
// playing, and while audio focus is denied.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeLocked()
}

func (e *Engine) resumeLocked() {
	if e.playing || e.cur == nil {
		return
	}
	if !e.focus.Request() {
		return
	}
	e.player.Play()
	e.playing = true
	e.emitStateLocked(true)
}

// Pause halts playback and snapshots the session. An explicit pause also
// clears any pending focus-gain auto-resume: the user said stop.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeOnGain = false
	e.pauseLocked()
}

func (e *Engine) pauseLocked() {
	if !e.playing {
		return
	}
	e.player.Pause()
	e.playing = false
	e.persistLocked()
	e.emitStateLocked(false)
}

// TogglePlayPause is the single-button transport control used by remote
// surfaces (notification, headset, watch).
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.resumeOnGain = false
		e.pauseLocked()
	} else {
		e.resumeLocked()
	}
}

// PlayNext advances to the next playable track, wrapping circularly.
// User-initiated, so the failure counter resets first.
func (e *Engine) PlayNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount = 0
	e.stepLocked(+1)
}

// PlayPrev steps back to the previous playable track, wrapping
// circularly. Resets the failure counter like PlayNext.
func (e *Engine) PlayPrev() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount = 0
	e.stepLocked(-1)
}

// stepLocked moves dir (+1 or -1) through the playlist, skipping folder
// rows. The scan is bounded by the playlist length: a playlist of only
// folders stops the engine instead of spinning.
func (e *Engine) stepLocked(dir int) {
	n := len(e.playlist)
	if n == 0 || e.currentIndex < 0 {
		return
	}
	idx := e.currentIndex
	for i := 0; i < n; i++ {
		idx = ((idx+dir)%n + n) % n
		if !e.playlist[idx].IsFolder() {
			e.currentIndex = idx
			e.startCurrentLocked()
			return
		}
	}
	e.stopLocked()
}

// SeekTo forwards a position change to the player. No-op while idle.
func (e *Engine) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return
	}
	e.player.SeekTo(pos)
}

// CurrentSong returns the track at the current index, if any.
func (e *Engine) CurrentSong() (domain.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentIndex < 0 || e.currentIndex >= len(e.playlist) {
		return domain.Track{}, false
	}
	return e.playlist[e.currentIndex], true
}

// IsPlaying reports whether the engine believes a track is playing.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Position reports the current playback position, zero while idle.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return 0
	}
	return e.player.Position()
}

// Duration reports the current track's length, zero while idle.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return 0
	}
	return e.player.Duration()
}

// Playlist returns a copy of the session playlist and the current index.
func (e *Engine) Playlist() ([]domain.Track, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Track(nil), e.playlist...), e.currentIndex
}

// CurrentCoverURL resolves cover art for the current track. Cached
// tracks are mapped back to their server path first, so art still loads
// for files played from disk.
func (e *Engine) CurrentCoverURL() string {
	e.mu.Lock()
	track, ok := e.currentTrackLocked()
	username := e.username
	e.mu.Unlock()
	if !ok {
		return ""
	}
	path := track.Path
	if track.IsLocal() {
		serverPath, err := e.catalog.ServerPathForLocalFile(track.Path)
		if err != nil || serverPath == "" {
			return ""
		}
		path = serverPath
	}
	return e.streams.CoverURL(username, path)
}

// HandleFocusChange reacts to platform audio focus transitions.
func (e *Engine) HandleFocusChange(change FocusChange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch change {
	case FocusLoss:
		e.resumeOnGain = false
		e.pauseLocked()
	case FocusLossTransient:
		if e.playing {
			e.pauseLocked()
			e.resumeOnGain = true
		}
	case FocusGain:
		if e.resumeOnGain {
			e.resumeOnGain = false
			e.resumeLocked()
		}
	}
}

// HandleOutputDisconnected pauses when the active output device (wired
// or bluetooth) goes away, so audio never blares from the speaker.
func (e *Engine) HandleOutputDisconnected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeOnGain = false
	e.pauseLocked()
}

// HandleOutputConnected resumes a paused session when a known output
// device comes back.
func (e *Engine) HandleOutputConnected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing && e.cur != nil {
		e.resumeLocked()
	}
}

func (e *Engine) currentTrackLocked() (domain.Track, bool) {
	if e.currentIndex < 0 || e.currentIndex >= len(e.playlist) {
		return domain.Track{}, false
	}
	return e.playlist[e.currentIndex], true
}

// startCurrentLocked resolves the track at the current index and kicks
// off an async prepare under a fresh generation. Any in-flight prepare
// from an earlier generation is ignored when its events arrive.
func (e *Engine) startCurrentLocked() {
	track, ok := e.currentTrackLocked()
	if !ok {
		return
	}
	src, remote, err := e.resolveLocked(track)
	if err != nil {
		e.notify(err.Error())
		e.handleFailureLocked()
		return
	}
	e.gen++
	e.cur = &current{track: track, remote: remote}
	e.playing = false
	e.player.Prepare(e.gen, src)
}

func (e *Engine) handleEvent(ev player.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Gen != e.gen || e.cur == nil {
		// superseded prepare; the newer generation owns the player
		return
	}
	switch ev.Kind {
	case player.EventPrepared:
		e.onPreparedLocked()
	case player.EventFinished:
		e.onFinishedLocked()
	case player.EventFailed:
		log.Printf("playback: prepare failed for %q: %v", e.cur.track.Name, ev.Err)
		e.onFailedLocked()
	}
}

// onPreparedLocked starts audible playback. The failure counter is NOT
// reset here: only explicit user intent (PlayFrom, PlayNext, PlayPrev)
// clears it, so a playlist alternating good and broken tracks still
// trips the threshold.
func (e *Engine) onPreparedLocked() {
	if !e.focus.Request() {
		return
	}
	e.cur.duration = e.player.Duration()
	e.player.Play()
	e.playing = true
	e.persistLocked()
	if e.listener != nil {
		e.listener.OnSongChanged(e.cur.track, true)
	}
}

func (e *Engine) onFinishedLocked() {
	cur := e.cur
	go func() {
		secs := int(cur.duration / time.Second)
		if err := e.catalog.LogPlay(cur.track.Name, cur.track.Artist, secs); err != nil {
			log.Printf("playback: log play: %v", err)
		}
	}()
	e.playing = false
	e.stepLocked(+1)
}

// onFailedLocked handles a prepare failure. A remote track gets one shot
// at its downloaded copy before counting as a failure.
func (e *Engine) onFailedLocked() {
	cur := e.cur
	if cur.remote && !cur.fellBack {
		if local := e.localCopyLocked(cur.track); local != "" {
			cur.fellBack = true
			cur.remote = false
			e.gen++
			e.player.Prepare(e.gen, player.Source{LocalPath: local})
			return
		}
	}
	e.handleFailureLocked()
}

// handleFailureLocked implements the bounded skip-retry policy: advance
// past up to maxConsecutiveFailures-1 broken tracks, then stop, reset,
// and notify exactly once.
func (e *Engine) handleFailureLocked() {
	e.failureCount++
	if e.failureCount < maxConsecutiveFailures {
		e.stepLocked(+1)
		return
	}
	e.failureCount = 0
	e.playing = false
	e.cur = nil
	e.player.Stop()
	e.notify("Playback stopped after repeated errors")
	e.emitStateLocked(false)
}

// stopLocked drops out of playback without clearing the playlist.
func (e *Engine) stopLocked() {
	e.player.Stop()
	e.cur = nil
	if e.playing {
		e.playing = false
		e.emitStateLocked(false)
	}
}

// persistLocked snapshots the session asynchronously. Saves are
// fire-and-forget: a failed write is logged, never surfaced.
func (e *Engine) persistLocked() {
	snap := session.Snapshot{
		Playlist:   append([]domain.Track(nil), e.playlist...),
		Index:      e.currentIndex,
		PositionMs: int(e.player.Position().Milliseconds()),
		Username:   e.username,
	}
	go func() {
		if err := e.sessions.SaveSnapshot(snap); err != nil {
			log.Printf("playback: save snapshot: %v", err)
		}
	}()
}

func (e *Engine) emitStateLocked(playing bool) {
	if e.listener != nil {
		e.listener.OnPlaybackStateChanged(playing)
	}
}

func (e *Engine) notify(message string) {
	if e.notifier != nil {
		e.notifier.Notify(message)
	}
}
