package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/player"
	"github.com/resonode/resonode/session"
)

type prepareCall struct {
	gen uint64
	src player.Source
}

type fakePlayer struct {
	mu       sync.Mutex
	prepares []prepareCall
	plays    int
	pauses   int
	stops    int
	seeks    []time.Duration
	pos      time.Duration
	dur      time.Duration
	events   chan player.Event
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan player.Event, 16), dur: 3 * time.Minute}
}

func (p *fakePlayer) Prepare(gen uint64, src player.Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepares = append(p.prepares, prepareCall{gen: gen, src: src})
}

func (p *fakePlayer) Play()  { p.mu.Lock(); p.plays++; p.mu.Unlock() }
func (p *fakePlayer) Pause() { p.mu.Lock(); p.pauses++; p.mu.Unlock() }
func (p *fakePlayer) Stop()  { p.mu.Lock(); p.stops++; p.mu.Unlock() }

func (p *fakePlayer) SeekTo(pos time.Duration) {
	p.mu.Lock()
	p.seeks = append(p.seeks, pos)
	p.mu.Unlock()
}

func (p *fakePlayer) Position() time.Duration     { return p.pos }
func (p *fakePlayer) Duration() time.Duration     { return p.dur }
func (p *fakePlayer) IsPlaying() bool             { return false }
func (p *fakePlayer) Events() <-chan player.Event { return p.events }
func (p *fakePlayer) Close()                      {}

func (p *fakePlayer) lastPrepare(t *testing.T) prepareCall {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.prepares)
	return p.prepares[len(p.prepares)-1]
}

func (p *fakePlayer) prepareCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prepares)
}

type playRecord struct {
	name     string
	artist   string
	duration int
}

type fakeCatalog struct {
	byPath  map[string]string // server path -> local file
	byName  map[string]string // song name -> local file
	reverse map[string]string // local file -> server path
	plays   chan playRecord
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byPath:  map[string]string{},
		byName:  map[string]string{},
		reverse: map[string]string{},
		plays:   make(chan playRecord, 8),
	}
}

func (c *fakeCatalog) FindDownload(serverPath, name string) (string, error) {
	if fp, ok := c.byPath[serverPath]; ok {
		return fp, nil
	}
	return c.byName[name], nil
}

func (c *fakeCatalog) ServerPathForLocalFile(localPath string) (string, error) {
	return c.reverse[localPath], nil
}

func (c *fakeCatalog) LogPlay(name, artist string, durationSeconds int) error {
	c.plays <- playRecord{name: name, artist: artist, duration: durationSeconds}
	return nil
}

type fakeStreams struct{}

func (fakeStreams) StreamURL(username, path string) string {
	return "http://srv/stream/" + username + "/" + path
}

func (fakeStreams) StreamHeaders() map[string]string {
	return map[string]string{"x-secret-key": "k"}
}

func (fakeStreams) CoverURL(username, path string) string {
	return "http://srv/cover/" + username + "/" + path
}

type fakeSessions struct {
	mu     sync.Mutex
	stored *session.Snapshot
	saved  chan session.Snapshot
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(chan session.Snapshot, 8)}
}

func (s *fakeSessions) SaveSnapshot(snap session.Snapshot) error {
	s.saved <- snap
	return nil
}

func (s *fakeSessions) LoadSnapshot() *session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

type fakeConn struct{ connected bool }

func (c *fakeConn) IsConnected() bool { return c.connected }

type songEvent struct {
	track   domain.Track
	playing bool
}

type recorder struct {
	songs  []songEvent
	states []bool
}

func (r *recorder) OnSongChanged(track domain.Track, playing bool) {
	r.songs = append(r.songs, songEvent{track: track, playing: playing})
}

func (r *recorder) OnPlaybackStateChanged(playing bool) {
	r.states = append(r.states, playing)
}

type noticeLog struct{ messages []string }

func (n *noticeLog) Notify(message string) { n.messages = append(n.messages, message) }

type deniedFocus struct{}

func (deniedFocus) Request() bool { return false }
func (deniedFocus) Abandon()      {}

type engineFixture struct {
	engine   *Engine
	player   *fakePlayer
	catalog  *fakeCatalog
	sessions *fakeSessions
	conn     *fakeConn
	listener *recorder
	notices  *noticeLog
}

func newFixture() *engineFixture {
	f := &engineFixture{
		player:   newFakePlayer(),
		catalog:  newFakeCatalog(),
		sessions: newFakeSessions(),
		conn:     &fakeConn{connected: true},
		listener: &recorder{},
		notices:  &noticeLog{},
	}
	f.engine = New(f.player, f.catalog, fakeStreams{}, f.sessions, f.conn)
	f.engine.SetListener(f.listener)
	f.engine.SetNotifier(f.notices)
	f.engine.fileExists = func(string) bool { return true }
	return f
}

// deliver feeds a player event straight into the engine's handler, the
// same path the event loop takes.
func (f *engineFixture) deliver(kind player.EventKind, gen uint64) {
	f.engine.handleEvent(player.Event{Kind: kind, Gen: gen})
}

func (f *engineFixture) waitSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	select {
	case snap := <-f.sessions.saved:
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot saved")
		return session.Snapshot{}
	}
}

func song(name, path string) domain.Track {
	return domain.Track{Name: name, Kind: domain.KindFile, Path: path}
}

func folder(name, path string) domain.Track {
	return domain.Track{Name: name, Kind: domain.KindFolder, Path: path}
}

func TestPlayFromPreparesStartTrack(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "music/a.mp3"), song("b", "music/b.mp3")}

	require.NoError(t, f.engine.PlayFrom(list, 1, "alice"))

	call := f.player.lastPrepare(t)
	assert.Equal(t, "http://srv/stream/alice/music/b.mp3", call.src.URL)
	assert.Equal(t, "k", call.src.Headers["x-secret-key"])

	f.deliver(player.EventPrepared, call.gen)

	assert.True(t, f.engine.IsPlaying())
	require.Len(t, f.listener.songs, 1)
	assert.Equal(t, "b", f.listener.songs[0].track.Name)
	assert.True(t, f.listener.songs[0].playing)

	snap := f.waitSnapshot(t)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, "alice", snap.Username)
	assert.Len(t, snap.Playlist, 2)
}

func TestPlayFromRejectsBadIndex(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}

	assert.ErrorIs(t, f.engine.PlayFrom(list, 1, "alice"), ErrInvalidStart)
	assert.ErrorIs(t, f.engine.PlayFrom(list, -1, "alice"), ErrInvalidStart)
	assert.ErrorIs(t, f.engine.PlayFrom(nil, 0, "alice"), ErrInvalidStart)
	assert.Zero(t, f.player.prepareCount())
}

func TestPlayFromFolderStops(t *testing.T) {
	f := newFixture()
	list := []domain.Track{folder("album", "music/album")}

	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Zero(t, f.player.prepareCount())
	assert.False(t, f.engine.IsPlaying())
}

func TestNextAndPrevWrapAndSkipFolders(t *testing.T) {
	f := newFixture()
	list := []domain.Track{
		song("a", "a.mp3"),
		folder("dir", "dir"),
		song("c", "c.mp3"),
	}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	f.engine.PlayNext() // skips the folder, lands on c
	call := f.player.lastPrepare(t)
	assert.Contains(t, call.src.URL, "c.mp3")

	f.engine.PlayNext() // wraps past the end back to a
	call = f.player.lastPrepare(t)
	assert.Contains(t, call.src.URL, "a.mp3")

	f.engine.PlayPrev() // wraps backwards, skipping the folder
	call = f.player.lastPrepare(t)
	assert.Contains(t, call.src.URL, "c.mp3")
}

func TestNextWithOnlyFoldersLeftGoesIdle(t *testing.T) {
	f := newFixture()
	list := []domain.Track{
		song("a", "a.mp3"),
		folder("d1", "d1"),
		folder("d2", "d2"),
	}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)
	before := f.player.prepareCount()

	// shrink the playable set to folders only, then advance
	f.engine.mu.Lock()
	f.engine.playlist[0] = folder("a", "a")
	f.engine.mu.Unlock()
	f.engine.PlayNext()

	assert.Equal(t, before, f.player.prepareCount())
	assert.False(t, f.engine.IsPlaying())
}

func TestThreeFailuresStopAndNotifyOnce(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "/a.mp3"), song("b", "/b.mp3"), song("c", "/c.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen) // a fails, advance to b
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen) // b fails, advance to c
	prepared := f.player.prepareCount()
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen) // c fails, give up

	assert.Equal(t, prepared, f.player.prepareCount(), "third failure must not advance")
	require.Len(t, f.notices.messages, 1)
	require.NotEmpty(t, f.listener.states)
	assert.False(t, f.listener.states[len(f.listener.states)-1])

	// the counter was reset: the next run of failures tolerates two more
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	assert.Len(t, f.notices.messages, 1)
}

func TestSingleTrackFailuresNotifyOnce(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "/a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	// each failure wraps back to the same lone track
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	assert.Empty(t, f.notices.messages)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)

	assert.Len(t, f.notices.messages, 1)
	assert.Equal(t, 3, f.player.prepareCount())
	assert.False(t, f.engine.IsPlaying())
}

func TestPrepareSuccessDoesNotResetFailureCount(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "/a.mp3"), song("b", "/b.mp3"), song("c", "/c.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)   // a fails (count 1)
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen) // b plays fine
	f.deliver(player.EventFinished, f.player.lastPrepare(t).gen) // advance to c
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)   // c fails (count 2)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)   // a fails (count 3)

	assert.Len(t, f.notices.messages, 1, "intervening success must not reset the counter")
}

func TestUserNextResetsFailureCount(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "/a.mp3"), song("b", "/b.mp3"), song("c", "/c.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	f.engine.PlayNext()
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)
	f.deliver(player.EventFailed, f.player.lastPrepare(t).gen)

	assert.Empty(t, f.notices.messages, "user skip restarts the failure tolerance")
}

func TestStalePrepareIsIgnored(t *testing.T) {
	f := newFixture()
	listA := []domain.Track{song("a", "a.mp3")}
	listB := []domain.Track{song("b", "b.mp3")}

	require.NoError(t, f.engine.PlayFrom(listA, 0, "alice"))
	genA := f.player.lastPrepare(t).gen
	require.NoError(t, f.engine.PlayFrom(listB, 0, "alice"))
	genB := f.player.lastPrepare(t).gen

	f.deliver(player.EventPrepared, genA) // late result for the replaced track
	assert.Empty(t, f.listener.songs)
	assert.False(t, f.engine.IsPlaying())

	f.deliver(player.EventPrepared, genB)
	require.Len(t, f.listener.songs, 1)
	assert.Equal(t, "b", f.listener.songs[0].track.Name)
}

func TestResolveLocalTrackPlaysFileDirectly(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("local", "/sdcard/music/x.mp3")}

	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	call := f.player.lastPrepare(t)
	assert.Equal(t, "/sdcard/music/x.mp3", call.src.LocalPath)
	assert.Empty(t, call.src.URL)
}

func TestResolveOfflineUsesDownloadedCopy(t *testing.T) {
	f := newFixture()
	f.conn.connected = false
	f.catalog.byPath["music/a.mp3"] = "/data/offline/a.mp3"
	list := []domain.Track{song("a", "music/a.mp3")}

	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Equal(t, "/data/offline/a.mp3", f.player.lastPrepare(t).src.LocalPath)
}

func TestResolveOfflineMatchesByNameToo(t *testing.T) {
	f := newFixture()
	f.conn.connected = false
	f.catalog.byName["a"] = "/data/offline/a.mp3"
	list := []domain.Track{song("a", "moved/elsewhere/a.mp3")}

	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Equal(t, "/data/offline/a.mp3", f.player.lastPrepare(t).src.LocalPath)
}

func TestResolveOfflineMissingFileFails(t *testing.T) {
	f := newFixture()
	f.conn.connected = false
	f.catalog.byPath["music/a.mp3"] = "/data/offline/a.mp3"
	f.engine.fileExists = func(string) bool { return false }
	list := []domain.Track{song("a", "music/a.mp3")}

	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Zero(t, f.player.prepareCount())
	require.NotEmpty(t, f.notices.messages)
	assert.Contains(t, f.notices.messages[0], "not available offline")
}

func TestRemoteFailureFallsBackToDownloadedCopy(t *testing.T) {
	f := newFixture()
	f.catalog.byPath["music/a.mp3"] = "/data/offline/a.mp3"
	list := []domain.Track{song("a", "music/a.mp3"), song("b", "music/b.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	first := f.player.lastPrepare(t)
	require.NotEmpty(t, first.src.URL)

	f.deliver(player.EventFailed, first.gen)

	second := f.player.lastPrepare(t)
	assert.Equal(t, "/data/offline/a.mp3", second.src.LocalPath, "stream failure retries the local copy")
	assert.Greater(t, second.gen, first.gen)

	// the fallback failing counts as the track's failure and advances
	f.deliver(player.EventFailed, second.gen)
	assert.Contains(t, f.player.lastPrepare(t).src.URL, "b.mp3")
}

func TestPauseResumeAndToggle(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)
	f.waitSnapshot(t)

	f.engine.Pause()
	assert.False(t, f.engine.IsPlaying())
	f.waitSnapshot(t) // pause snapshots the position

	f.engine.Resume()
	assert.True(t, f.engine.IsPlaying())

	f.engine.TogglePlayPause()
	assert.False(t, f.engine.IsPlaying())
	f.engine.TogglePlayPause()
	assert.True(t, f.engine.IsPlaying())
}

func TestFinishedLogsPlayAndAdvances(t *testing.T) {
	f := newFixture()
	f.player.dur = 200 * time.Second
	list := []domain.Track{
		{Name: "a", Kind: domain.KindFile, Path: "a.mp3", Artist: "band"},
		song("b", "b.mp3"),
	}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)
	f.deliver(player.EventFinished, f.player.lastPrepare(t).gen)

	select {
	case rec := <-f.catalog.plays:
		assert.Equal(t, "a", rec.name)
		assert.Equal(t, "band", rec.artist)
		assert.Equal(t, 200, rec.duration)
	case <-time.After(time.Second):
		t.Fatal("finished track was not logged")
	}
	assert.Contains(t, f.player.lastPrepare(t).src.URL, "b.mp3")
}

func TestRestoreComesBackPaused(t *testing.T) {
	f := newFixture()
	f.sessions.stored = &session.Snapshot{
		Playlist: []domain.Track{song("a", "a.mp3"), song("b", "b.mp3")},
		Index:    1,
		Username: "alice",
	}

	f.engine.restore()

	track, ok := f.engine.CurrentSong()
	require.True(t, ok)
	assert.Equal(t, "b", track.Name)
	assert.False(t, f.engine.IsPlaying())
	assert.Zero(t, f.player.prepareCount(), "restore must not start playback")
}

func TestRestoreDiscardsCorruptSnapshot(t *testing.T) {
	f := newFixture()
	f.sessions.stored = &session.Snapshot{
		Playlist: []domain.Track{song("a", "a.mp3")},
		Index:    5,
	}

	f.engine.restore()

	_, ok := f.engine.CurrentSong()
	assert.False(t, ok)
}

func TestTransientFocusLossResumesOnGain(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)

	f.engine.HandleFocusChange(FocusLossTransient)
	assert.False(t, f.engine.IsPlaying())

	f.engine.HandleFocusChange(FocusGain)
	assert.True(t, f.engine.IsPlaying())
}

func TestPermanentFocusLossStaysPaused(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)

	f.engine.HandleFocusChange(FocusLoss)
	f.engine.HandleFocusChange(FocusGain)

	assert.False(t, f.engine.IsPlaying())
}

func TestUserPauseBlocksFocusGainResume(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)

	f.engine.HandleFocusChange(FocusLossTransient)
	f.engine.Pause() // explicit intent while already paused
	f.engine.HandleFocusChange(FocusGain)

	assert.False(t, f.engine.IsPlaying())
}

func TestDeniedFocusPreventsPlayback(t *testing.T) {
	f := newFixture()
	f.engine.SetAudioFocus(deniedFocus{})
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)

	assert.False(t, f.engine.IsPlaying())
	assert.Zero(t, f.player.plays)
}

func TestOutputDisconnectPausesAndReconnectResumes(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.deliver(player.EventPrepared, f.player.lastPrepare(t).gen)

	f.engine.HandleOutputDisconnected()
	assert.False(t, f.engine.IsPlaying())

	f.engine.HandleOutputConnected()
	assert.True(t, f.engine.IsPlaying())
}

func TestSeekForwardsToPlayer(t *testing.T) {
	f := newFixture()
	f.engine.SeekTo(time.Minute) // idle engine ignores seeks
	assert.Empty(t, f.player.seeks)

	list := []domain.Track{song("a", "a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))
	f.engine.SeekTo(42 * time.Second)

	require.Len(t, f.player.seeks, 1)
	assert.Equal(t, 42*time.Second, f.player.seeks[0])
}

func TestCoverURLForCachedTrackUsesServerPath(t *testing.T) {
	f := newFixture()
	f.catalog.reverse["/data/offline/a.mp3"] = "music/a.mp3"
	list := []domain.Track{song("a", "/data/offline/a.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Equal(t, "http://srv/cover/alice/music/a.mp3", f.engine.CurrentCoverURL())
}

func TestCoverURLUnknownLocalFileIsEmpty(t *testing.T) {
	f := newFixture()
	list := []domain.Track{song("x", "/sdcard/random.mp3")}
	require.NoError(t, f.engine.PlayFrom(list, 0, "alice"))

	assert.Empty(t, f.engine.CurrentCoverURL())
}
