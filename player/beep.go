package player

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/pkg/errors"
)

// BeepPlayer plays mp3 audio through the beep/speaker stack. Remote sources
// are buffered to a temporary file before decoding: the decoder needs a
// seekable reader, and a fully buffered file makes SeekTo work on streams
// too.
type BeepPlayer struct {
	httpClient *http.Client
	events     chan Event

	mu       sync.Mutex
	cancel   context.CancelFunc
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	playing  bool
	tempFile string
}

// NewBeep creates a player. The timeout bounds remote stream fetches.
func NewBeep(timeout time.Duration) *BeepPlayer {
	return &BeepPlayer{
		httpClient: &http.Client{Timeout: timeout},
		events:     make(chan Event, 16),
	}
}

// Prepare implements Player. Any prepare still in flight is cancelled; its
// late result never reaches the event channel.
func (b *BeepPlayer) Prepare(gen uint64, src Source) {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.mu.Unlock()

	go b.prepare(ctx, gen, src)
}

func (b *BeepPlayer) prepare(ctx context.Context, gen uint64, src Source) {
	path := src.LocalPath
	var temp string
	if path == "" {
		var err error
		temp, err = b.fetchToTemp(ctx, src)
		if err != nil {
			if ctx.Err() == nil {
				b.events <- Event{Kind: EventFailed, Gen: gen, Err: err}
			}
			return
		}
		path = temp
	}

	f, err := os.Open(path)
	if err != nil {
		b.discardTemp(temp)
		if ctx.Err() == nil {
			b.events <- Event{Kind: EventFailed, Gen: gen, Err: errors.Wrap(err, "open audio file")}
		}
		return
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		b.discardTemp(temp)
		if ctx.Err() == nil {
			b.events <- Event{Kind: EventFailed, Gen: gen, Err: errors.Wrap(err, "decode mp3")}
		}
		return
	}

	b.mu.Lock()
	if ctx.Err() != nil {
		b.mu.Unlock()
		streamer.Close()
		b.discardTemp(temp)
		return
	}

	b.teardownLocked()
	b.streamer = streamer
	b.format = format
	b.tempFile = temp

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		b.teardownLocked()
		b.mu.Unlock()
		b.events <- Event{Kind: EventFailed, Gen: gen, Err: errors.Wrap(err, "init speaker")}
		return
	}

	done := beep.Callback(func() {
		b.events <- Event{Kind: EventFinished, Gen: gen}
	})
	b.ctrl = &beep.Ctrl{Streamer: beep.Seq(streamer, done), Paused: true}
	speaker.Play(b.ctrl)
	b.mu.Unlock()

	b.events <- Event{Kind: EventPrepared, Gen: gen}
}

// fetchToTemp downloads a remote source into a temporary file.
func (b *BeepPlayer) fetchToTemp(ctx context.Context, src Source) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build stream request")
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("stream fetch: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "resonode-*.mp3")
	if err != nil {
		return "", errors.Wrap(err, "create stream buffer")
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "buffer stream")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "close stream buffer")
	}
	return tmp.Name(), nil
}

func (b *BeepPlayer) discardTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Printf("could not remove stream buffer %s: %v", path, err)
	}
}

// teardownLocked drops the loaded track. Caller holds b.mu.
func (b *BeepPlayer) teardownLocked() {
	if b.ctrl != nil {
		speaker.Clear()
		b.ctrl = nil
	}
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	b.discardTemp(b.tempFile)
	b.tempFile = ""
	b.playing = false
}

// Play implements Player.
func (b *BeepPlayer) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()
	b.playing = true
}

// Pause implements Player.
func (b *BeepPlayer) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.playing = false
}

// Stop implements Player.
func (b *BeepPlayer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked()
}

// SeekTo implements Player. Out-of-range positions are clamped.
func (b *BeepPlayer) SeekTo(pos time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return
	}
	n := b.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if max := b.streamer.Len() - 1; n > max {
		n = max
	}
	speaker.Lock()
	if err := b.streamer.Seek(n); err != nil {
		log.Printf("seek failed: %v", err)
	}
	speaker.Unlock()
}

// Position implements Player.
func (b *BeepPlayer) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos)
}

// Duration implements Player.
func (b *BeepPlayer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// IsPlaying implements Player.
func (b *BeepPlayer) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// Events implements Player.
func (b *BeepPlayer) Events() <-chan Event {
	return b.events
}

// Close implements Player.
func (b *BeepPlayer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.teardownLocked()
}
