package ui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/resonode/resonode/domain"
)

func TestHandleKeyDispatchesRunes(t *testing.T) {
	km := NewKeyBindingManager()
	var fired string
	km.RegisterKeyBinding(KeyAction{name: "next", handler: func() { fired = "next" }}, nil, []rune{'n'})

	consumed := km.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))

	assert.True(t, consumed)
	assert.Equal(t, "next", fired)
}

func TestHandleKeyDispatchesSpecialKeys(t *testing.T) {
	km := NewKeyBindingManager()
	var fired bool
	km.RegisterKeyBinding(KeyAction{name: "back", handler: func() { fired = true }}, []tcell.Key{tcell.KeyEscape}, nil)

	assert.True(t, km.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.True(t, fired)
}

func TestHandleKeyIgnoresUnbound(t *testing.T) {
	km := NewKeyBindingManager()

	assert.False(t, km.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)))
	assert.False(t, km.HandleKey(tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone)))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "01:05", FormatDuration(65))
	assert.Equal(t, "10:00", FormatDuration(600))
}

func TestFormatTrackLine(t *testing.T) {
	assert.Contains(t, FormatTrackLine(domain.Track{Name: "dir", Kind: domain.KindFolder}), "▸")
	line := FormatTrackLine(domain.Track{Name: "a.mp3", Kind: domain.KindFile, Artist: "band"})
	assert.Contains(t, line, "a.mp3")
	assert.Contains(t, line, "band")
}

func TestFormatNowPlayingMarksOffline(t *testing.T) {
	track := domain.Track{Name: "a.mp3", Kind: domain.KindFile}
	assert.Contains(t, FormatNowPlaying(track, true, false), "[offline]")
	assert.NotContains(t, FormatNowPlaying(track, true, true), "[offline]")
}
