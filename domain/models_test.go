package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackKindHelpers(t *testing.T) {
	folder := Track{Name: "Chill", Kind: KindFolder, Path: "Chill"}
	file := Track{Name: "song.mp3", Kind: KindFile, Path: "Chill/song.mp3"}
	local := Track{Name: "song.mp3", Kind: KindFile, Path: "/data/offline/song.mp3"}

	assert.True(t, folder.IsFolder())
	assert.False(t, file.IsFolder())
	assert.False(t, file.IsLocal())
	assert.True(t, local.IsLocal())
}

func TestTrackJSONWireNames(t *testing.T) {
	raw := `{"name":"a.mp3","type":"file","path":"Mix/a.mp3","artist":"Someone"}`

	var tr Track
	require.NoError(t, json.Unmarshal([]byte(raw), &tr))
	assert.Equal(t, KindFile, tr.Kind)
	assert.Equal(t, "Mix/a.mp3", tr.Path)

	out, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestSessionCurrent(t *testing.T) {
	s := &PlaybackSession{CurrentIndex: -1}
	_, ok := s.Current()
	assert.False(t, ok)

	s.Playlist = []Track{{Name: "a", Kind: KindFile, Path: "a"}}
	s.CurrentIndex = 0
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.Name)
}

func TestStatsPeriodWindow(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, PeriodWeek.Window())
	assert.Equal(t, 30*24*time.Hour, PeriodMonth.Window())
	assert.Equal(t, 365*24*time.Hour, PeriodYear.Window())
	// Unknown periods default to a week.
	assert.Equal(t, 7*24*time.Hour, StatsPeriod("decade").Window())
}
