package playback

import (
	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/player"
)

// ErrNotAvailableOffline is reported when a server track has no playable
// downloaded copy while the device is disconnected.
var ErrNotAvailableOffline = errors.New("not available offline")

// resolveLocked turns a playlist track into a concrete player source.
//
// Local tracks play their file directly. While disconnected, server
// tracks must resolve through the offline catalog or fail. Online,
// server tracks stream from the authenticated endpoint; the downloaded
// copy is kept in reserve as the prepare-failure fallback.
func (e *Engine) resolveLocked(track domain.Track) (player.Source, bool, error) {
	if track.IsLocal() {
		return player.Source{LocalPath: track.Path}, false, nil
	}
	if !e.conn.IsConnected() {
		local := e.localCopyLocked(track)
		if local == "" {
			return player.Source{}, false, errors.Wrap(ErrNotAvailableOffline, track.Name)
		}
		return player.Source{LocalPath: local}, false, nil
	}
	src := player.Source{
		URL:     e.streams.StreamURL(e.username, track.Path),
		Headers: e.streams.StreamHeaders(),
	}
	return src, true, nil
}

// localCopyLocked looks up a downloaded copy of a server track, matching
// by exact server path first and by name as a fallback. The file must
// still exist on disk; a row pointing at a deleted file does not count.
func (e *Engine) localCopyLocked(track domain.Track) string {
	filePath, err := e.catalog.FindDownload(track.Path, track.Name)
	if err != nil || filePath == "" {
		return ""
	}
	if !e.fileExists(filePath) {
		return ""
	}
	return filePath
}
