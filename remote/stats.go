package remote

import (
	"net/url"
	"strconv"

	"github.com/resonode/resonode/domain"
)

// wirePlay is one play-history record in the sync payload.
type wirePlay struct {
	PlayedAt int64  `json:"played_at"`
	Song     string `json:"song"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
}

type statsResponse struct {
	TotalSeconds int `json:"total_seconds"`
	TopSongs     []struct {
		Name  string `json:"name"`
		Plays int    `json:"plays"`
	} `json:"top_songs"`
}

// GetStats fetches server-side listening statistics for a user and period.
func (c *Client) GetStats(username string, period domain.StatsPeriod) (*domain.ListeningStats, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("period", string(period))

	var resp statsResponse
	if err := c.getJSON("/stats/get", q, &resp); err != nil {
		return nil, err
	}
	stats := &domain.ListeningStats{TotalSeconds: resp.TotalSeconds}
	for _, s := range resp.TopSongs {
		stats.TopSongs = append(stats.TopSongs, domain.TopSong{Name: s.Name, Plays: s.Plays})
	}
	return stats, nil
}

// CommunityEntry is one row of the community listening leaderboard.
type CommunityEntry struct {
	Username     string `json:"username"`
	TotalSeconds int    `json:"total_seconds"`
}

// GetCommunityStats fetches the opt-in community leaderboard.
func (c *Client) GetCommunityStats(period domain.StatsPeriod) ([]CommunityEntry, error) {
	q := url.Values{}
	q.Set("period", string(period))

	var resp struct {
		Entries []CommunityEntry `json:"entries"`
	}
	if err := c.getJSON("/stats/community", q, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// SetStatsConfig pushes the user's statistics opt-in flags to the server.
func (c *Client) SetStatsConfig(username string, enabled, public bool) error {
	return c.postJSON("/stats/config", map[string]string{
		"username": username,
		"enabled":  strconv.FormatBool(enabled),
		"public":   strconv.FormatBool(public),
	}, nil)
}

// SyncPlays uploads a batch of locally logged plays. The server acknowledges
// the whole batch; callers then flip the local sync flags.
func (c *Client) SyncPlays(username string, plays []domain.PlayRecord) error {
	batch := make([]wirePlay, len(plays))
	for i, p := range plays {
		batch[i] = wirePlay{
			PlayedAt: p.PlayedAt.Unix(),
			Song:     p.SongName,
			Artist:   p.Artist,
			Duration: p.Duration,
		}
	}
	return c.postJSON("/stats/sync", map[string]interface{}{
		"username": username,
		"plays":    batch,
	}, nil)
}
