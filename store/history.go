package store

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
)

// LogPlay appends one play-history row, unsynced. History is never deleted
// by the core; it backs the local statistics fallback.
func (s *OfflineStore) LogPlay(songName, artist string, durationSeconds int) error {
	_, err := s.db.Exec(
		`INSERT INTO play_history (played_at, song_name, artist, duration_seconds, synced) VALUES (?, ?, ?, ?, 0)`,
		time.Now().Unix(), songName, artist, durationSeconds,
	)
	return errors.Wrap(err, "log play")
}

// UnsyncedPlays returns the records not yet acknowledged by the remote
// statistics endpoint.
func (s *OfflineStore) UnsyncedPlays() ([]domain.PlayRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, played_at, song_name, artist, duration_seconds FROM play_history WHERE synced = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list unsynced plays")
	}
	defer rows.Close()

	var records []domain.PlayRecord
	for rows.Next() {
		var rec domain.PlayRecord
		var playedAt int64
		if err := rows.Scan(&rec.ID, &playedAt, &rec.SongName, &rec.Artist, &rec.Duration); err != nil {
			return nil, errors.Wrap(err, "scan play record")
		}
		rec.PlayedAt = time.Unix(playedAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkAsSynced flips the sync flag for the given record IDs.
func (s *OfflineStore) MarkAsSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.Exec(`UPDATE play_history SET synced = 1 WHERE id IN (`+placeholders+`)`, args...)
	return errors.Wrap(err, "mark plays synced")
}

// LocalStats aggregates total listening time and the top five most-played
// songs inside the period's rolling window. This is the fallback used when
// the remote statistics endpoint is unreachable.
func (s *OfflineStore) LocalStats(period domain.StatsPeriod) (*domain.ListeningStats, error) {
	since := time.Now().Add(-period.Window()).Unix()

	stats := &domain.ListeningStats{}
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(duration_seconds), 0) FROM play_history WHERE played_at >= ?`, since,
	).Scan(&stats.TotalSeconds)
	if err != nil {
		return nil, errors.Wrap(err, "sum listening time")
	}

	rows, err := s.db.Query(
		`SELECT song_name, COUNT(*) AS plays
		 FROM play_history
		 WHERE played_at >= ?
		 GROUP BY song_name
		 ORDER BY plays DESC, song_name ASC
		 LIMIT 5`, since,
	)
	if err != nil {
		return nil, errors.Wrap(err, "rank top songs")
	}
	defer rows.Close()

	for rows.Next() {
		var top domain.TopSong
		if err := rows.Scan(&top.Name, &top.Plays); err != nil {
			return nil, errors.Wrap(err, "scan top song")
		}
		stats.TopSongs = append(stats.TopSongs, top)
	}
	return stats, rows.Err()
}
