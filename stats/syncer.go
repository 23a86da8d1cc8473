// Package stats reconciles locally logged plays with the server and
// serves listening statistics from whichever side is reachable.
package stats

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
)

// History is the play-history slice of the offline store.
type History interface {
	UnsyncedPlays() ([]domain.PlayRecord, error)
	MarkAsSynced(ids []int64) error
	LocalStats(period domain.StatsPeriod) (*domain.ListeningStats, error)
}

// Remote uploads batched plays and serves server-side aggregates.
type Remote interface {
	SyncPlays(username string, plays []domain.PlayRecord) error
	GetStats(username string, period domain.StatsPeriod) (*domain.ListeningStats, error)
}

// Connectivity gates uploads; offline plays queue until the link returns.
type Connectivity interface {
	IsConnected() bool
}

// Syncer pushes queued plays upstream and answers stats queries, falling
// back to the local aggregate while disconnected.
type Syncer struct {
	history History
	remote  Remote
	conn    Connectivity
}

func NewSyncer(history History, remote Remote, conn Connectivity) *Syncer {
	return &Syncer{history: history, remote: remote, conn: conn}
}

// Sync uploads all unsynced plays and marks them synced. Rows stay
// unsynced on any failure and are retried on the next pass, so a play is
// never lost, only delivered late.
func (s *Syncer) Sync(username string) error {
	if !s.conn.IsConnected() {
		return nil
	}
	plays, err := s.history.UnsyncedPlays()
	if err != nil {
		return errors.Wrap(err, "load unsynced plays")
	}
	if len(plays) == 0 {
		return nil
	}
	if err := s.remote.SyncPlays(username, plays); err != nil {
		return errors.Wrap(err, "upload plays")
	}
	ids := make([]int64, len(plays))
	for i, p := range plays {
		ids[i] = p.ID
	}
	return errors.Wrap(s.history.MarkAsSynced(ids), "mark synced")
}

// Run syncs on connect and then periodically until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, username string, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		if err := s.Sync(username); err != nil {
			log.Printf("stats: sync: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Stats serves the listening aggregate for a period: the server's answer
// when reachable, the local history otherwise.
func (s *Syncer) Stats(username string, period domain.StatsPeriod) (*domain.ListeningStats, error) {
	if s.conn.IsConnected() {
		remote, err := s.remote.GetStats(username, period)
		if err == nil {
			return remote, nil
		}
		log.Printf("stats: remote stats unavailable, using local history: %v", err)
	}
	return s.history.LocalStats(period)
}
