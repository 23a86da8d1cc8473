package session

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/resonode/resonode/domain"
)

// Snapshot is the persisted playback session: enough to repopulate the
// engine after a process restart without resuming playback.
type Snapshot struct {
	Playlist   []domain.Track `json:"playlist"`
	Index      int            `json:"index"`
	PositionMs int            `json:"position_ms"`
	Username   string         `json:"username"`
}

// settings is the on-disk shape of the store.
type settings struct {
	InstallationID    string    `json:"installation_id,omitempty"`
	Username          string    `json:"username,omitempty"`
	LoggedIn          bool      `json:"logged_in,omitempty"`
	LastSeenChangelog string    `json:"last_seen_changelog,omitempty"`
	WrappedEnabled    bool      `json:"wrapped_enabled,omitempty"`
	WrappedPublic     bool      `json:"wrapped_public,omitempty"`
	LastSession       *Snapshot `json:"last_session,omitempty"`
}

// Store is a lightweight JSON key-value settings file: login session,
// installation ID, changelog marker and the last playback snapshot. A
// malformed file degrades to empty state instead of propagating a parse
// error.
type Store struct {
	path string

	mu   sync.Mutex
	data settings
}

// NewStore loads the settings file at path, creating defaults (including a
// fresh installation ID) when the file is missing or unreadable.
func NewStore(path string) *Store {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			log.Printf("settings file unreadable, starting clean: %v", err)
			s.data = settings{}
		}
	}

	if s.data.InstallationID == "" {
		s.data.InstallationID = uuid.New().String()
		if err := s.flushLocked(); err != nil {
			log.Printf("could not persist installation id: %v", err)
		}
	}
	return s
}

// flushLocked writes the settings to disk. Callers hold s.mu (or are the
// constructor, before the store escapes).
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	return errors.Wrap(os.WriteFile(s.path, raw, 0o644), "write settings")
}

// InstallationID returns the stable per-install identifier.
func (s *Store) InstallationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InstallationID
}

// CreateLoginSession marks the user as logged in.
func (s *Store) CreateLoginSession(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Username = username
	s.data.LoggedIn = true
	return s.flushLocked()
}

// Logout clears the login session and the playback snapshot but keeps the
// installation ID.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.data.InstallationID
	s.data = settings{InstallationID: id}
	return s.flushLocked()
}

// Username returns the logged-in user, or "" when logged out.
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.data.LoggedIn {
		return ""
	}
	return s.data.Username
}

// IsLoggedIn reports whether a login session exists.
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LoggedIn
}

// SetWrapped stores the statistics opt-in flags.
func (s *Store) SetWrapped(enabled, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.WrappedEnabled = enabled
	s.data.WrappedPublic = public
	return s.flushLocked()
}

// Wrapped returns the statistics opt-in flags.
func (s *Store) Wrapped() (enabled, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.WrappedEnabled, s.data.WrappedPublic
}

// MarkChangelogSeen records the last changelog version shown to the user.
func (s *Store) MarkChangelogSeen(version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastSeenChangelog = version
	return s.flushLocked()
}

// LastSeenChangelog returns the last changelog version shown to the user.
func (s *Store) LastSeenChangelog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastSeenChangelog
}

// SaveSnapshot persists the playback session. Later snapshots simply
// overwrite earlier ones; newest wins.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastSession = &snap
	return s.flushLocked()
}

// LoadSnapshot returns the last persisted playback session, or nil when
// none exists.
func (s *Store) LoadSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastSession
}
