// Package cache holds the currently served artifacts and their refresh
// metadata behind an atomically swapped snapshot.
package cache

import (
	"sync"
	"time"
)

// Snapshot is one consistent view of the served artifacts. Documents
// are immutable once published; a refresh replaces the whole snapshot
// rather than mutating it in place. Zero-valued fields mean the
// artifact has not been published yet.
type Snapshot struct {
	Playlist           string
	EPG                []byte
	StartTime          time.Time
	LastPlaylistUpdate time.Time
	LastEPGUpdate      time.Time
	PlaylistChannels   int
	EPGProgrammes      int
}

// HasPlaylist reports whether a playlist has ever been published
func (s Snapshot) HasPlaylist() bool {
	return !s.LastPlaylistUpdate.IsZero()
}

// HasEPG reports whether a guide document has ever been published
func (s Snapshot) HasEPG() bool {
	return !s.LastEPGUpdate.IsZero()
}

// Manager guards the current snapshot. Readers take a brief read lock
// to copy the snapshot out; publishes swap document and timestamp in
// one critical section so a reader never sees a document without its
// matching update time. No lock is ever held across I/O.
type Manager struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewManager creates a Manager with an empty snapshot. start is the
// process boot instant reported through status metadata.
func NewManager(start time.Time) *Manager {
	return &Manager{snap: Snapshot{StartTime: start}}
}

// Current returns a copy of the current snapshot
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// PublishPlaylist atomically replaces the served playlist and its
// update timestamp. The guide document and its timestamp are untouched.
func (m *Manager) PublishPlaylist(rendered string, channels int, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Playlist = rendered
	m.snap.PlaylistChannels = channels
	m.snap.LastPlaylistUpdate = now
}

// PublishEPG atomically replaces the served guide document and its
// update timestamp. The caller must not modify rendered afterwards.
func (m *Manager) PublishEPG(rendered []byte, programmes int, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.EPG = rendered
	m.snap.EPGProgrammes = programmes
	m.snap.LastEPGUpdate = now
}
