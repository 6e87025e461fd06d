package cache

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestManager_Publish(t *testing.T) {
	start := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	t.Run("empty until first publish", func(t *testing.T) {
		m := NewManager(start)

		snap := m.Current()
		if snap.HasPlaylist() || snap.HasEPG() {
			t.Error("Fresh manager reports published artifacts")
		}
		if !snap.StartTime.Equal(start) {
			t.Errorf("StartTime = %v, want %v", snap.StartTime, start)
		}
	})

	t.Run("playlist publish sets document and timestamp together", func(t *testing.T) {
		m := NewManager(start)
		published := start.Add(time.Hour)

		m.PublishPlaylist("#EXTM3U\n", 3, published)

		snap := m.Current()
		if snap.Playlist != "#EXTM3U\n" {
			t.Errorf("Playlist = %q", snap.Playlist)
		}
		if snap.PlaylistChannels != 3 {
			t.Errorf("PlaylistChannels = %d, want 3", snap.PlaylistChannels)
		}
		if !snap.LastPlaylistUpdate.Equal(published) {
			t.Errorf("LastPlaylistUpdate = %v, want %v", snap.LastPlaylistUpdate, published)
		}
		if snap.HasEPG() {
			t.Error("Playlist publish touched the guide artifact")
		}
	})

	t.Run("epg publish leaves playlist untouched", func(t *testing.T) {
		m := NewManager(start)
		m.PublishPlaylist("#EXTM3U\n", 1, start.Add(time.Hour))

		guide := []byte("<tv></tv>")
		m.PublishEPG(guide, 42, start.Add(2*time.Hour))

		snap := m.Current()
		if !bytes.Equal(snap.EPG, guide) {
			t.Errorf("EPG = %q", snap.EPG)
		}
		if snap.EPGProgrammes != 42 {
			t.Errorf("EPGProgrammes = %d, want 42", snap.EPGProgrammes)
		}
		if snap.Playlist != "#EXTM3U\n" {
			t.Error("Guide publish touched the playlist artifact")
		}
	})

	t.Run("reader sees old snapshot until publish completes", func(t *testing.T) {
		m := NewManager(start)
		m.PublishPlaylist("old", 1, start.Add(time.Hour))

		before := m.Current()
		m.PublishPlaylist("new", 2, start.Add(2*time.Hour))
		after := m.Current()

		if before.Playlist != "old" {
			t.Errorf("Pre-publish snapshot = %q, want %q", before.Playlist, "old")
		}
		if after.Playlist != "new" {
			t.Errorf("Post-publish snapshot = %q, want %q", after.Playlist, "new")
		}
	})
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.PublishPlaylist("#EXTM3U\n", j, time.Now())
				m.PublishEPG([]byte("<tv></tv>"), j, time.Now())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := m.Current()
				// A document must never be visible without its timestamp
				if snap.Playlist != "" && !snap.HasPlaylist() {
					t.Error("Playlist visible without update timestamp")
					return
				}
				if len(snap.EPG) > 0 && !snap.HasEPG() {
					t.Error("Guide visible without update timestamp")
					return
				}
			}
		}()
	}
	wg.Wait()
}
