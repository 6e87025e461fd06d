package tvheadend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const tagListing = `#EXTM3U
#EXTINF:-1,Entertainment
http://tvh:9981/playlist/tagid/4?profile=pass
#EXTINF:-1,Sports
http://tvh:9981/playlist/tagid/7?profile=pass
#EXTINF:-1,News
http://tvh:9981/playlist/tagid/2?profile=pass
`

const channelListing = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" tvg-chno="101",BBC One
http://tvh:9981/stream/channelid/101?profile=pass
#EXTINF:-1 tvg-id="bbc2.uk" tvg-chno="102",BBC Two
http://tvh:9981/stream/channelid/102?profile=pass
`

// newTestClient starts a stub backend and returns a client pointed at it
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(server.URL, 5*time.Second)
}

func TestClient_ListTags(t *testing.T) {
	t.Run("parses tags in server order", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlist/tags" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("auth"); got != "s3cret" {
				t.Errorf("auth = %q, want %q", got, "s3cret")
			}
			w.Write([]byte(tagListing))
		})

		tags, err := client.ListTags(context.Background(), "s3cret")
		if err != nil {
			t.Fatalf("ListTags failed: %v", err)
		}

		want := []Tag{
			{ID: "4", Name: "Entertainment", Position: 0},
			{ID: "7", Name: "Sports", Position: 1},
			{ID: "2", Name: "News", Position: 2},
		}
		if len(tags) != len(want) {
			t.Fatalf("Expected %d tags, got %d", len(want), len(tags))
		}
		for i := range want {
			if tags[i] != want[i] {
				t.Errorf("Tag %d = %+v, want %+v", i, tags[i], want[i])
			}
		}
	})

	t.Run("skips entries without tag id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("#EXTM3U\n#EXTINF:-1,Odd\nhttp://tvh:9981/playlist/other\n"))
		})

		tags, err := client.ListTags(context.Background(), "s3cret")
		if err != nil {
			t.Fatalf("ListTags failed: %v", err)
		}
		if len(tags) != 0 {
			t.Errorf("Expected no tags, got %+v", tags)
		}
	})

	t.Run("non-success status is backend unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.ListTags(context.Background(), "bad")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("unreachable server is backend unavailable", func(t *testing.T) {
		client := New("http://127.0.0.1:1", 500*time.Millisecond)

		_, err := client.ListTags(context.Background(), "s3cret")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	})
}

func TestClient_ListChannels(t *testing.T) {
	t.Run("parses channel entries", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlist/tagid/7" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(channelListing))
		})

		entries, err := client.ListChannels(context.Background(), "s3cret", Tag{ID: "7", Name: "Sports"})
		if err != nil {
			t.Fatalf("ListChannels failed: %v", err)
		}

		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[0].Name != "BBC One" {
			t.Errorf("Name = %q, want %q", entries[0].Name, "BBC One")
		}
	})

	t.Run("empty listing is not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("#EXTM3U\n"))
		})

		entries, err := client.ListChannels(context.Background(), "s3cret", Tag{ID: "9"})
		if err != nil {
			t.Fatalf("ListChannels failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected no entries, got %d", len(entries))
		}
	})
}

func TestClient_FetchEPG(t *testing.T) {
	t.Run("returns raw guide bytes", func(t *testing.T) {
		guide := `<?xml version="1.0"?><tv><channel id="c1"/></tv>`
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/xmltv/channels" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(guide))
		})

		body, err := client.FetchEPG(context.Background(), "s3cret")
		if err != nil {
			t.Fatalf("FetchEPG failed: %v", err)
		}
		if string(body) != guide {
			t.Errorf("FetchEPG = %q, want %q", body, guide)
		}
	})

	t.Run("context cancellation surfaces as backend unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.FetchEPG(ctx, "s3cret")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	})
}
