package m3u

import (
	"strings"
	"testing"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" tvg-logo="http://tvh:9981/imagecache/1" tvg-chno="101",BBC One
http://tvh:9981/stream/channelid/101?profile=pass
#EXTINF:-1 tvg-id="bbc2.uk",BBC Two
http://tvh:9981/stream/channelid/102
`

func TestParse(t *testing.T) {
	t.Run("parses entries with attributes in order", func(t *testing.T) {
		entries, err := Parse(samplePlaylist)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}

		first := entries[0]
		if first.Name != "BBC One" {
			t.Errorf("Name = %q, want %q", first.Name, "BBC One")
		}
		if first.URL != "http://tvh:9981/stream/channelid/101?profile=pass" {
			t.Errorf("URL = %q", first.URL)
		}
		if len(first.Attrs) != 3 {
			t.Fatalf("Expected 3 attributes, got %d", len(first.Attrs))
		}
		wantKeys := []string{"tvg-id", "tvg-logo", "tvg-chno"}
		for i, key := range wantKeys {
			if first.Attrs[i].Key != key {
				t.Errorf("Attr %d key = %q, want %q", i, first.Attrs[i].Key, key)
			}
		}
	})

	t.Run("ignores unknown directives", func(t *testing.T) {
		content := "#EXTM3U\n#EXTGRP:Sports\n#EXTINF:-1,Chan\nhttp://example/1\n"
		entries, err := Parse(content)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Name != "Chan" {
			t.Fatalf("Expected single entry Chan, got %+v", entries)
		}
	})

	t.Run("skips EXTINF without URL", func(t *testing.T) {
		content := "#EXTM3U\n#EXTINF:-1,Dangling\n#EXTINF:-1,Kept\nhttp://example/1\n"
		entries, err := Parse(content)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Name != "Kept" {
			t.Fatalf("Expected only the Kept entry, got %+v", entries)
		}
	})

	t.Run("empty content yields no entries", func(t *testing.T) {
		entries, err := Parse("")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected no entries, got %d", len(entries))
		}
	})

	t.Run("name with commas is preserved", func(t *testing.T) {
		content := "#EXTM3U\n#EXTINF:-1 tvg-id=\"x\",News, Weather & Sport\nhttp://example/1\n"
		entries, err := Parse(content)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if entries[0].Name != "News, Weather & Sport" {
			t.Errorf("Name = %q", entries[0].Name)
		}
	})
}

func TestEntry_Attr(t *testing.T) {
	entry := Entry{Attrs: []Attr{{Key: "tvg-id", Value: "bbc1.uk"}}}

	t.Run("present attribute", func(t *testing.T) {
		v, ok := entry.Attr("tvg-id")
		if !ok || v != "bbc1.uk" {
			t.Errorf("Attr() = %q, %v", v, ok)
		}
	})

	t.Run("absent attribute", func(t *testing.T) {
		if _, ok := entry.Attr("group-title"); ok {
			t.Error("Expected absent attribute")
		}
	})
}

func TestEntry_SetAttr(t *testing.T) {
	t.Run("replaces in place", func(t *testing.T) {
		entry := Entry{Attrs: []Attr{
			{Key: "tvg-id", Value: "old"},
			{Key: "tvg-chno", Value: "101"},
		}}

		entry.SetAttr("tvg-id", "new")

		if entry.Attrs[0].Value != "new" {
			t.Errorf("Attrs[0].Value = %q, want %q", entry.Attrs[0].Value, "new")
		}
		if len(entry.Attrs) != 2 {
			t.Errorf("Expected 2 attributes, got %d", len(entry.Attrs))
		}
	})

	t.Run("appends when missing", func(t *testing.T) {
		entry := Entry{}
		entry.SetAttr("group-title", "Sports")

		if len(entry.Attrs) != 1 || entry.Attrs[0].Key != "group-title" {
			t.Errorf("Attrs = %+v", entry.Attrs)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("round trip is byte identical", func(t *testing.T) {
		entries, err := Parse(samplePlaylist)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if got := Render(entries); got != samplePlaylist {
			t.Errorf("Render() =\n%s\nwant\n%s", got, samplePlaylist)
		}
	})

	t.Run("empty duration defaults to -1", func(t *testing.T) {
		out := Render([]Entry{{Name: "Chan", URL: "http://example/1"}})
		if !strings.Contains(out, "#EXTINF:-1,Chan") {
			t.Errorf("Render() = %q", out)
		}
	})

	t.Run("attribute values are written verbatim", func(t *testing.T) {
		content := "#EXTM3U\n#EXTINF:-1 tvg-logo=\"http://tvh:9981/image\\cache\\1\",Chan\nhttp://example/1\n"
		entries, err := Parse(content)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if got := Render(entries); got != content {
			t.Errorf("Render() = %q, want %q", got, content)
		}
	})

	t.Run("no entries renders header only", func(t *testing.T) {
		if got := Render(nil); got != Header+"\n" {
			t.Errorf("Render(nil) = %q", got)
		}
	})
}
