// Package playlist builds the merged channel playlist served to
// downstream players.
package playlist

import (
	"strings"

	"github.com/tvhmux/tvhmux/m3u"
	"github.com/tvhmux/tvhmux/tvheadend"
)

// Group holds the channels one tag contributed to the playlist
type Group struct {
	Tag     tvheadend.Tag
	Entries []m3u.Entry
}

// Document is an immutable merged playlist. It is replaced wholesale on
// refresh, never mutated in place.
type Document struct {
	Groups []Group
}

// ChannelCount returns the total number of channel entries
func (d *Document) ChannelCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Entries)
	}
	return n
}

// Render writes the document as a single extended M3U. Groups appear in
// tag order. An empty group still contributes its sub-playlist header
// line, matching the upstream concatenation behavior; the merger can be
// configured to drop empty groups instead.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString(m3u.Header)
	sb.WriteString("\n")

	for _, g := range d.Groups {
		if len(g.Entries) == 0 {
			sb.WriteString(m3u.Header)
			sb.WriteString("\n")
			continue
		}
		for _, e := range g.Entries {
			sb.WriteString("#EXTINF:")
			if e.Duration != "" {
				sb.WriteString(e.Duration)
			} else {
				sb.WriteString("-1")
			}
			for _, a := range e.Attrs {
				sb.WriteString(" ")
				sb.WriteString(a.Key)
				sb.WriteString("=\"")
				sb.WriteString(a.Value)
				sb.WriteString("\"")
			}
			sb.WriteString(",")
			sb.WriteString(e.Name)
			sb.WriteString("\n")
			sb.WriteString(e.URL)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
