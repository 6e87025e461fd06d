// Package m3u parses and renders extended M3U playlists.
//
// The parser keeps EXTINF attributes in document order so a playlist
// rendered from unchanged entries is byte-identical across runs.
package m3u

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// Header is the required first line of an extended M3U document
const Header = "#EXTM3U"

// Attr is a single key="value" attribute on an EXTINF line
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed M3U channel entry
type Entry struct {
	// Duration is the raw duration field of the EXTINF line, usually "-1"
	Duration string
	// Attrs holds the EXTINF attributes in document order
	Attrs []Attr
	// Name is the display name after the comma
	Name string
	// URL is the stream URL line following the EXTINF line
	URL string
}

// Attr returns the value of the named attribute and whether it is present
func (e *Entry) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the named attribute in place, or appends it
func (e *Entry) SetAttr(key, value string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
}

// attrRE extracts key="value" pairs from EXTINF lines
var attrRE = regexp.MustCompile(`([\w-]+)="([^"]*)"`)

// extinfRE splits an EXTINF line into duration, attribute text and name
var extinfRE = regexp.MustCompile(`^#EXTINF:([^\s,]*)((?:\s+[\w-]+="[^"]*")*)\s*,(.*)$`)

// Parse parses extended M3U text into entries. Lines that are neither
// EXTINF/URL pairs nor the header are ignored, matching how players
// treat unknown directives.
func Parse(content string) ([]Entry, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var entries []Entry
	var pending *Entry

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			entry, err := parseExtinf(line)
			if err != nil {
				// Skip unparseable metadata lines individually
				pending = nil
				continue
			}
			pending = &entry
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		// Non-comment line is a stream URL for the pending entry
		if pending != nil {
			pending.URL = line
			entries = append(entries, *pending)
			pending = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan M3U content: %w", err)
	}

	return entries, nil
}

// parseExtinf parses a single EXTINF line
func parseExtinf(line string) (Entry, error) {
	m := extinfRE.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, fmt.Errorf("malformed EXTINF line: %q", line)
	}

	entry := Entry{
		Duration: m[1],
		Name:     strings.TrimSpace(m[3]),
	}

	for _, attr := range attrRE.FindAllStringSubmatch(m[2], -1) {
		entry.Attrs = append(entry.Attrs, Attr{Key: attr[1], Value: attr[2]})
	}

	return entry, nil
}

// Render writes entries as an extended M3U document, header included.
// Attribute order is preserved, so rendering parsed-then-unchanged
// entries reproduces the input byte for byte.
func Render(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("\n")

	for _, e := range entries {
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

	return sb.String()
}
