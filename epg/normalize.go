package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedUpstreamData indicates the backend returned a guide
// payload that could not be parsed at all. Individually malformed
// programme entries are dropped without raising this error.
var ErrMalformedUpstreamData = errors.New("malformed upstream guide data")

// offsetRE matches an explicit UTC offset suffix on an XMLTV timestamp.
// The backend emits timestamps that are already adjusted for daylight
// saving AND carry an offset, so downstream players would apply the
// shift twice.
var offsetRE = regexp.MustCompile(` [+-]\d{4}$`)

// Normalizer parses raw guide bytes into a TV document
type Normalizer struct {
	stripOffset bool
}

// NewNormalizer creates a Normalizer. When stripOffset is true, explicit
// offset suffixes are removed from programme timestamps and the values
// are treated as local time.
func NewNormalizer(stripOffset bool) *Normalizer {
	return &Normalizer{stripOffset: stripOffset}
}

// Normalize parses raw guide bytes. Programmes without a channel
// reference or with an unparseable start timestamp are dropped
// individually; a payload that does not parse as XML at all returns
// ErrMalformedUpstreamData.
func (n *Normalizer) Normalize(raw []byte) (*TV, error) {
	var tv TV
	if err := xml.Unmarshal(raw, &tv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpstreamData, err)
	}

	kept := tv.Programmes[:0]
	for _, p := range tv.Programmes {
		if n.stripOffset {
			p.Start = stripOffsetSuffix(p.Start)
			p.Stop = stripOffsetSuffix(p.Stop)
		}
		if p.Channel == "" {
			continue
		}
		if _, err := p.StartTime(); err != nil {
			continue
		}
		kept = append(kept, p)
	}
	tv.Programmes = kept

	return &tv, nil
}

func stripOffsetSuffix(s string) string {
	return offsetRE.ReplaceAllString(s, "")
}
