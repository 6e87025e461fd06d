package epg

import (
	"encoding/xml"
	"sort"
	"time"
)

// programmeKey is the identity used for merge and eviction
type programmeKey struct {
	channel string
	start   string
}

type retained struct {
	programme Programme
	size      int64
	latest    bool
}

// MergeStats summarizes the outcome of one merge and eviction cycle
type MergeStats struct {
	Retained    int
	Replaced    int
	Orphaned    int
	EvictedAge  int
	EvictedSize int
}

// Store accumulates programme entries across refresh cycles, bounded by
// a day count and a serialized byte cap. It is not safe for concurrent
// use; the refresh orchestrator serializes access to it.
type Store struct {
	enabled bool
	days    int
	sizeCap int64

	channels []Channel
	entries  map[programmeKey]*retained
	size     int64
}

// NewStore creates a Store. With enabled false the store keeps only the
// latest fetch and no history. days <= 0 disables day-based eviction,
// sizeCap <= 0 disables size-based eviction.
func NewStore(enabled bool, days int, sizeCap int64) *Store {
	return &Store{
		enabled: enabled,
		days:    days,
		sizeCap: sizeCap,
		entries: make(map[programmeKey]*retained),
	}
}

// Merge combines a freshly normalized document with the retained
// history and enforces the retention bounds. The channel list always
// follows the latest fetch; programmes whose channel disappeared from
// the backend are dropped. A re-fetched programme replaces its retained
// version. Size eviction trims oldest history first and never removes
// an entry from the latest batch, so a batch that alone exceeds the cap
// is kept whole.
func (s *Store) Merge(tv *TV, now time.Time) MergeStats {
	var stats MergeStats

	s.channels = dedupeChannels(tv.Channels)
	channelIDs := make(map[string]struct{}, len(s.channels))
	for _, c := range s.channels {
		channelIDs[c.ID] = struct{}{}
	}

	if !s.enabled {
		s.entries = make(map[programmeKey]*retained)
		s.size = 0
	}

	for k, e := range s.entries {
		e.latest = false
		if _, ok := channelIDs[k.channel]; !ok {
			s.evict(k)
			stats.Orphaned++
		}
	}

	for _, p := range tv.Programmes {
		if _, ok := channelIDs[p.Channel]; !ok {
			stats.Orphaned++
			continue
		}
		k := programmeKey{channel: p.Channel, start: p.Start}
		if _, ok := s.entries[k]; ok {
			s.evict(k)
			stats.Replaced++
		}
		e := &retained{programme: p, size: programmeSize(p), latest: true}
		s.entries[k] = e
		s.size += e.size
	}

	if s.enabled && s.days > 0 {
		cutoff := now.AddDate(0, 0, -s.days)
		for k, e := range s.entries {
			start, err := e.programme.StartTime()
			if err != nil || start.Before(cutoff) {
				s.evict(k)
				stats.EvictedAge++
			}
		}
	}

	if s.enabled && s.sizeCap > 0 && s.size > s.sizeCap {
		stats.EvictedSize = s.trimToCap()
	}

	stats.Retained = len(s.entries)
	return stats
}

// trimToCap evicts history entries oldest start first until the
// serialized size fits the cap. Latest-batch entries are never evicted.
func (s *Store) trimToCap() int {
	history := make([]programmeKey, 0, len(s.entries))
	for k, e := range s.entries {
		if !e.latest {
			history = append(history, k)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		if history[i].start != history[j].start {
			return history[i].start < history[j].start
		}
		return history[i].channel < history[j].channel
	})

	evicted := 0
	for _, k := range history {
		if s.size <= s.sizeCap {
			break
		}
		s.evict(k)
		evicted++
	}
	return evicted
}

func (s *Store) evict(k programmeKey) {
	if e, ok := s.entries[k]; ok {
		s.size -= e.size
		delete(s.entries, k)
	}
}

// Restore seeds the store from a previously rendered document, for
// example one loaded from the archive at boot. Restored entries count
// as history, not as a latest fetch batch.
func (s *Store) Restore(tv *TV) {
	s.channels = dedupeChannels(tv.Channels)
	s.entries = make(map[programmeKey]*retained, len(tv.Programmes))
	s.size = 0

	for _, p := range tv.Programmes {
		k := programmeKey{channel: p.Channel, start: p.Start}
		if _, ok := s.entries[k]; ok {
			continue
		}
		e := &retained{programme: p, size: programmeSize(p)}
		s.entries[k] = e
		s.size += e.size
	}
}

// Render serializes the current store contents as a guide document.
// Programmes are ordered by start time then channel so identical store
// contents always render identically.
func (s *Store) Render() ([]byte, error) {
	doc := &TV{
		GeneratorInfoName: "tvhmux",
		Channels:          s.channels,
		Programmes:        make([]Programme, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		doc.Programmes = append(doc.Programmes, e.programme)
	}
	sort.Slice(doc.Programmes, func(i, j int) bool {
		if doc.Programmes[i].Start != doc.Programmes[j].Start {
			return doc.Programmes[i].Start < doc.Programmes[j].Start
		}
		return doc.Programmes[i].Channel < doc.Programmes[j].Channel
	})

	return doc.Marshal()
}

// Len returns the number of retained programme entries
func (s *Store) Len() int {
	return len(s.entries)
}

// Size returns the total serialized size of retained entries in bytes
func (s *Store) Size() int64 {
	return s.size
}

// ChannelCount returns the number of channels from the latest fetch
func (s *Store) ChannelCount() int {
	return len(s.channels)
}

func dedupeChannels(channels []Channel) []Channel {
	byID := make(map[string]int, len(channels))
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if i, ok := byID[c.ID]; ok {
			out[i] = c
			continue
		}
		byID[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

func programmeSize(p Programme) int64 {
	b, err := xml.Marshal(p)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
