package playlist

import (
	"context"
	"fmt"

	"github.com/tvhmux/tvhmux/config"
	"github.com/tvhmux/tvhmux/m3u"
	"github.com/tvhmux/tvhmux/tvheadend"
)

// Merger combines per-tag, per-credential channel fetches into a single
// ordered Document.
type Merger struct {
	client              tvheadend.Interface
	credentials         []config.Credential
	authSecret          string
	profileParam        string
	appendIconAuth      bool
	suppressEmptyGroups bool
}

// NewMerger creates a Merger from the application configuration
func NewMerger(client tvheadend.Interface, cfg *config.Config) *Merger {
	return &Merger{
		client:              client,
		credentials:         cfg.Credentials,
		authSecret:          cfg.EPGAuth(),
		profileParam:        cfg.Backend.ProfileParam,
		appendIconAuth:      cfg.AppendIconAuth,
		suppressEmptyGroups: cfg.SuppressEmptyGroups,
	}
}

// Build fetches channel lists for every tag and credential and merges
// them into one Document. Output order is tag-major (ascending server
// position), credential-minor (configured order), so the result is
// deterministic for identical backend state and configuration.
//
// Duplicate channels across credentials or tags are kept: entries have
// no cross-fetch identity, so no deduplication is attempted.
//
// Any backend failure aborts the build; a partial playlist is never
// returned.
func (m *Merger) Build(ctx context.Context) (*Document, error) {
	tags, err := m.client.ListTags(ctx, m.authSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	doc := &Document{}
	for _, tag := range tags {
		group := Group{Tag: tag}

		for _, cred := range m.credentials {
			entries, err := m.client.ListChannels(ctx, cred.Password, tag)
			if err != nil {
				return nil, fmt.Errorf("failed to list channels for tag %q as %s: %w", tag.Name, cred.Username, err)
			}

			for _, e := range entries {
				group.Entries = append(group.Entries, m.rewrite(e, tag))
			}
		}

		if len(group.Entries) == 0 && m.suppressEmptyGroups {
			continue
		}
		doc.Groups = append(doc.Groups, group)
	}

	return doc, nil
}

// rewrite applies the URL and metadata rewrite steps to one entry
func (m *Merger) rewrite(e m3u.Entry, tag tvheadend.Tag) m3u.Entry {
	return rewriteEntry(e, tag.Name, m.authSecret, m.profileParam, m.appendIconAuth)
}
