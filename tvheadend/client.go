// Package tvheadend is a typed HTTP client for the upstream TVHeadend
// server. It performs no retries; retry policy belongs to the refresh
// orchestrator.
package tvheadend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tvhmux/tvhmux/m3u"
)

// ErrBackendUnavailable marks transport failures and non-success
// responses from the upstream server. Callers keep serving the last
// good artifacts when they see it.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Tag is a backend-defined channel grouping. Position is the
// server-defined ordinal used for playlist ordering.
type Tag struct {
	ID       string
	Name     string
	Position int
}

// Interface defines the contract for talking to the upstream server
type Interface interface {
	// ListTags returns the backend's tags in server order
	ListTags(ctx context.Context, auth string) ([]Tag, error)

	// ListChannels returns the channels of one tag as seen by one
	// credential. An empty result is not an error: the credential may
	// simply lack access to the tag.
	ListChannels(ctx context.Context, auth string, tag Tag) ([]m3u.Entry, error)

	// FetchEPG returns the raw XMLTV guide bytes
	FetchEPG(ctx context.Context, auth string) ([]byte, error)
}

// Client implements Interface against a real TVHeadend server
type Client struct {
	base   string
	client *http.Client
}

// New creates a new Client for the given base URL, e.g. "http://tvh:9981"
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// tagIDRE extracts the tag id from a /playlist/tagid/<n> URL
var tagIDRE = regexp.MustCompile(`/tagid/(\d+)`)

// ListTags fetches /playlist/tags and parses the tag M3U. The ordinal
// position of each tag is its position in the listing.
func (c *Client) ListTags(ctx context.Context, auth string) ([]Tag, error) {
	body, err := c.get(ctx, "/playlist/tags", auth)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	entries, err := m3u.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("list tags: failed to parse tag listing: %w", err)
	}

	var tags []Tag
	for _, e := range entries {
		match := tagIDRE.FindStringSubmatch(e.URL)
		if match == nil {
			continue
		}
		tags = append(tags, Tag{
			ID:       match[1],
			Name:     e.Name,
			Position: len(tags),
		})
	}

	return tags, nil
}

// ListChannels fetches the channel M3U for one tag
func (c *Client) ListChannels(ctx context.Context, auth string, tag Tag) ([]m3u.Entry, error) {
	body, err := c.get(ctx, "/playlist/tagid/"+tag.ID, auth)
	if err != nil {
		return nil, fmt.Errorf("list channels for tag %s: %w", tag.ID, err)
	}

	entries, err := m3u.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("list channels for tag %s: %w", tag.ID, err)
	}

	return entries, nil
}

// FetchEPG fetches the raw XMLTV guide
func (c *Client) FetchEPG(ctx context.Context, auth string) ([]byte, error) {
	body, err := c.get(ctx, "/xmltv/channels", auth)
	if err != nil {
		return nil, fmt.Errorf("fetch EPG: %w", err)
	}
	return body, nil
}

// get performs an authenticated GET against the backend
func (c *Client) get(ctx context.Context, path, auth string) ([]byte, error) {
	u := c.base + path
	if auth != "" {
		u += "?auth=" + url.QueryEscape(auth)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrBackendUnavailable, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrBackendUnavailable, err)
	}

	return body, nil
}
