package tvheadend

import (
	"context"

	"github.com/tvhmux/tvhmux/m3u"
)

// MockClient is a mock implementation of the Interface for testing
type MockClient struct {
	ListTagsFunc     func(ctx context.Context, auth string) ([]Tag, error)
	ListChannelsFunc func(ctx context.Context, auth string, tag Tag) ([]m3u.Entry, error)
	FetchEPGFunc     func(ctx context.Context, auth string) ([]byte, error)
}

// ListTags implements Interface.ListTags
func (m *MockClient) ListTags(ctx context.Context, auth string) ([]Tag, error) {
	if m.ListTagsFunc != nil {
		return m.ListTagsFunc(ctx, auth)
	}
	return nil, nil
}

// ListChannels implements Interface.ListChannels
func (m *MockClient) ListChannels(ctx context.Context, auth string, tag Tag) ([]m3u.Entry, error) {
	if m.ListChannelsFunc != nil {
		return m.ListChannelsFunc(ctx, auth, tag)
	}
	return nil, nil
}

// FetchEPG implements Interface.FetchEPG
func (m *MockClient) FetchEPG(ctx context.Context, auth string) ([]byte, error) {
	if m.FetchEPGFunc != nil {
		return m.FetchEPGFunc(ctx, auth)
	}
	return nil, nil
}
