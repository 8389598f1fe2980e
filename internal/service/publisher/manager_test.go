package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/service/store"
)

type stubPublisher struct {
	platform    string
	published   *ArticleContent
	publishedAt time.Time
	err         error
}

func (s *stubPublisher) PlatformName() string { return s.platform }

func (s *stubPublisher) Validate(context.Context, *store.Connection) error { return nil }

func (s *stubPublisher) Publish(_ context.Context, article *ArticleContent, _ *store.Connection, _ PublishOptions) (*PublishResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.published = article
	return &PublishResult{Platform: s.platform, ExternalID: "ext-1", PublishedAt: s.publishedAt}, nil
}

func activeConn(platform string) *store.Connection {
	return &store.Connection{
		ID:       "conn-1",
		UserID:   "user-1",
		Platform: platform,
		SiteURL:  "https://example.com",
		IsActive: true,
	}
}

func TestManagerRejectsDuplicateRegistration(t *testing.T) {
	m := NewManager(zap.NewNop())
	require.NoError(t, m.Register(&stubPublisher{platform: "ghost"}))
	assert.Error(t, m.Register(&stubPublisher{platform: "ghost"}))
}

func TestManagerPublishDelegates(t *testing.T) {
	m := NewManager(zap.NewNop())
	stub := &stubPublisher{platform: "ghost"}
	require.NoError(t, m.Register(stub))

	article := &ArticleContent{ID: "a-1", Title: "Hello"}
	result, err := m.Publish(context.Background(), article, activeConn("ghost"), PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", result.ExternalID)
	assert.Equal(t, article, stub.published)
}

func TestManagerStampsPublishTime(t *testing.T) {
	m := NewManager(zap.NewNop())
	require.NoError(t, m.Register(&stubPublisher{platform: "ghost"}))

	before := time.Now().UTC()
	result, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, activeConn("ghost"), PublishOptions{})
	require.NoError(t, err)

	assert.False(t, result.PublishedAt.IsZero())
	assert.False(t, result.PublishedAt.Before(before))
	assert.False(t, result.PublishedAt.After(time.Now().UTC()))
}

func TestManagerKeepsProviderPublishTime(t *testing.T) {
	m := NewManager(zap.NewNop())
	reported := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Register(&stubPublisher{platform: "ghost", publishedAt: reported}))

	result, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, activeConn("ghost"), PublishOptions{})
	require.NoError(t, err)

	assert.Equal(t, reported, result.PublishedAt)
}

func TestManagerRefusesInactiveConnection(t *testing.T) {
	m := NewManager(zap.NewNop())
	stub := &stubPublisher{platform: "ghost"}
	require.NoError(t, m.Register(stub))

	conn := activeConn("ghost")
	conn.IsActive = false

	_, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, conn, PublishOptions{})

	var notFound *store.ConnectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "conn-1", notFound.ConnectionID)
	assert.Nil(t, stub.published, "inactive connection must never reach the provider")
}

func TestManagerRefusesNilConnection(t *testing.T) {
	m := NewManager(zap.NewNop())

	_, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, nil, PublishOptions{})

	var notFound *store.ConnectionNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestManagerUnknownPlatform(t *testing.T) {
	m := NewManager(zap.NewNop())

	_, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, activeConn("ghost"), PublishOptions{})
	assert.Error(t, err)
}

func TestManagerPropagatesPublishError(t *testing.T) {
	m := NewManager(zap.NewNop())
	boom := &PublishError{Platform: "ghost", Status: 500, Body: "boom"}
	require.NoError(t, m.Register(&stubPublisher{platform: "ghost", err: boom}))

	_, err := m.Publish(context.Background(), &ArticleContent{ID: "a-1"}, activeConn("ghost"), PublishOptions{})

	var publishErr *PublishError
	require.True(t, errors.As(err, &publishErr))
	assert.Equal(t, 500, publishErr.Status)
}
