package publisher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/service/store"
)

// Manager dispatches publish requests to platform publishers. It holds no
// provider-specific knowledge beyond the lookup.
type Manager struct {
	logger     *zap.Logger
	publishers map[string]Publisher
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:     logger,
		publishers: make(map[string]Publisher),
	}
}

func (m *Manager) Register(p Publisher) error {
	name := p.PlatformName()
	if _, exists := m.publishers[name]; exists {
		return fmt.Errorf("publisher for platform %s already registered", name)
	}

	m.publishers[name] = p
	m.logger.Info("Publisher registered", zap.String("platform", name))
	return nil
}

func (m *Manager) Get(platform string) (Publisher, error) {
	p, exists := m.publishers[platform]
	if !exists {
		return nil, fmt.Errorf("publisher for platform %s not found", platform)
	}
	return p, nil
}

// Publish routes the article to the connection's platform publisher. An
// inactive connection never reaches a provider call.
func (m *Manager) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	if conn == nil || !conn.IsActive {
		id := ""
		userID := ""
		if conn != nil {
			id = conn.ID
			userID = conn.UserID
		}
		return nil, &store.ConnectionNotFoundError{UserID: userID, ConnectionID: id}
	}

	p, err := m.Get(conn.Platform)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Publishing article",
		zap.String("article_id", article.ID),
		zap.String("platform", conn.Platform),
		zap.String("site_url", conn.SiteURL))

	result, err := p.Publish(ctx, article, conn, opts)
	if err != nil {
		m.logger.Error("Publish failed",
			zap.String("article_id", article.ID),
			zap.String("platform", conn.Platform),
			zap.Error(err))
		return nil, err
	}

	// Providers report their own payloads; the acceptance time is stamped
	// here so callers never see a zero timestamp.
	if result.PublishedAt.IsZero() {
		result.PublishedAt = time.Now().UTC()
	}

	m.logger.Info("Publish completed",
		zap.String("article_id", article.ID),
		zap.String("platform", conn.Platform),
		zap.String("external_id", result.ExternalID))
	return result, nil
}

// Validate runs the platform's pre-flight connection check.
func (m *Manager) Validate(ctx context.Context, conn *store.Connection) error {
	p, err := m.Get(conn.Platform)
	if err != nil {
		return err
	}
	return p.Validate(ctx, conn)
}
