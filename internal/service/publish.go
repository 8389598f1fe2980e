package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/publisher"
	"github.com/inkcast/inkcast/internal/service/store"
)

// PublishService dispatches articles to connected CMS platforms and keeps the
// publish audit trail.
type PublishService struct {
	logger  *zap.Logger
	db      *gorm.DB
	store   *store.Store
	manager *publisher.Manager
}

func NewPublishService(db *gorm.DB, connStore *store.Store, logger *zap.Logger) *PublishService {
	service := &PublishService{
		logger:  logger,
		db:      db,
		store:   connStore,
		manager: publisher.NewManager(logger),
	}

	service.registerPublishers()
	return service
}

// registerPublishers wires one publisher per registered platform. Wix and
// Shopify get the store as persister so discovered ids stick.
func (s *PublishService) registerPublishers() {
	publishers := []publisher.Publisher{
		publisher.NewWordPressPublisher(s.logger),
		publisher.NewShopifyPublisher(s.logger, s.store),
		publisher.NewWixPublisher(s.logger, s.store),
		publisher.NewNotionPublisher(s.logger),
		publisher.NewGhostPublisher(s.logger),
		publisher.NewWebflowPublisher(s.logger),
		publisher.NewSquarespacePublisher(s.logger),
		publisher.NewWebhookPublisher(models.PlatformZapier, s.logger),
		publisher.NewWebhookPublisher(models.PlatformWebhook, s.logger),
	}

	for _, p := range publishers {
		if err := s.manager.Register(p); err != nil {
			s.logger.Error("Failed to register publisher",
				zap.String("platform", p.PlatformName()),
				zap.Error(err))
		}
	}
}

// Manager exposes the dispatch layer for connection validation.
func (s *PublishService) Manager() *publisher.Manager {
	return s.manager
}

// PublishArticle publishes one article through one connection. The article
// transitions to published only after the provider accepts it.
func (s *PublishService) PublishArticle(ctx context.Context, userID, articleID, connectionID string, opts publisher.PublishOptions) (*publisher.PublishResult, error) {
	article, err := s.loadArticle(userID, articleID)
	if err != nil {
		return nil, err
	}

	conn, err := s.store.ResolveForPublish(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	result, err := s.manager.Publish(ctx, publisher.FromArticle(article), conn, opts)
	s.recordJob(article.ID, conn, result, err)
	if err != nil {
		return nil, err
	}
	s.markSynced(ctx, conn, result.PublishedAt)

	if !opts.Draft {
		s.markPublished(article, result.PublishedAt)
	}
	return result, nil
}

// PublishToAllConnections pushes the article through every active connection
// of the user. One failing platform never blocks the others; failures come
// back keyed by connection id.
func (s *PublishService) PublishToAllConnections(ctx context.Context, userID, articleID string) (map[string]*publisher.PublishResult, map[string]error, error) {
	article, err := s.loadArticle(userID, articleID)
	if err != nil {
		return nil, nil, err
	}

	conns, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	results := make(map[string]*publisher.PublishResult)
	failures := make(map[string]error)
	content := publisher.FromArticle(article)

	for i := range conns {
		conn := &conns[i]
		result, perr := s.manager.Publish(ctx, content, conn, publisher.PublishOptions{})
		s.recordJob(article.ID, conn, result, perr)
		if perr != nil {
			failures[conn.ID] = perr
			continue
		}
		s.markSynced(ctx, conn, result.PublishedAt)
		results[conn.ID] = result
	}

	if len(results) > 0 {
		s.markPublished(article, time.Now().UTC())
	}

	s.logger.Info("Publish fan-out finished",
		zap.String("article_id", article.ID),
		zap.Int("succeeded", len(results)),
		zap.Int("failed", len(failures)))
	return results, failures, nil
}

// GetPublishHistory returns the audit rows for an article, newest first.
func (s *PublishService) GetPublishHistory(ctx context.Context, articleID string) ([]*models.PublishJob, error) {
	var jobs []*models.PublishJob
	if err := s.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *PublishService) loadArticle(userID, articleID string) (*models.Article, error) {
	var article models.Article
	err := s.db.Where("id = ? AND user_id = ?", articleID, userID).First(&article).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ArticleNotFoundError{UserID: userID, ArticleID: articleID}
		}
		return nil, err
	}
	return &article, nil
}

// markSynced is best-effort; a missed sync stamp never fails a publish.
func (s *PublishService) markSynced(ctx context.Context, conn *store.Connection, at time.Time) {
	if err := s.store.MarkSynced(ctx, conn, at); err != nil {
		s.logger.Error("Failed to record connection sync time",
			zap.String("connection_id", conn.ID),
			zap.Error(err))
	}
}

func (s *PublishService) markPublished(article *models.Article, at time.Time) {
	article.Status = models.ArticleStatusPublished
	article.PublishedAt = &at
	if err := s.db.Model(article).Updates(map[string]interface{}{
		"status":       models.ArticleStatusPublished,
		"published_at": at,
	}).Error; err != nil {
		s.logger.Error("Failed to update article status",
			zap.String("article_id", article.ID),
			zap.Error(err))
	}
}

// recordJob writes the audit row for one publish attempt.
func (s *PublishService) recordJob(articleID string, conn *store.Connection, result *publisher.PublishResult, publishErr error) {
	job := &models.PublishJob{
		ArticleID:    articleID,
		ConnectionID: conn.ID,
		Platform:     conn.Platform,
	}

	if publishErr != nil {
		job.Status = models.JobStatusFailed
		job.Error = publishErr.Error()
	} else {
		job.Status = models.JobStatusCompleted
		job.PublishedAt = &result.PublishedAt
	}

	if err := s.db.Create(job).Error; err != nil {
		s.logger.Error("Failed to record publish job",
			zap.String("article_id", articleID),
			zap.String("platform", conn.Platform),
			zap.Error(err))
	}
}
