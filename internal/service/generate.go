package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/generator"
	"github.com/inkcast/inkcast/pkg/util"
)

// recentArticleWindow bounds how many prior articles feed the novelty
// avoid-list and internal link candidates.
const recentArticleWindow = 5

// GenerateService runs the content chain for a user and persists the result.
type GenerateService struct {
	logger *zap.Logger
	db     *gorm.DB
	chain  *generator.Chain
}

func NewGenerateService(cfg *config.GeneratorConfig, db *gorm.DB, logger *zap.Logger) *GenerateService {
	return &GenerateService{
		logger: logger,
		db:     db,
		chain:  generator.NewChain(cfg, logger),
	}
}

// NewGenerateServiceWithChain wires an explicit chain, used by tests.
func NewGenerateServiceWithChain(chain *generator.Chain, db *gorm.DB, logger *zap.Logger) *GenerateService {
	return &GenerateService{logger: logger, db: db, chain: chain}
}

// GenerateArticle runs the chain and inserts the article. The status is
// published when autoPublish is set, draft otherwise; actual dispatching is
// the caller's job.
func (s *GenerateService) GenerateArticle(ctx context.Context, userID, topicHint string, autoPublish bool) (*models.Article, *generator.Result, error) {
	brand := s.loadBrand(userID)
	recent := s.recentArticles(userID)

	req := generator.Request{
		Brand:         brand,
		TopicHint:     topicHint,
		AvoidPhrases:  recentTitles(recent),
		InternalPages: internalPages(brand, recent),
	}
	result := s.chain.Generate(ctx, req)

	status, publishedAt := generatedArticleStatus(autoPublish, time.Now().UTC())

	article := &models.Article{
		ID:              uuid.New().String(),
		UserID:          userID,
		Title:           result.Title,
		Content:         result.HTMLContent,
		MetaDescription: util.Truncate(result.Title, 160),
		Keywords:        brand.Keywords,
		Status:          status,
		PublishedAt:     publishedAt,
	}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return nil, nil, err
	}

	if err := s.IncrementUsage(ctx, userID); err != nil {
		s.logger.Error("Failed to increment monthly usage",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	s.logger.Info("Article created",
		zap.String("article_id", article.ID),
		zap.String("user_id", userID),
		zap.String("state", result.State),
		zap.String("status", status))
	return article, result, nil
}

// generatedArticleStatus decides the initial article status: published with a
// timestamp when auto-publish is on, draft otherwise.
func generatedArticleStatus(autoPublish bool, now time.Time) (string, *time.Time) {
	if autoPublish {
		return models.ArticleStatusPublished, &now
	}
	return models.ArticleStatusDraft, nil
}

// QuotaRemaining reports whether the user can still generate this month.
func (s *GenerateService) QuotaRemaining(ctx context.Context, userID string) (bool, error) {
	var settings models.ContentSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if settings.MonthlyQuota <= 0 {
		return true, nil
	}

	var usage models.MonthlyUsage
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, time.Now().UTC().Format("2006-01")).
		First(&usage).Error
	if err == gorm.ErrRecordNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return usage.ArticlesGenerated < settings.MonthlyQuota, nil
}

// IncrementUsage bumps the user's counter for the current calendar month.
func (s *GenerateService) IncrementUsage(ctx context.Context, userID string) error {
	month := time.Now().UTC().Format("2006-01")
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"articles_generated": gorm.Expr("monthly_usages.articles_generated + 1"),
			"updated_at":         time.Now().UTC(),
		}),
	}).Create(&models.MonthlyUsage{
		UserID:            userID,
		Month:             month,
		ArticlesGenerated: 1,
	}).Error
}

func (s *GenerateService) loadBrand(userID string) *models.BrandProfile {
	var brand models.BrandProfile
	err := s.db.Where("user_id = ?", userID).First(&brand).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Error("Failed to load brand profile",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return &models.BrandProfile{UserID: userID}
	}
	return &brand
}

func (s *GenerateService) recentArticles(userID string) []models.Article {
	var articles []models.Article
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(recentArticleWindow).
		Find(&articles).Error; err != nil {
		s.logger.Error("Failed to load recent articles",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return articles
}

func recentTitles(articles []models.Article) []string {
	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
	}
	return titles
}

// internalPages turns the user's published articles into same-site link
// candidates. Only works when the brand has a site URL to anchor them.
func internalPages(brand *models.BrandProfile, articles []models.Article) []generator.InternalPage {
	if brand.SiteURL == "" {
		return nil
	}

	site := brand.SiteURL
	for len(site) > 0 && site[len(site)-1] == '/' {
		site = site[:len(site)-1]
	}

	var pages []generator.InternalPage
	for _, a := range articles {
		if a.Status != models.ArticleStatusPublished {
			continue
		}
		pages = append(pages, generator.InternalPage{
			Title:    a.Title,
			URL:      site + "/blog/" + util.GenerateSlug(a.Title),
			Keywords: []string(a.Keywords),
		})
	}
	return pages
}
