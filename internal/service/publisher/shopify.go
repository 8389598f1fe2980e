package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

const shopifyTokenHeader = "X-Shopify-Access-Token"

// ShopifyPublisher posts articles to a shop blog. Shopify requires a blog id
// that is not part of the connection handshake, so the first publish
// discovers the shop's default blog and caches it on the install record.
type ShopifyPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client
	persister ConfigPersister

	// BaseURL overrides the per-shop admin API root in tests.
	BaseURL string
}

func NewShopifyPublisher(logger *zap.Logger, persister ConfigPersister) *ShopifyPublisher {
	return &ShopifyPublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
		persister: persister,
	}
}

func (p *ShopifyPublisher) PlatformName() string {
	return models.PlatformShopify
}

func (p *ShopifyPublisher) apiBase(conn *store.Connection) string {
	if p.BaseURL != "" {
		return p.BaseURL
	}

	shop := conn.Config[store.ConfigShop]
	if shop == "" {
		shop = hostOnly(conn.SiteURL)
	}
	return fmt.Sprintf("https://%s/admin/api/2024-01", shop)
}

func (p *ShopifyPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	resp, err := p.preflight.R().SetContext(ctx).
		SetHeader(shopifyTokenHeader, conn.Credential.AccessToken).
		Get(p.apiBase(conn) + "/shop.json")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *ShopifyPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	blogID := conn.Config[store.ConfigBlogID]
	if blogID == "" {
		discovered, err := p.discoverBlogID(ctx, conn)
		if err != nil {
			return nil, err
		}
		blogID = discovered

		// Cache for future publishes; discovery failure next time is cheap,
		// so a write error only gets logged.
		if err := p.persister.SetConfigValue(ctx, conn, store.ConfigBlogID, blogID); err != nil {
			p.logger.Warn("Failed to persist discovered blog id",
				zap.String("connection_id", conn.ID),
				zap.Error(err))
		}
	}

	body := map[string]interface{}{
		"article": map[string]interface{}{
			"title":     article.Title,
			"body_html": article.Content,
			"tags":      strings.Join(article.Keywords, ", "),
			"published": !opts.Draft,
		},
	}

	var created struct {
		Article map[string]interface{} `json:"article"`
	}
	resp, err := p.client.R().SetContext(ctx).
		SetHeader(shopifyTokenHeader, conn.Credential.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post(fmt.Sprintf("%s/blogs/%s/articles.json", p.apiBase(conn), blogID))
	if err != nil {
		return nil, fmt.Errorf("shopify request failed: %w", err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.PlatformName(), resp)
	}

	result := &PublishResult{
		Platform:         p.PlatformName(),
		ProviderResponse: created.Article,
	}
	if id, ok := created.Article["id"]; ok {
		result.ExternalID = fmt.Sprintf("%v", id)
	}
	return result, nil
}

// discoverBlogID resolves the shop's default blog via the blogs listing.
func (p *ShopifyPublisher) discoverBlogID(ctx context.Context, conn *store.Connection) (string, error) {
	var listing struct {
		Blogs []struct {
			ID int64 `json:"id"`
		} `json:"blogs"`
	}

	resp, err := p.preflight.R().SetContext(ctx).
		SetHeader(shopifyTokenHeader, conn.Credential.AccessToken).
		SetResult(&listing).
		Get(p.apiBase(conn) + "/blogs.json")
	if err != nil {
		return "", fmt.Errorf("shopify blog discovery failed: %w", err)
	}
	if resp.IsError() {
		return "", publishErrorFrom(p.PlatformName(), resp)
	}
	if len(listing.Blogs) == 0 {
		return "", &ValidationError{Platform: p.PlatformName(), Reason: "shop has no blogs"}
	}

	blogID := fmt.Sprintf("%d", listing.Blogs[0].ID)
	p.logger.Info("Discovered Shopify blog",
		zap.String("connection_id", conn.ID),
		zap.String("blog_id", blogID))
	return blogID, nil
}
