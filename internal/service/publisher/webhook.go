package publisher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/service/store"
)

// WebhookPublisher POSTs the article as JSON to a caller-provided URL. It
// backs both the zapier and webhook platforms: the only difference is the
// platform label on the connection.
type WebhookPublisher struct {
	platform string
	logger   *zap.Logger
	client   *resty.Client
}

func NewWebhookPublisher(platform string, logger *zap.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		platform: platform,
		logger:   logger,
		client:   newClient(),
	}
}

func (p *WebhookPublisher) PlatformName() string {
	return p.platform
}

func (p *WebhookPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	u, err := url.Parse(conn.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Platform: p.platform, Reason: "destination must be an absolute http(s) URL"}
	}
	return nil
}

func (p *WebhookPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	body := map[string]interface{}{
		"event":        "article.published",
		"published_at": time.Now().UTC().Format(time.RFC3339),
		"article": map[string]interface{}{
			"id":               article.ID,
			"title":            article.Title,
			"content":          article.Content,
			"meta_description": article.MetaDescription,
			"keywords":         article.Keywords,
		},
	}

	req := p.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	// Optional shared secret so receivers can verify the sender.
	if secret := conn.Config["secret"]; secret != "" {
		req.SetHeader("X-Webhook-Secret", secret)
	}

	resp, err := req.Post(conn.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.platform, err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.platform, resp)
	}

	return &PublishResult{
		Platform: p.platform,
		ProviderResponse: map[string]interface{}{
			"status": resp.StatusCode(),
			"body":   resp.String(),
		},
	}, nil
}
