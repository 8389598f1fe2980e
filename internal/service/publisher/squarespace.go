package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

// SquarespacePublisher pushes posts through the Squarespace commerce-style
// API with a personal API key.
type SquarespacePublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client

	// BaseURL overrides the Squarespace API root in tests.
	BaseURL string
}

func NewSquarespacePublisher(logger *zap.Logger) *SquarespacePublisher {
	return &SquarespacePublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
		BaseURL:   "https://api.squarespace.com/1.0",
	}
}

func (p *SquarespacePublisher) PlatformName() string {
	return models.PlatformSquarespace
}

func (p *SquarespacePublisher) Validate(ctx context.Context, conn *store.Connection) error {
	resp, err := p.preflight.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		Get(p.BaseURL + "/authorization/website")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *SquarespacePublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	endpoint := conn.Config["endpoint"]
	if endpoint == "" {
		endpoint = p.BaseURL + "/blog/posts"
	}

	body := map[string]interface{}{
		"title":   article.Title,
		"body":    article.Content,
		"excerpt": article.MetaDescription,
		"tags":    article.Keywords,
		"status":  map[bool]string{true: "DRAFT", false: "PUBLISHED"}[opts.Draft],
	}

	var created map[string]interface{}
	resp, err := p.client.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("squarespace request failed: %w", err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.PlatformName(), resp)
	}

	result := &PublishResult{
		Platform:         p.PlatformName(),
		ProviderResponse: created,
	}
	if id, ok := created["id"].(string); ok {
		result.ExternalID = id
	}
	return result, nil
}
