package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
	"github.com/inkcast/inkcast/pkg/util"
)

// WebflowPublisher creates items in a CMS collection. The collection id is
// part of the connection config; Webflow has no discoverable default.
type WebflowPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client

	// BaseURL overrides the Webflow API root in tests.
	BaseURL string
}

func NewWebflowPublisher(logger *zap.Logger) *WebflowPublisher {
	return &WebflowPublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
		BaseURL:   "https://api.webflow.com/v2",
	}
}

func (p *WebflowPublisher) PlatformName() string {
	return models.PlatformWebflow
}

func (p *WebflowPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	if conn.Config["collectionId"] == "" {
		return &ValidationError{Platform: p.PlatformName(), Reason: "missing collectionId"}
	}

	resp, err := p.preflight.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		Get(p.BaseURL + "/token/authorized_by")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *WebflowPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	collectionID := conn.Config["collectionId"]
	if collectionID == "" {
		return nil, &ValidationError{Platform: p.PlatformName(), Reason: "missing collectionId"}
	}

	body := map[string]interface{}{
		"isDraft": opts.Draft,
		"fieldData": map[string]interface{}{
			"name":         article.Title,
			"slug":         util.GenerateSlug(article.Title),
			"post-body":    article.Content,
			"post-summary": article.MetaDescription,
		},
	}

	var created map[string]interface{}
	resp, err := p.client.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post(fmt.Sprintf("%s/collections/%s/items", p.BaseURL, collectionID))
	if err != nil {
		return nil, fmt.Errorf("webflow request failed: %w", err)
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
