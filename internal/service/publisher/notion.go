package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

const notionDefaultVersion = "2022-06-28"

// NotionPublisher creates pages in a Notion database via an internal
// integration token.
type NotionPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client

	// BaseURL overrides the Notion API root in tests.
	BaseURL string
}

func NewNotionPublisher(logger *zap.Logger) *NotionPublisher {
	return &NotionPublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
		BaseURL:   "https://api.notion.com",
	}
}

func (p *NotionPublisher) PlatformName() string {
	return models.PlatformNotion
}

func (p *NotionPublisher) apiVersion(conn *store.Connection) string {
	if v := conn.Config["notionVersion"]; v != "" {
		return v
	}
	return notionDefaultVersion
}

func (p *NotionPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	if conn.Config["databaseId"] == "" {
		return &ValidationError{Platform: p.PlatformName(), Reason: "missing databaseId"}
	}

	resp, err := p.preflight.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		SetHeader("Notion-Version", p.apiVersion(conn)).
		Get(p.BaseURL + "/v1/users/me")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *NotionPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	databaseID := conn.Config["databaseId"]
	if databaseID == "" {
		return nil, &ValidationError{Platform: p.PlatformName(), Reason: "missing databaseId"}
	}

	body := map[string]interface{}{
		"parent": map[string]interface{}{"database_id": databaseID},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []map[string]interface{}{
					{"text": map[string]interface{}{"content": article.Title}},
				},
			},
		},
		"children": []map[string]interface{}{
			{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]interface{}{
					"rich_text": []map[string]interface{}{
						{"type": "text", "text": map[string]interface{}{"content": article.Content}},
					},
				},
			},
		},
	}

	var created map[string]interface{}
	resp, err := p.client.R().SetContext(ctx).
		SetAuthToken(conn.Credential.APIKey).
		SetHeader("Notion-Version", p.apiVersion(conn)).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post(p.BaseURL + "/v1/pages")
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
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
	if url, ok := created["url"].(string); ok {
		result.URL = url
	}
	return result, nil
}
