package publisher

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

// GhostPublisher posts to the Ghost Admin API. The stored credential is the
// admin key in id:secret form; each request carries a short-lived token
// signed with the hex-decoded secret, sent as "Ghost {token}".
type GhostPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client
}

func NewGhostPublisher(logger *zap.Logger) *GhostPublisher {
	return &GhostPublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
	}
}

func (p *GhostPublisher) PlatformName() string {
	return models.PlatformGhost
}

func (p *GhostPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	token, err := ghostToken(conn.Credential.APIKey)
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}

	resp, err := p.preflight.R().SetContext(ctx).
		SetHeader("Authorization", "Ghost "+token).
		Get(ensureScheme(conn.SiteURL) + "/ghost/api/admin/site/")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *GhostPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	token, err := ghostToken(conn.Credential.APIKey)
	if err != nil {
		return nil, &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}

	status := "published"
	if opts.Draft {
		status = "draft"
	}

	body := map[string]interface{}{
		"posts": []map[string]interface{}{
			{
				"title":          article.Title,
				"html":           article.Content,
				"custom_excerpt": article.MetaDescription,
				"tags":           article.Keywords,
				"status":         status,
			},
		},
	}

	var created struct {
		Posts []map[string]interface{} `json:"posts"`
	}
	resp, err := p.client.R().SetContext(ctx).
		SetHeader("Authorization", "Ghost "+token).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("source", "html").
		SetBody(body).
		SetResult(&created).
		Post(ensureScheme(conn.SiteURL) + "/ghost/api/admin/posts/")
	if err != nil {
		return nil, fmt.Errorf("ghost request failed: %w", err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.PlatformName(), resp)
	}

	result := &PublishResult{
		Platform: p.PlatformName(),
	}
	if len(created.Posts) > 0 {
		result.ProviderResponse = created.Posts[0]
		if id, ok := created.Posts[0]["id"].(string); ok {
			result.ExternalID = id
		}
		if url, ok := created.Posts[0]["url"].(string); ok {
			result.URL = url
		}
	}
	return result, nil
}

// ghostToken builds the 5-minute admin token Ghost expects from an
// id:secret admin key.
func ghostToken(adminKey string) (string, error) {
	parts := strings.SplitN(adminKey, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("admin key must be in id:secret form")
	}

	secret, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("admin key secret is not valid hex: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = parts[0]
	return token.SignedString(secret)
}
