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

// WordPressPublisher covers both flavors of WordPress: self-hosted sites
// authenticated with an application password (Basic), and WordPress.com
// sites authenticated with an OAuth token (Bearer). The stored credential
// decides which path a connection takes.
type WordPressPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client

	// ComBaseURL is the WordPress.com public API root, overridable in tests.
	ComBaseURL string
}

func NewWordPressPublisher(logger *zap.Logger) *WordPressPublisher {
	return &WordPressPublisher{
		logger:     logger,
		client:     newClient(),
		preflight:  newPreflightClient(),
		ComBaseURL: "https://public-api.wordpress.com",
	}
}

func (p *WordPressPublisher) PlatformName() string {
	return models.PlatformWordPress
}

func (p *WordPressPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	if conn.Credential.AccessToken != "" {
		resp, err := p.preflight.R().SetContext(ctx).
			SetAuthToken(conn.Credential.AccessToken).
			Get(p.ComBaseURL + "/rest/v1.1/me")
		if err != nil {
			return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
		}
		if resp.IsError() {
			return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
		}
		return nil
	}

	user, pass, err := splitAppPassword(conn.Credential.APIKey)
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}

	resp, err := p.preflight.R().SetContext(ctx).
		SetBasicAuth(user, pass).
		Get(ensureScheme(conn.SiteURL) + "/wp-json/wp/v2/users/me")
	if err != nil {
		return &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
	}
	if resp.IsError() {
		return &ValidationError{Platform: p.PlatformName(), Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

func (p *WordPressPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	status := "publish"
	if opts.Draft {
		status = "draft"
	}

	body := map[string]interface{}{
		"title":   article.Title,
		"content": article.Content,
		"excerpt": article.MetaDescription,
		"status":  status,
	}

	req := p.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	var endpoint string
	if conn.Credential.AccessToken != "" {
		// WordPress.com-hosted: site id is the bare domain.
		req.SetAuthToken(conn.Credential.AccessToken)
		endpoint = fmt.Sprintf("%s/wp/v2/sites/%s/posts", p.ComBaseURL, hostOnly(conn.SiteURL))
	} else {
		user, pass, err := splitAppPassword(conn.Credential.APIKey)
		if err != nil {
			return nil, &ValidationError{Platform: p.PlatformName(), Reason: err.Error()}
		}
		req.SetBasicAuth(user, pass)

		endpoint = conn.Config["endpoint"]
		if endpoint == "" {
			endpoint = ensureScheme(conn.SiteURL) + "/wp-json/wp/v2/posts"
		}
	}

	var created map[string]interface{}
	resp, err := req.SetResult(&created).Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("wordpress request failed: %w", err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.PlatformName(), resp)
	}

	result := &PublishResult{
		Platform:         p.PlatformName(),
		ProviderResponse: created,
	}
	if id, ok := created["id"]; ok {
		result.ExternalID = fmt.Sprintf("%v", id)
	}
	if link, ok := created["link"].(string); ok {
		result.URL = link
	}
	return result, nil
}

// splitAppPassword parses the stored "user:application-password" pair.
func splitAppPassword(apiKey string) (string, string, error) {
	parts := strings.SplitN(apiKey, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("credential must be in user:application-password form")
	}
	return parts[0], parts[1], nil
}
