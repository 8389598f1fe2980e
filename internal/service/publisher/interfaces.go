package publisher

import (
	"context"
	"time"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

// ArticleContent is the normalized payload handed to every publisher.
type ArticleContent struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"` // HTML
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
}

// PublishResult is the uniform outcome of a publish call.
type PublishResult struct {
	Platform         string                 `json:"platform"`
	ExternalID       string                 `json:"external_id,omitempty"`
	URL              string                 `json:"url,omitempty"`
	ProviderResponse map[string]interface{} `json:"provider_response,omitempty"`
	PublishedAt      time.Time              `json:"published_at"`
}

// PublishOptions tweak a single publish call.
type PublishOptions struct {
	// Draft asks the platform for a draft instead of a live post, where the
	// platform supports the distinction.
	Draft bool
}

// Publisher is implemented once per platform. Implementations own every
// provider quirk: endpoint shape, auth header, payload mapping, preflights.
type Publisher interface {
	PlatformName() string

	// Validate performs the pre-flight check used before persisting a
	// static-credential connection.
	Validate(ctx context.Context, conn *store.Connection) error

	// Publish pushes the article through the connection. A provider
	// rejection surfaces as *PublishError.
	Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error)
}

// ConfigPersister writes discovered per-connection values (Shopify blog id,
// Wix member id) back to storage. *store.Store satisfies it.
type ConfigPersister interface {
	SetConfigValue(ctx context.Context, conn *store.Connection, key, value string) error
}

// FromArticle converts the stored model into the publish payload.
func FromArticle(a *models.Article) *ArticleContent {
	return &ArticleContent{
		ID:              a.ID,
		Title:           a.Title,
		Content:         a.Content,
		MetaDescription: a.MetaDescription,
		Keywords:        []string(a.Keywords),
	}
}
