package publisher

import (
	"fmt"

	"github.com/inkcast/inkcast/internal/models"
)

// AuthScheme distinguishes how a platform is authorized.
type AuthScheme string

const (
	// AuthOAuth2Code platforms go through the authorization-code exchange.
	AuthOAuth2Code AuthScheme = "oauth2-code"
	// AuthStaticCredential platforms connect with a user-supplied key.
	AuthStaticCredential AuthScheme = "static-credential"
)

// Credential field names used by the normalized connection model.
const (
	CredentialAccessToken = "accessToken"
	CredentialAPIKey      = "apiKey"
)

// Capability is the static per-platform metadata record. Pure data, no I/O:
// adding a platform means one entry here plus one publisher implementation.
type Capability struct {
	Platform        string
	AuthScheme      AuthScheme
	CredentialField string

	// Endpoint builds the publish endpoint for a destination.
	Endpoint func(siteURL string) string

	// AuthorizeURL and TokenURL are set for oauth2-code platforms. They take
	// the site because Shopify hosts both endpoints on the shop itself.
	AuthorizeURL func(siteURL string) string
	TokenURL     func(siteURL string) string
	Scope        string

	// RequiredConfig lists config keys a connection must carry (or be able
	// to discover) before publishing.
	RequiredConfig []string
}

var registry = map[string]Capability{
	models.PlatformWordPress: {
		Platform:        models.PlatformWordPress,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint: func(siteURL string) string {
			return fmt.Sprintf("%s/wp-json/wp/v2/posts", siteURL)
		},
		// WordPress.com-hosted sites also arrive here, but via OAuth; the
		// authorize endpoints stay registered so both paths share one entry.
		AuthorizeURL: func(string) string { return "https://public-api.wordpress.com/oauth2/authorize" },
		TokenURL:     func(string) string { return "https://public-api.wordpress.com/oauth2/token" },
		Scope:        "global",
	},
	models.PlatformShopify: {
		Platform:        models.PlatformShopify,
		AuthScheme:      AuthOAuth2Code,
		CredentialField: CredentialAccessToken,
		Endpoint: func(siteURL string) string {
			return fmt.Sprintf("https://%s/admin/api/2024-01", siteURL)
		},
		AuthorizeURL: func(siteURL string) string {
			return fmt.Sprintf("https://%s/admin/oauth/authorize", siteURL)
		},
		TokenURL: func(siteURL string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", siteURL)
		},
		Scope:          "read_content,write_content",
		RequiredConfig: []string{"blogId"},
	},
	models.PlatformWix: {
		Platform:        models.PlatformWix,
		AuthScheme:      AuthOAuth2Code,
		CredentialField: CredentialAccessToken,
		Endpoint:        func(string) string { return "https://www.wixapis.com/blog/v3/draft-posts" },
		AuthorizeURL:    func(string) string { return "https://www.wix.com/installer/install" },
		TokenURL:        func(string) string { return "https://www.wixapis.com/oauth/access" },
		Scope:           "BLOG.CREATE-DRAFT,BLOG.PUBLISH",
		RequiredConfig:  []string{"memberId"},
	},
	models.PlatformNotion: {
		Platform:        models.PlatformNotion,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint:        func(string) string { return "https://api.notion.com/v1/pages" },
		RequiredConfig:  []string{"databaseId"},
	},
	models.PlatformGhost: {
		Platform:        models.PlatformGhost,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint: func(siteURL string) string {
			return fmt.Sprintf("%s/ghost/api/admin/posts/", siteURL)
		},
	},
	models.PlatformWebflow: {
		Platform:        models.PlatformWebflow,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint:        func(string) string { return "https://api.webflow.com/v2" },
		RequiredConfig:  []string{"collectionId"},
	},
	models.PlatformSquarespace: {
		Platform:        models.PlatformSquarespace,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint:        func(string) string { return "https://api.squarespace.com/1.0" },
	},
	models.PlatformZapier: {
		Platform:        models.PlatformZapier,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint:        func(siteURL string) string { return siteURL },
	},
	models.PlatformWebhook: {
		Platform:        models.PlatformWebhook,
		AuthScheme:      AuthStaticCredential,
		CredentialField: CredentialAPIKey,
		Endpoint:        func(siteURL string) string { return siteURL },
	},
}

// Lookup returns the capability record for a platform.
func Lookup(platform string) (Capability, bool) {
	cap, ok := registry[platform]
	return cap, ok
}

// Platforms returns every registered platform name.
func Platforms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
