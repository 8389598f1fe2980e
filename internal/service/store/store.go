// Package store merges the three connection storage shapes (generic CMS
// connections, Shopify installs, Wix connections) into one normalized
// Connection model. Provider-native column names stop at this boundary.
package store

import (
	"context"
	"fmt"
	"time"
)

// Credential is either an OAuth access token or a static API key; the
// platform determines which one is set.
type Credential struct {
	AccessToken string `json:"access_token,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
}

// Connection is the normalized view of one authorized publishing destination.
type Connection struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Platform    string            `json:"platform"`
	SiteURL     string            `json:"site_url"`
	Credential  Credential        `json:"-"`
	Config      map[string]string `json:"config"`
	IsActive    bool              `json:"is_active"`
	ConnectedAt time.Time         `json:"connected_at"`
	LastSyncAt  *time.Time        `json:"last_sync_at"`
}

// ConnectionNotFoundError is returned when no active connection matches, or
// the match belongs to a different user.
type ConnectionNotFoundError struct {
	UserID       string
	ConnectionID string
}

func (e *ConnectionNotFoundError) Error() string {
	return fmt.Sprintf("connection %s not found for user %s", e.ConnectionID, e.UserID)
}

// ConnectionRepository is implemented once per backing table.
type ConnectionRepository interface {
	// Handles reports whether this repository owns the given platform.
	Handles(platform string) bool

	ListActive(ctx context.Context, userID string) ([]Connection, error)

	// Get returns the active connection with the given id, or nil when this
	// repository has no matching row.
	Get(ctx context.Context, userID, connectionID string) (*Connection, error)

	// Upsert inserts or replaces on the repository's natural conflict key;
	// the incoming credential and config win.
	Upsert(ctx context.Context, conn *Connection) error

	// SoftDelete deactivates matching rows and returns how many were hit.
	// An empty siteURL matches every row of the user on this repository.
	SoftDelete(ctx context.Context, userID, siteURL string) (int64, error)

	// SetConfigValue persists a single discovered config value (e.g. the Wix
	// memberId or Shopify blog id) back onto the stored connection.
	SetConfigValue(ctx context.Context, userID, connectionID, key, value string) error

	// TouchSync records when the connection last delivered content.
	TouchSync(ctx context.Context, userID, connectionID string, at time.Time) error
}
