package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the merging facade over the three connection repositories.
type Store struct {
	logger *zap.Logger
	repos  []ConnectionRepository // resolve order: generic, wix, shopify
}

func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return NewStoreWithRepositories(logger,
		NewGenericRepository(db),
		NewWixRepository(db),
		NewShopifyRepository(db),
	)
}

// NewStoreWithRepositories wires explicit repositories; the order given is
// the resolve order.
func NewStoreWithRepositories(logger *zap.Logger, repos ...ConnectionRepository) *Store {
	return &Store{logger: logger, repos: repos}
}

// ListActive returns every active connection of the user across all storage
// shapes, newest first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]Connection, error) {
	var all []Connection
	for _, repo := range s.repos {
		conns, err := repo.ListActive(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list connections: %w", err)
		}
		all = append(all, conns...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ConnectedAt.After(all[j].ConnectedAt)
	})
	return all, nil
}

// Upsert routes the connection to the repository owning its platform.
func (s *Store) Upsert(ctx context.Context, conn *Connection) error {
	repo, err := s.repoFor(conn.Platform)
	if err != nil {
		return err
	}

	if err := repo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	s.logger.Info("Connection upserted",
		zap.String("user_id", conn.UserID),
		zap.String("platform", conn.Platform),
		zap.String("site_url", conn.SiteURL))
	return nil
}

// SoftDelete deactivates matching connections. An empty siteURL deactivates
// all of the user's connections on the platform.
func (s *Store) SoftDelete(ctx context.Context, userID, platform, siteURL string) error {
	repo, err := s.repoFor(platform)
	if err != nil {
		return err
	}

	affected, err := repo.SoftDelete(ctx, userID, siteURL)
	if err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	if affected == 0 {
		return &ConnectionNotFoundError{UserID: userID, ConnectionID: siteURL}
	}

	s.logger.Info("Connection deactivated",
		zap.String("user_id", userID),
		zap.String("platform", platform),
		zap.Int64("rows", affected))
	return nil
}

// ResolveForPublish finds the connection by id, trying the generic table
// first, then Wix, then Shopify installs. Inactive rows and rows owned by
// other users never resolve.
func (s *Store) ResolveForPublish(ctx context.Context, userID, connectionID string) (*Connection, error) {
	for _, repo := range s.repos {
		conn, err := repo.Get(ctx, userID, connectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve connection: %w", err)
		}
		if conn != nil {
			return conn, nil
		}
	}

	return nil, &ConnectionNotFoundError{UserID: userID, ConnectionID: connectionID}
}

// SetConfigValue writes a discovered config value back to the stored row and
// mirrors it on the in-memory connection.
func (s *Store) SetConfigValue(ctx context.Context, conn *Connection, key, value string) error {
	repo, err := s.repoFor(conn.Platform)
	if err != nil {
		return err
	}

	if err := repo.SetConfigValue(ctx, conn.UserID, conn.ID, key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}

	if conn.Config == nil {
		conn.Config = map[string]string{}
	}
	conn.Config[key] = value
	return nil
}

// MarkSynced stamps the connection's last successful delivery time and
// mirrors it on the in-memory connection.
func (s *Store) MarkSynced(ctx context.Context, conn *Connection, at time.Time) error {
	repo, err := s.repoFor(conn.Platform)
	if err != nil {
		return err
	}

	if err := repo.TouchSync(ctx, conn.UserID, conn.ID, at); err != nil {
		return fmt.Errorf("failed to record sync time: %w", err)
	}

	conn.LastSyncAt = &at
	return nil
}

func (s *Store) repoFor(platform string) (ConnectionRepository, error) {
	for _, repo := range s.repos {
		if repo.Handles(platform) {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("no repository handles platform %s", platform)
}
