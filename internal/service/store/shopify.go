package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkcast/inkcast/internal/models"
)

// Config keys surfaced by the Shopify repository.
const (
	ConfigShop   = "shop"
	ConfigScope  = "scope"
	ConfigBlogID = "blogId"
)

// shopifyRepository normalizes shopify_installs rows. The shop host is the
// site identifier and the externally issued token becomes the access token.
type shopifyRepository struct {
	db *gorm.DB
}

func NewShopifyRepository(db *gorm.DB) ConnectionRepository {
	return &shopifyRepository{db: db}
}

func (r *shopifyRepository) Handles(platform string) bool {
	return platform == models.PlatformShopify
}

func (r *shopifyRepository) ListActive(ctx context.Context, userID string) ([]Connection, error) {
	var rows []models.ShopifyInstall
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("installed_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conns := make([]Connection, 0, len(rows))
	for i := range rows {
		conns = append(conns, normalizeShopify(&rows[i]))
	}
	return conns, nil
}

func (r *shopifyRepository) Get(ctx context.Context, userID, connectionID string) (*Connection, error) {
	var row models.ShopifyInstall
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", connectionID, userID, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conn := normalizeShopify(&row)
	return &conn, nil
}

func (r *shopifyRepository) Upsert(ctx context.Context, conn *Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now().UTC()
	}

	shop := conn.Config[ConfigShop]
	if shop == "" {
		shop = conn.SiteURL
	}

	row := models.ShopifyInstall{
		ID:            conn.ID,
		UserID:        conn.UserID,
		Shop:          shop,
		ExternalToken: conn.Credential.AccessToken,
		Scope:         conn.Config[ConfigScope],
		BlogID:        conn.Config[ConfigBlogID],
		IsActive:      true,
		InstalledAt:   conn.ConnectedAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "shop"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_token", "scope", "is_active", "installed_at", "updated_at",
		}),
	}).Create(&row).Error
}

func (r *shopifyRepository) SoftDelete(ctx context.Context, userID, siteURL string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ShopifyInstall{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if siteURL != "" {
		q = q.Where("shop = ?", siteURL)
	}

	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *shopifyRepository) SetConfigValue(ctx context.Context, userID, connectionID, key, value string) error {
	if key != ConfigBlogID {
		// Only the discovered blog id has a native column.
		return fmt.Errorf("config key %s is not stored on shopify installs", key)
	}

	return r.db.WithContext(ctx).Model(&models.ShopifyInstall{}).
		Where("id = ? AND user_id = ?", connectionID, userID).
		Update("blog_id", value).Error
}

func (r *shopifyRepository) TouchSync(ctx context.Context, userID, connectionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ShopifyInstall{}).
		Where("id = ? AND user_id = ?", connectionID, userID).
		Update("last_sync_at", at).Error
}

func normalizeShopify(row *models.ShopifyInstall) Connection {
	cfg := map[string]string{
		ConfigShop: row.Shop,
	}
	if row.Scope != "" {
		cfg[ConfigScope] = row.Scope
	}
	if row.BlogID != "" {
		cfg[ConfigBlogID] = row.BlogID
	}

	return Connection{
		ID:          row.ID,
		UserID:      row.UserID,
		Platform:    models.PlatformShopify,
		SiteURL:     row.Shop,
		Credential:  Credential{AccessToken: row.ExternalToken},
		Config:      cfg,
		IsActive:    row.IsActive,
		ConnectedAt: row.InstalledAt,
		LastSyncAt:  row.LastSyncAt,
	}
}
