package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkcast/inkcast/internal/models"
)

// genericRepository backs every platform that stores rows in the shared
// cms_connections table.
type genericRepository struct {
	db *gorm.DB
}

func NewGenericRepository(db *gorm.DB) ConnectionRepository {
	return &genericRepository{db: db}
}

func (r *genericRepository) Handles(platform string) bool {
	switch platform {
	case models.PlatformShopify, models.PlatformWix:
		return false
	default:
		return true
	}
}

func (r *genericRepository) ListActive(ctx context.Context, userID string) ([]Connection, error) {
	var rows []models.CMSConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("connected_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conns := make([]Connection, 0, len(rows))
	for i := range rows {
		conns = append(conns, normalizeGeneric(&rows[i]))
	}
	return conns, nil
}

func (r *genericRepository) Get(ctx context.Context, userID, connectionID string) (*Connection, error) {
	var row models.CMSConnection
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", connectionID, userID, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conn := normalizeGeneric(&row)
	return &conn, nil
}

func (r *genericRepository) Upsert(ctx context.Context, conn *Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now().UTC()
	}

	row := models.CMSConnection{
		ID:          conn.ID,
		UserID:      conn.UserID,
		Platform:    conn.Platform,
		SiteURL:     conn.SiteURL,
		AccessToken: conn.Credential.AccessToken,
		APIKey:      conn.Credential.APIKey,
		Config:      models.JSONMap(conn.Config),
		IsActive:    true,
		ConnectedAt: conn.ConnectedAt,
	}

	// Last writer wins on (user_id, platform, site_url); reconnecting
	// refreshes the credential and reactivates a soft-deleted row.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}, {Name: "site_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "api_key", "config", "is_active", "connected_at", "updated_at",
		}),
	}).Create(&row).Error
}

func (r *genericRepository) SoftDelete(ctx context.Context, userID, siteURL string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CMSConnection{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if siteURL != "" {
		q = q.Where("site_url = ?", siteURL)
	}

	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *genericRepository) SetConfigValue(ctx context.Context, userID, connectionID, key, value string) error {
	var row models.CMSConnection
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", connectionID, userID).
		First(&row).Error; err != nil {
		return err
	}

	if row.Config == nil {
		row.Config = models.JSONMap{}
	}
	row.Config[key] = value
	return r.db.WithContext(ctx).Model(&row).Update("config", row.Config).Error
}

func (r *genericRepository) TouchSync(ctx context.Context, userID, connectionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CMSConnection{}).
		Where("id = ? AND user_id = ?", connectionID, userID).
		Update("last_sync_at", at).Error
}

func normalizeGeneric(row *models.CMSConnection) Connection {
	cfg := map[string]string{}
	for k, v := range row.Config {
		cfg[k] = v
	}

	return Connection{
		ID:          row.ID,
		UserID:      row.UserID,
		Platform:    row.Platform,
		SiteURL:     row.SiteURL,
		Credential:  Credential{AccessToken: row.AccessToken, APIKey: row.APIKey},
		Config:      cfg,
		IsActive:    row.IsActive,
		ConnectedAt: row.ConnectedAt,
		LastSyncAt:  row.LastSyncAt,
	}
}
