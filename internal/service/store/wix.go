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

// Config keys surfaced by the Wix repository.
const (
	ConfigInstanceID = "instanceId"
	ConfigMemberID   = "memberId"
)

// wixRepository normalizes wix_connections rows. Wix's native instance_id
// and member_id columns surface only as config entries.
type wixRepository struct {
	db *gorm.DB
}

func NewWixRepository(db *gorm.DB) ConnectionRepository {
	return &wixRepository{db: db}
}

func (r *wixRepository) Handles(platform string) bool {
	return platform == models.PlatformWix
}

func (r *wixRepository) ListActive(ctx context.Context, userID string) ([]Connection, error) {
	var rows []models.WixConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("connected_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conns := make([]Connection, 0, len(rows))
	for i := range rows {
		conns = append(conns, normalizeWix(&rows[i]))
	}
	return conns, nil
}

func (r *wixRepository) Get(ctx context.Context, userID, connectionID string) (*Connection, error) {
	var row models.WixConnection
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", connectionID, userID, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conn := normalizeWix(&row)
	return &conn, nil
}

func (r *wixRepository) Upsert(ctx context.Context, conn *Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now().UTC()
	}

	row := models.WixConnection{
		ID:          conn.ID,
		UserID:      conn.UserID,
		InstanceID:  conn.Config[ConfigInstanceID],
		Site:        conn.SiteURL,
		AccessToken: conn.Credential.AccessToken,
		MemberID:    conn.Config[ConfigMemberID],
		IsActive:    true,
		ConnectedAt: conn.ConnectedAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"site", "access_token", "member_id", "is_active", "connected_at", "updated_at",
		}),
	}).Create(&row).Error
}

func (r *wixRepository) SoftDelete(ctx context.Context, userID, siteURL string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WixConnection{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if siteURL != "" {
		q = q.Where("site = ? OR instance_id = ?", siteURL, siteURL)
	}

	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *wixRepository) SetConfigValue(ctx context.Context, userID, connectionID, key, value string) error {
	if key != ConfigMemberID {
		// The only mutable config Wix keeps natively is the member id.
		return fmt.Errorf("config key %s is not stored on wix connections", key)
	}

	return r.db.WithContext(ctx).Model(&models.WixConnection{}).
		Where("id = ? AND user_id = ?", connectionID, userID).
		Update("member_id", value).Error
}

func (r *wixRepository) TouchSync(ctx context.Context, userID, connectionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.WixConnection{}).
		Where("id = ? AND user_id = ?", connectionID, userID).
		Update("last_sync_at", at).Error
}

func normalizeWix(row *models.WixConnection) Connection {
	cfg := map[string]string{
		ConfigInstanceID: row.InstanceID,
	}
	if row.MemberID != "" {
		cfg[ConfigMemberID] = row.MemberID
	}

	siteURL := row.Site
	if siteURL == "" {
		// Older installs never captured the site host; the instance id is a
		// stable synthetic destination identifier.
		siteURL = "wix-instance-" + row.InstanceID
	}

	return Connection{
		ID:          row.ID,
		UserID:      row.UserID,
		Platform:    models.PlatformWix,
		SiteURL:     siteURL,
		Credential:  Credential{AccessToken: row.AccessToken},
		Config:      cfg,
		IsActive:    row.IsActive,
		ConnectedAt: row.ConnectedAt,
		LastSyncAt:  row.LastSyncAt,
	}
}
