package models

import (
	"time"

	"gorm.io/gorm"
)

// Platform names accepted by the publish pipeline.
const (
	PlatformWordPress   = "wordpress"
	PlatformShopify     = "shopify"
	PlatformWebflow     = "webflow"
	PlatformWix         = "wix"
	PlatformNotion      = "notion"
	PlatformGhost       = "ghost"
	PlatformSquarespace = "squarespace"
	PlatformZapier      = "zapier"
	PlatformWebhook     = "webhook"
)

// CMSConnection is the generic connection table. WordPress, Notion, Ghost,
// Webflow, Squarespace, Zapier and raw webhooks all live here; Shopify and
// Wix keep their own install tables and are merged in by the store facade.
type CMSConnection struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"not null;size:36;uniqueIndex:idx_cms_user_platform_site,priority:1" json:"user_id"`
	Platform    string         `gorm:"not null;size:50;uniqueIndex:idx_cms_user_platform_site,priority:2" json:"platform"`
	SiteURL     string         `gorm:"not null;size:500;uniqueIndex:idx_cms_user_platform_site,priority:3" json:"site_url"`
	AccessToken string         `gorm:"type:text" json:"-"`
	APIKey      string         `gorm:"type:text" json:"-"`
	Config      JSONMap        `gorm:"type:jsonb" json:"config"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	ConnectedAt time.Time      `json:"connected_at"`
	LastSyncAt  *time.Time     `json:"last_sync_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// ShopifyInstall records an app install on a Shopify shop. The shop host
// doubles as the site identifier.
type ShopifyInstall struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	UserID        string         `gorm:"not null;size:36;uniqueIndex:idx_shopify_user_shop,priority:1" json:"user_id"`
	Shop          string         `gorm:"not null;size:255;uniqueIndex:idx_shopify_user_shop,priority:2" json:"shop"`
	ExternalToken string         `gorm:"type:text" json:"-"`
	Scope         string         `gorm:"size:500" json:"scope"`
	BlogID        string         `gorm:"size:64" json:"blog_id"`
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`
	InstalledAt   time.Time      `json:"installed_at"`
	LastSyncAt    *time.Time     `json:"last_sync_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// WixConnection records an authorized Wix site instance.
type WixConnection struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"not null;size:36;uniqueIndex:idx_wix_user_instance,priority:1" json:"user_id"`
	InstanceID  string         `gorm:"not null;size:255;uniqueIndex:idx_wix_user_instance,priority:2" json:"instance_id"`
	Site        string         `gorm:"size:500" json:"site"`
	AccessToken string         `gorm:"type:text" json:"-"`
	MemberID    string         `gorm:"size:255" json:"member_id"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	ConnectedAt time.Time      `json:"connected_at"`
	LastSyncAt  *time.Time     `json:"last_sync_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
