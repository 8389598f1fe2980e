package models

import (
	"time"

	"gorm.io/gorm"
)

// Article statuses.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusScheduled = "scheduled"
	ArticleStatusGenerated = "generated"
	ArticleStatusPublished = "published"
)

type Article struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	UserID          string         `gorm:"not null;size:36;index" json:"user_id"`
	Title           string         `gorm:"not null;size:500" json:"title"`
	Content         string         `gorm:"type:text" json:"content"`
	MetaDescription string         `gorm:"size:500" json:"meta_description"`
	Keywords        StringArray    `gorm:"type:text[]" json:"keywords"`
	Status          string         `gorm:"size:50;default:'draft';index" json:"status"`
	PublishedAt     *time.Time     `json:"published_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BrandProfile feeds the prompt builder. One row per user.
type BrandProfile struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    string      `gorm:"not null;size:36;uniqueIndex" json:"user_id"`
	BrandName string      `gorm:"size:255" json:"brand_name"`
	Industry  string      `gorm:"size:255" json:"industry"`
	Audience  string      `gorm:"size:500" json:"audience"`
	Tone      string      `gorm:"size:100" json:"tone"`
	Voice     string      `gorm:"type:text" json:"voice"`
	Keywords  StringArray `gorm:"type:text[]" json:"keywords"`
	SiteURL   string      `gorm:"size:500" json:"site_url"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContentSettings holds a user's auto-generation preferences.
type ContentSettings struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              string    `gorm:"not null;size:36;uniqueIndex" json:"user_id"`
	AutoGenerateEnabled bool      `gorm:"default:false" json:"auto_generate_enabled"`
	GenerateTime        string    `gorm:"size:5;default:'09:00'" json:"generate_time"` // UTC HH:mm
	AutoPublish         bool      `gorm:"default:false" json:"auto_publish"`
	MonthlyQuota        int       `gorm:"default:30" json:"monthly_quota"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MonthlyUsage tracks generated article counts per calendar month.
type MonthlyUsage struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"not null;size:36;uniqueIndex:idx_usage_user_month,priority:1" json:"user_id"`
	Month             string    `gorm:"not null;size:7;uniqueIndex:idx_usage_user_month,priority:2" json:"month"` // 2006-01
	ArticlesGenerated int       `gorm:"default:0" json:"articles_generated"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
