package models

import (
	"time"

	"gorm.io/gorm"
)

// Job types and statuses.
const (
	JobTypeAutoDaily = "auto_daily"

	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// GenerationJob is the audit row behind the once-per-day guard. The unique
// index on (user_id, job_type, run_date) makes the insert itself the
// exclusivity mechanism; a conflict means the run already happened.
type GenerationJob struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	UserID     string         `gorm:"not null;size:36;uniqueIndex:idx_job_user_type_date,priority:1" json:"user_id"`
	JobType    string         `gorm:"not null;size:50;uniqueIndex:idx_job_user_type_date,priority:2" json:"job_type"`
	RunDate    string         `gorm:"not null;size:10;uniqueIndex:idx_job_user_type_date,priority:3" json:"run_date"` // 2006-01-02
	Status     string         `gorm:"size:50;default:'processing'" json:"status"`
	InputData  JSONMap        `gorm:"type:jsonb" json:"input_data"`
	OutputData JSONMap        `gorm:"type:jsonb" json:"output_data"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// PublishJob records one publish attempt of an article against a connection.
type PublishJob struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ArticleID    string         `gorm:"not null;size:36;index" json:"article_id"`
	ConnectionID string         `gorm:"not null;size:36;index" json:"connection_id"`
	Platform     string         `gorm:"not null;size:50" json:"platform"`
	Status       string         `gorm:"size:50;default:'pending'" json:"status"`
	Error        string         `gorm:"type:text" json:"error"`
	PublishedAt  *time.Time     `json:"published_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
