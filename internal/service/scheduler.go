package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/generator"
	"github.com/inkcast/inkcast/internal/service/publisher"
)

// schedulerStore is the persistence the tick loop needs.
type schedulerStore interface {
	// DueSettings returns every user whose generation time matches the
	// given UTC HH:mm minute.
	DueSettings(ctx context.Context, hhmm string) ([]models.ContentSettings, error)

	// HasJobForDate reports whether a processing or completed job of the
	// given type already exists for the date.
	HasJobForDate(ctx context.Context, userID, jobType, runDate string) (bool, error)

	// InsertJob inserts the job, reporting false when the unique
	// (user, type, date) key already holds a row.
	InsertJob(ctx context.Context, job *models.GenerationJob) (bool, error)

	SaveJob(ctx context.Context, job *models.GenerationJob) error
}

// articleGenerator is the slice of GenerateService the scheduler uses.
type articleGenerator interface {
	GenerateArticle(ctx context.Context, userID, topicHint string, autoPublish bool) (*models.Article, *generator.Result, error)
	QuotaRemaining(ctx context.Context, userID string) (bool, error)
}

// articlePublisher is the slice of PublishService the scheduler uses.
type articlePublisher interface {
	PublishToAllConnections(ctx context.Context, userID, articleID string) (map[string]*publisher.PublishResult, map[string]error, error)
}

// Scheduler fires the daily auto-generation. Each cron tick scans for users
// whose configured generation time matches the current UTC minute.
type Scheduler struct {
	config   *config.SchedulerConfig
	logger   *zap.Logger
	store    schedulerStore
	generate articleGenerator
	publish  articlePublisher
	cron     *cron.Cron
}

// TickResult is the per-user outcome of one scheduler pass.
type TickResult struct {
	UserID    string `json:"user_id"`
	ArticleID string `json:"article_id,omitempty"`
	Status    string `json:"status"` // generated | published | skipped | failed
	Reason    string `json:"reason,omitempty"`
}

// TickSummary aggregates one pass.
type TickSummary struct {
	Processed int          `json:"processed"`
	Results   []TickResult `json:"results"`
}

func NewScheduler(cfg *config.SchedulerConfig, db *gorm.DB, generateService *GenerateService, publishService *PublishService, logger *zap.Logger) *Scheduler {
	return NewSchedulerWithCollaborators(cfg, &gormSchedulerStore{db: db}, generateService, publishService, logger)
}

// NewSchedulerWithCollaborators wires explicit collaborators, used by tests.
func NewSchedulerWithCollaborators(cfg *config.SchedulerConfig, store schedulerStore, generate articleGenerator, publish articlePublisher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config:   cfg,
		logger:   logger,
		store:    store,
		generate: generate,
		publish:  publish,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.config.Spec, func() {
		summary := s.Tick(ctx)
		if summary.Processed > 0 {
			s.logger.Info("Scheduler tick finished", zap.Int("processed", summary.Processed))
		}
	})
	if err != nil {
		s.logger.Error("Invalid cron spec", zap.String("spec", s.config.Spec), zap.Error(err))
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("spec", s.config.Spec))
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.logger.Info("Scheduler shutdown completed")
}

// Tick runs one scheduling pass for the current UTC minute. One user's
// failure never affects another's run.
func (s *Scheduler) Tick(ctx context.Context) *TickSummary {
	now := time.Now().UTC()
	return s.tickAt(ctx, now)
}

func (s *Scheduler) tickAt(ctx context.Context, now time.Time) *TickSummary {
	hhmm := now.Format("15:04")
	today := now.Format("2006-01-02")

	due, err := s.store.DueSettings(ctx, hhmm)
	if err != nil {
		s.logger.Error("Failed to query due users", zap.Error(err))
		return &TickSummary{}
	}

	summary := &TickSummary{}
	for _, settings := range due {
		result := s.runForUser(ctx, settings, today)
		summary.Results = append(summary.Results, result)
		if result.Status != "skipped" {
			summary.Processed++
		}
	}
	return summary
}

func (s *Scheduler) runForUser(ctx context.Context, settings models.ContentSettings, today string) TickResult {
	userID := settings.UserID

	// Advisory pre-filter; the unique index on the insert below is the
	// actual exclusivity guard.
	if exists, err := s.store.HasJobForDate(ctx, userID, models.JobTypeAutoDaily, today); err == nil && exists {
		return TickResult{UserID: userID, Status: "skipped", Reason: "already ran today"}
	}

	ok, err := s.generate.QuotaRemaining(ctx, userID)
	if err != nil {
		s.logger.Error("Quota check failed", zap.String("user_id", userID), zap.Error(err))
		return TickResult{UserID: userID, Status: "failed", Reason: "quota check failed"}
	}
	if !ok {
		return TickResult{UserID: userID, Status: "skipped", Reason: "monthly quota reached"}
	}

	job := &models.GenerationJob{
		ID:      uuid.New().String(),
		UserID:  userID,
		JobType: models.JobTypeAutoDaily,
		RunDate: today,
		Status:  models.JobStatusProcessing,
		InputData: models.JSONMap{
			"auto_publish": boolString(settings.AutoPublish),
		},
	}
	inserted, err := s.store.InsertJob(ctx, job)
	if err != nil {
		s.logger.Error("Failed to insert generation job", zap.String("user_id", userID), zap.Error(err))
		return TickResult{UserID: userID, Status: "failed", Reason: "job insert failed"}
	}
	if !inserted {
		// A concurrent run won the insert.
		return TickResult{UserID: userID, Status: "skipped", Reason: "already ran today"}
	}

	article, genResult, err := s.generate.GenerateArticle(ctx, userID, "", settings.AutoPublish)
	if err != nil {
		s.failJob(ctx, job, err)
		return TickResult{UserID: userID, Status: "failed", Reason: err.Error()}
	}

	status := "generated"
	if settings.AutoPublish {
		status = "published"
		_, failures, perr := s.publish.PublishToAllConnections(ctx, userID, article.ID)
		if perr != nil {
			s.logger.Error("Auto-publish fan-out failed",
				zap.String("user_id", userID),
				zap.String("article_id", article.ID),
				zap.Error(perr))
		}
		for connID, ferr := range failures {
			s.logger.Error("Auto-publish failed for connection",
				zap.String("user_id", userID),
				zap.String("connection_id", connID),
				zap.Error(ferr))
		}
	}

	job.Status = models.JobStatusCompleted
	job.OutputData = models.JSONMap{
		"article_id": article.ID,
		"title":      article.Title,
		"state":      genResult.State,
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		s.logger.Error("Failed to complete generation job", zap.String("user_id", userID), zap.Error(err))
	}

	return TickResult{UserID: userID, ArticleID: article.ID, Status: status}
}

func (s *Scheduler) failJob(ctx context.Context, job *models.GenerationJob, cause error) {
	job.Status = models.JobStatusFailed
	job.OutputData = models.JSONMap{"error": cause.Error()}
	if err := s.store.SaveJob(ctx, job); err != nil {
		s.logger.Error("Failed to mark generation job failed",
			zap.String("user_id", job.UserID),
			zap.Error(err))
	}
}

// gormSchedulerStore backs the tick loop with the shared database.
type gormSchedulerStore struct {
	db *gorm.DB
}

func (g *gormSchedulerStore) DueSettings(ctx context.Context, hhmm string) ([]models.ContentSettings, error) {
	var due []models.ContentSettings
	err := g.db.WithContext(ctx).
		Where("auto_generate_enabled = ? AND generate_time = ?", true, hhmm).
		Find(&due).Error
	return due, err
}

func (g *gormSchedulerStore) HasJobForDate(ctx context.Context, userID, jobType, runDate string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("user_id = ? AND job_type = ? AND run_date = ? AND status IN ?",
			userID, jobType, runDate,
			[]string{models.JobStatusProcessing, models.JobStatusCompleted}).
		Count(&count).Error
	return count > 0, err
}

func (g *gormSchedulerStore) InsertJob(ctx context.Context, job *models.GenerationJob) (bool, error) {
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(job)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (g *gormSchedulerStore) SaveJob(ctx context.Context, job *models.GenerationJob) error {
	return g.db.WithContext(ctx).Save(job).Error
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
