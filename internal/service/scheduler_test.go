package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/generator"
	"github.com/inkcast/inkcast/internal/service/publisher"
)

// fakeTickStore serves one minute's worth of settings and records the jobs
// the scheduler writes.
type fakeTickStore struct {
	settings    []models.ContentSettings
	dueAt       string // the HH:mm the settings fire at
	requested   []string
	hasJob      bool
	insertLoses bool
	inserted    []*models.GenerationJob
	saved       []*models.GenerationJob
}

func (f *fakeTickStore) DueSettings(_ context.Context, hhmm string) ([]models.ContentSettings, error) {
	f.requested = append(f.requested, hhmm)
	if hhmm != f.dueAt {
		return nil, nil
	}
	return f.settings, nil
}

func (f *fakeTickStore) HasJobForDate(context.Context, string, string, string) (bool, error) {
	return f.hasJob, nil
}

func (f *fakeTickStore) InsertJob(_ context.Context, job *models.GenerationJob) (bool, error) {
	if f.insertLoses {
		return false, nil
	}
	f.inserted = append(f.inserted, job)
	return true, nil
}

func (f *fakeTickStore) SaveJob(_ context.Context, job *models.GenerationJob) error {
	f.saved = append(f.saved, job)
	return nil
}

type fakeGenerator struct {
	quota    bool
	err      error
	perUser  map[string]error
	articles []*models.Article
}

func (f *fakeGenerator) QuotaRemaining(context.Context, string) (bool, error) {
	return f.quota, nil
}

func (f *fakeGenerator) GenerateArticle(_ context.Context, userID, _ string, _ bool) (*models.Article, *generator.Result, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if err, ok := f.perUser[userID]; ok && err != nil {
		return nil, nil, err
	}
	article := &models.Article{ID: "article-" + userID, UserID: userID, Title: "Daily Article"}
	f.articles = append(f.articles, article)
	return article, &generator.Result{Title: article.Title, State: generator.StateTemplate}, nil
}

type fakeFanout struct {
	articleIDs []string
	failures   map[string]error
}

func (f *fakeFanout) PublishToAllConnections(_ context.Context, _ string, articleID string) (map[string]*publisher.PublishResult, map[string]error, error) {
	f.articleIDs = append(f.articleIDs, articleID)
	return map[string]*publisher.PublishResult{}, f.failures, nil
}

func newTestScheduler(store *fakeTickStore, gen *fakeGenerator, pub *fakeFanout) *Scheduler {
	cfg := &config.SchedulerConfig{Enabled: true, Spec: "* * * * *"}
	return NewSchedulerWithCollaborators(cfg, store, gen, pub, zap.NewNop())
}

func dueSettings(userID string, autoPublish bool) []models.ContentSettings {
	return []models.ContentSettings{{
		UserID:              userID,
		AutoGenerateEnabled: true,
		GenerateTime:        "09:00",
		AutoPublish:         autoPublish,
	}}
}

func TestTickMatchesGenerateTimeMinute(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00"}
	gen := &fakeGenerator{quota: true}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	at := time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC)
	summary := sched.tickAt(context.Background(), at)

	require.Equal(t, []string{"09:00"}, store.requested)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, "generated", summary.Results[0].Status)
}

func TestTickIgnoresOtherMinutes(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00"}
	gen := &fakeGenerator{quota: true}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	at := time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	summary := sched.tickAt(context.Background(), at)

	assert.Equal(t, []string{"09:01"}, store.requested)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, gen.articles)
}

func TestTickSkipsWhenAlreadyRanToday(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00", hasJob: true}
	gen := &fakeGenerator{quota: true}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "skipped", summary.Results[0].Status)
	assert.Equal(t, "already ran today", summary.Results[0].Reason)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, store.inserted)
	assert.Empty(t, gen.articles)
}

func TestTickSkipsOnInsertConflict(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00", insertLoses: true}
	gen := &fakeGenerator{quota: true}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "skipped", summary.Results[0].Status)
	assert.Empty(t, gen.articles, "losing the insert must stop the run")
}

func TestTickSkipsWhenQuotaReached(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00"}
	gen := &fakeGenerator{quota: false}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "skipped", summary.Results[0].Status)
	assert.Equal(t, "monthly quota reached", summary.Results[0].Reason)
	assert.Empty(t, store.inserted, "no job row before the quota check passes")
}

func TestTickCompletesJobWithoutAutoPublish(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00"}
	gen := &fakeGenerator{quota: true}
	fanout := &fakeFanout{}
	sched := newTestScheduler(store, gen, fanout)

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "generated", summary.Results[0].Status)
	assert.Equal(t, "article-u1", summary.Results[0].ArticleID)
	assert.Empty(t, fanout.articleIDs, "no fan-out without auto-publish")

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "2026-03-02", store.inserted[0].RunDate)
	require.Len(t, store.saved, 1)
	assert.Equal(t, models.JobStatusCompleted, store.saved[0].Status)
	assert.Equal(t, "article-u1", store.saved[0].OutputData["article_id"])
}

func TestTickAutoPublishFansOut(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", true), dueAt: "09:00"}
	gen := &fakeGenerator{quota: true}
	fanout := &fakeFanout{failures: map[string]error{"conn-1": errors.New("provider down")}}
	sched := newTestScheduler(store, gen, fanout)

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "published", summary.Results[0].Status)
	assert.Equal(t, []string{"article-u1"}, fanout.articleIDs)

	require.Len(t, store.saved, 1)
	assert.Equal(t, models.JobStatusCompleted, store.saved[0].Status,
		"per-connection failures do not fail the job")
}

func TestTickMarksJobFailedOnGenerateError(t *testing.T) {
	store := &fakeTickStore{settings: dueSettings("u1", false), dueAt: "09:00"}
	gen := &fakeGenerator{quota: true, err: errors.New("brand lookup broke")}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "failed", summary.Results[0].Status)

	require.Len(t, store.saved, 1)
	assert.Equal(t, models.JobStatusFailed, store.saved[0].Status)
	assert.Equal(t, "brand lookup broke", store.saved[0].OutputData["error"])
}

func TestTickIsolatesUserFailures(t *testing.T) {
	store := &fakeTickStore{
		settings: append(dueSettings("u1", false), dueSettings("u2", false)...),
		dueAt:    "09:00",
	}
	gen := &fakeGenerator{quota: true, perUser: map[string]error{"u1": errors.New("boom")}}
	sched := newTestScheduler(store, gen, &fakeFanout{})

	summary := sched.tickAt(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "failed", summary.Results[0].Status)
	assert.Equal(t, "generated", summary.Results[1].Status)
	assert.Equal(t, 2, summary.Processed)
}
