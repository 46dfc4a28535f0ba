package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/jobs"
)

const syncJobType = "school_sync"

type schoolWarmer interface {
	Periods(ctx context.Context, accountID string, refresh bool) ([]models.Period, bool, error)
	CurrentPeriod(ctx context.Context, accountID string, refresh bool) (*models.Period, bool, error)
	Grades(ctx context.Context, accountID, periodID string, refresh bool) (*models.PeriodGrades, bool, error)
	Timetable(ctx context.Context, accountID string, year, week int, refresh bool) ([]models.CourseDay, bool, error)
	CurrentWeek() (int, int)
}

type accountLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// SyncConfig tunes the warm-up worker pool.
type SyncConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Interval   time.Duration
}

// SyncService refreshes cached school data in the background so that reads
// are served from cache.
type SyncService struct {
	school   schoolWarmer
	accounts accountLister
	metrics  *MetricsService
	queue    *jobs.Queue
	interval time.Duration
	enabled  bool
	logger   *zap.Logger
}

// NewSyncService constructs the sync service and its queue.
func NewSyncService(school schoolWarmer, accounts accountLister, metrics *MetricsService, cfg SyncConfig, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncService{
		school:   school,
		accounts: accounts,
		metrics:  metrics,
		interval: cfg.Interval,
		enabled:  cfg.Enabled,
		logger:   logger,
	}
	s.queue = jobs.NewQueue("school-sync", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnResult:   s.record,
	})
	return s
}

// Enabled reports whether sync requests are accepted.
func (s *SyncService) Enabled() bool {
	return s != nil && s.enabled
}

// Start launches the workers and, when an interval is configured, the
// periodic warm-up of every linked account. It returns immediately.
func (s *SyncService) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.queue.Start(ctx)
	if s.interval > 0 {
		go s.loop(ctx)
	}
}

// Stop drains the workers.
func (s *SyncService) Stop() {
	if !s.Enabled() {
		return
	}
	s.queue.Stop()
}

// Enqueue schedules a warm-up of one account.
func (s *SyncService) Enqueue(accountID string) (*models.SyncJob, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "background sync is disabled")
	}
	job := jobs.Job{
		ID:       uuid.NewString(),
		Type:     syncJobType,
		Payload:  accountID,
		Enqueued: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, "SYNC_BUSY", http.StatusServiceUnavailable, "sync queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sync")
	}
	return &models.SyncJob{ID: job.ID, AccountID: accountID, EnqueuedAt: job.Enqueued}, nil
}

// EnqueueAll schedules every linked account and returns how many were queued.
func (s *SyncService) EnqueueAll(ctx context.Context) (int, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
	}
	queued := 0
	for _, id := range ids {
		if _, err := s.Enqueue(id); err != nil {
			s.logger.Warn("sync enqueue skipped", zap.String("account_id", id), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

// Warm refreshes periods, the current period's grades and this week's
// timetable of one account. Capabilities the plugin lacks are skipped.
func (s *SyncService) Warm(ctx context.Context, accountID string) error {
	if _, _, err := s.school.Periods(ctx, accountID, true); err != nil && !skippable(err) {
		return err
	}

	current, _, err := s.school.CurrentPeriod(ctx, accountID, false)
	switch {
	case err == nil:
		if _, _, err := s.school.Grades(ctx, accountID, current.ID, true); err != nil && !skippable(err) {
			return err
		}
	case errors.Is(err, appErrors.ErrNoPeriodAvailable), skippable(err):
	default:
		return err
	}

	year, week := s.school.CurrentWeek()
	if _, _, err := s.school.Timetable(ctx, accountID, year, week, true); err != nil && !skippable(err) {
		return err
	}
	return nil
}

func (s *SyncService) handle(ctx context.Context, job jobs.Job) error {
	accountID, ok := job.Payload.(string)
	if !ok || accountID == "" {
		return jobs.Permanent(errors.New("sync job without account id"))
	}
	err := s.Warm(ctx, accountID)
	if err != nil && permanentSyncError(err) {
		return jobs.Permanent(err)
	}
	return err
}

func (s *SyncService) record(job jobs.Job, err error) {
	s.metrics.RecordSyncJob(err == nil)
	if err == nil {
		s.logger.Info("account synced", zap.String("job_id", job.ID), zap.Any("account_id", job.Payload), zap.Duration("elapsed", time.Since(job.Enqueued)))
	}
}

func (s *SyncService) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.EnqueueAll(ctx)
			if err != nil {
				s.logger.Error("periodic sync failed", zap.Error(err))
				continue
			}
			s.logger.Debug("periodic sync queued", zap.Int("accounts", n))
		}
	}
}

func skippable(err error) bool {
	return errors.Is(err, appErrors.ErrUnsupportedFeature)
}

// permanentSyncError reports failures a retry cannot fix. An invalid session
// reaching this point has already survived one fresh login.
func permanentSyncError(err error) bool {
	return errors.Is(err, appErrors.ErrInvalidSession) ||
		errors.Is(err, appErrors.ErrInvalidCredentials) ||
		errors.Is(err, appErrors.ErrNotFound) ||
		errors.Is(err, appErrors.ErrValidation)
}
