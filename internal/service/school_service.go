package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/period"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	"github.com/noah-isme/school-hub-api/pkg/calendar"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type sessionProvider interface {
	Session(ctx context.Context, accountID string) (*models.Session, SchoolPlugin, error)
	Invalidate(ctx context.Context, accountID string)
}

// SchoolTTL configures how long each kind of school data stays cached.
type SchoolTTL struct {
	Periods   time.Duration
	Grades    time.Duration
	Timetable time.Duration
}

// SchoolService serves normalized grades and timetables for linked accounts.
// Every read goes through the cache unless refresh is requested; refreshed
// data is written back.
type SchoolService struct {
	sessions sessionProvider
	cache    *CacheService
	selector *period.Selector
	ttl      SchoolTTL
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(sessions sessionProvider, cacheSvc *CacheService, selector *period.Selector, ttl SchoolTTL, loc *time.Location, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if selector == nil {
		selector = period.NewSelector(logger)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SchoolService{sessions: sessions, cache: cacheSvc, selector: selector, ttl: ttl, loc: loc, logger: logger, now: time.Now}
}

// Periods lists the grade periods of the account.
func (s *SchoolService) Periods(ctx context.Context, accountID string, refresh bool) ([]models.Period, bool, error) {
	key := cache.Key("data", accountID, "periods")
	var periods []models.Period
	if hit := s.cached(ctx, key, refresh, &periods); hit {
		return periods, true, nil
	}

	err := s.withSession(ctx, accountID, models.CapabilityGrades, func(sess *models.Session, plugin SchoolPlugin) error {
		var err error
		periods, err = plugin.GradePeriods(ctx, sess)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if periods == nil {
		periods = []models.Period{}
	}
	s.writeBack(ctx, key, periods, s.ttl.Periods)
	return periods, false, nil
}

// CurrentPeriod picks the period to display now.
func (s *SchoolService) CurrentPeriod(ctx context.Context, accountID string, refresh bool) (*models.Period, bool, error) {
	periods, hit, err := s.Periods(ctx, accountID, refresh)
	if err != nil {
		return nil, false, err
	}
	current, err := s.selector.SelectAt(periods, s.now())
	if err != nil {
		return nil, hit, err
	}
	return &current, hit, nil
}

// Period finds one period by id.
func (s *SchoolService) Period(ctx context.Context, accountID, periodID string, refresh bool) (*models.Period, error) {
	periods, _, err := s.Periods(ctx, accountID, refresh)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		if periods[i].ID == periodID {
			return &periods[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
}

// Grades returns the normalized report of one period.
func (s *SchoolService) Grades(ctx context.Context, accountID, periodID string, refresh bool) (*models.PeriodGrades, bool, error) {
	key := cache.Key("data", accountID, "grades", periodID)
	var grades models.PeriodGrades
	if hit := s.cached(ctx, key, refresh, &grades); hit {
		return &grades, true, nil
	}

	target, err := s.Period(ctx, accountID, periodID, false)
	if err != nil {
		return nil, false, err
	}
	err = s.withSession(ctx, accountID, models.CapabilityGrades, func(sess *models.Session, plugin SchoolPlugin) error {
		var err error
		grades, err = plugin.GradesForPeriod(ctx, sess, *target)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.writeBack(ctx, key, grades, s.ttl.Grades)
	return &grades, false, nil
}

// Timetable returns the courses of an ISO week, grouped by day. year is the
// ISO week-numbering year as returned by CurrentWeek.
func (s *SchoolService) Timetable(ctx context.Context, accountID string, year, week int, refresh bool) ([]models.CourseDay, bool, error) {
	if year < 1 || week < 1 || week > calendar.WeeksInYear(year) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "week out of range")
	}

	key := cache.Key("data", accountID, "timetable", strconv.Itoa(year), strconv.Itoa(week))
	var days []models.CourseDay
	if hit := s.cached(ctx, key, refresh, &days); hit {
		return days, true, nil
	}

	err := s.withSession(ctx, accountID, models.CapabilityTimetable, func(sess *models.Session, plugin SchoolPlugin) error {
		var err error
		days, err = plugin.WeeklyTimetable(ctx, sess, year, week)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if days == nil {
		days = []models.CourseDay{}
	}
	s.writeBack(ctx, key, days, s.ttl.Timetable)
	return days, false, nil
}

// CurrentWeek returns the ISO year and week of now in the school time zone.
func (s *SchoolService) CurrentWeek() (int, int) {
	return calendar.CurrentWeek(s.now(), s.loc)
}

// withSession runs fetch with the account's vendor session. When the vendor
// rejects the session it is dropped and fetch runs once more after a fresh
// login with the stored credentials.
func (s *SchoolService) withSession(ctx context.Context, accountID string, capability models.Capability, fetch func(*models.Session, SchoolPlugin) error) error {
	for attempt := 0; ; attempt++ {
		sess, plugin, err := s.sessions.Session(ctx, accountID)
		if err != nil {
			return err
		}
		if err := requireCapability(plugin, capability); err != nil {
			return err
		}
		err = fetch(sess, plugin)
		if err == nil || attempt > 0 || !errors.Is(err, appErrors.ErrInvalidSession) {
			return err
		}
		s.logger.Warn("vendor session rejected, logging in again", zap.String("account_id", accountID))
		s.sessions.Invalidate(ctx, accountID)
	}
}

func (s *SchoolService) cached(ctx context.Context, key string, refresh bool, dest interface{}) bool {
	if refresh {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

// writeBack stores fresh data. A failed write never fails the read; Set
// already logs it.
func (s *SchoolService) writeBack(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	_ = s.cache.Set(ctx, key, value, ttl)
}
