package skolae

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/calendar"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

// API is the subset of the Kordis client the plugin depends on.
type API interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Years(ctx context.Context, sess *models.Session) ([]RawYear, error)
	Grades(ctx context.Context, sess *models.Session, year int) ([]RawSubject, error)
	Agenda(ctx context.Context, sess *models.Session, start, end time.Time) ([]RawEvent, error)
}

// Plugin serves Skolae accounts.
type Plugin struct {
	api        API
	normalizer *Normalizer
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewPlugin wires the Kordis client and normalizer together.
func NewPlugin(api API, normalizer *Normalizer, loc *time.Location, logger *zap.Logger) *Plugin {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(loc, logger, nil)
	}
	return &Plugin{api: api, normalizer: normalizer, loc: loc, logger: logger, now: time.Now}
}

// Service implements service.SchoolPlugin.
func (p *Plugin) Service() models.ServiceKind { return models.ServiceSkolae }

// DisplayName implements service.SchoolPlugin.
func (p *Plugin) DisplayName() string { return "Skolae" }

// Capabilities implements service.SchoolPlugin.
func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		models.CapabilityRefresh,
		models.CapabilityTimetable,
		models.CapabilityGrades,
	}
}

// Refresh logs in again with stored credentials and returns a fresh session.
func (p *Plugin) Refresh(ctx context.Context, accountID string, creds models.Credentials) (*models.Session, error) {
	sess, err := p.api.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, appErrors.Fetch(err, "failed to refresh Skolae session")
	}
	sess.AccountID = accountID
	return sess, nil
}

// GradePeriods lists the academic years as grade periods.
func (p *Plugin) GradePeriods(ctx context.Context, sess *models.Session) ([]models.Period, error) {
	if err := p.checkSession(sess, "Skolae.getGradesPeriods"); err != nil {
		return nil, err
	}
	years, err := p.api.Years(ctx, sess)
	if err != nil {
		return nil, p.fetchError(err, "failed to fetch Skolae grade periods")
	}
	return p.normalizer.GradePeriods(years, sess.AccountID), nil
}

// GradesForPeriod fetches and normalizes the grades of one academic year.
// A period without id targets the current calendar year.
func (p *Plugin) GradesForPeriod(ctx context.Context, sess *models.Session, period models.Period) (models.PeriodGrades, error) {
	if err := p.checkSession(sess, "Skolae.getGradesForPeriod"); err != nil {
		return models.PeriodGrades{}, err
	}
	year := p.now().In(p.loc).Year()
	if period.ID != "" {
		parsed, err := strconv.Atoi(period.ID)
		if err != nil {
			return models.PeriodGrades{}, appErrors.Clone(appErrors.ErrValidation, "period id must be a year")
		}
		year = parsed
	}

	subjects, err := p.api.Grades(ctx, sess, year)
	if err != nil {
		return models.PeriodGrades{}, p.fetchError(err, "failed to fetch Skolae grades")
	}
	return p.normalizer.PeriodGrades(subjects, sess.AccountID), nil
}

// WeeklyTimetable fetches the courses of an ISO week. year is the ISO
// week-numbering year, which differs from the calendar year around January 1st.
func (p *Plugin) WeeklyTimetable(ctx context.Context, sess *models.Session, year, week int) ([]models.CourseDay, error) {
	if err := p.checkSession(sess, "Skolae.getWeeklyTimetable"); err != nil {
		return nil, err
	}
	rng, err := calendar.WeekRange(year, week, p.loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	events, err := p.api.Agenda(ctx, sess, rng.Start, rng.End)
	if err != nil {
		return nil, p.fetchError(err, "failed to fetch Skolae timetable")
	}
	return p.normalizer.Timetable(events, sess.AccountID), nil
}

func (p *Plugin) checkSession(sess *models.Session, callSite string) error {
	if sess.Valid(p.now()) {
		return nil
	}
	p.logger.Error("Session is not valid", zap.String("call_site", callSite))
	return appErrors.ErrInvalidSession
}

func (p *Plugin) fetchError(err error, message string) error {
	if errors.Is(err, appErrors.ErrInvalidSession) {
		return err
	}
	return appErrors.Fetch(err, message)
}
