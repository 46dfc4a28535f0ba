package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

var schoolNow = time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)

type staticSessions struct {
	plugin      SchoolPlugin
	err         error
	calls       int
	invalidated int
}

func (s *staticSessions) Invalidate(context.Context, string) {
	s.invalidated++
}

func (s *staticSessions) Session(_ context.Context, accountID string) (*models.Session, SchoolPlugin, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	return &models.Session{AccountID: accountID, AccessToken: "t"}, s.plugin, nil
}

func academicYears() []models.Period {
	return []models.Period{
		{ID: "2023", Name: "Année 2023", Start: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)},
		{ID: "2024", Name: "Année 2024", Start: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)},
	}
}

func newSchoolServiceForTest(plugin *fakePlugin, store *stubCacheRepo) (*SchoolService, *staticSessions) {
	sessions := &staticSessions{plugin: plugin}
	cacheSvc := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	svc := NewSchoolService(sessions, cacheSvc, nil, SchoolTTL{
		Periods:   24 * time.Hour,
		Grades:    30 * time.Minute,
		Timetable: 15 * time.Minute,
	}, time.UTC, zap.NewNop())
	svc.now = func() time.Time { return schoolNow }
	return svc, sessions
}

func TestSchoolServicePeriodsUsesCache(t *testing.T) {
	plugin := &fakePlugin{periods: academicYears()}
	store := &stubCacheRepo{}
	svc, _ := newSchoolServiceForTest(plugin, store)
	ctx := context.Background()

	periods, hit, err := svc.Periods(ctx, "acc-1", false)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, periods, 2)
	assert.Equal(t, 24*time.Hour, store.ttls[cache.Key("data", "acc-1", "periods")])

	_, hit, err = svc.Periods(ctx, "acc-1", false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, plugin.periodCalls)

	_, hit, err = svc.Periods(ctx, "acc-1", true)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, plugin.periodCalls, "refresh bypasses the cached copy")
}

func TestSchoolServiceCurrentPeriodAndLookup(t *testing.T) {
	svc, _ := newSchoolServiceForTest(&fakePlugin{periods: academicYears()}, &stubCacheRepo{})
	ctx := context.Background()

	current, _, err := svc.CurrentPeriod(ctx, "acc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "2024", current.ID)

	svc.now = func() time.Time { return time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC) }
	current, _, err = svc.CurrentPeriod(ctx, "acc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "2024", current.ID, "summer break falls back to the nearest year")

	p, err := svc.Period(ctx, "acc-1", "2023", false)
	require.NoError(t, err)
	assert.Equal(t, "Année 2023", p.Name)

	_, err = svc.Period(ctx, "acc-1", "1999", false)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSchoolServiceCurrentPeriodWithoutPeriods(t *testing.T) {
	svc, _ := newSchoolServiceForTest(&fakePlugin{}, &stubCacheRepo{})

	periods, _, err := svc.Periods(context.Background(), "acc-1", false)
	require.NoError(t, err)
	assert.NotNil(t, periods)

	_, _, err = svc.CurrentPeriod(context.Background(), "acc-1", false)
	assert.ErrorIs(t, err, appErrors.ErrNoPeriodAvailable)
}

func TestSchoolServiceGrades(t *testing.T) {
	report := models.PeriodGrades{
		CreatedByAccount: "acc-1",
		StudentOverall:   models.GradeScore{Value: 13},
		ClassAverage:     models.GradeScore{Value: 12},
		Subjects:         []models.Subject{{ID: "math", Name: "Mathématiques"}},
	}
	plugin := &fakePlugin{periods: academicYears(), grades: report}
	store := &stubCacheRepo{}
	svc, _ := newSchoolServiceForTest(plugin, store)
	ctx := context.Background()

	got, hit, err := svc.Grades(ctx, "acc-1", "2024", false)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, report, *got)

	_, hit, err = svc.Grades(ctx, "acc-1", "2024", false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, plugin.gradeCalls)

	_, _, err = svc.Grades(ctx, "acc-1", "1999", false)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSchoolServiceTimetable(t *testing.T) {
	days := []models.CourseDay{{Date: time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), Courses: []models.Course{{ID: "c1", Subject: "Réseaux"}}}}
	plugin := &fakePlugin{days: days}
	svc, _ := newSchoolServiceForTest(plugin, &stubCacheRepo{})
	ctx := context.Background()

	year, week := svc.CurrentWeek()
	assert.Equal(t, 2024, year)
	assert.Equal(t, 45, week)

	got, hit, err := svc.Timetable(ctx, "acc-1", 2024, 45, false)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 1)

	_, hit, err = svc.Timetable(ctx, "acc-1", 2024, 45, false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []isoWeek{{year: 2024, week: 45}}, plugin.timetableArgs)

	_, _, err = svc.Timetable(ctx, "acc-1", 2024, 0, false)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = svc.Timetable(ctx, "acc-1", 2024, 53, false)
	assert.ErrorIs(t, err, appErrors.ErrValidation, "2024 has 52 ISO weeks")
}

func TestSchoolServiceCurrentWeekAcrossYearBoundary(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		year int
		week int
	}{
		{name: "monday of week one", now: time.Date(2024, time.December, 30, 9, 0, 0, 0, time.UTC), year: 2025, week: 1},
		{name: "new year in week 53", now: time.Date(2027, time.January, 1, 9, 0, 0, 0, time.UTC), year: 2026, week: 53},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plugin := &fakePlugin{}
			store := &stubCacheRepo{}
			svc, _ := newSchoolServiceForTest(plugin, store)
			svc.now = func() time.Time { return tc.now }

			year, week := svc.CurrentWeek()
			assert.Equal(t, tc.year, year)
			assert.Equal(t, tc.week, week)

			_, _, err := svc.Timetable(context.Background(), "acc-1", year, week, false)
			require.NoError(t, err)
			assert.Equal(t, []isoWeek{{year: tc.year, week: tc.week}}, plugin.timetableArgs)
			assert.Contains(t, store.store, cache.Key("data", "acc-1", "timetable", strconv.Itoa(tc.year), strconv.Itoa(tc.week)))
		})
	}
}

func TestSchoolServiceRetriesOnceWhenVendorRejectsSession(t *testing.T) {
	repo := newFakeAccountRepo(&models.Account{ID: "acc-1", Service: models.ServiceSkolae, Username: "alice", SealedPassword: "sealed:2retnuh"})
	plugin := &fakePlugin{periods: academicYears(), expiresAt: schoolNow.Add(2 * time.Hour)}
	store := &stubCacheRepo{}
	accounts := newAccountServiceForTest(repo, plugin, store)
	accounts.now = func() time.Time { return schoolNow }
	svc, _ := newSchoolServiceForTest(plugin, store)
	svc.sessions = accounts
	ctx := context.Background()

	sess, _, err := accounts.Session(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, "token-alice", sess.AccessToken)
	plugin.revoked = map[string]bool{"token-alice": true}

	periods, _, err := svc.Periods(ctx, "acc-1", true)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
	assert.Equal(t, 2, plugin.refreshCalls)
	assert.Equal(t, 2, plugin.periodCalls)

	var cached models.Session
	require.NoError(t, store.Get(ctx, cache.Key("session", "acc-1"), &cached))
	assert.Equal(t, "token-alice-2", cached.AccessToken)

	_, _, err = svc.Periods(ctx, "acc-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, plugin.refreshCalls, "the fresh session is reused")
}

func TestSchoolServiceGivesUpAfterOneRelogin(t *testing.T) {
	plugin := &fakePlugin{dataErr: appErrors.ErrInvalidSession}
	svc, sessions := newSchoolServiceForTest(plugin, &stubCacheRepo{})

	_, _, err := svc.Timetable(context.Background(), "acc-1", 2024, 45, true)
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)
	assert.Equal(t, 2, sessions.calls)
	assert.Equal(t, 1, sessions.invalidated)
	assert.Len(t, plugin.timetableArgs, 2)

	plugin.dataErr = appErrors.Fetch(errors.New("boom"), "failed to fetch Skolae grade periods")
	_, _, err = svc.Periods(context.Background(), "acc-1", true)
	assert.ErrorIs(t, err, appErrors.ErrFetchFailure)
	assert.Equal(t, 1, sessions.invalidated, "only rejected sessions are dropped")
}

func TestSchoolServiceCapabilitiesAndErrors(t *testing.T) {
	ctx := context.Background()

	plugin := &fakePlugin{capabilities: []models.Capability{models.CapabilityRefresh, models.CapabilityTimetable}}
	svc, _ := newSchoolServiceForTest(plugin, &stubCacheRepo{})
	_, _, err := svc.Periods(ctx, "acc-1", false)
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedFeature)

	plugin = &fakePlugin{dataErr: appErrors.Fetch(errors.New("boom"), "failed to fetch Skolae grade periods")}
	svc, _ = newSchoolServiceForTest(plugin, &stubCacheRepo{})
	_, _, err = svc.Periods(ctx, "acc-1", false)
	assert.ErrorIs(t, err, appErrors.ErrFetchFailure)

	svc, sessions := newSchoolServiceForTest(&fakePlugin{}, &stubCacheRepo{})
	sessions.err = appErrors.ErrInvalidSession
	_, _, err = svc.Timetable(ctx, "acc-1", 2024, 10, false)
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)
}
