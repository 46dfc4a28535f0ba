package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type isoWeek struct {
	year, week int
}

type fakePlugin struct {
	mu           sync.Mutex
	capabilities []models.Capability
	refreshErr   error
	periods      []models.Period
	grades       models.PeriodGrades
	days         []models.CourseDay
	dataErr      error
	expiresAt    time.Time
	// revoked tokens are rejected by every data call.
	revoked map[string]bool

	refreshCalls  int
	periodCalls   int
	gradeCalls    int
	timetableArgs []isoWeek
}

func (p *fakePlugin) Service() models.ServiceKind { return models.ServiceSkolae }
func (p *fakePlugin) DisplayName() string          { return "Skolae" }

func (p *fakePlugin) Capabilities() []models.Capability {
	if p.capabilities == nil {
		return []models.Capability{models.CapabilityRefresh, models.CapabilityGrades, models.CapabilityTimetable}
	}
	return p.capabilities
}

func (p *fakePlugin) Refresh(_ context.Context, accountID string, creds models.Credentials) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	token := "token-" + creds.Username
	if p.refreshCalls > 1 {
		token += "-" + strconv.Itoa(p.refreshCalls)
	}
	return &models.Session{
		AccountID:   accountID,
		Service:     models.ServiceSkolae,
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   p.expiresAt,
	}, nil
}

func (p *fakePlugin) GradePeriods(_ context.Context, sess *models.Session) ([]models.Period, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.periodCalls++
	if err := p.dataError(sess); err != nil {
		return nil, err
	}
	return p.periods, nil
}

func (p *fakePlugin) GradesForPeriod(_ context.Context, sess *models.Session, _ models.Period) (models.PeriodGrades, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gradeCalls++
	if err := p.dataError(sess); err != nil {
		return models.PeriodGrades{}, err
	}
	return p.grades, nil
}

func (p *fakePlugin) WeeklyTimetable(_ context.Context, sess *models.Session, year, week int) ([]models.CourseDay, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timetableArgs = append(p.timetableArgs, isoWeek{year: year, week: week})
	if err := p.dataError(sess); err != nil {
		return nil, err
	}
	return p.days, nil
}

func (p *fakePlugin) dataError(sess *models.Session) error {
	if sess != nil && p.revoked[sess.AccessToken] {
		return appErrors.Clone(appErrors.ErrInvalidSession, "Skolae rejected the access token")
	}
	return p.dataErr
}

type fakeAccountRepo struct {
	accounts map[string]*models.Account
	upserts  int
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[string]*models.Account{}}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id string) (*models.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAccountRepo) FindByServiceUsername(_ context.Context, service models.ServiceKind, username string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Service == service && a.Username == username {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeAccountRepo) Upsert(_ context.Context, account *models.Account) error {
	r.upserts++
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.accounts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) ListIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

// reverseSealer is a reversible stand-in for the secretbox sealer.
type reverseSealer struct{}

func (reverseSealer) Seal(plaintext string) (string, error) { return "sealed:" + reverse(plaintext), nil }

func (reverseSealer) Open(sealed string) (string, error) {
	return reverse(strings.TrimPrefix(sealed, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
