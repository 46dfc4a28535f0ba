package service

import (
	"context"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

// SchoolPlugin adapts one school information system. Data calls receive the
// vendor session explicitly; plugins hold no per-account state.
type SchoolPlugin interface {
	Service() models.ServiceKind
	DisplayName() string
	Capabilities() []models.Capability
	Refresh(ctx context.Context, accountID string, creds models.Credentials) (*models.Session, error)
	GradePeriods(ctx context.Context, sess *models.Session) ([]models.Period, error)
	GradesForPeriod(ctx context.Context, sess *models.Session, period models.Period) (models.PeriodGrades, error)
	WeeklyTimetable(ctx context.Context, sess *models.Session, year, week int) ([]models.CourseDay, error)
}

// PluginRegistry resolves plugins by service kind.
type PluginRegistry struct {
	plugins map[models.ServiceKind]SchoolPlugin
}

// NewPluginRegistry indexes the given plugins.
func NewPluginRegistry(plugins ...SchoolPlugin) *PluginRegistry {
	r := &PluginRegistry{plugins: make(map[models.ServiceKind]SchoolPlugin, len(plugins))}
	for _, p := range plugins {
		r.plugins[p.Service()] = p
	}
	return r
}

// Get returns the plugin for kind or ErrUnsupportedService.
func (r *PluginRegistry) Get(kind models.ServiceKind) (SchoolPlugin, error) {
	p, ok := r.plugins[kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedService, "school service "+string(kind)+" is not supported")
	}
	return p, nil
}

func hasCapability(p SchoolPlugin, capability models.Capability) bool {
	for _, c := range p.Capabilities() {
		if c == capability {
			return true
		}
	}
	return false
}

func requireCapability(p SchoolPlugin, capability models.Capability) error {
	if hasCapability(p, capability) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrUnsupportedFeature, p.DisplayName()+" does not support "+string(capability))
}
