package period

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

// Selector picks the period to display as current.
type Selector struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSelector constructs a Selector using the wall clock.
func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{logger: logger, now: time.Now}
}

// Current selects against the current time, sampled once.
func (s *Selector) Current(periods []models.Period) (models.Period, error) {
	return s.SelectAt(periods, s.now())
}

// SelectAt returns the first period (by start) containing now. When none
// does, it falls back to the period whose start or end is nearest to now and
// logs the fallback.
func (s *Selector) SelectAt(periods []models.Period, now time.Time) (models.Period, error) {
	chosen, fallback, err := Select(periods, now)
	if err != nil {
		s.logger.Error("unable to find the current period and unable to fallback")
		return models.Period{}, err
	}
	if fallback {
		s.logger.Warn("current period not found, falling back to the closest period",
			zap.String("period_id", chosen.ID),
			zap.String("period", chosen.Name),
			zap.Time("now", now))
	}
	return chosen, nil
}

// Select is the pure selection rule. fallback reports whether the result
// came from the nearest-boundary pass. The input slice is not reordered.
func Select(periods []models.Period, now time.Time) (chosen models.Period, fallback bool, err error) {
	if len(periods) == 0 {
		return models.Period{}, false, appErrors.ErrNoPeriodAvailable
	}

	sorted := make([]models.Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for _, p := range sorted {
		if p.Contains(now) {
			return p, false, nil
		}
	}

	best := 0
	bestDistance := distance(sorted[0], now)
	for i := 1; i < len(sorted); i++ {
		if d := distance(sorted[i], now); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return sorted[best], true, nil
}

func distance(p models.Period, now time.Time) time.Duration {
	return minDuration(absDuration(now.Sub(p.Start)), absDuration(now.Sub(p.End)))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
