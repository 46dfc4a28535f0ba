package skolae

import (
	"time"

	"go.uber.org/zap"
)

// DropRecorder counts timetable events that failed to map.
type DropRecorder interface {
	RecordDroppedRecord(service, kind string)
}

// Normalizer maps Kordis payloads onto the shared models. It holds no
// per-account state; every call receives the account id explicitly.
type Normalizer struct {
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
	dropped DropRecorder
}

// NewNormalizer constructs a Normalizer for the given school time zone.
func NewNormalizer(loc *time.Location, logger *zap.Logger, dropped DropRecorder) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{loc: loc, now: time.Now, logger: logger, dropped: dropped}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
