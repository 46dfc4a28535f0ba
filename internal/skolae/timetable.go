package skolae

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
)

const (
	defaultCourseSubject = "Cours"
	dayKeyLayout         = "2006-01-02"
)

var (
	errMalformedEvent    = errors.New("event is not an object")
	errMissingDiscipline = errors.New("event has no discipline")
)

// Timetable maps agenda events into days. Events that fail to map are logged
// and skipped; the rest of the batch is kept. Days come out in the order their
// first event appears, courses within a day sorted by start.
func (n *Normalizer) Timetable(raw []RawEvent, accountID string) []models.CourseDay {
	if len(raw) == 0 {
		return []models.CourseDay{}
	}

	var order []string
	buckets := make(map[string][]models.Course)
	for i, ev := range raw {
		course, err := n.mapEvent(ev, accountID)
		if err != nil {
			n.logger.Warn("error mapping Skolae event",
				zap.Int("index", i),
				zap.Error(err),
				zap.ByteString("event", ev.rawForLog()))
			if n.dropped != nil {
				n.dropped.RecordDroppedRecord(string(models.ServiceSkolae), "timetable_event")
			}
			continue
		}
		key := course.From.In(n.loc).Format(dayKeyLayout)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], course)
	}

	days := make([]models.CourseDay, 0, len(order))
	for _, key := range order {
		courses := buckets[key]
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].From.Before(courses[j].From)
		})
		first := courses[0].From.In(n.loc)
		days = append(days, models.CourseDay{
			Date:    startOfDay(first),
			Courses: courses,
		})
	}
	return days
}

func (n *Normalizer) mapEvent(ev RawEvent, accountID string) (models.Course, error) {
	if ev.malformed != nil {
		return models.Course{}, errMalformedEvent
	}

	from, ok := ev.StartDate.Time(n.loc)
	if !ok {
		return models.Course{}, fmt.Errorf("invalid start_date %s", ev.StartDate.TextOr("<missing>"))
	}
	to, ok := ev.EndDate.Time(n.loc)
	if !ok {
		return models.Course{}, fmt.Errorf("invalid end_date %s", ev.EndDate.TextOr("<missing>"))
	}

	group, err := disciplineGroup(ev.Discipline)
	if err != nil {
		return models.Course{}, err
	}
	room, err := joinRooms(ev.Rooms)
	if err != nil {
		return models.Course{}, err
	}

	courseType := models.CourseTypeLesson
	if t, ok := ev.Type.Text(); ok {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "td") || strings.Contains(lower, "tp") {
			courseType = models.CourseTypeActivity
		}
	}

	name, _ := ev.Name.Text()
	startText, _ := ev.StartDate.Text()

	return models.Course{
		ID:               ev.ReservationID.TextOr(fmt.Sprintf("%s-%s", startText, name)),
		Subject:          ev.Name.TextOr(defaultCourseSubject),
		Type:             courseType,
		From:             from,
		To:               to,
		AdditionalInfo:   optionalText(ev.Comment),
		Room:             room,
		Teacher:          optionalText(ev.Teacher),
		Group:            group,
		Status:           mapStatus(ev.State),
		CreatedByAccount: accountID,
	}, nil
}

// mapStatus only recognises cancellation; other states are not modelled.
func mapStatus(state Flex) *models.CourseStatus {
	s, ok := state.Text()
	if !ok {
		return nil
	}
	switch strings.ToUpper(s) {
	case "CANCELLED", "CANCELED":
		status := models.CourseStatusCanceled
		return &status
	default:
		return nil
	}
}

func disciplineGroup(raw json.RawMessage) (*string, error) {
	if !present(raw) {
		return nil, errMissingDiscipline
	}
	// A scalar or array discipline carries no group; the course is kept.
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, nil
	}
	var d rawDiscipline
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode discipline: %w", err)
	}
	return optionalText(d.StudentGroupName), nil
}

func joinRooms(raw json.RawMessage) (*string, error) {
	if !present(raw) {
		return nil, nil
	}
	var rooms []json.RawMessage
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	names := make([]string, 0, len(rooms))
	for i, r := range rooms {
		if !present(r) {
			return nil, fmt.Errorf("room %d is null", i)
		}
		var room rawRoom
		if err := json.Unmarshal(r, &room); err != nil {
			return nil, fmt.Errorf("decode room %d: %w", i, err)
		}
		if s, ok := room.Name.Text(); ok {
			names = append(names, s)
		} else if s, ok := room.Code.Text(); ok {
			names = append(names, s)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	joined := strings.Join(names, ", ")
	return &joined, nil
}

func optionalText(f Flex) *string {
	s, ok := f.Text()
	if !ok {
		return nil
	}
	return &s
}

func present(raw json.RawMessage) bool {
	return Flex{raw: raw}.Present()
}

func (e RawEvent) rawForLog() []byte {
	if e.malformed != nil {
		return e.malformed
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}
