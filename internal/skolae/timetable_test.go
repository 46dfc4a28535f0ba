package skolae

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/school-hub-api/internal/models"
)

type dropCounter struct {
	mu    sync.Mutex
	kinds []string
}

func (d *dropCounter) RecordDroppedRecord(service, kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, service+":"+kind)
}

func decodeEvents(t *testing.T, payload string) []RawEvent {
	t.Helper()
	var events []RawEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &events))
	return events
}

func TestTimetableEmptyInput(t *testing.T) {
	n := newTestNormalizer(nil)
	days := n.Timetable(nil, "acc-1")
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestTimetableMapsAndGroupsEvents(t *testing.T) {
	mathsStart := time.Date(2024, time.October, 7, 10, 0, 0, 0, paris)
	payload := fmt.Sprintf(`[
		{"reservation_id":1,"name":"Mathématiques","type":"TD Mathématiques",
		 "start_date":%d,"end_date":%d,
		 "rooms":[{"name":"A101"},{"code":"B2"},{"name":""}],
		 "discipline":{"name":"Maths","student_group_name":"3A"},
		 "teacher":"M. Martin","comment":"Apporter la calculatrice","state":"CANCELLED"},
		{"reservation_id":"2","name":"Physique","type":"Cours",
		 "start_date":"2024-10-07T08:00:00+02:00","end_date":"2024-10-07T09:30:00+02:00",
		 "discipline":{}},
		{"reservation_id":4,"name":"Anglais","type":"tp",
		 "start_date":"2024-10-08T09:00:00+02:00","end_date":"2024-10-08T10:00:00+02:00",
		 "rooms":[],"discipline":{"student_group_name":null},"state":"planned"}
	]`, mathsStart.UnixMilli(), mathsStart.Add(2*time.Hour).UnixMilli())

	n := newTestNormalizer(nil)
	days := n.Timetable(decodeEvents(t, payload), "acc-1")

	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, time.October, 7, 0, 0, 0, 0, paris), days[0].Date)
	require.Len(t, days[0].Courses, 2)

	physics := days[0].Courses[0]
	assert.Equal(t, "2", physics.ID)
	assert.Equal(t, models.CourseTypeLesson, physics.Type)
	assert.Nil(t, physics.Room)
	assert.Nil(t, physics.Group)
	assert.Nil(t, physics.Status)

	maths := days[0].Courses[1]
	assert.Equal(t, "1", maths.ID)
	assert.Equal(t, "Mathématiques", maths.Subject)
	assert.Equal(t, models.CourseTypeActivity, maths.Type)
	assert.True(t, maths.From.Equal(mathsStart))
	assert.True(t, maths.To.Equal(mathsStart.Add(2*time.Hour)))
	require.NotNil(t, maths.Room)
	assert.Equal(t, "A101, B2", *maths.Room)
	require.NotNil(t, maths.Group)
	assert.Equal(t, "3A", *maths.Group)
	require.NotNil(t, maths.Teacher)
	assert.Equal(t, "M. Martin", *maths.Teacher)
	require.NotNil(t, maths.AdditionalInfo)
	assert.Equal(t, "Apporter la calculatrice", *maths.AdditionalInfo)
	require.NotNil(t, maths.Status)
	assert.Equal(t, models.CourseStatusCanceled, *maths.Status)
	assert.Equal(t, "acc-1", maths.CreatedByAccount)

	english := days[1].Courses[0]
	assert.Equal(t, models.CourseTypeActivity, english.Type)
	assert.Nil(t, english.Status)
	assert.Nil(t, english.Room)
	assert.Nil(t, english.Group)
}

func TestTimetableDropsFailingEvents(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dropped := &dropCounter{}
	n := NewNormalizer(paris, zap.New(core), dropped)

	events := decodeEvents(t, `[
		{"reservation_id":1,"name":"Chimie","start_date":"2024-10-07T08:00:00+02:00","end_date":"2024-10-07T09:00:00+02:00"},
		"garbage",
		{"reservation_id":2,"name":"SVT","start_date":"demain","end_date":"2024-10-07T09:00:00+02:00","discipline":{}},
		{"reservation_id":3,"name":"EPS","start_date":"2024-10-07T10:00:00+02:00","end_date":"2024-10-07T11:00:00+02:00","discipline":{},"rooms":[null]},
		{"reservation_id":4,"name":"Histoire","state":"canceled","start_date":"2024-10-07T14:00:00+02:00","end_date":"2024-10-07T15:00:00+02:00","discipline":{}}
	]`)

	days := n.Timetable(events, "acc-1")

	require.Len(t, days, 1)
	require.Len(t, days[0].Courses, 1)
	assert.Equal(t, "4", days[0].Courses[0].ID)
	require.NotNil(t, days[0].Courses[0].Status)
	assert.Equal(t, 4, logs.Len())
	assert.Len(t, dropped.kinds, 4)
	assert.Equal(t, "SKOLAE:timetable_event", dropped.kinds[0])
}

func TestTimetableGroupsBySchoolDateAndKeepsFirstSeenOrder(t *testing.T) {
	n := newTestNormalizer(nil)
	events := decodeEvents(t, `[
		{"name":"Late","start_date":"2024-10-08T23:30:00Z","end_date":"2024-10-09T00:30:00Z","discipline":{}},
		{"name":"Early","start_date":"2024-10-07T06:00:00Z","end_date":"2024-10-07T07:00:00Z","discipline":{}},
		{"name":"Same","start_date":"2024-10-09T05:00:00Z","end_date":"2024-10-09T06:00:00Z","discipline":{}}
	]`)

	days := n.Timetable(events, "acc-1")

	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, time.October, 9, 0, 0, 0, 0, paris), days[0].Date)
	require.Len(t, days[0].Courses, 2)
	assert.Equal(t, "Late", days[0].Courses[0].Subject)
	assert.Equal(t, "Same", days[0].Courses[1].Subject)
	assert.Equal(t, "2024-10-08T23:30:00Z-Late", days[0].Courses[0].ID)
	assert.Equal(t, "Early", days[1].Courses[0].Subject)
}

func TestTimetableStableWithinDay(t *testing.T) {
	n := newTestNormalizer(nil)
	events := decodeEvents(t, `[
		{"reservation_id":"b","start_date":"2024-10-07T08:00:00+02:00","end_date":"2024-10-07T09:00:00+02:00","discipline":{}},
		{"reservation_id":"a","start_date":"2024-10-07T08:00:00+02:00","end_date":"2024-10-07T10:00:00+02:00","discipline":{}}
	]`)

	days := n.Timetable(events, "acc-1")

	require.Len(t, days, 1)
	assert.Equal(t, "b", days[0].Courses[0].ID)
	assert.Equal(t, "a", days[0].Courses[1].ID)
	assert.Equal(t, "Cours", days[0].Courses[0].Subject)
}

func TestTimetableKeepsEventsWithScalarDiscipline(t *testing.T) {
	n := newTestNormalizer(nil)
	events := decodeEvents(t, `[
		{"reservation_id":1,"start_date":"2024-10-07T08:00:00+02:00","end_date":"2024-10-07T09:00:00+02:00","discipline":"Maths"},
		{"reservation_id":2,"start_date":"2024-10-07T09:00:00+02:00","end_date":"2024-10-07T10:00:00+02:00","discipline":42},
		{"reservation_id":3,"start_date":"2024-10-07T10:00:00+02:00","end_date":"2024-10-07T11:00:00+02:00","discipline":null}
	]`)

	days := n.Timetable(events, "acc-1")

	require.Len(t, days, 1)
	require.Len(t, days[0].Courses, 2)
	assert.Equal(t, "1", days[0].Courses[0].ID)
	assert.Nil(t, days[0].Courses[0].Group)
	assert.Equal(t, "2", days[0].Courses[1].ID)
	assert.Nil(t, days[0].Courses[1].Group)
}
