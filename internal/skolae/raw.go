package skolae

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Flex is a loosely typed vendor field. Kordis sends the same field as a
// number, a numeric string or null depending on the endpoint, so values are
// kept raw and interpreted at mapping time.
type Flex struct {
	raw json.RawMessage
}

// FlexOf builds a Flex from any JSON-encodable value. Mostly useful in tests.
func FlexOf(v interface{}) Flex {
	b, err := json.Marshal(v)
	if err != nil {
		return Flex{}
	}
	return Flex{raw: b}
}

// UnmarshalJSON keeps the raw token.
func (f *Flex) UnmarshalJSON(b []byte) error {
	f.raw = append(f.raw[:0], b...)
	return nil
}

// MarshalJSON re-emits the raw token, or null.
func (f Flex) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// Present reports whether the field was sent with a non-null value.
func (f Flex) Present() bool {
	t := bytes.TrimSpace(f.raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// Truthy follows the vendor client's loose truthiness: missing, null, false,
// 0 and "" are false.
func (f Flex) Truthy() bool {
	if !f.Present() {
		return false
	}
	switch v := f.value().(type) {
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		n, err := v.Float64()
		return err != nil || n != 0
	default:
		return true
	}
}

// Text returns the field rendered as a string; ok is false when the field is
// absent or renders empty.
func (f Flex) Text() (string, bool) {
	if !f.Present() {
		return "", false
	}
	var s string
	switch v := f.value().(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = string(bytes.TrimSpace(f.raw))
	}
	return s, s != ""
}

// TextOr returns Text or fallback.
func (f Flex) TextOr(fallback string) string {
	if s, ok := f.Text(); ok {
		return s
	}
	return fallback
}

// Float parses the field the way a lenient float parser would: the longest
// numeric prefix of the text counts ("14.5/20" is 14.5), anything else fails.
func (f Flex) Float() (float64, bool) {
	if !f.Present() {
		return 0, false
	}
	switch v := f.value().(type) {
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		return parseFloatPrefix(v)
	default:
		return 0, false
	}
}

// FloatOr returns the parsed value, or fallback when parsing fails or the
// value is zero.
func (f Flex) FloatOr(fallback float64) float64 {
	if n, ok := f.Float(); ok && n != 0 {
		return n
	}
	return fallback
}

// Time interprets the field as an epoch-milliseconds number or a date string.
func (f Flex) Time(loc *time.Location) (time.Time, bool) {
	if !f.Present() {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	switch v := f.value().(type) {
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			fl, ferr := v.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			ms = int64(fl)
		}
		return time.UnixMilli(ms).In(loc), true
	case string:
		return parseTime(v, loc)
	default:
		return time.Time{}, false
	}
}

func (f Flex) value() interface{} {
	dec := json.NewDecoder(bytes.NewReader(f.raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// parseFloatPrefix accepts leading whitespace, an optional sign, digits with
// an optional fraction and an optional exponent, and ignores trailing text.
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// envelope is the wrapper around every Kordis API payload.
type envelope struct {
	ResponseCode int             `json:"response_code"`
	Version      string          `json:"version"`
	Result       json.RawMessage `json:"result"`
}

// RawYear is one entry of /me/years: either a bare year or {"year": n}.
type RawYear struct {
	Year  int
	Valid bool
}

// UnmarshalJSON accepts both shapes and never fails; unusable entries stay
// invalid and are skipped by the mapper.
func (y *RawYear) UnmarshalJSON(b []byte) error {
	var obj struct {
		Year Flex `json:"year"`
	}
	candidate := Flex{raw: append(json.RawMessage(nil), b...)}
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		candidate = obj.Year
	}
	n, ok := candidate.Float()
	if !ok || n <= 0 || n != float64(int(n)) {
		*y = RawYear{}
		return nil
	}
	*y = RawYear{Year: int(n), Valid: true}
	return nil
}

// RawSubject is one course entry of /me/{year}/grades.
type RawSubject struct {
	Course    Flex         `json:"course"`
	RCID      Flex         `json:"rc_id"`
	Code      Flex         `json:"code"`
	Teacher   Flex         `json:"teacher"`
	Coef      Flex         `json:"coef"`
	ECTS      Flex         `json:"ects"`
	Average   Flex         `json:"average"`
	CCAverage Flex         `json:"ccaverage"`
	Exam      Flex         `json:"exam"`
	Trimester Flex         `json:"trimester"`
	Grades    RawGradeList `json:"grades"`
}

// RawGradeList tolerates a non-array grades field by treating it as empty.
type RawGradeList []RawGrade

// UnmarshalJSON implements json.Unmarshaler.
func (l *RawGradeList) UnmarshalJSON(b []byte) error {
	var items []RawGrade
	if err := json.Unmarshal(b, &items); err != nil {
		*l = nil
		return nil
	}
	*l = items
	return nil
}

// RawGrade is a single evaluation object. Entries that are not objects, bare
// numbers included, decode to a grade without any field set: they carry no
// mark and map to an ungraded evaluation.
type RawGrade struct {
	ID          Flex `json:"id"`
	Mark        Flex `json:"mark"`
	Title       Flex `json:"title"`
	Description Flex `json:"description"`
	Date        Flex `json:"date"`
	OutOf       Flex `json:"outOf"`
	Coef        Flex `json:"coef"`
	Bonus       Flex `json:"bonus"`
	Optional    Flex `json:"optional"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *RawGrade) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		*g = RawGrade{}
		return nil
	}
	type plain RawGrade
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		*g = RawGrade{}
		return nil
	}
	*g = RawGrade(p)
	return nil
}

// RawEvent is one entry of /me/agenda. Nested objects stay raw so that a
// malformed event only fails its own mapping.
type RawEvent struct {
	ReservationID Flex            `json:"reservation_id"`
	Name          Flex            `json:"name"`
	Type          Flex            `json:"type"`
	Modality      Flex            `json:"modality"`
	StartDate     Flex            `json:"start_date"`
	EndDate       Flex            `json:"end_date"`
	Comment       Flex            `json:"comment"`
	Teacher       Flex            `json:"teacher"`
	State         Flex            `json:"state"`
	Rooms         json.RawMessage `json:"rooms"`
	Discipline    json.RawMessage `json:"discipline"`

	malformed json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler. Non-object entries decode into
// a RawEvent that fails mapping.
func (e *RawEvent) UnmarshalJSON(b []byte) error {
	type plain RawEvent
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		*e = RawEvent{malformed: append(json.RawMessage(nil), b...)}
		return nil
	}
	*e = RawEvent(p)
	return nil
}

type rawRoom struct {
	Name Flex `json:"name"`
	Code Flex `json:"code"`
}

type rawDiscipline struct {
	Name             Flex `json:"name"`
	StudentGroupName Flex `json:"student_group_name"`
}
