package models

import "time"

// GradeScore is a score on a 20-point basis. When Disabled is true the sample
// set was empty and Value must not be read as a real score.
type GradeScore struct {
	Value    float64 `json:"value"`
	Disabled bool    `json:"disabled"`
}

// DisabledScore is the empty-sample score.
func DisabledScore() GradeScore {
	return GradeScore{Value: 0, Disabled: true}
}

// OutOf is a grading denominator.
type OutOf struct {
	Value float64 `json:"value"`
}

// Period is a school year or term window used to scope grade queries.
type Period struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	CreatedByAccount string    `json:"created_by_account"`
}

// Contains reports whether t falls inside the period, both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Grade is a single evaluation.
type Grade struct {
	ID               string      `json:"id"`
	SubjectID        string      `json:"subject_id"`
	SubjectName      string      `json:"subject_name"`
	Description      string      `json:"description"`
	GivenAt          time.Time   `json:"given_at"`
	OutOf            OutOf       `json:"out_of"`
	Coefficient      float64     `json:"coefficient"`
	StudentScore     *GradeScore `json:"student_score,omitempty"`
	Bonus            bool        `json:"bonus"`
	Optional         bool        `json:"optional"`
	CreatedByAccount string      `json:"created_by_account"`
}

// Subject aggregates the grades of one course within a period.
type Subject struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	StudentAverage GradeScore `json:"student_average"`
	ClassAverage   GradeScore `json:"class_average"`
	OutOf          OutOf      `json:"out_of"`
	Grades         []Grade    `json:"grades"`
}

// PeriodGrades is the normalized grade report of one period.
type PeriodGrades struct {
	CreatedByAccount string     `json:"created_by_account"`
	StudentOverall   GradeScore `json:"student_overall"`
	ClassAverage     GradeScore `json:"class_average"`
	Subjects         []Subject  `json:"subjects"`
}

// EmptyPeriodGrades is the legitimate "no grades yet" result.
func EmptyPeriodGrades(accountID string) PeriodGrades {
	return PeriodGrades{
		CreatedByAccount: accountID,
		StudentOverall:   DisabledScore(),
		ClassAverage:     DisabledScore(),
		Subjects:         []Subject{},
	}
}

// GradeReport pairs a period with its normalized grades.
type GradeReport struct {
	Period Period       `json:"period"`
	Grades PeriodGrades `json:"grades"`
}
