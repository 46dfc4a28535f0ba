package models

import "time"

// CourseType classifies a timetable entry.
type CourseType string

const (
	CourseTypeLesson   CourseType = "LESSON"
	CourseTypeActivity CourseType = "ACTIVITY"
)

// CourseStatus is only set for states the app models.
type CourseStatus string

const (
	CourseStatusCanceled CourseStatus = "CANCELED"
)

// Course is a scheduled timetable event.
type Course struct {
	ID               string        `json:"id"`
	Subject          string        `json:"subject"`
	Type             CourseType    `json:"type"`
	From             time.Time     `json:"from"`
	To               time.Time     `json:"to"`
	AdditionalInfo   *string       `json:"additional_info,omitempty"`
	Room             *string       `json:"room,omitempty"`
	Teacher          *string       `json:"teacher,omitempty"`
	Group            *string       `json:"group,omitempty"`
	Status           *CourseStatus `json:"status,omitempty"`
	CreatedByAccount string        `json:"created_by_account"`
}

// CourseDay holds the courses starting on one calendar date, ordered by From.
type CourseDay struct {
	Date    time.Time `json:"date"`
	Courses []Course  `json:"courses"`
}
