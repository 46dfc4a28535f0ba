package models

import "time"

// Homework is a task attached to an account. Custom entries are created by
// the user rather than fetched from a school service.
type Homework struct {
	ID         string    `db:"id" json:"id"`
	AccountID  string    `db:"account_id" json:"account_id"`
	Subject    string    `db:"subject" json:"subject"`
	Content    string    `db:"content" json:"content"`
	DueDate    time.Time `db:"due_date" json:"due_date"`
	IsDone     bool      `db:"is_done" json:"is_done"`
	Evaluation bool      `db:"evaluation" json:"evaluation"`
	Custom     bool      `db:"custom" json:"custom"`
	KidName    string    `db:"kid_name" json:"kid_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HomeworkFilter narrows homework listings.
type HomeworkFilter struct {
	AccountID string
	From      *time.Time
	To        *time.Time
	IsDone    *bool
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// HomeworkRequest is the payload for creating or editing homework.
type HomeworkRequest struct {
	Subject    string    `json:"subject" validate:"required,max=200"`
	Content    string    `json:"content" validate:"required,max=5000"`
	DueDate    time.Time `json:"due_date" validate:"required"`
	Evaluation bool      `json:"evaluation"`
}

// HomeworkDoneRequest toggles completion.
type HomeworkDoneRequest struct {
	IsDone *bool `json:"is_done" validate:"required"`
}
