package models

import "time"

// ServiceKind identifies a school information-system backend.
type ServiceKind string

const (
	ServiceSkolae ServiceKind = "SKOLAE"
)

// Capability advertises what a school plugin can serve.
type Capability string

const (
	CapabilityRefresh   Capability = "REFRESH"
	CapabilityTimetable Capability = "TIMETABLE"
	CapabilityGrades    Capability = "GRADES"
	CapabilityNews      Capability = "NEWS"
)

// Account is a linked school account. The vendor password is kept sealed.
type Account struct {
	ID             string      `db:"id" json:"id"`
	Service        ServiceKind `db:"service" json:"service"`
	Username       string      `db:"username" json:"username"`
	SealedPassword string      `db:"sealed_password" json:"-"`
	DisplayName    string      `db:"display_name" json:"display_name"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Credentials are the plaintext vendor login values.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is an authenticated vendor handle. It is always passed explicitly
// to plugin calls.
type Session struct {
	AccountID   string      `json:"account_id"`
	Service     ServiceKind `json:"service"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Valid reports whether the session can still be used at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// AuthorizationHeader renders the vendor Authorization header value.
func (s *Session) AuthorizationHeader() string {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return tokenType + " " + s.AccessToken
}
