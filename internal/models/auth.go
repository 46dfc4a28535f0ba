package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkAccountRequest holds vendor credentials for linking an account.
type LinkAccountRequest struct {
	Service     ServiceKind `json:"service" validate:"required"`
	Username    string      `json:"username" validate:"required"`
	Password    string      `json:"password" validate:"required"`
	DisplayName string      `json:"display_name" validate:"max=120"`
}

// LinkAccountResponse returns the API token bound to the linked account.
type LinkAccountResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Account     AccountInfo `json:"account"`
}

// AccountInfo describes a linked account in responses.
type AccountInfo struct {
	ID           string       `json:"id"`
	Service      ServiceKind  `json:"service"`
	ServiceName  string       `json:"service_name"`
	Username     string       `json:"username"`
	DisplayName  string       `json:"display_name"`
	Capabilities []Capability `json:"capabilities"`
}

// JWTClaims represents the payload of API access tokens.
type JWTClaims struct {
	AccountID   string      `json:"account_id"`
	Service     ServiceKind `json:"service"`
	DisplayName string      `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}
