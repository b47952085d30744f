package models

import "time"

// RevokedToken marks a bearer token id (jti) as unusable until ExpiresAt.
type RevokedToken struct {
	TokenID   string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
