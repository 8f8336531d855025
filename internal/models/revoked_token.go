package models

import "time"

// RevokedToken blocks an access token after logout until it would have expired.
type RevokedToken struct {
	TokenHash string    `gorm:"size:64;primaryKey" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
