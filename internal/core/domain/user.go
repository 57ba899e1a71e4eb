package domain

import "time"

// User is the minimal identity record the gateway needs for credential
// validation. Account management lives in the IAM service.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsActive     bool
	RegisteredAt time.Time
}
