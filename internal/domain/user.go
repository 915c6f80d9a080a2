package domain

import "time"

// User represents a staff account allowed to sign in.
type User struct {
	ID             string
	Username       string
	Name           string
	Email          string
	PasswordHash   []byte
	Role           string
	Active         bool
	FailedAttempts int
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// Locked reports whether the account reached the failed-attempt limit.
func (u User) Locked(maxAttempts int) bool {
	if !u.Active {
		return true
	}
	return maxAttempts > 0 && u.FailedAttempts >= maxAttempts
}

// DisplayName prefers the full name, then the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
