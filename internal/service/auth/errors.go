package auth

import "errors"

var (
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrAccountLocked       = errors.New("auth: account locked")
	ErrIPBlocked           = errors.New("auth: too many failed attempts from this address")
	ErrTokenRequired       = errors.New("auth: token required")
	ErrInvalidRefreshToken = errors.New("auth: refresh token invalid or expired")
	ErrRefreshDisabled     = errors.New("auth: refresh tokens disabled")
)

// CredentialsError is returned for a wrong password on a known account and
// carries how many attempts remain before the account locks.
type CredentialsError struct {
	Remaining int
}

func (e *CredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}
