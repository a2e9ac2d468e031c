package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput indicates an empty username or password after trimming.
	ErrInvalidInput = errors.New("username and password must not be empty")
	// ErrAlreadyExists indicates a verifier already exists for the account.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both a wrong password and an unknown
	// account; the two are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBiometricUnavailable indicates the platform gate reports no sensor.
	ErrBiometricUnavailable = errors.New("biometric unavailable")
	// ErrBiometricNotEnabled indicates the account never opted in.
	ErrBiometricNotEnabled = errors.New("biometric not enabled")
	// ErrBiometricDenied indicates the platform gate rejected the prompt.
	ErrBiometricDenied = errors.New("biometric authentication failed")
)

// LockedError rejects an attempt while a brute-force lock window is active.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %dm", e.RemainingMinutes())
}

// RemainingMinutes reports the remaining lock window rounded up to whole
// minutes, the granularity shown to users.
func (e *LockedError) RemainingMinutes() int {
	mins := int((e.Remaining + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
