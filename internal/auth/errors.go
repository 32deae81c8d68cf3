package auth

import (
	"errors"
	"fmt"
	"time"
)

// Common errors. Login deliberately returns the same ErrInvalidCredentials
// for an unknown account and for a wrong password, so callers cannot be used
// to probe which account IDs exist. The audit trail records the real cause.
var (
	ErrInvalidCredentials = errors.New("invalid account ID or password")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
)

// LockedError rejects a login attempt against an account whose lockout is
// still in force. No password check has been performed.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format("2006-01-02 15:04:05"))
}

// RemainingMinutes returns whole minutes of lock time left at now, rounded
// up so an active lock never displays as zero minutes.
func (e *LockedError) RemainingMinutes(now time.Time) int {
	d := e.Until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
