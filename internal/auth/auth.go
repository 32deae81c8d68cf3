// Package auth implements account management and the login state machine.
// An account is ACTIVE until repeated failed logins arm a timed lockout,
// after which attempts are rejected until the lock expires or an
// administrator unlocks the account. Every state change is recorded on the
// login audit trail before control returns to the caller.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examgate/internal/audit"
	"examgate/internal/digest"
	"examgate/internal/logging"
)

// Account roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Account states derived from the lockout fields.
const (
	StateActive = "ACTIVE"
	StateLocked = "LOCKED"
)

// Account is the auth view of a credential record.
type Account struct {
	AccountID      string
	Role           string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// StateAt reports the effective state at the given instant. A lock whose
// expiry has passed counts as ACTIVE even before the next attempt clears
// the stored fields.
func (a *Account) StateAt(now time.Time) string {
	if a.LockedUntil != nil && now.Before(*a.LockedUntil) {
		return StateLocked
	}
	return StateActive
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Store defines the account persistence operations needed by the service.
// Implementations return ErrAccountNotFound and ErrAccountExists from this
// package where those conditions apply. RecordLoginFailure must increment
// the failure counter atomically and arm the lock in the same step when the
// counter reaches the threshold, so two concurrent failures cannot lose an
// update.
type Store interface {
	CreateAccount(ctx context.Context, accountID, role, passwordHash string, createdAt time.Time) error
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	SaveAccount(ctx context.Context, acct *Account) error
	RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockUntil time.Time) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
}

// Audit appends one event to the login audit trail.
type Audit interface {
	Append(actor, subject, outcome, detail string) error
}

// Service evaluates login attempts and manages accounts.
type Service struct {
	store            Store
	trail            Audit
	logger           *logging.Logger
	lockoutThreshold int
	lockoutDuration  time.Duration

	now func() time.Time
}

// NewService creates an auth service. lockoutDurationMinutes is how long an
// account stays locked after lockoutThreshold consecutive failures.
func NewService(store Store, trail Audit, logger *logging.Logger, lockoutThreshold, lockoutDurationMinutes int) *Service {
	return &Service{
		store:            store,
		trail:            trail,
		logger:           logger,
		lockoutThreshold: lockoutThreshold,
		lockoutDuration:  time.Duration(lockoutDurationMinutes) * time.Minute,
		now:              time.Now,
	}
}

// CreateAccount registers a new account. The password is hashed before it
// reaches the store; the plain form is never persisted.
func (s *Service) CreateAccount(ctx context.Context, accountID, role, password string) (*Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if role != RoleStudent && role != RoleAdmin {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	now := s.now()
	hash := digest.Password(password)
	if err := s.store.CreateAccount(ctx, accountID, role, hash, now); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.audit(accountID, audit.AccountCreated, fmt.Sprintf("new %s account registered", role))
	s.logger.Info("Account created: %s (%s)", accountID, role)

	return &Account{
		AccountID:    accountID,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
	}, nil
}

// Login evaluates one login attempt. On success the failure counter resets
// and the login time is recorded. On a wrong password the counter
// increments, arming the lockout when it reaches the threshold. Attempts
// against a locked account are rejected before any password check; a lock
// whose expiry has passed is cleared first and the attempt then proceeds
// normally in the same call.
func (s *Service) Login(ctx context.Context, accountID, password string) (*Account, error) {
	now := s.now()

	acct, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		s.audit(accountID, audit.LoginFailure, "account not found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if acct.LockedUntil != nil {
		if now.Before(*acct.LockedUntil) {
			lockErr := &LockedError{Until: *acct.LockedUntil}
			s.audit(accountID, audit.LoginBlocked,
				fmt.Sprintf("account locked, %d min remaining", lockErr.RemainingMinutes(now)))
			return nil, lockErr
		}

		// The lock has expired. Clear it, then evaluate this same
		// attempt under the normal rules.
		acct.FailedAttempts = 0
		acct.LockedUntil = nil
		if err := s.store.SaveAccount(ctx, acct); err != nil {
			return nil, fmt.Errorf("failed to clear expired lock: %w", err)
		}
		s.logger.Debug("Expired lock cleared for %s", accountID)
	}

	if digest.Password(password) != acct.PasswordHash {
		return nil, s.recordFailure(ctx, accountID)
	}

	acct.FailedAttempts = 0
	acct.LockedUntil = nil
	login := now
	acct.LastLogin = &login
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	s.audit(accountID, audit.LoginSuccess, fmt.Sprintf("successful login as %s", acct.Role))
	s.logger.Info("Login successful: %s (%s)", accountID, acct.Role)
	return acct, nil
}

// recordFailure counts one wrong password. The store decides inside its own
// exclusion scope whether this failure reaches the threshold, so the audit
// event matches what was actually persisted. When this attempt arms the
// lock, the returned error carries the lock expiry so the caller can report
// it.
func (s *Service) recordFailure(ctx context.Context, accountID string) error {
	acct, err := s.store.RecordLoginFailure(ctx, accountID, s.lockoutThreshold, s.now().Add(s.lockoutDuration))
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	if acct.LockedUntil != nil {
		s.audit(accountID, audit.LockoutTriggered,
			fmt.Sprintf("account locked after %d failed attempts", acct.FailedAttempts))
		s.logger.Warn("Account locked: %s after %d failed attempts", accountID, acct.FailedAttempts)
		return &LockedError{Until: *acct.LockedUntil}
	}

	left := s.lockoutThreshold - acct.FailedAttempts
	s.audit(accountID, audit.LoginFailure, fmt.Sprintf("wrong password, %d attempts left", left))
	return ErrInvalidCredentials
}

// Unlock clears the lockout state and failure counter regardless of the
// current state. It is a privileged operation; role enforcement sits with
// the caller.
func (s *Service) Unlock(ctx context.Context, accountID, unlockedBy string) error {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to load account: %w", err)
	}

	acct.FailedAttempts = 0
	acct.LockedUntil = nil
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}

	s.audit(accountID, audit.ManualUnlock, "account manually unlocked by "+unlockedBy)
	s.logger.Info("Account unlocked: %s by %s", accountID, unlockedBy)
	return nil
}

// Accounts returns all registered accounts in creation order.
func (s *Service) Accounts(ctx context.Context) ([]*Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// audit appends to the login trail. A trail failure is reported on the
// application log and does not fail the operation that triggered it.
func (s *Service) audit(actor, outcome, detail string) {
	if err := s.trail.Append(actor, "", outcome, detail); err != nil {
		s.logger.Error("Audit append failed for %s %s: %v", actor, outcome, err)
	}
}
