package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testCreated = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "deadbeef", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	acct, err := s.GetAccount(ctx, "stu42")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}

	if acct.AccountID != "stu42" {
		t.Errorf("AccountID = %s, want stu42", acct.AccountID)
	}
	if acct.Role != RoleStudent {
		t.Errorf("Role = %s, want student", acct.Role)
	}
	if acct.PasswordHash != "deadbeef" {
		t.Errorf("PasswordHash = %s, want deadbeef", acct.PasswordHash)
	}
	if acct.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", acct.FailedAttempts)
	}
	if acct.LockedUntil != nil {
		t.Errorf("LockedUntil = %v, want nil", acct.LockedUntil)
	}
	if acct.LastLogin != nil {
		t.Errorf("LastLogin = %v, want nil", acct.LastLogin)
	}
	if !acct.CreatedAt.Equal(testCreated) {
		t.Errorf("CreatedAt = %v, want %v", acct.CreatedAt, testCreated)
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "h1", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	err := s.CreateAccount(ctx, "stu42", RoleAdmin, "h2", testCreated)
	if !errors.Is(err, ErrAccountExists) {
		t.Errorf("duplicate CreateAccount() error = %v, want ErrAccountExists", err)
	}
}

func TestCreateAccountInvalidRole(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateAccount(context.Background(), "x", "superuser", "h", testCreated); err == nil {
		t.Error("CreateAccount() accepted an invalid role")
	}
}

func TestGetAccountNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAccount(context.Background(), "ghost")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("GetAccount() error = %v, want ErrAccountNotFound", err)
	}
}

func TestSaveAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "old", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	locked := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	login := time.Date(2026, 2, 1, 9, 45, 0, 0, time.UTC)
	acct := &Account{
		AccountID:      "stu42",
		PasswordHash:   "new",
		FailedAttempts: 2,
		LockedUntil:    &locked,
		LastLogin:      &login,
	}
	if err := s.SaveAccount(ctx, acct); err != nil {
		t.Fatalf("SaveAccount() error = %v", err)
	}

	got, err := s.GetAccount(ctx, "stu42")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if got.PasswordHash != "new" {
		t.Errorf("PasswordHash = %s, want new", got.PasswordHash)
	}
	if got.FailedAttempts != 2 {
		t.Errorf("FailedAttempts = %d, want 2", got.FailedAttempts)
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(locked) {
		t.Errorf("LockedUntil = %v, want %v", got.LockedUntil, locked)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(login) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, login)
	}
}

func TestSaveAccountClearsLock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "h", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	locked := time.Now().Add(time.Hour)
	if err := s.SaveAccount(ctx, &Account{AccountID: "stu42", PasswordHash: "h", FailedAttempts: 3, LockedUntil: &locked}); err != nil {
		t.Fatalf("SaveAccount() error = %v", err)
	}

	// Saving with a nil lock clears the stored expiry.
	if err := s.SaveAccount(ctx, &Account{AccountID: "stu42", PasswordHash: "h", FailedAttempts: 0, LockedUntil: nil}); err != nil {
		t.Fatalf("SaveAccount() error = %v", err)
	}

	got, _ := s.GetAccount(ctx, "stu42")
	if got.LockedUntil != nil {
		t.Errorf("LockedUntil = %v, want nil after clearing save", got.LockedUntil)
	}
	if got.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", got.FailedAttempts)
	}
}

func TestSaveAccountNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveAccount(context.Background(), &Account{AccountID: "ghost", PasswordHash: "h"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("SaveAccount() error = %v, want ErrAccountNotFound", err)
	}
}

func TestRecordLoginFailureBelowThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "h", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	lockUntil := time.Now().Add(30 * time.Minute)
	acct, err := s.RecordLoginFailure(ctx, "stu42", 3, lockUntil)
	if err != nil {
		t.Fatalf("RecordLoginFailure() error = %v", err)
	}

	if acct.FailedAttempts != 1 {
		t.Errorf("FailedAttempts = %d, want 1", acct.FailedAttempts)
	}
	if acct.LockedUntil != nil {
		t.Errorf("LockedUntil = %v, want nil below threshold", acct.LockedUntil)
	}
}

func TestRecordLoginFailureReachesThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "h", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	lockUntil := time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC)
	var acct *Account
	var err error
	for i := 0; i < 3; i++ {
		acct, err = s.RecordLoginFailure(ctx, "stu42", 3, lockUntil)
		if err != nil {
			t.Fatalf("RecordLoginFailure() #%d error = %v", i+1, err)
		}
	}

	if acct.FailedAttempts != 3 {
		t.Errorf("FailedAttempts = %d, want 3", acct.FailedAttempts)
	}
	if acct.LockedUntil == nil || !acct.LockedUntil.Equal(lockUntil) {
		t.Errorf("LockedUntil = %v, want %v", acct.LockedUntil, lockUntil)
	}

	// The stored row matches what the transaction returned.
	stored, err := s.GetAccount(ctx, "stu42")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if stored.FailedAttempts != 3 || stored.LockedUntil == nil {
		t.Errorf("stored account = %+v, want 3 failures and an armed lock", stored)
	}
}

func TestRecordLoginFailureNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RecordLoginFailure(context.Background(), "ghost", 3, time.Now())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("RecordLoginFailure() error = %v, want ErrAccountNotFound", err)
	}
}

func TestRecordLoginFailureConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "stu42", RoleStudent, "h", testCreated); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	// Concurrent failures must all be counted; the transactions queue on
	// the database write lock.
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordLoginFailure(ctx, "stu42", 3, time.Now().Add(30*time.Minute))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent RecordLoginFailure() error = %v", err)
		}
	}

	acct, err := s.GetAccount(ctx, "stu42")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acct.FailedAttempts != 3 {
		t.Errorf("FailedAttempts = %d, want 3 (no lost updates)", acct.FailedAttempts)
	}
	if acct.LockedUntil == nil {
		t.Error("LockedUntil should be armed after three concurrent failures")
	}
}

func TestListAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.CreateAccount(ctx, "admin1", RoleAdmin, "h", base)
	s.CreateAccount(ctx, "stu42", RoleStudent, "h", base.Add(time.Minute))
	s.CreateAccount(ctx, "stu07", RoleStudent, "h", base.Add(2*time.Minute))

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}

	if len(accounts) != 3 {
		t.Fatalf("ListAccounts() returned %d accounts, want 3", len(accounts))
	}
	want := []string{"admin1", "stu42", "stu07"}
	for i, id := range want {
		if accounts[i].AccountID != id {
			t.Errorf("accounts[%d] = %s, want %s (creation order)", i, accounts[i].AccountID, id)
		}
	}
}
