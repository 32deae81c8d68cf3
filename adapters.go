package main

import (
	"context"
	"errors"
	"time"

	"examgate/internal/auth"
	"examgate/internal/store"
	"examgate/internal/submit"
)

// authStoreAdapter adapts store.Store to the auth.Store interface.
type authStoreAdapter struct {
	store *store.Store
}

func (a *authStoreAdapter) CreateAccount(ctx context.Context, accountID, role, passwordHash string, createdAt time.Time) error {
	return mapAccountErr(a.store.CreateAccount(ctx, accountID, role, passwordHash, createdAt))
}

func (a *authStoreAdapter) GetAccount(ctx context.Context, accountID string) (*auth.Account, error) {
	acct, err := a.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, mapAccountErr(err)
	}
	return toAuthAccount(acct), nil
}

func (a *authStoreAdapter) SaveAccount(ctx context.Context, acct *auth.Account) error {
	return mapAccountErr(a.store.SaveAccount(ctx, toStoreAccount(acct)))
}

func (a *authStoreAdapter) RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockUntil time.Time) (*auth.Account, error) {
	acct, err := a.store.RecordLoginFailure(ctx, accountID, threshold, lockUntil)
	if err != nil {
		return nil, mapAccountErr(err)
	}
	return toAuthAccount(acct), nil
}

func (a *authStoreAdapter) ListAccounts(ctx context.Context) ([]*auth.Account, error) {
	accts, err := a.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*auth.Account, len(accts))
	for i := range accts {
		out[i] = toAuthAccount(&accts[i])
	}
	return out, nil
}

// mapAccountErr converts store sentinels to the auth package's equivalents.
func mapAccountErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAccountNotFound):
		return auth.ErrAccountNotFound
	case errors.Is(err, store.ErrAccountExists):
		return auth.ErrAccountExists
	default:
		return err
	}
}

func toAuthAccount(acct *store.Account) *auth.Account {
	return &auth.Account{
		AccountID:      acct.AccountID,
		Role:           acct.Role,
		PasswordHash:   acct.PasswordHash,
		FailedAttempts: acct.FailedAttempts,
		LockedUntil:    acct.LockedUntil,
		CreatedAt:      acct.CreatedAt,
		LastLogin:      acct.LastLogin,
	}
}

func toStoreAccount(acct *auth.Account) *store.Account {
	return &store.Account{
		AccountID:      acct.AccountID,
		Role:           acct.Role,
		PasswordHash:   acct.PasswordHash,
		FailedAttempts: acct.FailedAttempts,
		LockedUntil:    acct.LockedUntil,
		CreatedAt:      acct.CreatedAt,
		LastLogin:      acct.LastLogin,
	}
}

// submitStoreAdapter adapts store.Store to the submit.Store interface.
type submitStoreAdapter struct {
	store *store.Store
}

func (a *submitStoreAdapter) HasSubmissionNamed(ctx context.Context, studentID, filename string) (bool, error) {
	return a.store.HasSubmissionNamed(ctx, studentID, filename)
}

func (a *submitStoreAdapter) HasSubmissionContent(ctx context.Context, contentHash string) (bool, error) {
	return a.store.HasSubmissionContent(ctx, contentHash)
}

func (a *submitStoreAdapter) AddSubmission(ctx context.Context, rec *submit.Record) error {
	err := a.store.AddSubmission(ctx, &store.SubmissionRecord{
		StudentID:   rec.StudentID,
		Filename:    rec.Filename,
		ContentHash: rec.ContentHash,
		SizeBytes:   rec.SizeBytes,
		StoredName:  rec.StoredName,
		AcceptedAt:  rec.AcceptedAt,
	})

	// Convert duplicate sentinels so the service can classify index races
	// the same way as its own pre-checks.
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicateName):
		return submit.ErrDuplicateFilename
	case errors.Is(err, store.ErrDuplicateContent):
		return submit.ErrDuplicateContent
	default:
		return err
	}
}

func (a *submitStoreAdapter) SubmissionsByStudent(ctx context.Context, studentID string) ([]*submit.Record, error) {
	recs, err := a.store.SubmissionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return toSubmitRecords(recs), nil
}

func (a *submitStoreAdapter) AllSubmissions(ctx context.Context) ([]*submit.Record, error) {
	recs, err := a.store.AllSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	return toSubmitRecords(recs), nil
}

func toSubmitRecords(recs []store.SubmissionRecord) []*submit.Record {
	out := make([]*submit.Record, len(recs))
	for i, rec := range recs {
		out[i] = &submit.Record{
			StudentID:   rec.StudentID,
			Filename:    rec.Filename,
			ContentHash: rec.ContentHash,
			SizeBytes:   rec.SizeBytes,
			StoredName:  rec.StoredName,
			AcceptedAt:  rec.AcceptedAt,
		}
	}
	return out
}

// watcherSubmitter adapts the submission service to the watcher.Submitter
// interface, which has no use for the returned record.
type watcherSubmitter struct {
	service *submit.Service
}

func (ws *watcherSubmitter) Submit(ctx context.Context, studentID, filename, path string) error {
	_, err := ws.service.SubmitAs(ctx, studentID, filename, path)
	return err
}
