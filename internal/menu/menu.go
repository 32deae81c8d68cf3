// Package menu implements the interactive terminal surface. Every action
// delegates to the auth and submission services; the menu itself holds no
// state beyond the currently logged-in account.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"examgate/internal/audit"
	"examgate/internal/auth"
	"examgate/internal/digest"
	"examgate/internal/logging"
	"examgate/internal/submit"
)

// Auth is the slice of the auth service the menu drives.
type Auth interface {
	Login(ctx context.Context, accountID, password string) (*auth.Account, error)
	CreateAccount(ctx context.Context, accountID, role, password string) (*auth.Account, error)
	Unlock(ctx context.Context, accountID, unlockedBy string) error
	Accounts(ctx context.Context) ([]*auth.Account, error)
}

// Submissions is the slice of the submission service the menu drives.
type Submissions interface {
	Submit(ctx context.Context, studentID, path string) (*submit.Record, error)
	Submissions(ctx context.Context, studentID string) ([]*submit.Record, error)
	AllSubmissions(ctx context.Context) ([]*submit.Record, error)
}

// Trail provides read access to one audit stream for the history views.
type Trail interface {
	Tail(n int) ([]audit.Entry, error)
}

// Menu drives the terminal session.
type Menu struct {
	auth            Auth
	subs            Submissions
	loginTrail      Trail
	submissionTrail Trail
	logger          *logging.Logger

	in          *bufio.Reader
	out         io.Writer
	interactive bool

	current *auth.Account
}

// New creates a menu reading from stdin and writing to stdout. Passwords are
// read without echo when stdin is a terminal.
func New(authSvc Auth, subs Submissions, loginTrail, submissionTrail Trail, logger *logging.Logger) *Menu {
	return &Menu{
		auth:            authSvc,
		subs:            subs,
		loginTrail:      loginTrail,
		submissionTrail: submissionTrail,
		logger:          logger,
		in:              bufio.NewReader(os.Stdin),
		out:             os.Stdout,
		interactive:     isatty.IsTerminal(os.Stdin.Fd()),
	}
}

// Run drives the main menu until the user exits, the input stream ends, or
// the context is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	m.logger.Debug("Interactive session started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.out, "\n  ============================================================")
		fmt.Fprintln(m.out, "         UNIVERSITY SECURE EXAMINATION SYSTEM")
		fmt.Fprintln(m.out, "  ============================================================")
		m.printSession()
		fmt.Fprintln(m.out, "  1. Submit Exam File")
		fmt.Fprintln(m.out, "  2. View My Submissions")
		fmt.Fprintln(m.out, "  3. View All Submissions (admin)")
		fmt.Fprintln(m.out, "  4. Login & Account Management")
		fmt.Fprintln(m.out, "  5. Exit")
		fmt.Fprintln(m.out, "  ============================================================")

		choice, err := m.prompt("  Enter your choice [1-5]: ")
		if err != nil {
			return ignoreEOF(err)
		}

		switch choice {
		case "1":
			err = m.submitFile(ctx)
		case "2":
			m.viewMySubmissions(ctx)
		case "3":
			m.viewAllSubmissions(ctx)
		case "4":
			err = m.accountMenu(ctx)
		case "5":
			fmt.Fprintln(m.out, "\n  Goodbye.")
			m.logger.Debug("Interactive session ended")
			return nil
		default:
			fmt.Fprintln(m.out, "\n  Invalid choice. Please select a number between 1 and 5.")
		}
		if err != nil {
			return ignoreEOF(err)
		}
	}
}

// accountMenu drives the login and account management submenu.
func (m *Menu) accountMenu(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.out, "\n  ------------------------------------------------------------")
		fmt.Fprintln(m.out, "         LOGIN & ACCOUNT MANAGEMENT")
		fmt.Fprintln(m.out, "  ------------------------------------------------------------")
		fmt.Fprintln(m.out, "  1. Login")
		fmt.Fprintln(m.out, "  2. Create Account")
		fmt.Fprintln(m.out, "  3. View Login History")
		fmt.Fprintln(m.out, "  4. View All Accounts")
		fmt.Fprintln(m.out, "  5. Unlock an Account")
		fmt.Fprintln(m.out, "  6. View Submission Activity Log")
		fmt.Fprintln(m.out, "  7. Back to Main Menu")

		choice, err := m.prompt("  Enter your choice [1-7]: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = m.login(ctx)
		case "2":
			err = m.createAccount(ctx)
		case "3":
			m.viewLoginHistory()
		case "4":
			m.viewAllAccounts(ctx)
		case "5":
			err = m.unlockAccount(ctx)
		case "6":
			m.viewSubmissionActivity()
		case "7":
			return nil
		default:
			fmt.Fprintln(m.out, "\n  Invalid choice. Please select a number between 1 and 7.")
		}
		if err != nil {
			return err
		}
	}
}

func (m *Menu) submitFile(ctx context.Context) error {
	acct := m.current
	if acct == nil {
		fmt.Fprintln(m.out, "\n  Please log in first (menu option 4).")
		return nil
	}

	path, err := m.prompt("  Path of the file to submit: ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(m.out, "  Error: no file path given.")
		return nil
	}

	rec, submitErr := m.subs.Submit(ctx, acct.AccountID, path)
	if submitErr != nil {
		m.reportSubmitError(submitErr)
		return nil
	}

	fmt.Fprintf(m.out, "\n  Submission accepted: %s (%s, hash %s)\n",
		rec.Filename, humanize.IBytes(uint64(rec.SizeBytes)), digest.Prefix(rec.ContentHash))
	return nil
}

func (m *Menu) reportSubmitError(err error) {
	var valErr *submit.ValidationError
	var storErr *submit.StorageError
	switch {
	case errors.As(err, &valErr):
		fmt.Fprintf(m.out, "\n  Submission rejected: %s\n", valErr.Detail)
	case errors.Is(err, submit.ErrDuplicateFilename):
		fmt.Fprintln(m.out, "\n  Submission rejected: you have already submitted a file with this name.")
	case errors.Is(err, submit.ErrDuplicateContent):
		fmt.Fprintln(m.out, "\n  Submission rejected: this content has already been submitted.")
	case errors.As(err, &storErr):
		fmt.Fprintf(m.out, "\n  Submission failed and was not recorded: %v\n", err)
	default:
		fmt.Fprintf(m.out, "\n  Submission failed: %v\n", err)
	}
}

func (m *Menu) viewMySubmissions(ctx context.Context) {
	acct := m.current
	if acct == nil {
		fmt.Fprintln(m.out, "\n  Please log in first (menu option 4).")
		return
	}

	recs, err := m.subs.Submissions(ctx, acct.AccountID)
	if err != nil {
		fmt.Fprintf(m.out, "\n  Error reading submissions: %v\n", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(m.out, "\n  No submissions yet.")
		return
	}

	fmt.Fprintf(m.out, "\n  %-30s %-10s %-20s %s\n", "FILENAME", "SIZE", "SUBMITTED", "HASH")
	fmt.Fprintln(m.out, "  "+strings.Repeat("-", 75))
	for _, rec := range recs {
		fmt.Fprintf(m.out, "  %-30s %-10s %-20s %s\n",
			rec.Filename, humanize.IBytes(uint64(rec.SizeBytes)),
			rec.AcceptedAt.Format(audit.TimeLayout), digest.Prefix(rec.ContentHash))
	}
}

func (m *Menu) viewAllSubmissions(ctx context.Context) {
	if !m.requireAdmin() {
		return
	}

	recs, err := m.subs.AllSubmissions(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "\n  Error reading submissions: %v\n", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(m.out, "\n  No submissions recorded yet.")
		return
	}

	fmt.Fprintf(m.out, "\n  %-15s %-30s %-10s %-20s %s\n", "STUDENT", "FILENAME", "SIZE", "SUBMITTED", "HASH")
	fmt.Fprintln(m.out, "  "+strings.Repeat("-", 90))
	for _, rec := range recs {
		fmt.Fprintf(m.out, "  %-15s %-30s %-10s %-20s %s\n",
			rec.StudentID, rec.Filename, humanize.IBytes(uint64(rec.SizeBytes)),
			rec.AcceptedAt.Format(audit.TimeLayout), digest.Prefix(rec.ContentHash))
	}
}

func (m *Menu) login(ctx context.Context) error {
	accountID, err := m.prompt("  Username: ")
	if err != nil {
		return err
	}
	if accountID == "" {
		fmt.Fprintln(m.out, "  Error: username cannot be empty.")
		return nil
	}

	password, err := m.promptPassword("  Password: ")
	if err != nil {
		return err
	}

	acct, loginErr := m.auth.Login(ctx, accountID, password)
	if loginErr != nil {
		var lockErr *auth.LockedError
		if errors.As(loginErr, &lockErr) {
			fmt.Fprintln(m.out, "\n  Account is LOCKED due to too many failed attempts.")
			fmt.Fprintf(m.out, "  Try again in %d minute(s).\n", lockErr.RemainingMinutes(time.Now()))
			return nil
		}
		fmt.Fprintf(m.out, "\n  Login failed: %v\n", loginErr)
		return nil
	}

	m.current = acct
	fmt.Fprintf(m.out, "\n  Login successful! Welcome, %s (%s).\n", acct.AccountID, acct.Role)
	if acct.LastLogin != nil {
		fmt.Fprintf(m.out, "  Last login: %s\n", acct.LastLogin.Format(audit.TimeLayout))
	}
	return nil
}

func (m *Menu) createAccount(ctx context.Context) error {
	fmt.Fprintln(m.out, "\n  --- Create New Account ---")

	accountID, err := m.prompt("  Enter username (student ID or admin name): ")
	if err != nil {
		return err
	}
	if accountID == "" {
		fmt.Fprintln(m.out, "  Error: username cannot be empty.")
		return nil
	}

	role, err := m.prompt("  Role (student/admin) [default: student]: ")
	if err != nil {
		return err
	}
	role = strings.ToLower(role)
	if role != auth.RoleStudent && role != auth.RoleAdmin {
		role = auth.RoleStudent
	}

	password, err := m.promptPassword("  Set password: ")
	if err != nil {
		return err
	}
	if password == "" {
		fmt.Fprintln(m.out, "  Error: password cannot be empty.")
		return nil
	}

	confirm, err := m.promptPassword("  Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		fmt.Fprintln(m.out, "  Error: passwords do not match.")
		return nil
	}

	if _, createErr := m.auth.CreateAccount(ctx, accountID, role, password); createErr != nil {
		if errors.Is(createErr, auth.ErrAccountExists) {
			fmt.Fprintf(m.out, "  Error: account '%s' already exists.\n", accountID)
			return nil
		}
		fmt.Fprintf(m.out, "  Error: %v\n", createErr)
		return nil
	}

	fmt.Fprintf(m.out, "\n  Account '%s' (%s) created successfully.\n", accountID, role)
	return nil
}

func (m *Menu) viewLoginHistory() {
	if !m.requireAdmin() {
		return
	}

	fmt.Fprintln(m.out, "\n  --- Login Attempt History ---")
	entries, err := m.loginTrail.Tail(20)
	if err != nil {
		fmt.Fprintf(m.out, "  Error reading login history: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "  No login history found.")
		return
	}

	fmt.Fprintf(m.out, "\n  %-22s %-15s %-20s DETAILS\n", "TIMESTAMP", "USER", "STATUS")
	fmt.Fprintln(m.out, "  "+strings.Repeat("-", 70))
	for _, e := range entries {
		fmt.Fprintf(m.out, "  %-22s %-15s %-20s %s\n",
			e.Time.Format(audit.TimeLayout), e.Actor, e.Outcome, e.Detail)
	}
}

func (m *Menu) viewAllAccounts(ctx context.Context) {
	if !m.requireAdmin() {
		return
	}

	fmt.Fprintln(m.out, "\n  --- Registered Accounts ---")
	accounts, err := m.auth.Accounts(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "  Error reading accounts: %v\n", err)
		return
	}
	if len(accounts) == 0 {
		fmt.Fprintln(m.out, "  No accounts registered yet.")
		return
	}

	now := time.Now()
	fmt.Fprintf(m.out, "\n  %-20s %-10s %-12s %-8s LAST LOGIN\n", "USERNAME", "ROLE", "STATUS", "FAILED")
	fmt.Fprintln(m.out, "  "+strings.Repeat("-", 75))
	for _, acct := range accounts {
		lastLogin := "Never"
		if acct.LastLogin != nil {
			lastLogin = acct.LastLogin.Format(audit.TimeLayout)
		}
		fmt.Fprintf(m.out, "  %-20s %-10s %-12s %-8d %s\n",
			acct.AccountID, acct.Role, acct.StateAt(now), acct.FailedAttempts, lastLogin)
	}
}

func (m *Menu) unlockAccount(ctx context.Context) error {
	if !m.requireAdmin() {
		return nil
	}

	fmt.Fprintln(m.out, "\n  --- Unlock Account ---")
	accountID, err := m.prompt("  Enter username to unlock: ")
	if err != nil {
		return err
	}
	if accountID == "" {
		fmt.Fprintln(m.out, "  Error: username cannot be empty.")
		return nil
	}

	if unlockErr := m.auth.Unlock(ctx, accountID, m.current.AccountID); unlockErr != nil {
		if errors.Is(unlockErr, auth.ErrAccountNotFound) {
			fmt.Fprintf(m.out, "  Error: account '%s' not found.\n", accountID)
			return nil
		}
		fmt.Fprintf(m.out, "  Error: %v\n", unlockErr)
		return nil
	}

	fmt.Fprintf(m.out, "  Account '%s' has been unlocked successfully.\n", accountID)
	return nil
}

func (m *Menu) viewSubmissionActivity() {
	if !m.requireAdmin() {
		return
	}

	fmt.Fprintln(m.out, "\n  --- Submission Activity Log ---")
	entries, err := m.submissionTrail.Tail(15)
	if err != nil {
		fmt.Fprintf(m.out, "  Error reading submission log: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "  No activity recorded yet.")
		return
	}

	fmt.Fprintf(m.out, "\n  Showing last %d entries:\n", len(entries))
	fmt.Fprintln(m.out, "  "+strings.Repeat("-", 80))
	for _, e := range entries {
		fmt.Fprint(m.out, "  "+e.Format())
	}
}

// requireAdmin reports whether an admin session is active, printing the
// refusal when not.
func (m *Menu) requireAdmin() bool {
	if m.current == nil || !m.current.IsAdmin() {
		fmt.Fprintln(m.out, "\n  Admin access required. Please log in as an admin (menu option 4).")
		return false
	}
	return true
}

func (m *Menu) printSession() {
	if m.current == nil {
		fmt.Fprintln(m.out, "  Not logged in.")
		return
	}
	fmt.Fprintf(m.out, "  Logged in as %s (%s).\n", m.current.AccountID, m.current.Role)
}

// prompt prints the label and reads one trimmed line.
func (m *Menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)
	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line read when input is piped in.
func (m *Menu) promptPassword(label string) (string, error) {
	fmt.Fprint(m.out, label)
	if m.interactive {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(m.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ignoreEOF maps an exhausted input stream to a clean exit.
func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
