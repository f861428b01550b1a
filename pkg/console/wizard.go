package console

import (
	"context"

	"github.com/robotalks/nodeterm/pkg/account"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

// The account wizard: verify the current password, then collect a new
// username and a confirmed password. A wrong current password aborts.

func (s *Session) cmdAccount(ctx context.Context, line string) {
	s.heading("Account Settings:")
	s.status(Muted, "Current user: %s", s.user)
	s.state = StateAccountVerify
	s.paint(Prompt, "Current password: ")
}

func (s *Session) accountVerify(ctx context.Context, line string) {
	if !s.conf.Accounts.CheckPassword(line) {
		s.status(Error, "Wrong password - account change aborted")
		s.journal(ctx, logstore.LevelWarning, "Account change denied for %s", s.user)
		s.state = StateNormal
		s.prompt()
		return
	}
	s.state = StateAccountNewUsername
	s.paint(Prompt, "New username: ")
}

func (s *Session) accountNewUsername(ctx context.Context, line string) {
	if err := account.ValidUsername(line); err != nil {
		s.status(Error, "Username must be %d-%d characters", account.MinUsername, account.MaxLength)
		s.paint(Prompt, "New username: ")
		return
	}
	s.candidateUsername = line
	s.state = StateAccountNewPassword
	s.paint(Prompt, "New password: ")
}

func (s *Session) accountNewPassword(ctx context.Context, line string) {
	if err := account.ValidPassword(line); err != nil {
		s.status(Error, "Password must be %d-%d characters", account.MinPassword, account.MaxLength)
		s.paint(Prompt, "New password: ")
		return
	}
	s.candidatePassword = line
	s.state = StateAccountConfirmPassword
	s.paint(Prompt, "Confirm password: ")
}

func (s *Session) accountConfirm(ctx context.Context, line string) {
	if line != s.candidatePassword {
		s.candidatePassword = ""
		s.status(Error, "Passwords do not match")
		s.state = StateAccountNewPassword
		s.paint(Prompt, "New password: ")
		return
	}
	username, password := s.candidateUsername, s.candidatePassword
	s.candidateUsername, s.candidatePassword = "", ""
	s.state = StateNormal
	if err := s.conf.Accounts.Change(ctx, username, password); err != nil {
		s.status(Error, "Failed to save credentials: %v", err)
		s.journal(ctx, logstore.LevelError, "Credential write failed: %v", err)
		s.prompt()
		return
	}
	s.journal(ctx, logstore.LevelLogin, "Credentials changed %s -> %s", s.user, username)
	s.user = username
	s.status(Success, "Credentials updated, user is now %s", username)
	s.prompt()
}
