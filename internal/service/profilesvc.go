package service

import (
	"context"
	"strings"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/domain"
	"github.com/adamsujeta/ASPForum/internal/sms"
)

type ProfileUsersStore interface {
	GetUserWithPassword(ctx context.Context, id string) (domain.UserWithPassword, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error
	SetAvatarPath(ctx context.Context, userID, avatarPath string) error
	UpdateDetails(ctx context.Context, userID, username, email string, postsPerPage int) error
	AccountSummary(ctx context.Context, userID string) (domain.AccountSummary, error)
}

type ExternalLoginsStore interface {
	ListLogins(ctx context.Context, userID string) ([]domain.ExternalLogin, error)
	AddLogin(ctx context.Context, userID, provider, providerKey, email string) (domain.ExternalLogin, error)
	RemoveLogin(ctx context.Context, userID, provider, providerKey string) error
	CountLogins(ctx context.Context, userID string) (int, error)
}

type SessionRefresher interface {
	RefreshSession(ctx context.Context, userID string, sess SessionContext) (string, error)
}

type PhoneCodes interface {
	Generate(userID, phoneNumber string) string
	Verify(userID, phoneNumber, code string) bool
}

// AccountOverview is the manage page model.
type AccountOverview struct {
	HasPassword      bool
	PhoneNumber      string
	TwoFactorEnabled bool
	AvatarPath       string
	Logins           []domain.ExternalLogin
}

// LoginsOverview lists linked logins plus the configured providers the
// user has not linked yet.
type LoginsOverview struct {
	CurrentLogins    []domain.ExternalLogin
	OtherProviders   []string
	ShowRemoveButton bool
}

type ProfileService struct {
	Users    ProfileUsersStore
	Logins   ExternalLoginsStore
	Sessions SessionRefresher
	Codes    PhoneCodes
	SMS      sms.Sender
	SMSFrom  string

	// Providers is the configured external-provider set, display order.
	Providers []string
}

func (s *ProfileService) Overview(ctx context.Context, userID string) (AccountOverview, error) {
	u, err := s.Users.GetUserWithPassword(ctx, userID)
	if err != nil {
		return AccountOverview{}, err
	}
	if u.AvatarPath == "" {
		// Accounts created through this service always carry at least the
		// default avatar; an empty field means the row predates it.
		return AccountOverview{}, domain.ErrAvatarMissing
	}

	logins, err := s.Logins.ListLogins(ctx, userID)
	if err != nil {
		return AccountOverview{}, err
	}

	return AccountOverview{
		HasPassword:      u.HasPassword(),
		PhoneNumber:      u.PhoneNumber,
		TwoFactorEnabled: u.TwoFactorEnabled,
		AvatarPath:       u.AvatarPath,
		Logins:           logins,
	}, nil
}

func (s *ProfileService) Summary(ctx context.Context, userID string) (domain.AccountSummary, error) {
	return s.Users.AccountSummary(ctx, userID)
}

// ChangePassword verifies the old password, stores the new hash and
// returns a fresh session ID.
func (s *ProfileService) ChangePassword(ctx context.Context, userID string, sess SessionContext, oldPassword, newPassword string) (string, error) {
	if err := validateNewPassword(newPassword); err != nil {
		return "", err
	}

	u, err := s.Users.GetUserWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.HasPassword() {
		return "", domain.NewValidationError(map[string]string{"old_password": "account has no password"})
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, oldPassword)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.NewValidationError(map[string]string{"old_password": "incorrect password"})
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return "", err
	}
	if err := s.Users.SetPasswordHash(ctx, userID, hash); err != nil {
		return "", err
	}

	return s.Sessions.RefreshSession(ctx, userID, sess)
}

// SetPassword sets an initial password on an external-login-only account.
func (s *ProfileService) SetPassword(ctx context.Context, userID string, sess SessionContext, newPassword string) (string, error) {
	if err := validateNewPassword(newPassword); err != nil {
		return "", err
	}

	u, err := s.Users.GetUserWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.HasPassword() {
		return "", domain.ErrPasswordExists
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return "", err
	}
	if err := s.Users.SetPasswordHash(ctx, userID, hash); err != nil {
		return "", err
	}

	return s.Sessions.RefreshSession(ctx, userID, sess)
}

// RequestPhoneVerification issues a code for the number and dispatches it
// over SMS. The code itself never leaves the server except in the SMS.
func (s *ProfileService) RequestPhoneVerification(ctx context.Context, userID, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return domain.NewValidationError(map[string]string{"phone_number": "required"})
	}

	code := s.Codes.Generate(userID, phoneNumber)
	if s.SMS == nil {
		return nil
	}
	return s.SMS.Send(ctx, sms.Message{
		From: s.SMSFrom,
		To:   phoneNumber,
		Body: "Your security code is: " + code,
	})
}

// ConfirmPhoneChange commits the number when the code checks out. All
// failure modes report the same invalid-code error.
func (s *ProfileService) ConfirmPhoneChange(ctx context.Context, userID string, sess SessionContext, phoneNumber, code string) (string, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" || code == "" {
		return "", domain.ErrPhoneCodeInvalid
	}
	if !s.Codes.Verify(userID, phoneNumber, code) {
		return "", domain.ErrPhoneCodeInvalid
	}

	if err := s.Users.SetPhoneNumber(ctx, userID, phoneNumber); err != nil {
		return "", err
	}
	return s.Sessions.RefreshSession(ctx, userID, sess)
}

func (s *ProfileService) RemovePhoneNumber(ctx context.Context, userID string, sess SessionContext) (string, error) {
	if err := s.Users.SetPhoneNumber(ctx, userID, ""); err != nil {
		return "", err
	}
	return s.Sessions.RefreshSession(ctx, userID, sess)
}

func (s *ProfileService) SetTwoFactor(ctx context.Context, userID string, sess SessionContext, enabled bool) (string, error) {
	if err := s.Users.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		return "", err
	}
	return s.Sessions.RefreshSession(ctx, userID, sess)
}

func (s *ProfileService) ListLogins(ctx context.Context, userID string) (LoginsOverview, error) {
	u, err := s.Users.GetUserWithPassword(ctx, userID)
	if err != nil {
		return LoginsOverview{}, err
	}

	logins, err := s.Logins.ListLogins(ctx, userID)
	if err != nil {
		return LoginsOverview{}, err
	}

	linked := make(map[string]bool, len(logins))
	for _, l := range logins {
		linked[l.Provider] = true
	}
	var other []string
	for _, p := range s.Providers {
		if !linked[p] {
			other = append(other, p)
		}
	}

	return LoginsOverview{
		CurrentLogins:    logins,
		OtherProviders:   other,
		ShowRemoveButton: u.HasPassword() || len(logins) > 1,
	}, nil
}

// RemoveLogin unlinks an external login. Refused when it is the last way
// the account can authenticate.
func (s *ProfileService) RemoveLogin(ctx context.Context, userID string, sess SessionContext, provider, providerKey string) (string, error) {
	u, err := s.Users.GetUserWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}

	if !u.HasPassword() {
		n, err := s.Logins.CountLogins(ctx, userID)
		if err != nil {
			return "", err
		}
		if n <= 1 {
			return "", domain.ErrLastLogin
		}
	}

	if err := s.Logins.RemoveLogin(ctx, userID, provider, providerKey); err != nil {
		return "", err
	}
	return s.Sessions.RefreshSession(ctx, userID, sess)
}

// LinkLogin attaches a verified provider identity to the account.
func (s *ProfileService) LinkLogin(ctx context.Context, userID string, claims *auth.ExternalTokenClaims, provider string) error {
	if claims == nil || claims.Subject == "" {
		return domain.ErrInvalidCredentials
	}
	_, err := s.Logins.AddLogin(ctx, userID, provider, claims.Subject, claims.Email)
	return err
}

// UpdateDetails is the overwrite-by-identity profile update.
func (s *ProfileService) UpdateDetails(ctx context.Context, userID, username, email string, postsPerPage int) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	fields := map[string]string{}
	if username == "" || !ValidUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if email != "" && !strings.Contains(email, "@") {
		fields["email"] = "must be an email address"
	}
	if postsPerPage < 5 || postsPerPage > 100 {
		fields["posts_per_page"] = "must be between 5 and 100"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}

	return s.Users.UpdateDetails(ctx, userID, username, email, postsPerPage)
}

func (s *ProfileService) SetAvatarPath(ctx context.Context, userID, avatarPath string) error {
	if strings.TrimSpace(avatarPath) == "" {
		return domain.NewValidationError(map[string]string{"avatar": "file is required"})
	}
	return s.Users.SetAvatarPath(ctx, userID, avatarPath)
}

func validateNewPassword(p string) error {
	if len(p) < 12 {
		return domain.NewValidationError(map[string]string{"new_password": "must be at least 12 characters"})
	}
	return nil
}

// ValidUsername applies the registration username policy.
func ValidUsername(u string) bool {
	if len(u) < 3 || len(u) > 24 {
		return false
	}
	for _, r := range u {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
