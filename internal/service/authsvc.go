package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/domain"
)

// DefaultAvatarPath seeds every new account so the manage overview always
// has an image to point at.
const DefaultAvatarPath = "default-avatar.jpg"

type UsersStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash, avatarPath string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserWithPassword(ctx context.Context, id string) (domain.UserWithPassword, error)
	GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

type LoginLinkStore interface {
	GetUserByLogin(ctx context.Context, provider, providerKey string) (domain.User, error)
	AddLogin(ctx context.Context, userID, provider, providerKey, email string) (domain.ExternalLogin, error)
}

type RoleChecker interface {
	IsInRole(ctx context.Context, userID, role string) (bool, error)
}

// SessionContext identifies the caller's current session plus the client
// info recorded on any session created on their behalf.
type SessionContext struct {
	SessionID string
	IP        string
	UserAgent string
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	Logins     LoginLinkStore
	Roles      RoleChecker
	SessionTTL time.Duration
	Now        func() time.Time

	GoogleWebClientID   string
	AppleServiceID      string
	VerifyGoogleIDToken func(ctx context.Context, token, aud string) (*auth.ExternalTokenClaims, error)
	VerifyAppleIDToken  func(ctx context.Context, token, aud string) (*auth.ExternalTokenClaims, error)
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Register(ctx context.Context, email, username, password, ip, userAgent string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	fields := map[string]string{}
	if !ValidUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "must be an email address"
	}
	if len(password) < 12 {
		fields["password"] = "must be at least 12 characters"
	}
	if len(fields) > 0 {
		return domain.User{}, "", domain.NewValidationError(fields)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, username, passwordHash, DefaultAvatarPath)
	if err != nil {
		return domain.User{}, "", err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, sessID, nil
}

func (s *AuthService) Login(ctx context.Context, login, password, ip, userAgent string) (domain.User, string, error) {
	login = strings.TrimSpace(login)

	u, err := s.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled || u.LockoutEnabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}
	if !u.HasPassword() {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.now())

	return u.User, sessID, nil
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, ip, userAgent string) (domain.User, string, error) {
	claims, err := s.VerifyExternalToken(ctx, "google", idToken)
	if err != nil {
		return domain.User{}, "", err
	}
	return s.loginExternal(ctx, "google", claims, ip, userAgent)
}

func (s *AuthService) LoginWithApple(ctx context.Context, idToken, ip, userAgent string) (domain.User, string, error) {
	claims, err := s.VerifyExternalToken(ctx, "apple", idToken)
	if err != nil {
		return domain.User{}, "", err
	}
	return s.loginExternal(ctx, "apple", claims, ip, userAgent)
}

// VerifyExternalToken checks a provider ID token against the configured
// audience. Any verification failure surfaces as invalid credentials.
func (s *AuthService) VerifyExternalToken(ctx context.Context, provider, idToken string) (*auth.ExternalTokenClaims, error) {
	var (
		verify func(ctx context.Context, token, aud string) (*auth.ExternalTokenClaims, error)
		aud    string
	)
	switch provider {
	case "google":
		verify, aud = s.VerifyGoogleIDToken, s.GoogleWebClientID
		if verify == nil {
			verify = auth.VerifyGoogleIDToken
		}
	case "apple":
		verify, aud = s.VerifyAppleIDToken, s.AppleServiceID
		if verify == nil {
			verify = auth.VerifyAppleIDToken
		}
	default:
		return nil, domain.ErrInvalidCredentials
	}

	claims, err := verify(ctx, idToken, aud)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}

func (s *AuthService) loginExternal(ctx context.Context, provider string, claims *auth.ExternalTokenClaims, ip, userAgent string) (domain.User, string, error) {
	if claims.Subject == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	u, err := s.Logins.GetUserByLogin(ctx, provider, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.findOrCreateForExternal(ctx, provider, claims)
		if err != nil {
			return domain.User{}, "", err
		}
	default:
		return domain.User{}, "", err
	}

	if u.Status == domain.UserStatusDisabled || u.LockoutEnabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.now())

	return u, sessID, nil
}

// findOrCreateForExternal links by verified email when a local account
// already exists, otherwise registers a fresh account for the provider
// identity.
func (s *AuthService) findOrCreateForExternal(ctx context.Context, provider string, claims *auth.ExternalTokenClaims) (domain.User, error) {
	if claims.Email != "" {
		existing, err := s.Users.GetUserByEmail(ctx, claims.Email)
		if err == nil {
			if _, err := s.Logins.AddLogin(ctx, existing.ID, provider, claims.Subject, claims.Email); err != nil {
				return domain.User{}, err
			}
			return existing.User, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
	}

	username, err := usernameForExternal(claims.Email)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.Users.CreateUser(ctx, claims.Email, username, "", DefaultAvatarPath)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.Logins.AddLogin(ctx, u.ID, provider, claims.Subject, claims.Email); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.Status == domain.UserStatusDisabled || u.LockoutEnabled {
		return domain.User{}, domain.ErrForbidden
	}

	return u, nil
}

func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if s.Roles == nil {
		return false, nil
	}
	return s.Roles.IsInRole(ctx, userID, domain.RoleAdmin)
}

// RefreshSession revokes the caller's session and issues a replacement.
// Performed after every credential-affecting change so no live session
// keeps pre-change claims.
func (s *AuthService) RefreshSession(ctx context.Context, userID string, sess SessionContext) (string, error) {
	if sess.SessionID != "" {
		_ = s.Sessions.RevokeSession(ctx, sess.SessionID, s.now())
	}
	newID, err := s.Sessions.CreateSession(ctx, userID, s.now().Add(s.SessionTTL), sess.IP, sess.UserAgent)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}
	return newID, nil
}

func usernameForExternal(email string) (string, error) {
	base := "user"
	if at := strings.IndexByte(email, '@'); at > 0 {
		cleaned := make([]rune, 0, at)
		for _, r := range strings.ToLower(email[:at]) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
				cleaned = append(cleaned, r)
			}
		}
		if len(cleaned) >= 3 {
			base = string(cleaned)
		}
	}
	if len(base) > 16 {
		base = base[:16]
	}

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate username: %w", err)
	}
	return base + "_" + hex.EncodeToString(buf[:]), nil
}
