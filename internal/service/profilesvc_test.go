package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/domain"
	"github.com/adamsujeta/ASPForum/internal/sms"
)

type stubRefresher struct {
	t *testing.T

	refreshFunc func(context.Context, string, SessionContext) (string, error)
}

func (s *stubRefresher) RefreshSession(ctx context.Context, userID string, sess SessionContext) (string, error) {
	if s.refreshFunc != nil {
		return s.refreshFunc(ctx, userID, sess)
	}
	s.t.Fatalf("RefreshSession called unexpectedly")
	return "", errors.New("unexpected call")
}

type stubPhoneCodes struct {
	t *testing.T

	generateFunc func(string, string) string
	verifyFunc   func(string, string, string) bool
}

func (s *stubPhoneCodes) Generate(userID, phoneNumber string) string {
	if s.generateFunc != nil {
		return s.generateFunc(userID, phoneNumber)
	}
	s.t.Fatalf("Generate called unexpectedly")
	return ""
}

func (s *stubPhoneCodes) Verify(userID, phoneNumber, code string) bool {
	if s.verifyFunc != nil {
		return s.verifyFunc(userID, phoneNumber, code)
	}
	s.t.Fatalf("Verify called unexpectedly")
	return false
}

type stubSMSSender struct {
	t *testing.T

	sendFunc func(context.Context, sms.Message) error
}

func (s *stubSMSSender) Send(ctx context.Context, msg sms.Message) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, msg)
	}
	s.t.Fatalf("Send called unexpectedly")
	return errors.New("unexpected call")
}

func TestProfileServiceChangePasswordWrongOldPassword(t *testing.T) {
	hash, err := auth.HashPassword("the-real-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{
				User:         domain.User{ID: id, Username: "reader"},
				PasswordHash: hash,
			}, nil
		},
	}

	svc := &ProfileService{Users: users, Sessions: &stubRefresher{t: t}}

	_, err = svc.ChangePassword(context.Background(), "user-1", SessionContext{SessionID: "sess-1"}, "wrong-password", "a-new-long-password")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProfileServiceChangePasswordRefreshesSession(t *testing.T) {
	hash, err := auth.HashPassword("the-real-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var storedHash string
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{
				User:         domain.User{ID: id, Username: "reader"},
				PasswordHash: hash,
			}, nil
		},
		setPasswordHashFunc: func(_ context.Context, userID, passwordHash string) error {
			if userID != "user-1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			storedHash = passwordHash
			return nil
		},
	}
	sessions := &stubRefresher{
		t: t,
		refreshFunc: func(_ context.Context, userID string, sess SessionContext) (string, error) {
			if userID != "user-1" || sess.SessionID != "sess-1" {
				t.Fatalf("unexpected refresh args: %s %+v", userID, sess)
			}
			return "sess-2", nil
		},
	}

	svc := &ProfileService{Users: users, Sessions: sessions}

	newSess, err := svc.ChangePassword(context.Background(), "user-1", SessionContext{SessionID: "sess-1"}, "the-real-password", "a-new-long-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSess != "sess-2" {
		t.Fatalf("unexpected session id: %s", newSess)
	}

	ok, err := auth.VerifyPassword(storedHash, "a-new-long-password")
	if err != nil || !ok {
		t.Fatalf("stored hash does not match new password: %v", err)
	}
}

func TestProfileServiceSetPasswordRefusedWhenPasswordExists(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{
				User:         domain.User{ID: id},
				PasswordHash: "$argon2id$...",
			}, nil
		},
	}

	svc := &ProfileService{Users: users, Sessions: &stubRefresher{t: t}}

	_, err := svc.SetPassword(context.Background(), "user-1", SessionContext{}, "a-new-long-password")
	if !errors.Is(err, domain.ErrPasswordExists) {
		t.Fatalf("expected ErrPasswordExists, got %v", err)
	}
}

func TestProfileServiceRequestPhoneVerificationSendsCode(t *testing.T) {
	codes := &stubPhoneCodes{
		t: t,
		generateFunc: func(userID, phoneNumber string) string {
			if userID != "user-1" || phoneNumber != "+48123456789" {
				t.Fatalf("unexpected code args: %s %s", userID, phoneNumber)
			}
			return "123456"
		},
	}
	sent := false
	sender := &stubSMSSender{
		t: t,
		sendFunc: func(_ context.Context, msg sms.Message) error {
			sent = true
			if msg.To != "+48123456789" || msg.From != "forum" {
				t.Fatalf("unexpected message envelope: %+v", msg)
			}
			if msg.Body != "Your security code is: 123456" {
				t.Fatalf("unexpected message body: %q", msg.Body)
			}
			return nil
		},
	}

	svc := &ProfileService{Codes: codes, SMS: sender, SMSFrom: "forum"}

	if err := svc.RequestPhoneVerification(context.Background(), "user-1", "+48123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sent {
		t.Fatalf("SMS was not dispatched")
	}
}

func TestProfileServiceRequestPhoneVerificationEmptyNumber(t *testing.T) {
	svc := &ProfileService{Codes: &stubPhoneCodes{t: t}}

	err := svc.RequestPhoneVerification(context.Background(), "user-1", "   ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProfileServiceConfirmPhoneChangeBadCode(t *testing.T) {
	codes := &stubPhoneCodes{
		t: t,
		verifyFunc: func(_, _, _ string) bool { return false },
	}

	// The users stub has no SetPhoneNumber handler: a write on a failed
	// code fails the test.
	svc := &ProfileService{Users: &stubUsersStore{t: t}, Codes: codes, Sessions: &stubRefresher{t: t}}

	_, err := svc.ConfirmPhoneChange(context.Background(), "user-1", SessionContext{}, "+48123456789", "000000")
	if !errors.Is(err, domain.ErrPhoneCodeInvalid) {
		t.Fatalf("expected ErrPhoneCodeInvalid, got %v", err)
	}
}

func TestProfileServiceConfirmPhoneChangeStoresNumber(t *testing.T) {
	codes := &stubPhoneCodes{
		t: t,
		verifyFunc: func(userID, phoneNumber, code string) bool {
			return userID == "user-1" && phoneNumber == "+48123456789" && code == "123456"
		},
	}
	users := &stubUsersStore{
		t: t,
		setPhoneNumberFunc: func(_ context.Context, userID, phoneNumber string) error {
			if userID != "user-1" || phoneNumber != "+48123456789" {
				t.Fatalf("unexpected phone write: %s %s", userID, phoneNumber)
			}
			return nil
		},
	}
	sessions := &stubRefresher{
		t: t,
		refreshFunc: func(_ context.Context, _ string, _ SessionContext) (string, error) {
			return "sess-2", nil
		},
	}

	svc := &ProfileService{Users: users, Codes: codes, Sessions: sessions}

	newSess, err := svc.ConfirmPhoneChange(context.Background(), "user-1", SessionContext{SessionID: "sess-1"}, "+48123456789", "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSess != "sess-2" {
		t.Fatalf("unexpected session id: %s", newSess)
	}
}

func TestProfileServiceRemoveLoginLastLoginGuard(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{User: domain.User{ID: id}}, nil
		},
	}
	logins := &stubLoginsStore{
		t: t,
		countLoginsFunc: func(_ context.Context, _ string) (int, error) { return 1, nil },
	}

	svc := &ProfileService{Users: users, Logins: logins, Sessions: &stubRefresher{t: t}}

	_, err := svc.RemoveLogin(context.Background(), "user-1", SessionContext{}, "google", "sub-123")
	if !errors.Is(err, domain.ErrLastLogin) {
		t.Fatalf("expected ErrLastLogin, got %v", err)
	}
}

func TestProfileServiceRemoveLoginWithPassword(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{User: domain.User{ID: id}, PasswordHash: "$argon2id$..."}, nil
		},
	}
	removed := false
	logins := &stubLoginsStore{
		t: t,
		removeLoginFunc: func(_ context.Context, userID, provider, providerKey string) error {
			removed = true
			if userID != "user-1" || provider != "google" || providerKey != "sub-123" {
				t.Fatalf("unexpected remove args")
			}
			return nil
		},
	}
	sessions := &stubRefresher{
		t: t,
		refreshFunc: func(_ context.Context, _ string, _ SessionContext) (string, error) {
			return "sess-2", nil
		},
	}

	svc := &ProfileService{Users: users, Logins: logins, Sessions: sessions}

	if _, err := svc.RemoveLogin(context.Background(), "user-1", SessionContext{}, "google", "sub-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatalf("login was not removed")
	}
}

func TestProfileServiceListLogins(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{User: domain.User{ID: id}}, nil
		},
	}
	logins := &stubLoginsStore{
		t: t,
		listLoginsFunc: func(_ context.Context, _ string) ([]domain.ExternalLogin, error) {
			return []domain.ExternalLogin{{Provider: "google", ProviderKey: "sub-123"}}, nil
		},
	}

	svc := &ProfileService{Users: users, Logins: logins, Providers: []string{"google", "apple"}}

	out, err := svc.ListLogins(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.CurrentLogins) != 1 || out.CurrentLogins[0].Provider != "google" {
		t.Fatalf("unexpected current logins: %+v", out.CurrentLogins)
	}
	if len(out.OtherProviders) != 1 || out.OtherProviders[0] != "apple" {
		t.Fatalf("unexpected other providers: %+v", out.OtherProviders)
	}
	if out.ShowRemoveButton {
		t.Fatalf("remove button should be hidden for single passwordless login")
	}
}

func TestProfileServiceOverviewAvatarMissing(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{User: domain.User{ID: id, Username: "reader"}}, nil
		},
	}

	svc := &ProfileService{Users: users, Logins: &stubLoginsStore{t: t}}

	_, err := svc.Overview(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrAvatarMissing) {
		t.Fatalf("expected ErrAvatarMissing, got %v", err)
	}
}

func TestProfileServiceUpdateDetailsValidation(t *testing.T) {
	svc := &ProfileService{Users: &stubUsersStore{t: t}}

	err := svc.UpdateDetails(context.Background(), "user-1", "x", "not-an-email", 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %T", err)
	}
	for _, field := range []string{"username", "email", "posts_per_page"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("missing field %q in %v", field, verr.Fields)
		}
	}
	if !strings.Contains(verr.Error(), "username") {
		t.Fatalf("unexpected error text: %s", verr.Error())
	}
}
