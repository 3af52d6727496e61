package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/domain"
	"github.com/adamsujeta/ASPForum/internal/service"
)

type stubProfileUsers struct {
	t *testing.T

	getUserWithPasswordFunc func(context.Context, string) (domain.UserWithPassword, error)
	setPhoneNumberFunc      func(context.Context, string, string) error
}

func (s *stubProfileUsers) GetUserWithPassword(ctx context.Context, id string) (domain.UserWithPassword, error) {
	if s.getUserWithPasswordFunc != nil {
		return s.getUserWithPasswordFunc(ctx, id)
	}
	s.t.Fatalf("GetUserWithPassword called unexpectedly")
	return domain.UserWithPassword{}, context.Canceled
}

func (s *stubProfileUsers) SetPasswordHash(context.Context, string, string) error {
	s.t.Fatalf("SetPasswordHash called unexpectedly")
	return context.Canceled
}

func (s *stubProfileUsers) SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error {
	if s.setPhoneNumberFunc != nil {
		return s.setPhoneNumberFunc(ctx, userID, phoneNumber)
	}
	s.t.Fatalf("SetPhoneNumber called unexpectedly")
	return context.Canceled
}

func (s *stubProfileUsers) SetTwoFactorEnabled(context.Context, string, bool) error {
	s.t.Fatalf("SetTwoFactorEnabled called unexpectedly")
	return context.Canceled
}

func (s *stubProfileUsers) SetAvatarPath(context.Context, string, string) error {
	s.t.Fatalf("SetAvatarPath called unexpectedly")
	return context.Canceled
}

func (s *stubProfileUsers) UpdateDetails(context.Context, string, string, string, int) error {
	s.t.Fatalf("UpdateDetails called unexpectedly")
	return context.Canceled
}

func (s *stubProfileUsers) AccountSummary(context.Context, string) (domain.AccountSummary, error) {
	s.t.Fatalf("AccountSummary called unexpectedly")
	return domain.AccountSummary{}, context.Canceled
}

type stubCodes struct {
	verify func(string, string, string) bool
}

func (s *stubCodes) Generate(string, string) string { return "123456" }

func (s *stubCodes) Verify(userID, phoneNumber, code string) bool {
	if s.verify != nil {
		return s.verify(userID, phoneNumber, code)
	}
	return false
}

type stubSessionRefresher struct {
	refreshed bool
}

func (s *stubSessionRefresher) RefreshSession(context.Context, string, service.SessionContext) (string, error) {
	s.refreshed = true
	return "sess-new", nil
}

func withUser(r *http.Request, u domain.User, sessID string) *http.Request {
	ctx := context.WithValue(r.Context(), authUserKey, u)
	ctx = context.WithValue(ctx, authSessionKey, sessID)
	return r.WithContext(ctx)
}

func TestAccountVerifyPhoneRejectsBadCode(t *testing.T) {
	refresher := &stubSessionRefresher{}
	api := &api{
		profileSvc: &service.ProfileService{
			Users:    &stubProfileUsers{t: t},
			Codes:    &stubCodes{},
			Sessions: refresher,
		},
		cookieCodec: auth.NewCookieCodec([]byte("test-secret")),
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/account/phone/verify",
		strings.NewReader(`{"phone_number":"+48123456789","code":"000000"}`))
	req = withUser(req, domain.User{ID: "user-1"}, "sess-1")

	rr := httptest.NewRecorder()
	api.handleAccountVerifyPhone(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if refresher.refreshed {
		t.Fatalf("session must not be refreshed on a failed code")
	}

	var env errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "invalid_code" {
		t.Fatalf("unexpected error code: %s", env.Error.Code)
	}
}

func TestAccountVerifyPhoneSetsFreshCookie(t *testing.T) {
	users := &stubProfileUsers{
		t: t,
		setPhoneNumberFunc: func(_ context.Context, userID, phoneNumber string) error {
			if userID != "user-1" || phoneNumber != "+48123456789" {
				t.Fatalf("unexpected phone write: %s %s", userID, phoneNumber)
			}
			return nil
		},
	}
	refresher := &stubSessionRefresher{}
	codec := auth.NewCookieCodec([]byte("test-secret"))

	api := &api{
		profileSvc: &service.ProfileService{
			Users: users,
			Codes: &stubCodes{verify: func(userID, phoneNumber, code string) bool {
				return userID == "user-1" && code == "123456"
			}},
			Sessions: refresher,
		},
		cookieCodec: codec,
		sessionTTL:  24 * time.Hour,
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/account/phone/verify",
		strings.NewReader(`{"phone_number":"+48123456789","code":"123456"}`))
	req = withUser(req, domain.User{ID: "user-1"}, "sess-1")

	rr := httptest.NewRecorder()
	api.handleAccountVerifyPhone(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body %s", rr.Code, rr.Body.String())
	}
	if !refresher.refreshed {
		t.Fatalf("session was not refreshed")
	}

	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name != auth.SessionCookieName {
			continue
		}
		found = true
		sessID, ok := codec.DecodeSessionID(c.Value)
		if !ok || sessID != "sess-new" {
			t.Fatalf("cookie does not carry the fresh session: %q", c.Value)
		}
	}
	if !found {
		t.Fatalf("session cookie not set")
	}

	var resp statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != statusAddPhone {
		t.Fatalf("unexpected status payload: %s", resp.Status)
	}
}

func TestAccountOverviewAvatarMissing(t *testing.T) {
	users := &stubProfileUsers{
		t: t,
		getUserWithPasswordFunc: func(_ context.Context, id string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{User: domain.User{ID: id, Username: "reader"}}, nil
		},
	}

	api := &api{profileSvc: &service.ProfileService{Users: users, Logins: failLogins{}}}

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req = withUser(req, domain.User{ID: "user-1"}, "sess-1")

	rr := httptest.NewRecorder()
	api.handleAccountOverview(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var env errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "avatar_missing" {
		t.Fatalf("unexpected error code: %s", env.Error.Code)
	}
}

// failLogins satisfies the logins store for paths that must not reach it.
type failLogins struct{}

func (failLogins) ListLogins(context.Context, string) ([]domain.ExternalLogin, error) {
	return nil, errors.New("unexpected call")
}

func (failLogins) AddLogin(context.Context, string, string, string, string) (domain.ExternalLogin, error) {
	return domain.ExternalLogin{}, errors.New("unexpected call")
}

func (failLogins) RemoveLogin(context.Context, string, string, string) error {
	return errors.New("unexpected call")
}

func (failLogins) CountLogins(context.Context, string) (int, error) {
	return 0, errors.New("unexpected call")
}
