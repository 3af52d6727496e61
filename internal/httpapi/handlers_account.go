package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adamsujeta/ASPForum/internal/avatar"
	"github.com/adamsujeta/ASPForum/internal/domain"
)

// Status codes mirror the manage-page result messages the clients key on.
const (
	statusChangePassword = "ChangePasswordSuccess"
	statusSetPassword    = "SetPasswordSuccess"
	statusAddPhone       = "AddPhoneSuccess"
	statusRemovePhone    = "RemovePhoneSuccess"
	statusSetTwoFactor   = "SetTwoFactorSuccess"
	statusRemoveLogin    = "RemoveLoginSuccess"
	statusAddLogin       = "AddLoginSuccess"
	statusAvatar         = "AvatarChangeSuccess"
)

type statusResponse struct {
	Status string `json:"status"`
}

type overviewResponse struct {
	HasPassword      bool                   `json:"has_password"`
	PhoneNumber      string                 `json:"phone_number,omitempty"`
	TwoFactorEnabled bool                   `json:"two_factor_enabled"`
	AvatarPath       string                 `json:"avatar_path"`
	AvatarURL        string                 `json:"avatar_url"`
	Logins           []externalLoginPayload `json:"logins"`
}

type externalLoginPayload struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
	Email       string `json:"email,omitempty"`
}

func toLoginPayloads(in []domain.ExternalLogin) []externalLoginPayload {
	out := make([]externalLoginPayload, 0, len(in))
	for _, l := range in {
		out = append(out, externalLoginPayload{Provider: l.Provider, ProviderKey: l.ProviderKey, Email: l.Email})
	}
	return out
}

func (a *api) handleAccountOverview(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	ov, err := a.profileSvc.Overview(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, overviewResponse{
		HasPassword:      ov.HasPassword,
		PhoneNumber:      ov.PhoneNumber,
		TwoFactorEnabled: ov.TwoFactorEnabled,
		AvatarPath:       ov.AvatarPath,
		AvatarURL:        avatarURL(ov.AvatarPath),
		Logins:           toLoginPayloads(ov.Logins),
	})
}

func (a *api) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	sum, err := a.profileSvc.Summary(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summaryResponse{
		Username:     sum.Username,
		RegisteredAt: sum.RegisteredAt,
		PostCount:    sum.PostCount,
		ThreadCount:  sum.ThreadCount,
	})
}

type summaryResponse struct {
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
	PostCount    int       `json:"post_count"`
	ThreadCount  int       `json:"thread_count"`
}

type updateDetailsRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PostsPerPage int    `json:"posts_per_page"`
}

func (a *api) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateDetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := a.profileSvc.UpdateDetails(r.Context(), u.ID, req.Username, req.Email, req.PostsPerPage); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (a *api) handleAccountChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	newSess, err := a.profileSvc.ChangePassword(r.Context(), u.ID, a.sessionContext(r), req.OldPassword, req.NewPassword)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusChangePassword})
}

type setPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (a *api) handleAccountSetPassword(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	newSess, err := a.profileSvc.SetPassword(r.Context(), u.ID, a.sessionContext(r), req.NewPassword)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusSetPassword})
}

type addPhoneRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (a *api) handleAccountAddPhone(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req addPhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if !a.codeLimiter.Allow("user:"+u.ID, time.Now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many codes requested")
		return
	}

	if err := a.profileSvc.RequestPhoneVerification(r.Context(), u.ID, req.PhoneNumber); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, statusResponse{Status: "VerificationSent"})
}

type verifyPhoneRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

func (a *api) handleAccountVerifyPhone(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req verifyPhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	newSess, err := a.profileSvc.ConfirmPhoneChange(r.Context(), u.ID, a.sessionContext(r), req.PhoneNumber, req.Code)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusAddPhone})
}

func (a *api) handleAccountRemovePhone(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	newSess, err := a.profileSvc.RemovePhoneNumber(r.Context(), u.ID, a.sessionContext(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusRemovePhone})
}

type twoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

func (a *api) handleAccountTwoFactor(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req twoFactorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	newSess, err := a.profileSvc.SetTwoFactor(r.Context(), u.ID, a.sessionContext(r), req.Enabled)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusSetTwoFactor})
}

type loginsResponse struct {
	CurrentLogins    []externalLoginPayload `json:"current_logins"`
	OtherProviders   []string               `json:"other_providers"`
	ShowRemoveButton bool                   `json:"show_remove_button"`
}

func (a *api) handleAccountListLogins(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.profileSvc.ListLogins(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, loginsResponse{
		CurrentLogins:    toLoginPayloads(out.CurrentLogins),
		OtherProviders:   out.OtherProviders,
		ShowRemoveButton: out.ShowRemoveButton,
	})
}

type linkLoginRequest struct {
	Provider string `json:"provider"`
	IDToken  string `json:"id_token"`
}

func (a *api) handleAccountLinkLogin(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req linkLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if req.Provider == "" || strings.TrimSpace(req.IDToken) == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"provider": "required", "id_token": "required"}))
		return
	}

	claims, err := a.authSvc.VerifyExternalToken(r.Context(), req.Provider, req.IDToken)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.profileSvc.LinkLogin(r.Context(), u.ID, claims, req.Provider); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusAddLogin})
}

type removeLoginRequest struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
}

func (a *api) handleAccountRemoveLogin(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req removeLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	newSess, err := a.profileSvc.RemoveLogin(r.Context(), u.ID, a.sessionContext(r), req.Provider, req.ProviderKey)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setSessionCookie(w, newSess)
	WriteJSON(w, http.StatusOK, statusResponse{Status: statusRemoveLogin})
}

func (a *api) handleAccountAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	const maxAvatarSize = 8 << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_avatar", "avatar file is too large")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_avatar", "avatar file is required")
		return
	}
	defer file.Close()

	if !avatar.LooksLikeImage(header.Header.Get("Content-Type"), header.Filename) {
		WriteError(w, http.StatusBadRequest, "invalid_avatar", "avatar must be a jpg or png image")
		return
	}

	src, err := io.ReadAll(file)
	if err != nil {
		a.logger.Error("read avatar upload failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to store avatar")
		return
	}

	encoded, err := avatar.Render(src)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_avatar", "avatar must be a valid image file")
		return
	}

	fileName, err := avatar.Save(a.avatarDir, u.Username, encoded)
	if err != nil {
		a.logger.Error("write avatar failed", "err", err, "user_id", u.ID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to store avatar")
		return
	}

	if err := a.profileSvc.SetAvatarPath(r.Context(), u.ID, fileName); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, statusResponse{Status: statusAvatar})
}
