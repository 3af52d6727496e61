package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  verr.Fields,
		}})
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrPasswordExists):
		WriteError(w, http.StatusConflict, "password_exists", "account already has a password")
	case errors.Is(err, domain.ErrExternalLoginExists):
		WriteError(w, http.StatusConflict, "login_exists", "external login already linked")
	case errors.Is(err, domain.ErrLastLogin):
		WriteError(w, http.StatusConflict, "last_login", "cannot remove the only way to sign in")
	case errors.Is(err, domain.ErrPhoneCodeInvalid):
		WriteError(w, http.StatusBadRequest, "invalid_code", "failed to verify phone")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid login or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrUserDisabled):
		WriteError(w, http.StatusForbidden, "user_disabled", "user is disabled")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrAvatarMissing):
		WriteError(w, http.StatusInternalServerError, "avatar_missing", "account has no avatar on record")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
