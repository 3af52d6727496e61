package httpapi

import (
	"net/http"
	"net/url"
	"time"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type userResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email,omitempty"`
	Username         string     `json:"username"`
	PhoneNumber      string     `json:"phone_number,omitempty"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LockoutEnabled   bool       `json:"lockout_enabled"`
	AvatarPath       string     `json:"avatar_path"`
	AvatarURL        string     `json:"avatar_url"`
	Privileges       string     `json:"privileges"`
	PostsPerPage     int        `json:"posts_per_page"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		PhoneNumber:      u.PhoneNumber,
		TwoFactorEnabled: u.TwoFactorEnabled,
		LockoutEnabled:   u.LockoutEnabled,
		AvatarPath:       u.AvatarPath,
		AvatarURL:        avatarURL(u.AvatarPath),
		Privileges:       u.Privileges,
		PostsPerPage:     u.PostsPerPage,
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}

func writeUser(w http.ResponseWriter, status int, u domain.User) {
	WriteJSON(w, status, toUserResponse(u))
}

func avatarURL(path string) string {
	if path == "" {
		return ""
	}
	return "/content/images/" + url.PathEscape(path)
}

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	writeUser(w, http.StatusOK, u)
}
