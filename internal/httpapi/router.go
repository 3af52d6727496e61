package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth         *service.AuthService
	Profile      *service.ProfileService
	Moderation   *service.ModerationService
	Messages     *service.MessageService
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
	AvatarDir    string
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.AvatarDir == "" {
		opts.AvatarDir = "content/images"
	}

	api := &api{
		logger:        logger,
		isProd:        opts.IsProd,
		dbPing:        opts.DBPing,
		authSvc:       opts.Auth,
		profileSvc:    opts.Profile,
		moderationSvc: opts.Moderation,
		messageSvc:    opts.Messages,
		avatarDir:     opts.AvatarDir,
		cookieCodec:   opts.CookieCodec,
		cookieSecure:  opts.CookieSecure,
		sessionTTL:    opts.SessionTTL,
		loginLimiter:  newRateLimiter(5*time.Minute, 10),
		codeLimiter:   newRateLimiter(10*time.Minute, 5),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /", api.handleHome)
	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.Handle("GET /content/images/", http.StripPrefix("/content/images/",
		http.FileServer(http.Dir(opts.AvatarDir))))

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthLoginApple)
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))

		if api.profileSvc != nil {
			apiMux.HandleFunc("GET /v1/account", api.requireAuth(api.handleAccountOverview))
			apiMux.HandleFunc("PATCH /v1/account", api.requireAuth(api.handleAccountUpdate))
			apiMux.HandleFunc("GET /v1/account/summary", api.requireAuth(api.handleAccountSummary))
			apiMux.HandleFunc("POST /v1/account/password", api.requireAuth(api.handleAccountChangePassword))
			apiMux.HandleFunc("POST /v1/account/password/set", api.requireAuth(api.handleAccountSetPassword))
			apiMux.HandleFunc("POST /v1/account/phone", api.requireAuth(api.handleAccountAddPhone))
			apiMux.HandleFunc("POST /v1/account/phone/verify", api.requireAuth(api.handleAccountVerifyPhone))
			apiMux.HandleFunc("DELETE /v1/account/phone", api.requireAuth(api.handleAccountRemovePhone))
			apiMux.HandleFunc("POST /v1/account/two-factor", api.requireAuth(api.handleAccountTwoFactor))
			apiMux.HandleFunc("GET /v1/account/logins", api.requireAuth(api.handleAccountListLogins))
			apiMux.HandleFunc("POST /v1/account/logins", api.requireAuth(api.handleAccountLinkLogin))
			apiMux.HandleFunc("DELETE /v1/account/logins", api.requireAuth(api.handleAccountRemoveLogin))
			apiMux.HandleFunc("POST /v1/account/avatar", api.requireAuth(api.handleAccountAvatar))
		}

		if api.moderationSvc != nil {
			apiMux.HandleFunc("GET /v1/admin/users", api.requireAdmin(api.handleAdminListUsers))
			apiMux.HandleFunc("GET /v1/admin/users/{id}", api.requireAdmin(api.handleAdminGetUser))
			apiMux.HandleFunc("PUT /v1/admin/users/{id}", api.requireAdmin(api.handleAdminUpdateUser))
			apiMux.HandleFunc("POST /v1/admin/users/{id}/lockout", api.requireAdmin(api.handleAdminToggleLockout))
			apiMux.HandleFunc("POST /v1/admin/users/{id}/admin-role", api.requireAdmin(api.handleAdminToggleAdminRole))
			apiMux.HandleFunc("GET /v1/admin/users/{id}/moderator", api.requireAdmin(api.handleAdminListAssignments))
			apiMux.HandleFunc("POST /v1/admin/moderators", api.requireAdmin(api.handleAdminAssignModerator))
			apiMux.HandleFunc("DELETE /v1/admin/moderators", api.requireAdmin(api.handleAdminRevokeModerator))
			apiMux.HandleFunc("GET /v1/admin/categories", api.requireAdmin(api.handleAdminListCategories))
			apiMux.HandleFunc("GET /v1/admin/categories/{id}/subjects", api.requireAdmin(api.handleAdminListCategorySubjects))
			apiMux.HandleFunc("GET /v1/admin/subjects", api.requireAdmin(api.handleAdminListSubjects))
			apiMux.HandleFunc("GET /v1/admin/news", api.requireAdmin(api.handleAdminListNews))
		}

		if api.messageSvc != nil {
			apiMux.HandleFunc("GET /v1/messages/received", api.requireAuth(api.handleMessagesReceived))
			apiMux.HandleFunc("GET /v1/messages/sent", api.requireAuth(api.handleMessagesSent))
			apiMux.HandleFunc("GET /v1/messages/with/{id}", api.requireAuth(api.handleMessagesWith))
			apiMux.HandleFunc("GET /v1/friends", api.requireAuth(api.handleFriendsList))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc       *service.AuthService
	profileSvc    *service.ProfileService
	moderationSvc *service.ModerationService
	messageSvc    *service.MessageService
	avatarDir     string
	cookieCodec   auth.CookieCodec
	cookieSecure  bool
	sessionTTL    time.Duration

	loginLimiter *rateLimiter
	codeLimiter  *rateLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
