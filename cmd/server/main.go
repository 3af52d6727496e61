package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/adamsujeta/ASPForum/internal/auth"
	"github.com/adamsujeta/ASPForum/internal/config"
	"github.com/adamsujeta/ASPForum/internal/domain"
	"github.com/adamsujeta/ASPForum/internal/httpapi"
	"github.com/adamsujeta/ASPForum/internal/service"
	"github.com/adamsujeta/ASPForum/internal/sms"
	"github.com/adamsujeta/ASPForum/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		authSvc       *service.AuthService
		profileSvc    *service.ProfileService
		moderationSvc *service.ModerationService
		messageSvc    *service.MessageService
		dbPing        func(context.Context) error
	)

	if cfg.DBDSN != "" {
		if cfg.DBMigrate {
			if err := postgres.Migrate(cfg.DBDSN); err != nil {
				logger.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
			logger.Info("db migrations applied")
		}

		pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		logins := postgres.NewExternalLoginsStore(pgPool)
		roles := postgres.NewRolesStore(pgPool)
		adminUsers := postgres.NewAdminUsersStore(pgPool)
		taxonomy := postgres.NewTaxonomyStore(pgPool)
		messages := postgres.NewMessagesStore(pgPool)
		friends := postgres.NewFriendsStore(pgPool)

		if err := bootstrapAdminUser(context.Background(), logger, users, roles, cfg); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		authSvc = &service.AuthService{
			Users:             users,
			Sessions:          sessions,
			Logins:            logins,
			Roles:             roles,
			SessionTTL:        cfg.SessionTTL,
			GoogleWebClientID: cfg.GoogleWebClientID,
			AppleServiceID:    cfg.AppleServiceID,
		}
		profileSvc = &service.ProfileService{
			Users:     users,
			Logins:    logins,
			Sessions:  authSvc,
			Codes:     auth.NewPhoneCodeProvider([]byte(cfg.PhoneCodeSecret), nil),
			SMS:       newSMSSender(cfg, logger),
			SMSFrom:   cfg.SMSFrom,
			Providers: cfg.ExternalProviders(),
		}
		moderationSvc = &service.ModerationService{
			Users:    adminUsers,
			Details:  users,
			Roles:    roles,
			Taxonomy: taxonomy,
		}
		messageSvc = &service.MessageService{
			Messages: messages,
			Friends:  friends,
		}
		dbPing = pgPool.Ping
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       dbPing,
		Auth:         authSvc,
		Profile:      profileSvc,
		Moderation:   moderationSvc,
		Messages:     messageSvc,
		CookieCodec:  auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		AvatarDir:    cfg.AvatarDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// bootstrapAdminUser creates the first administrator account from env, so
// a fresh deployment has someone who can reach the admin panel.
func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users *postgres.UsersStore, roles *postgres.RolesStore, cfg config.Config) error {
	email := cfg.AdminBootstrapEmail
	username := cfg.AdminBootstrapUsername
	password := cfg.AdminBootstrapPassword

	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	if email == "" || username == "" {
		return errors.New("admin bootstrap: email and username are required")
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info("admin bootstrap: user already exists", "email", email)
		return roles.AddToRole(ctx, existing.ID, domain.RoleAdmin)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	u, err := users.CreateUser(ctx, email, username, hash, service.DefaultAvatarPath)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			logger.Info("admin bootstrap: user already exists", "email", email)
			return nil
		}
		return fmt.Errorf("admin bootstrap: create user: %w", err)
	}

	if err := roles.AddToRole(ctx, u.ID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("admin bootstrap: grant role: %w", err)
	}

	logger.Info("admin bootstrap: created admin user", "email", email)
	return nil
}

func newSMSSender(cfg config.Config, logger *slog.Logger) sms.Sender {
	if cfg.SMSGatewayURL == "" {
		return &sms.LogSender{Logger: logger}
	}
	return &sms.GatewaySender{
		URL:   cfg.SMSGatewayURL,
		Token: cfg.SMSGatewayToken,
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
