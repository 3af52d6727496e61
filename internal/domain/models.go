package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Privileges is the denormalized display label of a user's highest role,
// recomputed from user_roles and moderators on every role mutation.
const (
	PrivilegesUser      = "Użytkownik"
	PrivilegesModerator = "Moderator"
	PrivilegesAdmin     = "Administrator"
)

const (
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
)

type User struct {
	ID               string
	Email            string
	Username         string
	PhoneNumber      string
	TwoFactorEnabled bool
	LockoutEnabled   bool
	AvatarPath       string
	Privileges       string
	PostsPerPage     int
	Status           UserStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLoginAt      *time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// HasPassword reports whether the account can authenticate with a password.
func (u UserWithPassword) HasPassword() bool { return u.PasswordHash != "" }

// ExternalLogin is a (provider, provider key) pair linked to one user.
type ExternalLogin struct {
	UserID      string
	Provider    string
	ProviderKey string
	Email       string
	CreatedAt   time.Time
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type Category struct {
	ID    int
	Title string
}

type Subject struct {
	ID         int
	CategoryID int
	Title      string
}

type News struct {
	ID        int
	Title     string
	Content   string
	CreatedAt time.Time
}

// ModeratorAssignment grants moderation rights over one subject.
type ModeratorAssignment struct {
	UserID       string
	SubjectID    int
	SubjectTitle string
	CreatedAt    time.Time
}

// MessageView is a message joined with its sender/receiver pair.
type MessageView struct {
	MessageID        int64
	SenderID         string
	SenderUsername   string
	ReceiverID       string
	ReceiverUsername string
	Content          string
	SentAt           time.Time
}

type Friend struct {
	UserID   string
	FriendID string
	Username string
}

// AccountSummary is the profile card: identity plus posting activity.
type AccountSummary struct {
	Username     string
	RegisteredAt time.Time
	PostCount    int
	ThreadCount  int
}

// ComputePrivileges derives the display label from authoritative role data.
// Admin wins over Moderator.
func ComputePrivileges(isAdmin, isModerator bool) string {
	switch {
	case isAdmin:
		return PrivilegesAdmin
	case isModerator:
		return PrivilegesModerator
	default:
		return PrivilegesUser
	}
}
