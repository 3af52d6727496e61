package service

import (
	"context"
	"strings"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error)
	ToggleLockout(ctx context.Context, userID string) (bool, error)
}

type RolesStore interface {
	IsInRole(ctx context.Context, userID, role string) (bool, error)
	ToggleAdminRole(ctx context.Context, userID string) (bool, error)
	AssignModerator(ctx context.Context, subjectID int, userID string) error
	RevokeModerator(ctx context.Context, subjectID int, userID string) error
	ListAssignments(ctx context.Context, userID string) ([]domain.ModeratorAssignment, error)
}

type TaxonomyStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	ListSubjectsByCategory(ctx context.Context, categoryID int) ([]domain.Subject, error)
	ListNews(ctx context.Context) ([]domain.News, error)
}

type AdminDetailsStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	UpdateDetails(ctx context.Context, userID, username, email string, postsPerPage int) error
}

const defaultUserPageSize = 50

// ModerationService backs the admin panel.
type ModerationService struct {
	Users    AdminUsersStore
	Details  AdminDetailsStore
	Roles    RolesStore
	Taxonomy TaxonomyStore
}

// ListUsers returns a page of users, filtered when query is non-empty.
func (s *ModerationService) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultUserPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return s.Users.ListUsers(ctx, limit, offset)
	}
	return s.Users.SearchUsers(ctx, query, limit, offset)
}

func (s *ModerationService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.Details.GetUserByID(ctx, userID)
}

// UpdateUser overwrites the editable profile fields of any account.
func (s *ModerationService) UpdateUser(ctx context.Context, userID, username, email string, postsPerPage int) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	fields := map[string]string{}
	if !ValidUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if email != "" && !strings.Contains(email, "@") {
		fields["email"] = "must be an email address"
	}
	if postsPerPage < 5 || postsPerPage > 100 {
		fields["posts_per_page"] = "must be between 5 and 100"
	}
	if len(fields) > 0 {
		return domain.User{}, domain.NewValidationError(fields)
	}

	if err := s.Details.UpdateDetails(ctx, userID, username, email, postsPerPage); err != nil {
		return domain.User{}, err
	}
	return s.Details.GetUserByID(ctx, userID)
}

// ToggleLockout flips the lockout flag and reports the new state.
func (s *ModerationService) ToggleLockout(ctx context.Context, userID string) (bool, error) {
	return s.Users.ToggleLockout(ctx, userID)
}

// ToggleAdminRole grants the Admin role when absent and revokes it when
// present, returning whether the user holds it afterwards.
func (s *ModerationService) ToggleAdminRole(ctx context.Context, userID string) (bool, error) {
	return s.Roles.ToggleAdminRole(ctx, userID)
}

// AssignModerator makes the user a moderator of the subject. Assigning an
// existing moderator again is a no-op.
func (s *ModerationService) AssignModerator(ctx context.Context, subjectID int, userID string) error {
	if subjectID <= 0 || userID == "" {
		return domain.NewValidationError(map[string]string{"assignment": "subject and user are required"})
	}
	return s.Roles.AssignModerator(ctx, subjectID, userID)
}

// RevokeModerator removes one subject assignment. The Moderator role is
// only dropped when no assignments remain.
func (s *ModerationService) RevokeModerator(ctx context.Context, subjectID int, userID string) error {
	if subjectID <= 0 || userID == "" {
		return domain.NewValidationError(map[string]string{"assignment": "subject and user are required"})
	}
	return s.Roles.RevokeModerator(ctx, subjectID, userID)
}

func (s *ModerationService) ListAssignments(ctx context.Context, userID string) ([]domain.ModeratorAssignment, error) {
	return s.Roles.ListAssignments(ctx, userID)
}

func (s *ModerationService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Taxonomy.ListCategories(ctx)
}

func (s *ModerationService) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.Taxonomy.ListSubjects(ctx)
}

func (s *ModerationService) ListSubjectsByCategory(ctx context.Context, categoryID int) ([]domain.Subject, error) {
	if categoryID <= 0 {
		return nil, domain.NewValidationError(map[string]string{"category_id": "must be positive"})
	}
	return s.Taxonomy.ListSubjectsByCategory(ctx, categoryID)
}

func (s *ModerationService) ListNews(ctx context.Context) ([]domain.News, error) {
	return s.Taxonomy.ListNews(ctx)
}
