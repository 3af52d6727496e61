package service

import (
	"context"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type MessagesStore interface {
	ListSent(ctx context.Context, userID string) ([]domain.MessageView, error)
	ListReceived(ctx context.Context, userID string) ([]domain.MessageView, error)
	ListBetween(ctx context.Context, userID, otherUserID string) ([]domain.MessageView, error)
}

type FriendsStore interface {
	ListFriends(ctx context.Context, userID string) ([]domain.Friend, error)
}

// MessageService serves the private-message inbox views. Listings come
// back newest first.
type MessageService struct {
	Messages MessagesStore
	Friends  FriendsStore
}

func (s *MessageService) ListSent(ctx context.Context, userID string) ([]domain.MessageView, error) {
	return s.Messages.ListSent(ctx, userID)
}

func (s *MessageService) ListReceived(ctx context.Context, userID string) ([]domain.MessageView, error) {
	return s.Messages.ListReceived(ctx, userID)
}

// ListThreadWith returns the conversation between the user and another
// user, both directions interleaved.
func (s *MessageService) ListThreadWith(ctx context.Context, userID, otherUserID string) ([]domain.MessageView, error) {
	if otherUserID == "" {
		return nil, domain.NewValidationError(map[string]string{"user_id": "required"})
	}
	return s.Messages.ListBetween(ctx, userID, otherUserID)
}

func (s *MessageService) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	return s.Friends.ListFriends(ctx, userID)
}
