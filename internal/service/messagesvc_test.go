package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type stubMessagesStore struct {
	t *testing.T

	listSentFunc     func(context.Context, string) ([]domain.MessageView, error)
	listReceivedFunc func(context.Context, string) ([]domain.MessageView, error)
	listBetweenFunc  func(context.Context, string, string) ([]domain.MessageView, error)
}

func (s *stubMessagesStore) ListSent(ctx context.Context, userID string) ([]domain.MessageView, error) {
	if s.listSentFunc != nil {
		return s.listSentFunc(ctx, userID)
	}
	s.t.Fatalf("ListSent called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubMessagesStore) ListReceived(ctx context.Context, userID string) ([]domain.MessageView, error) {
	if s.listReceivedFunc != nil {
		return s.listReceivedFunc(ctx, userID)
	}
	s.t.Fatalf("ListReceived called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubMessagesStore) ListBetween(ctx context.Context, userID, otherUserID string) ([]domain.MessageView, error) {
	if s.listBetweenFunc != nil {
		return s.listBetweenFunc(ctx, userID, otherUserID)
	}
	s.t.Fatalf("ListBetween called unexpectedly")
	return nil, errors.New("unexpected call")
}

func TestMessageServiceListThreadWith(t *testing.T) {
	sentAt := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	messages := &stubMessagesStore{
		t: t,
		listBetweenFunc: func(_ context.Context, userID, otherUserID string) ([]domain.MessageView, error) {
			if userID != "user-1" || otherUserID != "user-2" {
				t.Fatalf("unexpected thread args: %s %s", userID, otherUserID)
			}
			return []domain.MessageView{
				{MessageID: 2, SenderID: "user-2", ReceiverID: "user-1", Content: "hi back", SentAt: sentAt.Add(time.Minute)},
				{MessageID: 1, SenderID: "user-1", ReceiverID: "user-2", Content: "hi", SentAt: sentAt},
			}, nil
		},
	}

	svc := &MessageService{Messages: messages}

	out, err := svc.ListThreadWith(context.Background(), "user-1", "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].MessageID != 2 {
		t.Fatalf("unexpected thread: %+v", out)
	}
}

func TestMessageServiceListThreadWithEmptyUser(t *testing.T) {
	svc := &MessageService{Messages: &stubMessagesStore{t: t}}

	_, err := svc.ListThreadWith(context.Background(), "user-1", "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
