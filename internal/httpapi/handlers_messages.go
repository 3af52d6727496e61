package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

type messagePayload struct {
	ID               int64     `json:"id"`
	SenderID         string    `json:"sender_id"`
	SenderUsername   string    `json:"sender_username"`
	ReceiverID       string    `json:"receiver_id"`
	ReceiverUsername string    `json:"receiver_username"`
	Content          string    `json:"content"`
	SentAt           time.Time `json:"sent_at"`
}

func toMessagePayloads(in []domain.MessageView) []messagePayload {
	out := make([]messagePayload, 0, len(in))
	for _, m := range in {
		out = append(out, messagePayload{
			ID:               m.MessageID,
			SenderID:         m.SenderID,
			SenderUsername:   m.SenderUsername,
			ReceiverID:       m.ReceiverID,
			ReceiverUsername: m.ReceiverUsername,
			Content:          m.Content,
			SentAt:           m.SentAt,
		})
	}
	return out
}

func (a *api) handleMessagesReceived(w http.ResponseWriter, r *http.Request) {
	a.listMessages(w, r, a.messageSvc.ListReceived)
}

func (a *api) handleMessagesSent(w http.ResponseWriter, r *http.Request) {
	a.listMessages(w, r, a.messageSvc.ListSent)
}

func (a *api) listMessages(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID string) ([]domain.MessageView, error)) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	msgs, err := list(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": toMessagePayloads(msgs)})
}

func (a *api) handleMessagesWith(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	otherID := r.PathValue("id")
	if otherID == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	msgs, err := a.messageSvc.ListThreadWith(r.Context(), u.ID, otherID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": toMessagePayloads(msgs)})
}

func (a *api) handleFriendsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	friends, err := a.messageSvc.ListFriends(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]friendPayload, 0, len(friends))
	for _, f := range friends {
		out = append(out, friendPayload{UserID: f.FriendID, Username: f.Username})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"friends": out})
}

type friendPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
