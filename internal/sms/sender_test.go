package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewaySenderPostsJSON(t *testing.T) {
	var got gatewayPayload
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := &GatewaySender{URL: srv.URL, Token: "tok", Client: srv.Client()}
	err := s.Send(context.Background(), Message{From: "Forum", To: "+48123456789", Body: "Your security code is: 123456"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if auth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
	if got.To != "+48123456789" || got.From != "Forum" || got.Body == "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestGatewaySenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := &GatewaySender{URL: srv.URL, Client: srv.Client()}
	if err := s.Send(context.Background(), Message{To: "+48123456789", Body: "x"}); err == nil {
		t.Fatalf("expected error on 502")
	}
}
