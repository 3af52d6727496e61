package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordSaltsEveryHash(t *testing.T) {
	const p = "zielony-parasol-w-deszczu"

	h1, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for the same password")
	}
	if !strings.HasPrefix(h1, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", h1)
	}
}

func TestVerifyPassword(t *testing.T) {
	const p = "zielony-parasol-w-deszczu"

	h, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword(h, p)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword(h, "niebieski-parasol")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$a2V5",
	} {
		if _, err := VerifyPassword(hash, "whatever"); err == nil {
			t.Fatalf("hash %q: expected parse error", hash)
		}
	}
}
