package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tm.GenerateToken("actor-1", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Fatalf("expiry outside configured ttl: %v", remaining)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "actor-1" || claims.SessionID != "sess-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, _, err := issuer.GenerateToken("actor-1", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	tm.ttl = -time.Minute

	token, _, err := tm.GenerateToken("actor-1", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tm.ttl = time.Hour
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatalf("expired token must not verify")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3nha", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "s3nha"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "errada"); err == nil {
		t.Fatalf("wrong password must not compare")
	}
}
