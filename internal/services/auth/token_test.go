package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	parentID := uuid.New()

	token, exp, err := svc.CreateAccessToken(parentID, "parent@example.com", "parent")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	if exp <= time.Now().Unix() {
		t.Error("expected expiry in the future")
	}

	got, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if got != parentID {
		t.Errorf("expected parent ID %s, got %s", parentID, got)
	}
}

func TestTokenService_RefreshRoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	parentID := uuid.New()

	token, exp, err := svc.CreateRefreshToken(parentID)
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	if exp <= time.Now().Add(29*24*time.Hour).Unix() {
		t.Error("expected refresh expiry to use the refresh TTL")
	}

	got, err := svc.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if got != parentID {
		t.Errorf("expected parent ID %s, got %s", parentID, got)
	}
}

func TestTokenService_TokenTypesAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	parentID := uuid.New()

	access, _, err := svc.CreateAccessToken(parentID, "parent@example.com", "parent")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	refresh, _, err := svc.CreateRefreshToken(parentID)
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	if _, err := svc.ParseRefreshToken(access); err == nil {
		t.Error("expected access token to be rejected as a refresh token")
	}
	if _, err := svc.ParseAccessToken(refresh); err == nil {
		t.Error("expected refresh token to be rejected as an access token")
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", -1*time.Minute, 30*24*time.Hour)
	token, _, err := svc.CreateAccessToken(uuid.New(), "parent@example.com", "parent")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	if _, err := svc.ParseAccessToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	minted := NewTokenService("secret-a", 15*time.Minute, 30*24*time.Hour)
	token, _, err := minted.CreateAccessToken(uuid.New(), "parent@example.com", "parent")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	verifier := NewTokenService("secret-b", 15*time.Minute, 30*24*time.Hour)
	if _, err := verifier.ParseAccessToken(token); err == nil {
		t.Error("expected token signed with a different secret to be rejected")
	}
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	if _, err := svc.ParseAccessToken("not.a.token"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}

func TestTokenService_PasswordHashing(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)

	hash, err := svc.HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Sup3rSecret" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !svc.VerifyPassword("Sup3rSecret", hash) {
		t.Error("expected correct password to verify")
	}
	if svc.VerifyPassword("wrong", hash) {
		t.Error("expected wrong password to fail verification")
	}
}
