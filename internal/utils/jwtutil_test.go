package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	userID := uuid.New()
	brandID := uuid.New()
	token, exp, err := GenerateToken(userID, "alice", "brand_manager", &brandID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id mismatch: %s", claims.UserID)
	}
	if claims.Username != "alice" || claims.Role != "brand_manager" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.BrandID == nil || *claims.BrandID != brandID {
		t.Errorf("brand id mismatch: %v", claims.BrandID)
	}
}

func TestTokenWithoutBrand(t *testing.T) {
	SetSecret("test-secret")

	token, _, err := GenerateToken(uuid.New(), "root", "system_admin", nil, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.BrandID != nil {
		t.Errorf("expected nil brand id, got %v", claims.BrandID)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	SetSecret("test-secret")

	token, _, err := GenerateToken(uuid.New(), "alice", "staff", nil, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	SetSecret("test-secret")
	token, _, err := GenerateToken(uuid.New(), "alice", "staff", nil, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	SetSecret("other-secret")
	defer SetSecret("test-secret")
	if _, err := ParseToken(token); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}
