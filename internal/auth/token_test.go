package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

func TestTokenRoundTripCarriesActor(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	actor := domain.Actor{ID: "acc-1", Role: domain.RoleTechnician}

	session, err := tm.Issue(actor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := tm.ParseToken(session.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.AccountID != actor.ID || claims.Role != actor.Role {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	session, err := tm.Issue(domain.Actor{ID: "acc-1", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tm.ParseToken(session.Token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	other := NewTokenManager("other-secret", 1)
	other.now = func() time.Time { return issued }
	if _, err := other.ParseToken(session.Token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestPasswordVerifier(t *testing.T) {
	verifier, err := NewPasswordVerifier(4)
	if err != nil {
		t.Fatalf("NewPasswordVerifier: %v", err)
	}
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !verifier.Verify(hash, "correct horse") {
		t.Fatal("expected match")
	}
	if verifier.Verify(hash, "wrong") {
		t.Fatal("expected mismatch")
	}
	if verifier.Verify("", "correct horse") {
		t.Fatal("empty hash must never verify")
	}
}
