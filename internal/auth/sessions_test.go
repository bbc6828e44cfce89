package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-sync/pkg/config"
)

var testJWTConfig = config.JWTConfig{Secret: "test-secret", Issuer: "storefront"}

func mintToken(t *testing.T, cfg config.JWTConfig, userID string) string {
	t.Helper()
	claims := AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestTokenSessionsLoginLogout(t *testing.T) {
	t.Parallel()

	sessions, err := NewTokenSessions(testJWTConfig, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var transitions []bool
	sessions.SetListener(func(ctx context.Context, authenticated bool) {
		transitions = append(transitions, authenticated)
	})

	ctx := context.Background()
	if _, ok := sessions.Current(ctx); ok {
		t.Fatal("expected guest before any token")
	}

	sessions.SetToken(ctx, mintToken(t, testJWTConfig, "user-42"))
	identity, ok := sessions.Current(ctx)
	if !ok || identity.UserID != "user-42" {
		t.Fatalf("expected authenticated user-42, got %+v ok=%v", identity, ok)
	}

	sessions.ClearToken(ctx)
	if _, ok := sessions.Current(ctx); ok {
		t.Fatal("expected guest after clear")
	}
	if sessions.Token() != "" {
		t.Fatal("expected raw token dropped after clear")
	}

	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Fatalf("unexpected transition sequence %v", transitions)
	}
}

func TestTokenSessionsRejectsBadToken(t *testing.T) {
	t.Parallel()

	sessions, err := NewTokenSessions(testJWTConfig, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	sessions.SetToken(ctx, "not-a-jwt")
	if _, ok := sessions.Current(ctx); ok {
		t.Fatal("malformed token must leave the session guest")
	}

	wrongIssuer := config.JWTConfig{Secret: testJWTConfig.Secret, Issuer: "someone-else"}
	sessions.SetToken(ctx, mintToken(t, wrongIssuer, "user-7"))
	if _, ok := sessions.Current(ctx); ok {
		t.Fatal("wrong issuer must leave the session guest")
	}
}

func TestTokenSessionsNoTransitionNoNotify(t *testing.T) {
	t.Parallel()

	sessions, err := NewTokenSessions(testJWTConfig, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := 0
	sessions.SetListener(func(ctx context.Context, authenticated bool) { calls++ })

	ctx := context.Background()
	sessions.ClearToken(ctx)
	sessions.SetToken(ctx, "garbage")
	if calls != 0 {
		t.Fatalf("guest-to-guest must not notify, got %d calls", calls)
	}

	token := mintToken(t, testJWTConfig, "user-1")
	sessions.SetToken(ctx, token)
	sessions.SetToken(ctx, token)
	if calls != 1 {
		t.Fatalf("same identity must notify once, got %d calls", calls)
	}
}

func TestNewTokenSessionsRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenSessions(config.JWTConfig{Issuer: "x"}, nil); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewTokenSessions(config.JWTConfig{Secret: "x"}, nil); err == nil {
		t.Fatal("expected error for missing issuer")
	}
}
