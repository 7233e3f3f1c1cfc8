package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthenticateAPIKeys(t *testing.T) {
	svc := NewService([]string{" key-one ", "", "key-two"}, nil)
	if !svc.Enabled() {
		t.Fatalf("expected service with keys to be enabled")
	}

	for _, key := range []string{"key-one", "key-two"} {
		identity, err := svc.Authenticate(key)
		if err != nil || identity.Method != MethodAPIKey {
			t.Fatalf("authenticate %q: %+v %v", key, identity, err)
		}
	}
	for _, key := range []string{"", "key", "key-one2"} {
		if _, err := svc.Authenticate(key); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", key, err)
		}
	}
}

func TestAuthenticateServiceJWT(t *testing.T) {
	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	manager := NewJWTManager("jwt-secret", "oneclick")
	manager.now = func() time.Time { return now }

	token, expiresAt, err := manager.GenerateServiceToken("billing", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	svc := NewService(nil, manager)
	identity, err := svc.Authenticate(token)
	if err != nil || identity.Subject != "billing" || identity.Method != MethodJWT {
		t.Fatalf("authenticate jwt: %+v %v", identity, err)
	}

	other := NewJWTManager("other-secret", "oneclick")
	other.now = manager.now
	forged, _, err := other.GenerateServiceToken("billing", time.Hour)
	if err != nil {
		t.Fatalf("generate forged: %v", err)
	}
	if _, err := svc.Authenticate(forged); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected forged token to be rejected, got %v", err)
	}

	manager.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := svc.Authenticate(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestJWTManagerDisabled(t *testing.T) {
	manager := NewJWTManager("", "")
	if manager.Enabled() {
		t.Fatalf("expected disabled manager")
	}
	if _, _, err := manager.GenerateServiceToken("svc", time.Hour); err == nil {
		t.Fatalf("expected error without secret")
	}
	if NewService(nil, manager).Enabled() {
		t.Fatalf("service without keys or secret must be disabled")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Subject: "billing", Method: MethodJWT})
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.Subject != "billing" {
		t.Fatalf("unexpected identity: %+v %v", identity, ok)
	}
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("expected no identity in empty context")
	}
}
