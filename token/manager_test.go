package token

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		AccessKey:  []byte("access-key-0123456789abcdef01234"),
		RefreshKey: []byte("refresh-key-0123456789abcdef0123"),
		Issuer:     "authcore-test",
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	m := newTestManager(t, testConfig())

	signed, issued, err := m.Issue("u@x.com", []string{"user", "editor"}, TypeAccess, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if issued.ID == "" {
		t.Fatal("expected non-empty jti")
	}

	claims, err := m.Verify(signed, TypeAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "u@x.com" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "user" || claims.Roles[1] != "editor" {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("type mismatch: %q", claims.TokenType)
	}
}

func TestRefreshTokenOmitsRoles(t *testing.T) {
	m := newTestManager(t, testConfig())

	signed, _, err := m.Issue("u@x.com", []string{"admin"}, TypeRefresh, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(signed, TypeRefresh)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(claims.Roles) != 0 {
		t.Fatalf("refresh token must not embed roles, got %v", claims.Roles)
	}
}

func TestVerifyExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Millisecond
	m := newTestManager(t, cfg)

	signed, _, err := m.Issue("u@x.com", nil, TypeAccess, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := m.Verify(signed, TypeAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyExpiredAtExactInstant(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Second
	m := newTestManager(t, cfg)

	// Issue in the past so exp is already behind the wall clock.
	signed, _, err := m.Issue("u@x.com", nil, TypeAccess, time.Now().Add(-2*time.Second))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Verify(signed, TypeAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestCrossTypeKeysRejected(t *testing.T) {
	m := newTestManager(t, testConfig())

	refresh, _, err := m.Issue("u@x.com", nil, TypeRefresh, time.Now())
	if err != nil {
		t.Fatalf("Issue refresh failed: %v", err)
	}
	if _, err := m.Verify(refresh, TypeAccess); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("refresh-signed token as access: expected ErrSignatureInvalid, got %v", err)
	}

	access, _, err := m.Issue("u@x.com", nil, TypeAccess, time.Now())
	if err != nil {
		t.Fatalf("Issue access failed: %v", err)
	}
	if _, err := m.Verify(access, TypeRefresh); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("access-signed token as refresh: expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyForeignKeyRejected(t *testing.T) {
	m := newTestManager(t, testConfig())

	other := testConfig()
	other.AccessKey = []byte("other-access-key-abcdef012345678")
	foreign := newTestManager(t, other)

	signed, _, err := foreign.Issue("u@x.com", nil, TypeAccess, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(signed, TypeAccess); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := newTestManager(t, testConfig())

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := m.Verify(input, TypeAccess); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	issuing := testConfig()
	issuing.Issuer = "someone-else"
	foreign := newTestManager(t, issuing)

	signed, _, err := foreign.Issue("u@x.com", nil, TypeAccess, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	m := newTestManager(t, testConfig())
	if _, err := m.Verify(signed, TypeAccess); err == nil {
		t.Fatal("expected verification failure for issuer mismatch")
	}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AccessKey = []byte("short")
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for short access key")
	}

	cfg = testConfig()
	cfg.RefreshKey = cfg.AccessKey
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for identical keys")
	}

	cfg = testConfig()
	cfg.RefreshTTL = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for zero refresh TTL")
	}
}

func TestJTIUniqueAcrossIssues(t *testing.T) {
	m := newTestManager(t, testConfig())

	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		_, claims, err := m.Issue("u@x.com", nil, TypeRefresh, time.Now())
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if seen[claims.ID] {
			t.Fatalf("duplicate jti %q", claims.ID)
		}
		seen[claims.ID] = true
	}
}
