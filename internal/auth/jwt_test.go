package auth

import (
	"strings"
	"testing"
	"time"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
	if ts.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", ts.TTL(), DefaultTokenTTL)
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(Principal{UserID: "user-123"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Generate() token doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	want := Principal{UserID: "user-abc-123", Roles: []string{"Admin", "Member"}}

	token, err := ts.Generate(want)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.UserID != want.UserID {
		t.Errorf("Validate() userID = %q, want %q", got.UserID, want.UserID)
	}
	if len(got.Roles) != 2 || got.Roles[0] != "Admin" || got.Roles[1] != "Member" {
		t.Errorf("Validate() roles = %v, want %v", got.Roles, want.Roles)
	}
}

func TestValidate_NoRoles(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate(Principal{UserID: "user-1"})
	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(got.Roles) != 0 {
		t.Errorf("Validate() roles = %v, want none", got.Roles)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	valid, _ := ts.Generate(Principal{UserID: "user-123"})
	expired, _ := ts.GenerateWithDuration(Principal{UserID: "user-123"}, -time.Second)
	foreign, _ := other.Generate(Principal{UserID: "user-123"})
	noSubject, _ := ts.Generate(Principal{})

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"tampered signature", valid[:len(valid)-3] + "xxx"},
		{"wrong secret", foreign},
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"no subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Fatal("Validate() should return an error")
			}
		})
	}
}
