package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
)

const testSecret = "test-secret-at-least-32-characters!!"

func TestGenerateToken_RoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateToken("admin", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expiresAt) < 14*time.Minute {
		t.Errorf("expiresAt = %v, want ~15 minutes out", expiresAt)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("subject = %q, want admin", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("token has no jti claim")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken("admin", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ParseToken(token, "another-secret-also-32-characters!!!"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken(wrong secret) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := ParseToken("not.a.token", testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken(garbage) error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyCredentials_Plaintext(t *testing.T) {
	cfg := config.AuthConfig{Username: "admin", Password: "hunter2"}

	if err := VerifyCredentials("admin", "hunter2", cfg); err != nil {
		t.Errorf("VerifyCredentials(correct) error = %v", err)
	}
	if err := VerifyCredentials("admin", "wrong", cfg); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyCredentials(bad password) error = %v, want ErrInvalidCredentials", err)
	}
	if err := VerifyCredentials("root", "hunter2", cfg); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyCredentials(bad username) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyCredentials_Hash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	cfg := config.AuthConfig{Username: "admin", PasswordHash: hash}

	if err := VerifyCredentials("admin", "hunter2", cfg); err != nil {
		t.Errorf("VerifyCredentials(correct) error = %v", err)
	}
	if err := VerifyCredentials("admin", "wrong", cfg); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyCredentials(bad password) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyCredentials_HashBeatsPlaintext(t *testing.T) {
	hash, err := HashPassword("real-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	cfg := config.AuthConfig{Username: "admin", Password: "dev-password", PasswordHash: hash}

	if err := VerifyCredentials("admin", "real-password", cfg); err != nil {
		t.Errorf("VerifyCredentials(hash password) error = %v", err)
	}
	if err := VerifyCredentials("admin", "dev-password", cfg); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyCredentials(plaintext ignored when hash set) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyCredentials_NoPasswordConfigured(t *testing.T) {
	cfg := config.AuthConfig{Username: "admin"}

	if err := VerifyCredentials("admin", "", cfg); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyCredentials(no password configured) error = %v, want ErrInvalidCredentials", err)
	}
}
