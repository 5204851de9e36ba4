package credential

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: 42, Email: "ada@example.com", Username: "ada"}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("token-test-secret", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("expected email %q, got %q", "ada@example.com", claims.Email)
	}
	if claims.Username != "ada" {
		t.Fatalf("expected username %q, got %q", "ada", claims.Username)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("token-test-secret", time.Hour)

	// 直接构造一个已过期的令牌，避免在测试里睡等真实时钟
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		},
		Email:    "ada@example.com",
		Username: "ada",
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("token-test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	if _, err := issuer.Verify(expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	forged, err := NewTokenIssuer("some-other-secret", time.Hour).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	issuer := NewTokenIssuer("token-test-secret", time.Hour)
	if _, err := issuer.Verify(forged); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

// 把一个令牌的载荷拼到另一个令牌的签名上，签名校验必须失败。
func TestTokenTamperedPayload(t *testing.T) {
	issuer := NewTokenIssuer("token-test-secret", time.Hour)

	first, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	second, err := issuer.Issue(&model.User{ID: 99, Email: "eve@example.com", Username: "eve"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	firstParts := strings.Split(first, ".")
	secondParts := strings.Split(second, ".")
	if len(firstParts) != 3 || len(secondParts) != 3 {
		t.Fatalf("unexpected token shape: %d and %d segments", len(firstParts), len(secondParts))
	}
	spliced := firstParts[0] + "." + secondParts[1] + "." + firstParts[2]

	if _, err := issuer.Verify(spliced); err == nil {
		t.Fatal("expected token with swapped payload to be rejected")
	}
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:    "ada@example.com",
		Username: "ada",
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none-algorithm token: %v", err)
	}

	issuer := NewTokenIssuer("token-test-secret", time.Hour)
	if _, err := issuer.Verify(unsigned); err == nil {
		t.Fatal("expected none-algorithm token to be rejected")
	}
}

func TestTokenGarbageInput(t *testing.T) {
	issuer := NewTokenIssuer("token-test-secret", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c", "   "} {
		if _, err := issuer.Verify(token); err == nil {
			t.Fatalf("expected garbage input %q to be rejected", token)
		}
	}
}

func TestTokenTTLFallback(t *testing.T) {
	if issuer := NewTokenIssuer("s", 0); issuer.ttl != 7*24*time.Hour {
		t.Fatalf("expected ttl fallback to 7 days, got %v", issuer.ttl)
	}
	if issuer := NewTokenIssuer("s", time.Minute); issuer.ttl != time.Minute {
		t.Fatalf("expected ttl to be kept, got %v", issuer.ttl)
	}
}
