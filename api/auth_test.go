package api

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"trellis-api/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func issueTestToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tokens := NewTokens(testSecret, "trellis-api", "trellis", ttl)
	tok, err := tokens.Issue(domain.User{ID: "user-1", Email: "a@b.co"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestAuthRoundTrip(t *testing.T) {
	auth := NewAuth(testSecret, "trellis", "trellis-api")
	tok := issueTestToken(t, time.Hour)

	sub, err := auth.UserIDFromAuthHeader("Bearer " + tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("expected user-1, got %q", sub)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	auth := NewAuth([]byte("a completely different secret!!!"), "trellis", "trellis-api")
	tok := issueTestToken(t, time.Hour)

	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	auth := NewAuth(testSecret, "trellis", "trellis-api")

	// Issued already expired, beyond the one-minute skew allowance.
	claims := jwt.MapClaims{
		"sub": "user-1",
		"iss": "trellis-api",
		"aud": "trellis",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestAuthRejectsWrongAudience(t *testing.T) {
	auth := NewAuth(testSecret, "another-app", "trellis-api")
	tok := issueTestToken(t, time.Hour)

	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("token for another audience must be rejected")
	}
}

func TestAuthRejectsMissingSub(t *testing.T) {
	auth := NewAuth(testSecret, "trellis", "trellis-api")
	claims := jwt.MapClaims{
		"iss": "trellis-api",
		"aud": "trellis",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("token without sub must be rejected")
	}
}

func TestAuthRejectsFutureIssuedAt(t *testing.T) {
	auth := NewAuth(testSecret, "trellis", "trellis-api")
	claims := jwt.MapClaims{
		"sub": "user-1",
		"iss": "trellis-api",
		"aud": "trellis",
		"iat": time.Now().Add(2 * time.Hour).Unix(),
		"exp": time.Now().Add(3 * time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("token issued in the future must be rejected")
	}
}

func newTestJWKS(t *testing.T) (*keyfunc.JWKS, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw := fmt.Sprintf(`{"keys":[{"kty":"RSA","kid":"test-key","use":"sig","alg":"RS256","n":"%s","e":"%s"}]}`,
		base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
		base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.PublicKey.E)).Bytes()))
	jwks, err := keyfunc.NewJSON(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("build jwks: %v", err)
	}
	return jwks, priv
}

func signRS256(t *testing.T, priv *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func providerClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-1",
		"iss": "https://idp.example.com/",
		"aud": "trellis",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWKSAuthRoundTrip(t *testing.T) {
	jwks, priv := newTestJWKS(t)
	auth := NewJWKSAuth(jwks, "trellis", "https://idp.example.com/")

	tok := signRS256(t, priv, "test-key", providerClaims())
	sub, err := auth.UserIDFromAuthHeader("Bearer " + tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("expected user-1, got %q", sub)
	}

	// The resolved key is cached per kid and served from the cache on the
	// next request.
	if _, ok := auth.keyCache.Load("test-key"); !ok {
		t.Fatal("resolved key was not cached")
	}
	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err != nil {
		t.Fatalf("cached verify: %v", err)
	}
}

func TestJWKSAuthRejectsUnknownKid(t *testing.T) {
	jwks, priv := newTestJWKS(t)
	auth := NewJWKSAuth(jwks, "trellis", "https://idp.example.com/")

	tok := signRS256(t, priv, "other-key", providerClaims())
	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("token signed with an unknown kid must be rejected")
	}
}

func TestJWKSAuthRejectsHS256(t *testing.T) {
	jwks, _ := newTestJWKS(t)
	auth := NewJWKSAuth(jwks, "trellis", "https://idp.example.com/")

	claims := providerClaims()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.UserIDFromAuthHeader("Bearer " + tok); err == nil {
		t.Fatal("symmetric tokens must be rejected in JWKS mode")
	}
}

func TestBearerToken(t *testing.T) {
	if _, err := bearerToken(""); !errors.Is(err, errMissingAuthorization) {
		t.Fatalf("empty header: got %v", err)
	}
	if _, err := bearerToken("Basic dXNlcjpwYXNz"); !errors.Is(err, errBadAuthorization) {
		t.Fatalf("non-bearer scheme: got %v", err)
	}
	if _, err := bearerToken("Bearer not-a-jwt"); !errors.Is(err, errBadAuthorization) {
		t.Fatalf("malformed token: got %v", err)
	}
	tok, err := bearerToken("  bearer aa.bb.cc  ")
	if err != nil {
		t.Fatalf("case-insensitive scheme: %v", err)
	}
	if tok != "aa.bb.cc" {
		t.Fatalf("unexpected token %q", tok)
	}
}
