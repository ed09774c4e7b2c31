package api

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"trellis-api/domain"
)

// Tokens issues HS256 bearer tokens for registered users.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokens creates a token issuer. ttl defaults to 7 days.
func NewTokens(secret []byte, issuer, audience string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{secret: secret, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue signs a token identifying the user.
func (t *Tokens) Issue(u domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"iss":   t.issuer,
		"aud":   t.audience,
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}
