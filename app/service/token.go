package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed payload of both bearer token kinds. SessionID binds
// the token to one sessions row; the row is the unit of revocation.
type Claims struct {
	UserID    uint64 `json:"user_id"`
	SessionID string `json:"sid"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens. It is deliberately
// stateless: Decode checks signature and expiry only, whether the bound
// session is still live is the caller's problem.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, clock Clock) *TokenCodec {
	if clock == nil {
		clock = systemClock{}
	}
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}
}

func (c *TokenCodec) IssueAccess(userID uint64, sessionID string) (string, error) {
	return c.issue(userID, sessionID, TokenTypeAccess, c.accessTTL)
}

func (c *TokenCodec) IssueRefresh(userID uint64, sessionID string) (string, error) {
	return c.issue(userID, sessionID, TokenTypeRefresh, c.refreshTTL)
}

func (c *TokenCodec) issue(userID uint64, sessionID, tokenType string, ttl time.Duration) (string, error) {
	now := c.clock.Now()
	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims. Malformed,
// forged, and expired tokens all fail with ErrInvalidToken; so does any
// type claim outside the known set.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.clock.Now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
