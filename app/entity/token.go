package entity

import (
	"database/sql"
	"time"
)

// TokenType namespaces one-time tokens so a token issued for one purpose
// can never be replayed for another.
type TokenType string

const (
	TokenTypeVerifyEmail   TokenType = "verify_email"
	TokenTypeResetPassword TokenType = "reset_password"
)

func (t TokenType) Known() bool {
	return t == TokenTypeVerifyEmail || t == TokenTypeResetPassword
}

// OneTimeToken is a single-use out-of-band credential. Consumed exactly
// once by setting used_at; expired or used tokens are treated as invalid
// when encountered, never purged.
type OneTimeToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	Type      TokenType
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}
