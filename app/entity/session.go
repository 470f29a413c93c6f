package entity

import (
	"database/sql"
	"time"
)

// Session is one successful login. It is never deleted, only revoked, so
// past logins stay visible for auditing.
type Session struct {
	ID        uint64
	UserID    uint64
	JTI       string
	UserAgent sql.NullString
	IP        sql.NullString
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt sql.NullTime
}

// Active reports whether the session can still mint access tokens.
func (s *Session) Active(now time.Time) bool {
	return !s.RevokedAt.Valid && s.ExpiresAt.After(now)
}
