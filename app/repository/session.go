package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/voxsentry/voxsentry/app/entity"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (user_id, jti, user_agent, ip, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		session.UserID,
		session.JTI,
		session.UserAgent,
		session.IP,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = uint64(id)
	return nil
}

func (r *SessionRepository) FindByJTI(ctx context.Context, jti string) (*entity.Session, error) {
	query := `
		SELECT id, user_id, jti, user_agent, ip, created_at, expires_at, revoked_at
		FROM sessions WHERE jti = ?
	`
	session := &entity.Session{}
	err := r.db.QueryRowContext(ctx, query, jti).Scan(
		&session.ID,
		&session.UserID,
		&session.JTI,
		&session.UserAgent,
		&session.IP,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Revoke soft-revokes the session with the given jti. No-op if the jti is
// unknown or the session is already revoked.
func (r *SessionRepository) Revoke(ctx context.Context, jti string, now time.Time) error {
	query := `UPDATE sessions SET revoked_at = ? WHERE jti = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, now, jti)
	return err
}

// RevokeAllForUser soft-revokes every session of the user that is still
// active at this instant.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	query := `UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL AND expires_at > ?`
	_, err := r.db.ExecContext(ctx, query, now, userID, now)
	return err
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID uint64, now time.Time) ([]*entity.Session, error) {
	query := `
		SELECT id, user_id, jti, user_agent, ip, created_at, expires_at, revoked_at
		FROM sessions
		WHERE user_id = ? AND revoked_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		session := &entity.Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.JTI,
			&session.UserAgent,
			&session.IP,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.RevokedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
