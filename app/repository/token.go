package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/voxsentry/voxsentry/app/entity"
)

type OneTimeTokenRepository struct {
	db *sql.DB
}

func NewOneTimeTokenRepository(db *sql.DB) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{db: db}
}

func (r *OneTimeTokenRepository) Create(ctx context.Context, token *entity.OneTimeToken) error {
	if !token.Type.Known() {
		return fmt.Errorf("unknown token type %q", token.Type)
	}

	query := `
		INSERT INTO one_time_tokens (user_id, token, type, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Token,
		string(token.Type),
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	token.ID = uint64(id)
	return nil
}

// FindValid returns the token only if it exists for the requested purpose,
// is unused, and is unexpired. Not-found, wrong-type, used, and expired all
// come back as (nil, nil) so callers cannot tell the cases apart.
func (r *OneTimeTokenRepository) FindValid(ctx context.Context, tokenString string, tokenType entity.TokenType, now time.Time) (*entity.OneTimeToken, error) {
	query := `
		SELECT id, user_id, token, type, expires_at, used_at, created_at
		FROM one_time_tokens
		WHERE token = ? AND type = ? AND used_at IS NULL AND expires_at > ?
	`
	token := &entity.OneTimeToken{}
	err := r.db.QueryRowContext(ctx, query, tokenString, string(tokenType), now).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.Type,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// MarkUsed consumes the token. The used_at guard makes consumption atomic:
// of two concurrent spenders only one sees an affected row, the other must
// treat the token as invalid.
func (r *OneTimeTokenRepository) MarkUsed(ctx context.Context, id uint64, now time.Time) (bool, error) {
	query := `UPDATE one_time_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
