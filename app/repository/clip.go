package repository

import (
	"context"
	"database/sql"

	"github.com/voxsentry/voxsentry/app/entity"
)

type ClipRepository struct {
	db *sql.DB
}

func NewClipRepository(db *sql.DB) *ClipRepository {
	return &ClipRepository{db: db}
}

func (r *ClipRepository) Create(ctx context.Context, clip *entity.Clip) error {
	query := `
		INSERT INTO clips (user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		clip.UserID,
		clip.Filename,
		clip.Result,
		clip.Score,
		clip.DeviceID,
		clip.InferenceStart,
		clip.InferenceEnd,
		clip.InferenceDuration,
		clip.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	clip.ID = uint64(id)
	return nil
}

func (r *ClipRepository) ListByUser(ctx context.Context, userID uint64) ([]*entity.Clip, error) {
	query := `
		SELECT id, user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at
		FROM clips WHERE user_id = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *ClipRepository) ListByUserAndDevice(ctx context.Context, userID uint64, deviceID string) ([]*entity.Clip, error) {
	query := `
		SELECT id, user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at
		FROM clips WHERE user_id = ? AND device_id = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID, deviceID)
}

func (r *ClipRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Clip, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*entity.Clip
	for rows.Next() {
		clip := &entity.Clip{}
		if err := rows.Scan(
			&clip.ID,
			&clip.UserID,
			&clip.Filename,
			&clip.Result,
			&clip.Score,
			&clip.DeviceID,
			&clip.InferenceStart,
			&clip.InferenceEnd,
			&clip.InferenceDuration,
			&clip.CreatedAt,
		); err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}
