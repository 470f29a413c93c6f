package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/voxsentry/voxsentry/app/entity"
)

var clipColumns = []string{
	"id",
	"user_id",
	"filename",
	"result",
	"score",
	"device_id",
	"inference_start",
	"inference_end",
	"inference_duration",
	"created_at",
}

func newClipRepoWithMock(t *testing.T) (*ClipRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewClipRepository(db), mock, func() { _ = db.Close() }
}

func TestClipRepository_Create(t *testing.T) {
	repo, mock, cleanup := newClipRepoWithMock(t)
	defer cleanup()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clip := &entity.Clip{
		UserID:            1,
		Filename:          "voice.wav",
		Result:            entity.ResultSynthetic,
		Score:             0.97,
		DeviceID:          sql.NullString{String: "phone-1", Valid: true},
		InferenceStart:    now,
		InferenceEnd:      now.Add(120 * time.Millisecond),
		InferenceDuration: 0.12,
		CreatedAt:         now,
	}

	mock.ExpectExec(`(?s)INSERT INTO clips \(user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`).
		WithArgs(uint64(1), "voice.wav", "synthetic", 0.97, clip.DeviceID, clip.InferenceStart, clip.InferenceEnd, 0.12, now).
		WillReturnResult(sqlmock.NewResult(11, 1))

	if err := repo.Create(context.Background(), clip); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if clip.ID != 11 {
		t.Fatalf("expected ID 11, got %d", clip.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClipRepository_ListByUser(t *testing.T) {
	repo, mock, cleanup := newClipRepoWithMock(t)
	defer cleanup()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT id, user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at\s+FROM clips WHERE user_id = \?\s+ORDER BY created_at DESC`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(clipColumns).
			AddRow(2, 1, "b.wav", "real", 0.12, nil, now, now, 0.1, now).
			AddRow(1, 1, "a.wav", "synthetic", 0.93, "phone-1", now.Add(-time.Hour), now.Add(-time.Hour), 0.1, now.Add(-time.Hour)))

	clips, err := repo.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(clips))
	}
	if clips[0].Filename != "b.wav" || clips[0].DeviceID.Valid {
		t.Fatalf("unexpected first clip: %+v", clips[0])
	}
}

func TestClipRepository_ListByUserAndDevice(t *testing.T) {
	repo, mock, cleanup := newClipRepoWithMock(t)
	defer cleanup()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT id, user_id, filename, result, score, device_id, inference_start, inference_end, inference_duration, created_at\s+FROM clips WHERE user_id = \? AND device_id = \?\s+ORDER BY created_at DESC`).
		WithArgs(uint64(1), "phone-1").
		WillReturnRows(sqlmock.NewRows(clipColumns).
			AddRow(1, 1, "a.wav", "synthetic", 0.93, "phone-1", now, now, 0.1, now))

	clips, err := repo.ListByUserAndDevice(context.Background(), 1, "phone-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(clips) != 1 || clips[0].DeviceID.String != "phone-1" {
		t.Fatalf("unexpected clips: %+v", clips)
	}
}
