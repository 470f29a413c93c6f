package entity

import (
	"database/sql"
	"time"
)

const (
	ResultReal      = "real"
	ResultSynthetic = "synthetic"
)

// Clip is the stored outcome of one classification request.
type Clip struct {
	ID                uint64
	UserID            uint64
	Filename          string
	Result            string
	Score             float64
	DeviceID          sql.NullString
	InferenceStart    time.Time
	InferenceEnd      time.Time
	InferenceDuration float64
	CreatedAt         time.Time
}
