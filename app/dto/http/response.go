package http

import "time"

type UserResponse struct {
	ID         uint64    `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisterResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SessionResponse struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

type ClipResponse struct {
	ID                uint64    `json:"id"`
	Filename          string    `json:"filename"`
	Result            string    `json:"result"`
	Score             float64   `json:"score"`
	Message           string    `json:"message"`
	InferenceDuration float64   `json:"inference_duration"`
	Timestamp         time.Time `json:"timestamp"`
}

type ClipListItem struct {
	ID        uint64    `json:"id"`
	Filename  string    `json:"filename"`
	Result    string    `json:"result"`
	Score     float64   `json:"score"`
	DeviceID  string    `json:"device_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
