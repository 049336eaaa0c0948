package api

import "time"

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string                  `json:"status"`
	Modules map[string]ModuleHealth `json:"modules,omitempty"`
}

// ModuleHealth is the health of a single module.
type ModuleHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// PresenceResponse is a read-only view of the connection registry.
type PresenceResponse struct {
	OnlineUsers []string `json:"online_users"`
	Online      int      `json:"online"`
	Connections int      `json:"connections"`
}

// UserPresenceResponse is the presence of a single user.
type UserPresenceResponse struct {
	UserID   string     `json:"user_id"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}
