package models

import (
	"encoding/json"
	"time"
)

// Session is one browser session's envelope in the session store. State
// holds the serialized wizard.
type Session struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActivity time.Time       `json:"lastActivity"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	State        json.RawMessage `json:"state,omitempty"`
}

// NewSession starts a session that expires ttl from now.
func NewSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
	}
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch records activity and slides the expiry forward by ttl.
func (s *Session) Touch(ttl time.Duration) {
	s.LastActivity = time.Now().UTC()
	s.ExpiresAt = s.LastActivity.Add(ttl)
}
