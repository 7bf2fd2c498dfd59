// Package types provides core types shared across the service.
// This package has ZERO dependencies on other packages in this module to
// avoid circular imports.
package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single conversation message. Messages are immutable
// once appended to a session.
type Message struct {
	Role Role           `json:"role"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
	TS   time.Time      `json:"ts"`
}

// NewMessage creates a message with the given role and text.
func NewMessage(role Role, text string, meta map[string]any) Message {
	if meta == nil {
		meta = map[string]any{}
	}
	return Message{
		Role: role,
		Text: text,
		Meta: meta,
		TS:   time.Now().UTC(),
	}
}

// Session is an append-only conversation log. One record per session is
// persisted, looked up by ID.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}
