package model

import (
	"time"

	"github.com/google/uuid"
)

// NoticeTTL is how long a notice stays visible before it is dismissed.
const NoticeTTL = 3 * time.Second

// NoticeLevel classifies a notice for presentation.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short user-facing message raised by an operation.
type Notice struct {
	// ID is the unique identifier for this notice.
	ID string `json:"id"`

	// Level is the notice severity.
	Level NoticeLevel `json:"level"`

	// Message is the human-readable text.
	Message string `json:"message"`

	// CreatedAt is when this notice was raised.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when presentation should dismiss it.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewNotice builds a notice stamped at now.
func NewNotice(level NoticeLevel, message string, now time.Time) Notice {
	return Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(NoticeTTL),
	}
}

// Expired reports whether the notice should no longer be shown at t.
func (n Notice) Expired(t time.Time) bool {
	return !t.Before(n.ExpiresAt)
}
