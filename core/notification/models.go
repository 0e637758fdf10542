package notification

import (
	"time"

	"github.com/trezcool/shule/core/user"
)

// Notification types
const (
	TypeTaskUpdate = "task_update"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Event is emitted by mutation paths when a student's activity should be
// surfaced to their linked parents. Delivery is fire-and-forget: the emitting
// request neither waits for nor learns about the outcome.
type Event struct {
	Student user.User
	Message string
}
