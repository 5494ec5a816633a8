package message

import "time"

// Change types carried on the backend change feed.
const (
	ChangeCreated = "created"
	ChangeDeleted = "deleted"
)

// Change is one mutation applied by the backend.
type Change struct {
	Type      string    `json:"type"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
