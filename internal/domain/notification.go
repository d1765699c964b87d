package domain

import "time"

// Notification is an append-only message to a user. The engine only ever
// writes these; duplicate delivery is tolerable, a lost transition is not.
type Notification struct {
	ID          string
	RecipientID string
	Message     string
	Read        bool
	CreatedAt   time.Time
}
