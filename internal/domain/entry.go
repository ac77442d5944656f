package domain

import "time"

// SubItem is an ordered sub-task of an entry with its own reminder stamps.
type SubItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Reminders []HHMM `json:"reminders,omitempty"`
}

// Entry is a user's submission for one local calendar day.
// At most one entry exists per (UserID, Day).
type Entry struct {
	ID        string
	UserID    string
	Day       Day
	Content   string
	Note      string
	Completed bool
	Reminders []HHMM
	SubItems  []SubItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveryStatus is the per-channel outcome of a send attempt.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// DeliveryOutcome is the persisted record of one channel attempt.
type DeliveryOutcome struct {
	ID        string
	UserID    string
	Channel   string
	PeriodKey string
	Kind      string
	Status    DeliveryStatus
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}
