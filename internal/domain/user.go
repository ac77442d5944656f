package domain

import "time"

// SubscriptionState is the locally cached entitlement flag.
type SubscriptionState string

const (
	SubscriptionActive   SubscriptionState = "active"
	SubscriptionInactive SubscriptionState = "inactive"
	SubscriptionTrialing SubscriptionState = "trialing"
	SubscriptionCanceled SubscriptionState = "canceled"
)

// ParseSubscriptionState accepts the four canonical states plus the legacy
// boolean spellings stored by older rows ("true", "false", "").
func ParseSubscriptionState(s string) (SubscriptionState, error) {
	switch SubscriptionState(s) {
	case SubscriptionActive, SubscriptionInactive, SubscriptionTrialing, SubscriptionCanceled:
		return SubscriptionState(s), nil
	}
	switch s {
	case "true", "1":
		return SubscriptionActive, nil
	case "false", "0", "":
		return SubscriptionInactive, nil
	}
	return "", ErrInvalidSubscriptionState
}

// Entitled reports whether premium behavior is unlocked.
func (s SubscriptionState) Entitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}

// PushKind selects the transport behind a push endpoint.
type PushKind string

const (
	PushWeb      PushKind = "webpush"
	PushTelegram PushKind = "telegram"
)

// PushEndpoint is an optional secondary delivery target.
// Web push uses Endpoint/P256dh/Auth; telegram uses ChatID.
type PushEndpoint struct {
	Kind     PushKind
	Endpoint string
	P256dh   string
	Auth     string
	ChatID   int64
}

// Preferences holds channel styling choices.
type Preferences struct {
	Tone      Tone
	DailyMode string
}

// Subscription links a user to the external billing authority.
type Subscription struct {
	State       SubscriptionState
	ExternalRef string // empty when the user never subscribed
}

// Streak is the consecutive-engagement counter. Max >= Current always.
type Streak struct {
	Current      int
	Max          int
	LastEntryDay *Day // nil before the first entry
}

// User represents per-user notification settings, streak and entitlement.
type User struct {
	ID           string
	Email        string
	Username     string
	Enabled      bool
	Timezone     string // IANA id, empty means the configured default
	TriggerTime  HHMM   // empty means the configured default
	Preferences  Preferences
	Push         *PushEndpoint // nil means no push channel
	Subscription Subscription
	Streak       Streak
	CreatedAt    time.Time // UTC
}
