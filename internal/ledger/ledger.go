// Package ledger records fulfilled notification periods. A claim is an
// atomic insert-if-absent: the first caller for a key wins, every later
// caller (another tick, a retry after a crash, another instance) loses.
package ledger

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidKey = errors.New("invalid claim key")

// Key identifies one firing opportunity for one user on one channel group.
type Key struct {
	UserID    string
	Channel   string
	PeriodKey string
}

// String renders the key as "user|channel|period".
func (k Key) String() string {
	return k.UserID + "|" + k.Channel + "|" + k.PeriodKey
}

// Validate rejects keys with empty parts or the '|' separator.
func (k Key) Validate() error {
	for _, part := range []string{k.UserID, k.Channel, k.PeriodKey} {
		if part == "" || strings.Contains(part, "|") {
			return ErrInvalidKey
		}
	}
	return nil
}

// Ledger is the shared, append-only set of fulfilled keys.
// Claim returns true when the key was newly reserved and false when it already existed.
type Ledger interface {
	Claim(ctx context.Context, key Key) (bool, error)
}
