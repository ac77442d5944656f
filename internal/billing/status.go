// Package billing keeps the local entitlement flag in line with the
// external billing authority.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ykvlv/dailyping/internal/domain"
)

var (
	// ErrSubscriptionNotFound is a definitive answer: the reference no longer exists.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUnknownStatus        = errors.New("unknown subscription status")
)

// ExternalStatus is the billing authority's subscription status.
type ExternalStatus string

const (
	StatusActive            ExternalStatus = "active"
	StatusTrialing          ExternalStatus = "trialing"
	StatusPastDue           ExternalStatus = "past_due"
	StatusCanceled          ExternalStatus = "canceled"
	StatusUnpaid            ExternalStatus = "unpaid"
	StatusIncomplete        ExternalStatus = "incomplete"
	StatusIncompleteExpired ExternalStatus = "incomplete_expired"
	StatusPaused            ExternalStatus = "paused"
)

// Provider looks up a subscription by its external reference.
// Errors other than ErrSubscriptionNotFound are transient.
type Provider interface {
	GetExternalSubscriptionStatus(ctx context.Context, ref string) (ExternalStatus, error)
}

// MapStatus maps an external status onto the local state.
func MapStatus(s ExternalStatus) (domain.SubscriptionState, error) {
	switch s {
	case StatusActive, StatusTrialing:
		return domain.SubscriptionActive, nil
	case StatusPastDue, StatusCanceled, StatusUnpaid, StatusIncomplete, StatusIncompleteExpired, StatusPaused:
		return domain.SubscriptionInactive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}
