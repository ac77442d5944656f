package store

import (
	"context"
	"database/sql"

	"github.com/ykvlv/dailyping/internal/domain"
)

// Repo defines storage operations for users, entries and delivery outcomes.
type Repo interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	LoadUsersWithActiveTriggers(ctx context.Context) ([]domain.User, error)
	ListUsersWithSubscriptionRef(ctx context.Context) ([]domain.User, error)
	CompareAndSetStreak(ctx context.Context, userID string, old, next domain.Streak) (bool, error)
	CompareAndSetSubscriptionState(ctx context.Context, userID string, old, next domain.SubscriptionState) (bool, error)
	NormalizeSubscriptionStates(ctx context.Context) (int64, error)

	CreateEntry(ctx context.Context, e *domain.Entry) error
	LoadEntryForDay(ctx context.Context, userID string, day domain.Day) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, e *domain.Entry) error

	RecordDelivery(ctx context.Context, o domain.DeliveryOutcome) error
	ListDeliveries(ctx context.Context, userID string, limit int) ([]domain.DeliveryOutcome, error)

	DB() *sql.DB
	Close() error
}
