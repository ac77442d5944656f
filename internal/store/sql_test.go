package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/dailyping/internal/domain"
)

func openTestRepo(t *testing.T) *SQLRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLRepo, id string, mutate func(u *domain.User)) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:          id,
		Email:       id + "@example.com",
		Enabled:     true,
		Timezone:    "America/New_York",
		TriggerTime: "08:00",
		Preferences: domain.Preferences{Tone: domain.ToneGentle, DailyMode: "goal"},
		Subscription: domain.Subscription{
			State: domain.SubscriptionInactive,
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, repo.UpsertUser(context.Background(), u))
	return u
}

func TestUpsertUser_RoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	last := domain.Day("2024-01-01")

	seedUser(t, repo, "u1", func(u *domain.User) {
		u.Push = &domain.PushEndpoint{Kind: domain.PushWeb, Endpoint: "https://push.example/abc", P256dh: "k", Auth: "a"}
		u.Subscription.ExternalRef = "sub_123"
		u.Streak = domain.Streak{Current: 5, Max: 7, LastEntryDay: &last}
	})

	got, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", got.Email)
	assert.True(t, got.Enabled)
	assert.Equal(t, domain.HHMM("08:00"), got.TriggerTime)
	require.NotNil(t, got.Push)
	assert.Equal(t, domain.PushWeb, got.Push.Kind)
	assert.Equal(t, "https://push.example/abc", got.Push.Endpoint)
	assert.Equal(t, "sub_123", got.Subscription.ExternalRef)
	assert.Equal(t, 5, got.Streak.Current)
	assert.Equal(t, 7, got.Streak.Max)
	require.NotNil(t, got.Streak.LastEntryDay)
	assert.Equal(t, last, *got.Streak.LastEntryDay)

	byEmail, err := repo.GetUserByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestUpsertUser_UpdateKeepsStreakAndState(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u := seedUser(t, repo, "u1", func(u *domain.User) {
		u.Streak = domain.Streak{Current: 3, Max: 3}
	})
	ok, err := repo.CompareAndSetSubscriptionState(ctx, "u1", domain.SubscriptionInactive, domain.SubscriptionActive)
	require.NoError(t, err)
	require.True(t, ok)

	u.Timezone = "Europe/Moscow"
	u.Push = nil
	u.Streak = domain.Streak{}
	u.Subscription.State = domain.SubscriptionInactive
	require.NoError(t, repo.UpsertUser(ctx, u))

	got, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", got.Timezone)
	assert.Nil(t, got.Push)
	assert.Equal(t, 3, got.Streak.Current)
	assert.Equal(t, domain.SubscriptionActive, got.Subscription.State)
}

func TestGetUser_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadUsersWithActiveTriggers_SkipsDisabled(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "a", nil)
	seedUser(t, repo, "b", nil)
	require.NoError(t, repo.SetEnabled(ctx, "b", false))

	users, err := repo.LoadUsersWithActiveTriggers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a", users[0].ID)

	require.ErrorIs(t, repo.SetEnabled(ctx, "ghost", true), domain.ErrNotFound)
}

func TestListUsersWithSubscriptionRef(t *testing.T) {
	repo := openTestRepo(t)
	seedUser(t, repo, "free", nil)
	seedUser(t, repo, "paid", func(u *domain.User) { u.Subscription.ExternalRef = "sub_1" })

	users, err := repo.ListUsersWithSubscriptionRef(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "paid", users[0].ID)
}

func TestCompareAndSetStreak(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", nil)

	d1 := domain.Day("2024-01-01")
	first := domain.Streak{Current: 1, Max: 1, LastEntryDay: &d1}

	ok, err := repo.CompareAndSetStreak(ctx, "u1", domain.Streak{}, first)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale "old" value loses.
	ok, err = repo.CompareAndSetStreak(ctx, "u1", domain.Streak{}, domain.Streak{Current: 9, Max: 9})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak.Current)
	require.NotNil(t, got.Streak.LastEntryDay)
	assert.Equal(t, d1, *got.Streak.LastEntryDay)
}

func TestCompareAndSetSubscriptionState_Conflict(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", nil)

	ok, err := repo.CompareAndSetSubscriptionState(ctx, "u1", domain.SubscriptionActive, domain.SubscriptionInactive)
	require.NoError(t, err)
	assert.False(t, ok, "stored value is inactive, CAS from active must fail")

	ok, err = repo.CompareAndSetSubscriptionState(ctx, "u1", domain.SubscriptionInactive, domain.SubscriptionActive)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubscriptionState_LegacyBooleans(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "old-false", nil)
	seedUser(t, repo, "old-true", nil)
	seedUser(t, repo, "modern", func(u *domain.User) { u.Subscription.State = domain.SubscriptionTrialing })

	_, err := repo.DB().ExecContext(ctx, `UPDATE users SET subscription_state = 'false' WHERE id = 'old-false'`)
	require.NoError(t, err)
	_, err = repo.DB().ExecContext(ctx, `UPDATE users SET subscription_state = 'true' WHERE id = 'old-true'`)
	require.NoError(t, err)

	got, err := repo.GetUser(ctx, "old-false")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionInactive, got.Subscription.State)

	// CAS treats the legacy spelling as the canonical state.
	ok, err := repo.CompareAndSetSubscriptionState(ctx, "old-false", domain.SubscriptionInactive, domain.SubscriptionActive)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.NormalizeSubscriptionStates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var raw string
	require.NoError(t, repo.DB().QueryRowContext(ctx, `SELECT subscription_state FROM users WHERE id = 'old-true'`).Scan(&raw))
	assert.Equal(t, "active", raw)
	require.NoError(t, repo.DB().QueryRowContext(ctx, `SELECT subscription_state FROM users WHERE id = 'modern'`).Scan(&raw))
	assert.Equal(t, "trialing", raw)
}

func TestEntries_CreateLoadUpdate(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", nil)

	e := &domain.Entry{
		UserID:    "u1",
		Day:       "2024-01-02",
		Content:   "ship the release",
		Reminders: []domain.HHMM{"09:00", "17:30"},
		SubItems: []domain.SubItem{
			{Text: "write notes", Reminders: []domain.HHMM{"10:00"}},
			{Text: "tag build"},
		},
	}
	require.NoError(t, repo.CreateEntry(ctx, e))
	require.NotEmpty(t, e.ID)

	got, err := repo.LoadEntryForDay(ctx, "u1", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "ship the release", got.Content)
	assert.Equal(t, []domain.HHMM{"09:00", "17:30"}, got.Reminders)
	require.Len(t, got.SubItems, 2)
	assert.Equal(t, []domain.HHMM{"10:00"}, got.SubItems[0].Reminders)
	assert.Empty(t, got.SubItems[1].Reminders)

	got.SubItems[1].Completed = true
	got.Completed = true
	got.Note = "done early"
	require.NoError(t, repo.UpdateEntry(ctx, got))

	again, err := repo.LoadEntryForDay(ctx, "u1", "2024-01-02")
	require.NoError(t, err)
	assert.True(t, again.Completed)
	assert.True(t, again.SubItems[1].Completed)
	assert.Equal(t, "done early", again.Note)
}

func TestCreateEntry_DuplicateDay(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", nil)

	require.NoError(t, repo.CreateEntry(ctx, &domain.Entry{UserID: "u1", Day: "2024-01-02", Content: "a"}))
	err := repo.CreateEntry(ctx, &domain.Entry{UserID: "u1", Day: "2024-01-02", Content: "b"})
	require.ErrorIs(t, err, domain.ErrEntryExists)

	got, err := repo.LoadEntryForDay(ctx, "u1", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Content)
	assert.Empty(t, got.Reminders)
}

func TestLoadEntryForDay_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	seedUser(t, repo, "u1", nil)
	_, err := repo.LoadEntryForDay(context.Background(), "u1", "2024-01-02")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeliveries_RecordAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordDelivery(ctx, domain.DeliveryOutcome{
		UserID: "u1", Channel: "email", PeriodKey: "ping:2024-01-02", Kind: "daily_ping",
		Status: domain.DeliverySent, Duration: 120 * time.Millisecond, CreatedAt: base,
	}))
	require.NoError(t, repo.RecordDelivery(ctx, domain.DeliveryOutcome{
		UserID: "u1", Channel: "push", PeriodKey: "ping:2024-01-02", Kind: "daily_ping",
		Status: domain.DeliveryFailed, Error: "gone", CreatedAt: base.Add(time.Second),
	}))

	got, err := repo.ListDeliveries(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "push", got[0].Channel)
	assert.Equal(t, domain.DeliveryFailed, got[0].Status)
	assert.Equal(t, "gone", got[0].Error)
	assert.Equal(t, 120*time.Millisecond, got[1].Duration)
}
