package streak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/store"
)

func dayPtr(s string) *domain.Day {
	d := domain.Day(s)
	return &d
}

func TestAdvance(t *testing.T) {
	base := domain.Streak{Current: 5, Max: 7, LastEntryDay: dayPtr("2024-01-01")}

	next, tr := Advance(base, "2024-01-02")
	assert.Equal(t, Extended, tr)
	assert.Equal(t, 6, next.Current)
	assert.Equal(t, 7, next.Max)
	assert.Equal(t, domain.Day("2024-01-02"), *next.LastEntryDay)

	gap, tr := Advance(base, "2024-01-04")
	assert.Equal(t, Reset, tr)
	assert.Equal(t, 1, gap.Current)
	assert.Equal(t, 7, gap.Max)

	same, tr := Advance(base, "2024-01-01")
	assert.Equal(t, Unchanged, tr)
	assert.Equal(t, base, same)

	assert.Equal(t, dayPtr("2024-01-01"), base.LastEntryDay, "input is not mutated")
}

func TestAdvance_FirstEntryAndNewMax(t *testing.T) {
	first, tr := Advance(domain.Streak{}, "2024-03-10")
	assert.Equal(t, Reset, tr)
	assert.Equal(t, domain.Streak{Current: 1, Max: 1, LastEntryDay: dayPtr("2024-03-10")}, first)

	s := domain.Streak{Current: 3, Max: 3, LastEntryDay: dayPtr("2024-02-28")}
	s, _ = Advance(s, "2024-02-29")
	s, _ = Advance(s, "2024-03-01")
	assert.Equal(t, 5, s.Current)
	assert.Equal(t, 5, s.Max)
}

func TestAdvance_EarlierDayIsNoop(t *testing.T) {
	base := domain.Streak{Current: 4, Max: 6, LastEntryDay: dayPtr("2024-01-05")}

	next, tr := Advance(base, "2024-01-03")
	assert.Equal(t, Unchanged, tr)
	assert.Equal(t, base, next)
}

func setup(t *testing.T, u domain.User) (*Service, *store.SQLRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.UpsertUser(context.Background(), &u))
	return NewService(repo, domain.NewPartitioner("America/New_York"), nil), repo
}

func TestOnSubmission_ExtendsAndIsIdempotent(t *testing.T) {
	svc, repo := setup(t, domain.User{
		ID:     "u1",
		Email:  "a@example.com",
		Streak: domain.Streak{Current: 5, Max: 5, LastEntryDay: dayPtr("2024-01-01")},
	})
	ctx := context.Background()

	res, err := svc.OnSubmission(ctx, "u1", "2024-01-02", "ship it")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, Extended, res.Transition)
	assert.Equal(t, 6, res.Streak.Current)

	again, err := svc.OnSubmission(ctx, "u1", "2024-01-02", "ship it twice")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, Unchanged, again.Transition)

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, u.Streak.Current)
	assert.Equal(t, 6, u.Streak.Max)
	assert.Equal(t, domain.Day("2024-01-02"), *u.Streak.LastEntryDay)

	e, err := repo.LoadEntryForDay(ctx, "u1", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "ship it", e.Content)
}

func TestOnSubmission_GapResets(t *testing.T) {
	svc, _ := setup(t, domain.User{
		ID:     "u1",
		Email:  "a@example.com",
		Streak: domain.Streak{Current: 5, Max: 9, LastEntryDay: dayPtr("2024-01-01")},
	})

	res, err := svc.OnSubmission(context.Background(), "u1", "2024-01-04", "back")
	require.NoError(t, err)
	assert.Equal(t, Reset, res.Transition)
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 9, res.Streak.Max)
}

func TestOnSubmission_EmptyDayUsesUserZone(t *testing.T) {
	svc, _ := setup(t, domain.User{ID: "u1", Email: "a@example.com", Timezone: "Asia/Tokyo"})
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }

	res, err := svc.OnSubmission(context.Background(), "u1", "", "late night in UTC")
	require.NoError(t, err)
	assert.Equal(t, domain.Day("2024-01-02"), res.Day)
}

func TestOnSubmission_Errors(t *testing.T) {
	svc, _ := setup(t, domain.User{ID: "u1", Email: "a@example.com"})

	_, err := svc.OnSubmission(context.Background(), "nobody", "2024-01-02", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.OnSubmission(context.Background(), "u1", "2024-13-40", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidDay)
}

// racyStore loses the first CAS as if another submission advanced the streak.
type racyStore struct {
	user     domain.User
	lostOnce bool
	olds     []domain.Streak
}

func (r *racyStore) GetUser(context.Context, string) (*domain.User, error) {
	u := r.user
	return &u, nil
}

func (r *racyStore) CreateEntry(context.Context, *domain.Entry) error { return nil }

func (r *racyStore) CompareAndSetStreak(_ context.Context, _ string, old, next domain.Streak) (bool, error) {
	r.olds = append(r.olds, old)
	if !r.lostOnce {
		r.lostOnce = true
		r.user.Streak = domain.Streak{Current: 2, Max: 2, LastEntryDay: dayPtr("2024-01-01")}
		return false, nil
	}
	r.user.Streak = next
	return true, nil
}

func TestOnSubmission_RetriesLostRace(t *testing.T) {
	rs := &racyStore{user: domain.User{ID: "u1", Streak: domain.Streak{Current: 1, Max: 1, LastEntryDay: dayPtr("2023-12-31")}}}
	svc := NewService(rs, domain.NewPartitioner("UTC"), nil)

	res, err := svc.OnSubmission(context.Background(), "u1", "2024-01-02", "x")
	require.NoError(t, err)
	require.Len(t, rs.olds, 2)
	assert.Equal(t, 1, rs.olds[0].Current)
	assert.Equal(t, 2, rs.olds[1].Current, "retry compares against the reloaded streak")
	assert.Equal(t, 3, res.Streak.Current)
}

func TestOnSubmission_OutOfOrderCountsEachDayOnce(t *testing.T) {
	svc, repo := setup(t, domain.User{
		ID:       "u1",
		Email:    "a@example.com",
		Timezone: "UTC",
		Streak:   domain.Streak{Current: 4, Max: 4, LastEntryDay: dayPtr("2024-01-04")},
	})
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	res, err := svc.OnSubmission(ctx, "u1", "2024-01-05", "today")
	require.NoError(t, err)
	assert.Equal(t, Extended, res.Transition)
	assert.Equal(t, 5, res.Streak.Current)

	res, err = svc.OnSubmission(ctx, "u1", "2024-01-03", "backfill")
	require.NoError(t, err)
	assert.True(t, res.Created, "a missing past entry is still stored")
	assert.Equal(t, Unchanged, res.Transition)
	assert.Equal(t, 5, res.Streak.Current)

	res, err = svc.OnSubmission(ctx, "u1", "2024-01-05", "today again")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, Unchanged, res.Transition)

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, u.Streak.Current)
	assert.Equal(t, 5, u.Streak.Max)
	assert.Equal(t, domain.Day("2024-01-05"), *u.Streak.LastEntryDay)
}

func TestOnSubmission_ExistingEntryLeavesStreakAlone(t *testing.T) {
	svc, repo := setup(t, domain.User{
		ID:     "u1",
		Email:  "a@example.com",
		Streak: domain.Streak{Current: 2, Max: 2, LastEntryDay: dayPtr("2024-01-01")},
	})
	ctx := context.Background()
	require.NoError(t, repo.CreateEntry(ctx, &domain.Entry{UserID: "u1", Day: "2024-01-02", Content: "imported"}))

	res, err := svc.OnSubmission(ctx, "u1", "2024-01-02", "x")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, Unchanged, res.Transition)

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Streak.Current)
	assert.Equal(t, domain.Day("2024-01-01"), *u.Streak.LastEntryDay)
}

func TestOnSubmission_RejectsFutureDay(t *testing.T) {
	svc, repo := setup(t, domain.User{ID: "u1", Email: "a@example.com", Timezone: "Asia/Tokyo"})
	// 2024-01-01 20:00 UTC is already 2024-01-02 in Tokyo
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := svc.OnSubmission(ctx, "u1", "2099-12-31", "x")
	assert.ErrorIs(t, err, ErrFutureDay)
	_, err = svc.OnSubmission(ctx, "u1", "2024-01-03", "x")
	assert.ErrorIs(t, err, ErrFutureDay)

	_, err = repo.LoadEntryForDay(ctx, "u1", "2024-01-03")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.OnSubmission(ctx, "u1", "2024-01-02", "x")
	assert.NoError(t, err)
}
