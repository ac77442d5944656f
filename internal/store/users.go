package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ykvlv/dailyping/internal/dbx"
	"github.com/ykvlv/dailyping/internal/domain"
)

const userColumns = `
	id, email, username, enabled, timezone, trigger_time, tone, daily_mode,
	push_kind, push_endpoint, push_p256dh, push_auth, push_chat_id,
	subscription_state, subscription_ref,
	streak_current, streak_max, streak_last_day, created_at`

// UpsertUser inserts a user or updates its profile, preferences and push endpoint.
// Streak counters and the subscription state are written only on insert; after
// that they change exclusively through the compare-and-set methods.
func (r *SQLRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	created := toUnix(u.CreatedAt)
	if created == 0 {
		created = time.Now().UTC().Unix()
	}
	state := u.Subscription.State
	if state == "" {
		state = domain.SubscriptionInactive
	}
	tone := u.Preferences.Tone
	if tone == "" {
		tone = domain.ToneGentle
	}
	mode := u.Preferences.DailyMode
	if mode == "" {
		mode = "goal"
	}
	push := pushToColumns(u.Push)

	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email            = excluded.email,
			username         = excluded.username,
			enabled          = excluded.enabled,
			timezone         = excluded.timezone,
			trigger_time     = excluded.trigger_time,
			tone             = excluded.tone,
			daily_mode       = excluded.daily_mode,
			push_kind        = excluded.push_kind,
			push_endpoint    = excluded.push_endpoint,
			push_p256dh      = excluded.push_p256dh,
			push_auth        = excluded.push_auth,
			push_chat_id     = excluded.push_chat_id,
			subscription_ref = excluded.subscription_ref`),
		u.ID, u.Email, u.Username, boolToInt(u.Enabled), u.Timezone, string(u.TriggerTime),
		string(tone), mode,
		push.kind, push.endpoint, push.p256dh, push.auth, push.chatID,
		string(state), u.Subscription.ExternalRef,
		u.Streak.Current, u.Streak.Max, dayToColumn(u.Streak.LastEntryDay), created,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser returns a user by id or domain.ErrNotFound.
func (r *SQLRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUserRow(row)
}

// GetUserByEmail returns a user by email or domain.ErrNotFound.
func (r *SQLRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return scanUserRow(row)
}

// SetEnabled toggles the enabled flag for a user.
func (r *SQLRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE users SET enabled = ? WHERE id = ?`), boolToInt(enabled), id)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	return expectOneRow(res)
}

// LoadUsersWithActiveTriggers returns every enabled user.
// Each enabled user has at least the daily ping trigger.
func (r *SQLRepo) LoadUsersWithActiveTriggers(ctx context.Context) ([]domain.User, error) {
	return r.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE enabled = 1 ORDER BY id`)
}

// ListUsersWithSubscriptionRef returns users linked to the billing provider.
func (r *SQLRepo) ListUsersWithSubscriptionRef(ctx context.Context) ([]domain.User, error) {
	return r.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE subscription_ref <> '' ORDER BY id`)
}

// CompareAndSetStreak writes next only if the stored streak still equals old.
func (r *SQLRepo) CompareAndSetStreak(ctx context.Context, userID string, old, next domain.Streak) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE users
		SET streak_current = ?, streak_max = ?, streak_last_day = ?
		WHERE id = ? AND streak_current = ? AND streak_max = ? AND streak_last_day = ?`),
		next.Current, next.Max, dayToColumn(next.LastEntryDay),
		userID, old.Current, old.Max, dayToColumn(old.LastEntryDay),
	)
	if err != nil {
		return false, fmt.Errorf("update streak: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update streak: %w", err)
	}
	return n == 1, nil
}

// CompareAndSetSubscriptionState writes next only if the stored state still equals old.
func (r *SQLRepo) CompareAndSetSubscriptionState(ctx context.Context, userID string, old, next domain.SubscriptionState) (bool, error) {
	// Legacy boolean spellings of old match too; they are the same state.
	match := append([]any{string(old)}, legacySpellings[old]...)
	args := append([]any{string(next), userID}, match...)
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE users SET subscription_state = ?
		WHERE id = ? AND subscription_state IN (?`+repeatPlaceholders(len(match)-1)+`)`),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	return n == 1, nil
}

// NormalizeSubscriptionStates rewrites legacy boolean entitlement values
// into the four-state model. It returns the number of rows changed.
func (r *SQLRepo) NormalizeSubscriptionStates(ctx context.Context) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, to := range []domain.SubscriptionState{domain.SubscriptionActive, domain.SubscriptionInactive} {
			from := legacySpellings[to]
			q := `UPDATE users SET subscription_state = ? WHERE subscription_state IN (?` +
				repeatPlaceholders(len(from)-1) + `)`
			args := append([]any{string(to)}, from...)
			res, err := tx.ExecContext(ctx, r.q(q), args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("normalize subscriptions: %w", err)
	}
	return total, nil
}

// legacySpellings lists boolean-era values stored for each canonical state.
var legacySpellings = map[domain.SubscriptionState][]any{
	domain.SubscriptionActive:   {"true", "1"},
	domain.SubscriptionInactive: {"false", "0", ""},
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

func (r *SQLRepo) listUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func scanUserRow(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return u, err
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		enabledInt int
		trigger    string
		tone       string
		push       pushColumns
		state      string
		lastDay    string
		createdAt  int64
	)
	if err := s.Scan(
		&u.ID, &u.Email, &u.Username, &enabledInt, &u.Timezone, &trigger, &tone, &u.Preferences.DailyMode,
		&push.kind, &push.endpoint, &push.p256dh, &push.auth, &push.chatID,
		&state, &u.Subscription.ExternalRef,
		&u.Streak.Current, &u.Streak.Max, &lastDay, &createdAt,
	); err != nil {
		return nil, err
	}

	// Unknown legacy values are kept verbatim; the reconciler only compares them.
	st, err := domain.ParseSubscriptionState(state)
	if err != nil {
		st = domain.SubscriptionState(state)
	}

	u.Enabled = enabledInt != 0
	u.TriggerTime = domain.HHMM(trigger)
	u.Preferences.Tone = domain.Tone(tone)
	u.Push = push.endpointValue()
	u.Subscription.State = st
	u.Streak.LastEntryDay = dayFromColumn(lastDay)
	u.CreatedAt = fromUnix(createdAt)
	return &u, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
