package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ykvlv/dailyping/internal/domain"
)

const entryColumns = `id, user_id, day, content, note, completed, reminders, sub_items, created_at, updated_at`

// CreateEntry inserts the entry for (UserID, Day). A second entry for the same
// pair is rejected with domain.ErrEntryExists.
func (r *SQLRepo) CreateEntry(ctx context.Context, e *domain.Entry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt

	reminders, subItems, err := encodeEntryLists(e)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO NOTHING`),
		e.ID, e.UserID, string(e.Day), e.Content, e.Note, boolToInt(e.Completed),
		reminders, subItems, toUnix(e.CreatedAt), toUnix(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if n == 0 {
		return domain.ErrEntryExists
	}
	return nil
}

// LoadEntryForDay returns the user's entry for day or domain.ErrNotFound.
func (r *SQLRepo) LoadEntryForDay(ctx context.Context, userID string, day domain.Day) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
		SELECT `+entryColumns+` FROM entries
		WHERE user_id = ? AND day = ?`),
		userID, string(day),
	)

	var (
		e            domain.Entry
		dayCol       string
		completedInt int
		reminders    string
		subItems     string
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&e.ID, &e.UserID, &dayCol, &e.Content, &e.Note, &completedInt,
		&reminders, &subItems, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}

	e.Day = domain.Day(dayCol)
	e.Completed = completedInt != 0
	if e.Reminders, err = decodeReminders(reminders); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	if e.SubItems, err = decodeSubItems(subItems); err != nil {
		return nil, fmt.Errorf("decode sub-items: %w", err)
	}
	e.CreatedAt = fromUnix(createdAt)
	e.UpdatedAt = fromUnix(updatedAt)
	return &e, nil
}

// UpdateEntry rewrites the editable fields of an existing entry.
func (r *SQLRepo) UpdateEntry(ctx context.Context, e *domain.Entry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	e.UpdatedAt = time.Now().UTC()

	reminders, subItems, err := encodeEntryLists(e)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE entries
		SET content = ?, note = ?, completed = ?, reminders = ?, sub_items = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		e.Content, e.Note, boolToInt(e.Completed), reminders, subItems, toUnix(e.UpdatedAt),
		e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return expectOneRow(res)
}

func encodeEntryLists(e *domain.Entry) (string, string, error) {
	rem := e.Reminders
	if rem == nil {
		rem = []domain.HHMM{}
	}
	items := e.SubItems
	if items == nil {
		items = []domain.SubItem{}
	}
	reminders, err := encodeJSON(rem)
	if err != nil {
		return "", "", fmt.Errorf("encode reminders: %w", err)
	}
	subItems, err := encodeJSON(items)
	if err != nil {
		return "", "", fmt.Errorf("encode sub-items: %w", err)
	}
	return reminders, subItems, nil
}
